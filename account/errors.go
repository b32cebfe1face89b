package account

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by repositories when no account matches the criteria.
	ErrNotFound = errors.New("account not found")
	// ErrConflict is returned by Save when the stored Version has moved on.
	ErrConflict = errors.New("account version conflict")
	// ErrDuplicate is returned by Create or Save when the email is already taken.
	ErrDuplicate = errors.New("account email already taken")
)

// Field names carried by FieldError.
const (
	FieldEmail             = "email"
	FieldPendingEmail      = "pending_email"
	FieldCurrentPassword   = "current_password"
	FieldPassword          = "password"
	FieldConfirmationToken = "confirmation_token"
	FieldRecoveryToken     = "recovery_token"
)

// Error codes carried by FieldError.
const (
	CodeBlank            = "blank"
	CodeInvalid          = "invalid"
	CodeAlreadyConfirmed = "already_confirmed"
	CodeExpired          = "expired"
	CodeUnconfirmed      = "unconfirmed"
	CodeTaken            = "taken"
)

// FieldError is a single validation failure attached to a field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Well-known failures of the credential, confirmation and recovery flows.
var (
	CurrentSecretBlank       = FieldError{Field: FieldCurrentPassword, Code: CodeBlank}
	CurrentSecretInvalid     = FieldError{Field: FieldCurrentPassword, Code: CodeInvalid}
	NewSecretBlank           = FieldError{Field: FieldPassword, Code: CodeBlank}
	NewSecretInvalid         = FieldError{Field: FieldPassword, Code: CodeInvalid}
	AlreadyConfirmed         = FieldError{Field: FieldEmail, Code: CodeAlreadyConfirmed}
	ConfirmationTokenExpired = FieldError{Field: FieldConfirmationToken, Code: CodeExpired}
	ConfirmationTokenInvalid = FieldError{Field: FieldConfirmationToken, Code: CodeInvalid}
	RecoveryUnconfirmed      = FieldError{Field: FieldEmail, Code: CodeUnconfirmed}
	RecoveryTokenExpired     = FieldError{Field: FieldRecoveryToken, Code: CodeExpired}
	RecoveryTokenInvalid     = FieldError{Field: FieldRecoveryToken, Code: CodeInvalid}
	EmailTaken               = FieldError{Field: FieldEmail, Code: CodeTaken}
	EmailBlank               = FieldError{Field: FieldEmail, Code: CodeBlank, Message: "cannot be blank"}
)

// Is matches on Field and Code; Message is informational.
func (f FieldError) Is(other FieldError) bool {
	return f.Field == other.Field && f.Code == other.Code
}

func (f FieldError) String() string {
	if f.Message != "" {
		return f.Field + ": " + f.Message
	}
	return f.Field + ": " + f.Code
}

// Errors is an ordered set of field errors. All failures of an operation are
// collected before it gives up; a nil or empty set means the input was valid.
type Errors []FieldError

// Add appends fe unless an identical field/code pair is already present.
func (e *Errors) Add(fe FieldError) {
	if e.Has(fe) {
		return
	}
	*e = append(*e, fe)
}

// Merge appends every error from other.
func (e *Errors) Merge(other Errors) {
	for _, fe := range other {
		e.Add(fe)
	}
}

// Has reports whether a field/code pair is present.
func (e Errors) Has(fe FieldError) bool {
	for _, existing := range e {
		if existing.Is(fe) {
			return true
		}
	}
	return false
}

// On returns the errors attached to field.
func (e Errors) On(field string) Errors {
	var out Errors
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe)
		}
	}
	return out
}

// Empty reports whether no error was collected.
func (e Errors) Empty() bool {
	return len(e) == 0
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.String())
	}
	return strings.Join(parts, "; ")
}
