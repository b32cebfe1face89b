package account

import (
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Validate checks the record-level field rules: a present, well-formed email and
// a well-formed pending email when one is in flight. Credential and token rules
// are applied by the flows, not here.
func Validate(a *Account) Errors {
	var errs Errors
	if a == nil {
		errs.Add(FieldError{Field: FieldEmail, Code: CodeBlank})
		return errs
	}

	if strings.TrimSpace(a.Email) == "" {
		errs.Add(FieldError{Field: FieldEmail, Code: CodeBlank, Message: "cannot be blank"})
	}

	err := validation.ValidateStruct(a,
		validation.Field(&a.Email, is.Email),
		validation.Field(&a.PendingEmail, is.Email),
	)
	if err == nil {
		return errs
	}

	fieldErrs, ok := err.(validation.Errors)
	if !ok {
		errs.Add(FieldError{Field: FieldEmail, Code: CodeInvalid, Message: err.Error()})
		return errs
	}

	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		errs.Add(FieldError{Field: field, Code: CodeInvalid, Message: fieldErrs[field].Error()})
	}
	return errs
}
