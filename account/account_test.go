package account

import (
	"strings"
	"testing"
	"time"
)

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	orig := &Account{
		ID:                 "a1",
		Email:              "a@example.com",
		SessionTokens:      []string{"t1", "t2"},
		ConfirmationSentAt: TimePtr(now),
		ConfirmedAt:        TimePtr(now),
		RecoverySentAt:     TimePtr(now),
	}

	cp := orig.Clone()
	cp.SessionTokens[0] = "changed"
	*cp.ConfirmedAt = now.Add(time.Hour)

	if orig.SessionTokens[0] != "t1" {
		t.Fatalf("clone shares token slice: %v", orig.SessionTokens)
	}
	if !orig.ConfirmedAt.Equal(now.UTC()) {
		t.Fatalf("clone shares ConfirmedAt pointer")
	}
}

func TestErrorsAddDeduplicates(t *testing.T) {
	var errs Errors
	errs.Add(CurrentSecretBlank)
	errs.Add(FieldError{Field: FieldCurrentPassword, Code: CodeBlank, Message: "again"})
	errs.Add(NewSecretBlank)

	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d (%v)", len(errs), errs)
	}
	if !errs.Has(CurrentSecretBlank) || !errs.Has(NewSecretBlank) {
		t.Fatalf("missing expected errors: %v", errs)
	}
	if got := errs.On(FieldPassword); len(got) != 1 {
		t.Fatalf("expected one password error, got %v", got)
	}
	if !strings.Contains(errs.Error(), "current_password: blank") {
		t.Fatalf("unexpected error string %q", errs.Error())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		acc  *Account
		want []FieldError
	}{
		{name: "valid", acc: &Account{Email: "user@example.com"}},
		{name: "blank email", acc: &Account{}, want: []FieldError{{Field: FieldEmail, Code: CodeBlank}}},
		{name: "malformed email", acc: &Account{Email: "nope"}, want: []FieldError{{Field: FieldEmail, Code: CodeInvalid}}},
		{
			name: "malformed pending email",
			acc:  &Account{Email: "user@example.com", PendingEmail: "bad"},
			want: []FieldError{{Field: FieldPendingEmail, Code: CodeInvalid}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.acc)
			if len(errs) != len(tt.want) {
				t.Fatalf("expected %d errors, got %v", len(tt.want), errs)
			}
			for _, w := range tt.want {
				if !errs.Has(w) {
					t.Fatalf("expected %v in %v", w, errs)
				}
			}
		})
	}
}

func TestSameInstant(t *testing.T) {
	now := time.Now()
	if !SameInstant(nil, nil) {
		t.Fatal("nil timestamps should compare equal")
	}
	if SameInstant(TimePtr(now), nil) {
		t.Fatal("set and nil should differ")
	}
	if !SameInstant(TimePtr(now), TimePtr(now.In(time.FixedZone("x", 3600)))) {
		t.Fatal("same instant in different zones should compare equal")
	}
}
