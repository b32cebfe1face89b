package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
)

func updateDeps(store *memStore, tokens *sequentialTokens, confirm, changed, emailChanged *recorder) UpdateDeps {
	return UpdateDeps{
		SendCredentialChanged:   true,
		SendEmailChanged:        true,
		Now:                     fixedClock(testNow),
		NewToken:                tokens.next,
		HashSecret:              plainHash,
		VerifySecret:            plainVerify,
		Save:                    store.Save,
		NotifyConfirmation:      confirm.notify,
		NotifyCredentialChanged: changed.notify,
		NotifyEmailChanged:      emailChanged.notify,
	}
}

func TestCheckCredentialUpdateCollectsAll(t *testing.T) {
	acc := confirmedAccount()

	errs := CheckCredentialUpdate(acc, "", "", plainVerify)
	if !errs.Has(account.CurrentSecretBlank) || !errs.Has(account.NewSecretBlank) {
		t.Fatalf("expected both blank errors, got %v", errs)
	}

	errs = CheckCredentialUpdate(acc, "wrong", "", plainVerify)
	if !errs.Has(account.CurrentSecretInvalid) || !errs.Has(account.NewSecretBlank) {
		t.Fatalf("expected invalid + blank, got %v", errs)
	}

	failing := func(string, string) (bool, error) { return false, errors.New("bad hash") }
	errs = CheckCredentialUpdate(acc, "current", "next", failing)
	if !errs.Has(account.CurrentSecretInvalid) || len(errs) != 1 {
		t.Fatalf("verifier error must count as invalid, got %v", errs)
	}

	if errs := CheckCredentialUpdate(acc, "current", "next", plainVerify); !errs.Empty() {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestCheckCredentialUpdateFirstTimeSet(t *testing.T) {
	acc := unconfirmedAccount()
	acc.PasswordHash = ""

	if errs := CheckCredentialUpdate(acc, "", "first", plainVerify); !errs.Empty() {
		t.Fatalf("account without hash needs no current secret, got %v", errs)
	}
}

func TestUpdateCredentialBlankBothNothingPersisted(t *testing.T) {
	acc := confirmedAccount()
	store := newMemStore(acc)
	changed := &recorder{}

	errs, err := RunUpdate(context.Background(), acc, UpdateRequest{ChangeSecret: true},
		updateDeps(store, &sequentialTokens{}, &recorder{}, changed, &recorder{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errs.Has(account.CurrentSecretBlank) || !errs.Has(account.NewSecretBlank) {
		t.Fatalf("expected aggregated errors, got %v", errs)
	}
	if store.saves != 0 || len(changed.calls) != 0 {
		t.Fatal("invalid update must not persist or notify")
	}
}

func TestUpdateCredentialClearsRecovery(t *testing.T) {
	acc := confirmedAccount()
	acc.RecoveryToken = "recover-me"
	acc.RecoverySentAt = account.TimePtr(testNow.Add(-time.Minute))
	store := newMemStore(acc)
	changed := &recorder{}

	errs, err := RunUpdate(context.Background(), acc, UpdateRequest{
		ChangeSecret:  true,
		CurrentSecret: "current",
		NewSecret:     "next",
	}, updateDeps(store, &sequentialTokens{}, &recorder{}, changed, &recorder{}))
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", errs, err)
	}
	if acc.RecoveryToken != "" || acc.RecoverySentAt != nil {
		t.Fatal("recovery fields must be cleared by a credential change")
	}
	stored := store.stored(acc.ID)
	if stored.PasswordHash != "hashed:next" || stored.RecoveryToken != "" {
		t.Fatalf("unexpected stored state: %+v", stored)
	}
	if len(changed.calls) != 1 {
		t.Fatalf("expected credential-changed notification, got %d", len(changed.calls))
	}
}

func TestUpdateEmailOnConfirmedAccountIsIntercepted(t *testing.T) {
	acc := confirmedAccount()
	store := newMemStore(acc)
	confirm, emailChanged := &recorder{}, &recorder{}
	email := "New@X.com"

	errs, err := RunUpdate(context.Background(), acc, UpdateRequest{Email: &email},
		updateDeps(store, &sequentialTokens{}, confirm, &recorder{}, emailChanged))
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", errs, err)
	}
	if acc.Email != "old@example.com" || acc.PendingEmail != "new@x.com" {
		t.Fatalf("expected interception, got email=%q pending=%q", acc.Email, acc.PendingEmail)
	}
	if acc.ConfirmationToken == "" || !acc.ConfirmationSentAt.Equal(testNow) {
		t.Fatal("expected a fresh confirmation cycle")
	}
	if !account.SameInstant(acc.ConfirmedAt, confirmedAccount().ConfirmedAt) {
		t.Fatal("confirmed_at must not move during interception")
	}
	if len(confirm.calls) != 1 || confirm.calls[0].PendingEmail != "new@x.com" {
		t.Fatal("confirmation must be sent for the pending address")
	}
	if len(emailChanged.calls) != 1 {
		t.Fatal("expected email-changed notification")
	}
}

func TestUpdateBlankEmailOnConfirmedAccountRejected(t *testing.T) {
	for _, email := range []string{"", "   "} {
		acc := confirmedAccount()
		acc.PendingEmail = "inflight@example.com"
		acc.ConfirmationToken = "tok-pending"
		store := newMemStore(acc)
		confirm := &recorder{}

		errs, err := RunUpdate(context.Background(), acc, UpdateRequest{Email: &email},
			updateDeps(store, &sequentialTokens{}, confirm, &recorder{}, &recorder{}))
		if err != nil {
			t.Fatalf("email %q: unexpected error: %v", email, err)
		}
		if !errs.Has(account.EmailBlank) {
			t.Fatalf("email %q: expected email blank, got %v", email, errs)
		}
		if store.saves != 0 || len(confirm.calls) != 0 {
			t.Fatalf("email %q: nothing may be saved or sent, saves=%d sent=%d", email, store.saves, len(confirm.calls))
		}
		if acc.PendingEmail != "inflight@example.com" || acc.ConfirmationToken != "tok-pending" {
			t.Fatalf("email %q: in-flight change must survive, pending=%q token=%q", email, acc.PendingEmail, acc.ConfirmationToken)
		}
	}
}

func TestUpdateBlankEmailReportedWithCredentialErrors(t *testing.T) {
	acc := confirmedAccount()
	store := newMemStore(acc)
	email := " "

	errs, err := RunUpdate(context.Background(), acc, UpdateRequest{
		Email:         &email,
		ChangeSecret:  true,
		CurrentSecret: "wrong",
		NewSecret:     "next",
	}, updateDeps(store, &sequentialTokens{}, &recorder{}, &recorder{}, &recorder{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errs.Has(account.EmailBlank) || !errs.Has(account.CurrentSecretInvalid) {
		t.Fatalf("expected email and credential errors together, got %v", errs)
	}
	if store.saves != 0 {
		t.Fatal("rejected update must not persist")
	}
}

func TestUpdateEmailOnUnconfirmedAccountAppliesDirectly(t *testing.T) {
	acc := unconfirmedAccount()
	acc.ConfirmationToken = "old-token"
	acc.ConfirmationSentAt = account.TimePtr(testNow.Add(-time.Hour))
	store := newMemStore(acc)
	confirm := &recorder{}
	email := "fixed@example.com"

	errs, err := RunUpdate(context.Background(), acc, UpdateRequest{Email: &email},
		updateDeps(store, &sequentialTokens{}, confirm, &recorder{}, &recorder{}))
	if err != nil || !errs.Empty() {
		t.Fatalf("unexpected failure: %v %v", errs, err)
	}
	if acc.Email != email || acc.PendingEmail != "" {
		t.Fatalf("expected direct change, got email=%q pending=%q", acc.Email, acc.PendingEmail)
	}
	if acc.ConfirmationToken == "old-token" || len(confirm.calls) != 1 {
		t.Fatal("expected confirmation cycle restarted for the new address")
	}
}

func TestUpdateRejectsMalformedEmail(t *testing.T) {
	acc := unconfirmedAccount()
	store := newMemStore(acc)
	email := "not-an-email"

	errs, err := RunUpdate(context.Background(), acc, UpdateRequest{Email: &email},
		updateDeps(store, &sequentialTokens{}, &recorder{}, &recorder{}, &recorder{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs.On(account.FieldEmail)) == 0 {
		t.Fatalf("expected email error, got %v", errs)
	}
	if acc.Email != "new@example.com" || store.saves != 0 {
		t.Fatal("invalid update must leave the account untouched")
	}
}

func TestUpdateNotificationFailureStillPersists(t *testing.T) {
	acc := confirmedAccount()
	store := newMemStore(acc)
	changed := &recorder{err: errors.New("smtp down")}

	_, err := RunUpdate(context.Background(), acc, UpdateRequest{
		ChangeSecret:  true,
		CurrentSecret: "current",
		NewSecret:     "next",
	}, updateDeps(store, &sequentialTokens{}, &recorder{}, changed, &recorder{}))
	if err == nil {
		t.Fatal("expected notification error")
	}
	if acc.PasswordHash != "hashed:next" || store.stored(acc.ID).PasswordHash != "hashed:next" {
		t.Fatal("persisted change must be visible despite notify failure")
	}
}
