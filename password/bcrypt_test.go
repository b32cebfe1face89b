package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	hasher, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	if ok, err := hasher.Verify("correct horse", hash); err != nil || !ok {
		t.Fatalf("expected verify success, got %v, %v", ok, err)
	}
	if ok, err := hasher.Verify("battery staple", hash); err != nil || ok {
		t.Fatalf("expected mismatch without error, got %v, %v", ok, err)
	}
}

func TestBcryptRejectsForeignAndEmpty(t *testing.T) {
	hasher, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	if _, err := hasher.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := hasher.Verify("x", "$argon2id$v=19$m=1,t=1,p=1$a$b"); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
	if _, err := hasher.Verify("x", "$2a$broken"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}

func TestNewSelectsAlgorithm(t *testing.T) {
	h, err := New(Config{Algorithm: AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("New(bcrypt) error: %v", err)
	}
	if _, ok := h.(*Bcrypt); !ok {
		t.Fatalf("expected *Bcrypt, got %T", h)
	}

	h, err = New(secureConfig())
	if err != nil {
		t.Fatalf("New(default) error: %v", err)
	}
	if _, ok := h.(*Argon2); !ok {
		t.Fatalf("expected *Argon2, got %T", h)
	}

	if _, err := New(Config{Algorithm: "md5"}); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
	if _, err := NewBcrypt(64); err == nil {
		t.Fatal("expected out-of-range cost to be rejected")
	}
}
