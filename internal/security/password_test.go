package security

import (
	"errors"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/errs"
)

func TestHashPassword_CompareRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse", nil)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if err := ComparePassword(hash, "correct horse"); err != nil {
		t.Fatalf("compare with the right password: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("compare with a wrong password must fail")
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("12345", nil); !errors.Is(err, errs.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestHashPassword_CustomMinLength(t *testing.T) {
	cfg := &BcryptConfig{MinLength: 10}
	if _, err := HashPassword("short", cfg); !errors.Is(err, errs.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := HashPassword("long enough pass", cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
