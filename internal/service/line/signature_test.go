package line

import (
	"errors"
	"testing"
)

func TestValidateSignatureAccepts(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)

	if err := ValidateSignature(secret, body, Sign(secret, body)); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestValidateSignatureMissingHeader(t *testing.T) {
	err := ValidateSignature("channel-secret", []byte(`{}`), "")
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestValidateSignatureMismatch(t *testing.T) {
	secret := "channel-secret"
	signed := Sign(secret, []byte(`{"events":[]}`))

	// Signature computed over different bytes than the ones delivered.
	err := ValidateSignature(secret, []byte(`{"events":[{}]}`), signed)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestValidateSignatureRejectsPrefixMatch(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)
	full := Sign(secret, body)

	err := ValidateSignature(secret, body, full[:len(full)-4])
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected mismatch for truncated signature, got %v", err)
	}
}
