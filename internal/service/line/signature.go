package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var (
	// ErrMissingSignature 表示請求缺少簽章標頭。
	ErrMissingSignature = errors.New("line: missing signature header")
	// ErrSignatureMismatch 表示簽章與請求本文不符。
	ErrSignatureMismatch = errors.New("line: signature mismatch")
)

// ValidateSignature checks the X-Line-Signature header value against the
// exact raw request bytes: HMAC-SHA256 over the body with the channel secret,
// base64-encoded, compared in full with hmac.Equal. The body must be the
// untouched wire bytes; validating anything re-serialized is a security bug.
func ValidateSignature(channelSecret string, body []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the signature LINE would send for the given body. Exported
// for tests and local tooling that need to forge valid webhook calls.
func Sign(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
