package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateSecureOTP generates a cryptographically secure 6-digit OTP
func GenerateSecureOTP() (string, error) {
	// Generate a random number between 0 and 999999
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	// Format with leading zeros to ensure 6 digits
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode produces the stored hash for an OTP: HMAC-SHA256 over phone+code
// keyed with the server pepper. Deterministic, so verification is a single
// compare against the stored value.
func HashCode(phone, code, pepper string) string {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(phone))
	h.Write([]byte(":"))
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

// HashPhone produces a stable peppered digest of a phone number, stored
// alongside the plaintext for lookups that must not expose the number.
func HashPhone(phone, pepper string) string {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(phone))
	return hex.EncodeToString(h.Sum(nil))
}

// HashEqual compares two hex hashes in constant time
func HashEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// MaskPhone hides the middle digits of a phone number for display,
// e.g. "9990001234" -> "999****234"
func MaskPhone(phone string) string {
	if len(phone) < 7 {
		return "****"
	}
	return phone[:3] + "****" + phone[len(phone)-3:]
}
