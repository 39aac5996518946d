package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultStateTTL bounds how long an authorization flow may stay pending.
const DefaultStateTTL = 10 * time.Minute

// GenerateState produces a CSRF token for the authorization redirect: 32
// random bytes hex encoded.
func GenerateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("auth: state generation failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateState compares the callback state against the stored one in
// constant time. Empty values never validate.
func ValidateState(received, stored string) bool {
	received = strings.TrimSpace(received)
	stored = strings.TrimSpace(stored)
	if received == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(received), []byte(stored)) == 1
}
