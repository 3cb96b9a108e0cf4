package booking

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet deliberately drops I, L, O, 0 and 1 so codes survive being
// read over the phone.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewConfirmationCode returns a random code of n characters. Uniqueness is
// enforced by the store; callers retry on collision.
func NewConfirmationCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
