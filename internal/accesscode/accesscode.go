// Package accesscode generates the human-typable codes students use to join
// a session.
package accesscode

import (
	"crypto/rand"
	"strings"
)

// Alphabet excludes characters prone to visual confusion (no 0/O, 1/I).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length of every generated code.
const Length = 6

// New returns a random 6-character access code. Calls are independent;
// collision handling is left to the caller.
func New() (string, error) {
	b := make([]byte, Length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	code := make([]byte, Length)
	for i := range code {
		code[i] = Alphabet[int(b[i])%len(Alphabet)]
	}
	return string(code), nil
}

// Normalize trims surrounding whitespace and uppercases a caller-supplied
// code so lookups are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
