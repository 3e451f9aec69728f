// Package cardgen produces the public identifiers printed on cards and resolves
// template selections into catalog entries.
package cardgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Token length bounds and alphabet.
const (
	// TokenAlphabet is the 36-symbol token alphabet.
	TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// MinTokenLength is the shortest accepted token.
	MinTokenLength = 8
	// MaxTokenLength is the longest accepted token.
	MaxTokenLength = 10
	// DefaultTokenLength is used when no length is configured.
	DefaultTokenLength = 9
)

var tokenPattern = regexp.MustCompile(`^[A-Z0-9]{8,10}$`)

// GenerateToken draws length uniform symbols from TokenAlphabet.
// A zero length selects DefaultTokenLength; other values are clamped to [8,10].
// Uniqueness is the caller's job.
func GenerateToken(length int) (string, error) {
	n := clampTokenLength(length)
	max := big.NewInt(int64(len(TokenAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		out[i] = TokenAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// NormalizeToken trims and uppercases raw and reports whether it is a well-formed token.
func NormalizeToken(raw string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if !tokenPattern.MatchString(t) {
		return "", false
	}
	return t, true
}

func clampTokenLength(length int) int {
	switch {
	case length == 0:
		return DefaultTokenLength
	case length < MinTokenLength:
		return MinTokenLength
	case length > MaxTokenLength:
		return MaxTokenLength
	default:
		return length
	}
}
