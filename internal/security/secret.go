package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// SecretLength is the number of digits in a card setup code.
const SecretLength = 6

// secretCost is the bcrypt work factor for setup codes.
//
// A 10^6 keyspace falls to an offline brute force whatever the cost; setup codes
// are protected by the online lockout in the claim flow, not by hash strength.
const secretCost = 10

var secretSpace = big.NewInt(1_000_000)

// GenerateSecret returns a uniform 6-digit setup code; leading zeros are kept.
func GenerateSecret() (string, error) {
	n, err := rand.Int(rand.Reader, secretSpace)
	if err != nil {
		return "", fmt.Errorf("generate setup code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashSecret hashes a setup code for storage.
func HashSecret(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), secretCost)
	if err != nil {
		return "", fmt.Errorf("hash setup code: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether plain matches hash. bcrypt compares in constant time.
func VerifySecret(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidSecretFormat reports whether s is exactly six ASCII digits.
func ValidSecretFormat(s string) bool {
	if len(s) != SecretLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
