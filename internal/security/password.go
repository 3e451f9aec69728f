package security

import "golang.org/x/crypto/bcrypt"

// adminPasswordCost is the bcrypt work factor for operator passwords.
const adminPasswordCost = 12

// HashPassword hashes an operator password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), adminPasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext operator password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
