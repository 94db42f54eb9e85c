package utils

import (
	"crypto/rand"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}

// GenerateNumericCode returns a random n-digit numeric code (for OTP email verification).
func GenerateNumericCode(n int) (string, error) {
	const digits = "0123456789"
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// Reject bytes >= 250 so each digit stays uniform; a plain
			// modulo would skew toward 0-5.
			if b >= 250 {
				continue
			}
			out = append(out, digits[b%10])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
