package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// Delivery codes are short numeric secrets shared out-of-band between buyer
// and vendor. Only the bcrypt hash is durable; verification goes through the
// hash, never a stored plaintext.

const (
	codeMin = 1000
	codeMax = 9999

	// DefaultBcryptCost matches the cost the rest of the platform uses for
	// short-lived delivery codes.
	DefaultBcryptCost = 10
)

var codePattern = regexp.MustCompile(`^\d{4}$`)

// GenerateDeliveryCode returns a uniformly random 4-digit code in [1000, 9999].
func GenerateDeliveryCode() (string, error) {
	span := big.NewInt(codeMax - codeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate delivery code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// HashDeliveryCode produces a salted bcrypt hash of the raw code.
func HashDeliveryCode(code string, cost int) (string, error) {
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("delivery code must be 4 digits")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("hash delivery code: %w", err)
	}
	return string(hash), nil
}

// VerifyDeliveryCode reports whether the raw code matches the stored hash.
// bcrypt's comparison is constant-time with respect to the code.
func VerifyDeliveryCode(code, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(code))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, fmt.Errorf("verify delivery code: %w", err)
}
