// Package credentials manages the PIN that locks child mode on a shared device
package credentials

import (
	"crypto/rand"
	"errors"
	"math/big"

	"visualroutine/internal/security"
	"visualroutine/internal/validation"
)

// PINLength is the number of digits in a child-mode PIN
const PINLength = 4

var ErrPINNotSet = errors.New("child PIN not set")

// GeneratePIN returns a random 4-digit PIN, leading zeros allowed
func GeneratePIN() (string, error) {
	const digits = "0123456789"
	pin := make([]byte, PINLength)

	for i := 0; i < PINLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		pin[i] = digits[num.Int64()]
	}

	return string(pin), nil
}

// HashPIN validates and hashes a PIN for storage
func HashPIN(pin string) (string, error) {
	if err := validation.ValidatePIN(pin); err != nil {
		return "", err
	}
	return security.HashPassword(pin)
}

// VerifyPIN checks a PIN against its stored hash. It returns ErrPINNotSet when no PIN
// has been configured, so callers can let the user leave child mode freely.
func VerifyPIN(pin, hash string) (bool, error) {
	if hash == "" {
		return false, ErrPINNotSet
	}
	if validation.ValidatePIN(pin) != nil {
		return false, nil
	}
	return security.CheckPassword(pin, hash), nil
}
