package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"netventure.org/internal/validate"
)

// PIN length bounds, checked before hashing.
const (
	MinPINLength = 4
	MaxPINLength = 32
)

// HashPIN hashes a plaintext PIN with bcrypt.
func HashPIN(pin string) (string, error) {
	if len(pin) < MinPINLength {
		return "", validate.Fieldf("pin", fmt.Sprintf("pin must be at least %d characters", MinPINLength))
	}
	if len(pin) > MaxPINLength {
		return "", validate.Fieldf("pin", fmt.Sprintf("pin must be at most %d characters", MaxPINLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// LegacyPINHash is the unsalted SHA-256 hex digest older catalogs store.
func LegacyPINHash(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// VerifyPIN compares pin against a bcrypt or legacy SHA-256 hex hash.
func VerifyPIN(hash, pin string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" || pin == "" || len(pin) > MaxPINLength {
		return ErrInvalidPIN
	}
	if strings.HasPrefix(hash, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
			return ErrInvalidPIN
		}
		return nil
	}
	want, err := hex.DecodeString(strings.ToLower(hash))
	if err != nil || len(want) != sha256.Size {
		return ErrInvalidPIN
	}
	got := sha256.Sum256([]byte(pin))
	if subtle.ConstantTimeCompare(want, got[:]) != 1 {
		return ErrInvalidPIN
	}
	return nil
}
