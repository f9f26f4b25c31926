package auth

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// KeyValidator compares a presented API key against the configured secret.
// The secret is bound once at construction and is immutable for the process
// lifetime; to change it, construct a new validator.
//
// Only a SHA-256 digest of the secret is retained, sealed in a memguard
// Enclave so the raw key never sits in reachable heap memory.
type KeyValidator struct {
	digest *memguard.Enclave
}

// NewKeyValidator binds the configured secret. An empty secret produces a
// fail-closed validator that rejects every presented key.
func NewKeyValidator(secret string) *KeyValidator {
	if secret == "" {
		return &KeyValidator{}
	}
	sum := sha256.Sum256([]byte(secret))
	return &KeyValidator{digest: memguard.NewEnclave(sum[:])}
}

// Configured reports whether a secret was bound at construction.
func (v *KeyValidator) Configured() bool {
	return v != nil && v.digest != nil
}

// Validate reports whether the presented key matches the configured secret.
//
// Both sides are reduced to fixed-size digests and compared with
// subtle.ConstantTimeCompare, so comparison cost does not depend on where a
// mismatch occurs or on the presented key's length.
func (v *KeyValidator) Validate(presented string) bool {
	if !v.Configured() {
		return false
	}
	buf, err := v.digest.Open()
	if err != nil {
		return false
	}
	defer buf.Destroy()
	sum := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(buf.Bytes(), sum[:]) == 1
}
