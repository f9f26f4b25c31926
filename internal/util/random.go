package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the raw entropy per generated token. 32 bytes keeps a wide
// margin over the 128-bit minimum required for unguessable identifiers.
const tokenBytes = 32

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}

// RandomToken returns an unguessable URL-safe token.
func RandomToken() (string, error) {
	b, err := RandomBytes(tokenBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
