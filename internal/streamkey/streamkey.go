// Package streamkey generates publish identifiers for transports that name
// streams on the wire (the SRT streamid and the RTMP publishing name).
package streamkey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// keyBytes sized so keys are unguessable without being unwieldy in URLs
const keyBytes = 16

// Generate creates a secure random stream key
func Generate() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate stream key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// MustGenerate is Generate for callers with no error path; it panics only if
// the operating system RNG is unavailable.
func MustGenerate() string {
	key, err := Generate()
	if err != nil {
		panic(err)
	}
	return key
}
