package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey creates a SHA256 hash of an identifier.
// This is useful for creating consistent, safe keys for Redis.
func HashKey(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
