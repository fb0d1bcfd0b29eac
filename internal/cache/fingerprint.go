package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a stable content-derived cache key for a payload.
// The digest carries no salt or timestamp, so identical input always maps
// to the same key across restarts and platforms.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// FingerprintString is Fingerprint for text payloads.
func FingerprintString(payload string) string {
	return Fingerprint([]byte(payload))
}
