package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize lower-cases and trims surrounding whitespace. Internal whitespace
// is preserved so that genuinely different texts keep different fingerprints.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Fingerprint returns the SHA-256 hex digest of the normalized text. Texts
// differing only by case or surrounding whitespace fingerprint identically.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
