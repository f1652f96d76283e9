package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashString returns a short, stable fingerprint of personal data for log lines.
// Input is trimmed and lower-cased so "Jane@Ex.com " and "jane@ex.com" log the same value.
func HashString(input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}
