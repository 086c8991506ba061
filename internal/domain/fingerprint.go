package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const fingerprintDelimiter = "|"

// Fingerprint joins the semantically relevant fields of a request in order.
// An empty field list yields an empty string.
func Fingerprint(fields ...string) string {
	return strings.Join(fields, fingerprintDelimiter)
}

// RequestHash is the sha256 hex digest of Fingerprint(fields...). It returns
// an empty string for an empty field list so callers can reject degenerate
// fingerprints.
func RequestHash(fields ...string) string {
	if len(fields) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(Fingerprint(fields...)))
	return hex.EncodeToString(sum[:])
}
