package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digester produces deterministic, keyed one-way digests of normalized field
// values. Digests exist because GCM envelopes are non-deterministic: two
// encryptions of the same name never compare equal, so equality search runs
// against the digest column instead.
//
// A digest is an index, not encryption: it supports exact normalized-value
// equality only, never substring or range queries.
type Digester struct {
	key []byte
}

// NewDigester creates a Digester with the given HMAC key.
func NewDigester(key []byte) *Digester {
	return &Digester{key: key}
}

// Normalize lower-cases and trims the value. Search is therefore case- and
// surrounding-whitespace-insensitive.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Digest returns the hex HMAC-SHA256 of the normalized value. Same normalized
// input always yields the same digest, across process restarts.
func (d *Digester) Digest(value string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(Normalize(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

// DigestPtr digests an optional value; nil stays nil so NULL columns never
// match an empty-string probe.
func (d *Digester) DigestPtr(value *string) *string {
	if value == nil {
		return nil
	}
	digest := d.Digest(*value)
	return &digest
}
