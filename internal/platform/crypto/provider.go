// Package crypto implements field-level encryption for patient data: key
// derivation from the configured secret, AES-256-GCM value encryption with
// the legacy-compatible three-part envelope, and keyed search digests that
// allow equality search over encrypted columns.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// digestKeyLabel separates the search-digest key from the cipher key so a
// digest can never be used to decrypt a value.
const digestKeyLabel = "search-digest-v1"

// KeyProvider derives the symmetric key material used by the cipher and the
// search digest generator from one configured secret.
type KeyProvider struct {
	encryptionKey []byte
	digestKey     []byte
	ephemeral     bool
}

// NewKeyProvider derives a 32-byte AES key as SHA-256(secret) and a digest
// key as HMAC-SHA256(key, label).
//
// An empty secret is a fatal configuration error in production: data written
// under a silently-defaulted key would be unrecoverable once the real secret
// is configured. Outside production a random per-process key is generated and
// a loud warning is emitted; anything encrypted under it is lost on restart.
func NewKeyProvider(secret string, production bool, logger zerolog.Logger) (*KeyProvider, error) {
	if secret == "" {
		if production {
			return nil, apperr.New(apperr.KindConfiguration,
				"ENCRYPTION_SECRET is required in production; refusing to start without key material")
		}
		key := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, apperr.Wrap(apperr.KindConfiguration, "generate ephemeral key", err)
		}
		logger.Warn().Msg("ENCRYPTION_SECRET not set; using an ephemeral key — encrypted data will be UNRECOVERABLE after restart")
		return &KeyProvider{
			encryptionKey: key,
			digestKey:     deriveDigestKey(key),
			ephemeral:     true,
		}, nil
	}

	sum := sha256.Sum256([]byte(secret))
	key := sum[:]
	return &KeyProvider{
		encryptionKey: key,
		digestKey:     deriveDigestKey(key),
	}, nil
}

func deriveDigestKey(key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(digestKeyLabel))
	return mac.Sum(nil)
}

// EncryptionKey returns the 32-byte AES-256 key.
func (p *KeyProvider) EncryptionKey() []byte { return p.encryptionKey }

// DigestKey returns the key used for search digests.
func (p *KeyProvider) DigestKey() []byte { return p.digestKey }

// Ephemeral reports whether the key was generated for this process only.
func (p *KeyProvider) Ephemeral() bool { return p.ephemeral }
