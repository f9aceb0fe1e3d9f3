package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// nonceSize is 16 bytes to stay wire-compatible with rows encrypted by the
// previous implementation, which used a 128-bit GCM IV.
const nonceSize = 16

// Cipher provides authenticated field-level encryption. Values are JSON
// serialized before encryption so scalar strings and structured objects share
// one code path, and stored as a three-part envelope:
//
//	<nonce-hex>:<tag-hex>:<ciphertext-hex>
//
// Encryption is non-deterministic (fresh random nonce per call); equality
// search over encrypted columns goes through Digester instead.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher from a 32-byte AES-256 key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("field cipher: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher: create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("field cipher: create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt serializes v to JSON and encrypts it into an envelope.
func (c *Cipher) Encrypt(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("field cipher: serialize value: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("field cipher: generate nonce: %w", err)
	}

	// Seal appends the 16-byte tag to the ciphertext; the envelope carries
	// the tag as its own segment.
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	tagStart := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens an envelope and returns the serialized JSON plaintext.
//
// Values that do not split into exactly three segments are treated as legacy
// plaintext written before encryption was introduced: if the raw value is
// valid JSON it is returned as-is, otherwise it is returned JSON-encoded as a
// string. Once a value splits into three segments it is committed to the
// envelope layout: bad hex, a wrong-sized nonce or tag, or failed
// authentication are all integrity errors, never silently degraded.
func (c *Cipher) Decrypt(envelope string) ([]byte, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return legacyPlaintext(envelope), nil
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return nil, apperr.New(apperr.KindIntegrity, "field cipher: malformed nonce segment")
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != c.aead.Overhead() {
		return nil, apperr.New(apperr.KindIntegrity, "field cipher: malformed tag segment")
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, apperr.New(apperr.KindIntegrity, "field cipher: malformed ciphertext segment")
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrity, "field cipher: authentication failed", err)
	}
	return plaintext, nil
}

// EncryptString encrypts a scalar text value.
func (c *Cipher) EncryptString(s string) (string, error) {
	return c.Encrypt(s)
}

// DecryptString decrypts an envelope holding a scalar text value. Legacy
// plaintext values come back unchanged.
func (c *Cipher) DecryptString(envelope string) (string, error) {
	raw, err := c.Decrypt(envelope)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Legacy row holding a bare, non-JSON string.
		return string(raw), nil
	}
	return s, nil
}

// DecryptInto decrypts an envelope and deserializes the plaintext into dst.
func (c *Cipher) DecryptInto(envelope string, dst any) error {
	raw, err := c.Decrypt(envelope)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Wrap(apperr.KindIntegrity, "field cipher: deserialize value", err)
	}
	return nil
}

// legacyPlaintext normalizes an unencrypted stored value to serialized JSON.
func legacyPlaintext(value string) []byte {
	if json.Valid([]byte(value)) {
		return []byte(value)
	}
	encoded, _ := json.Marshal(value)
	return encoded
}
