package crypto

// FieldCodec binds the cipher and the digester to record fields so that
// repositories encrypt on write, decrypt on read, and compute search digests
// without touching AES or HMAC primitives directly. The same codec serves
// scalar text columns and structured JSON columns.
type FieldCodec struct {
	cipher   *Cipher
	digester *Digester
}

// NewFieldCodec builds a codec from derived key material.
func NewFieldCodec(provider *KeyProvider) (*FieldCodec, error) {
	cipher, err := NewCipher(provider.EncryptionKey())
	if err != nil {
		return nil, err
	}
	return &FieldCodec{
		cipher:   cipher,
		digester: NewDigester(provider.DigestKey()),
	}, nil
}

// EncryptString encrypts a scalar column value.
func (c *FieldCodec) EncryptString(s string) (string, error) {
	return c.cipher.EncryptString(s)
}

// DecryptString decrypts a scalar column value, accepting legacy plaintext.
func (c *FieldCodec) DecryptString(envelope string) (string, error) {
	return c.cipher.DecryptString(envelope)
}

// EncryptStringPtr encrypts an optional scalar column value.
func (c *FieldCodec) EncryptStringPtr(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	envelope, err := c.cipher.EncryptString(*s)
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

// DecryptStringPtr decrypts an optional scalar column value.
func (c *FieldCodec) DecryptStringPtr(envelope *string) (*string, error) {
	if envelope == nil {
		return nil, nil
	}
	plain, err := c.cipher.DecryptString(*envelope)
	if err != nil {
		return nil, err
	}
	return &plain, nil
}

// EncryptValue serializes and encrypts a structured value (JSON blob column).
func (c *FieldCodec) EncryptValue(v any) (string, error) {
	return c.cipher.Encrypt(v)
}

// DecryptValue decrypts a structured column value into dst.
func (c *FieldCodec) DecryptValue(envelope string, dst any) error {
	return c.cipher.DecryptInto(envelope, dst)
}

// Digest computes the search digest of a value. Digests are always computed
// from plaintext, never from an envelope.
func (c *FieldCodec) Digest(value string) string {
	return c.digester.Digest(value)
}

// DigestPtr computes the search digest of an optional value.
func (c *FieldCodec) DigestPtr(value *string) *string {
	return c.digester.DigestPtr(value)
}
