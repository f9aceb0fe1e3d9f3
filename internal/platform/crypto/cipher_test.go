package crypto

import (
	"crypto/rand"
	"encoding/json"
	"strings"
	"testing"

	"github.com/medrec/medrec/internal/platform/apperr"
)

func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return key
}

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(generateTestKey(t))
	if err != nil {
		t.Fatalf("create cipher: %v", err)
	}
	return c
}

func TestNewCipher(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		c, err := NewCipher(generateTestKey(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c == nil {
			t.Fatal("expected non-nil cipher")
		}
	})

	t.Run("key too short", func(t *testing.T) {
		if _, err := NewCipher(make([]byte, 16)); err == nil {
			t.Fatal("expected error for 16-byte key")
		}
	})

	t.Run("empty key", func(t *testing.T) {
		if _, err := NewCipher(nil); err == nil {
			t.Fatal("expected error for empty key")
		}
	})
}

func TestStringRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	cases := []string{
		"Dupont",
		"Jean-Pierre",
		"IPP-00012345",
		"1980-01-01",
		"éàüñ 漢字 🏥",
		"",
		"value:with:colons",
	}

	for _, plaintext := range cases {
		t.Run(plaintext, func(t *testing.T) {
			envelope, err := c.EncryptString(plaintext)
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			if strings.Count(envelope, ":") != 2 {
				t.Fatalf("envelope %q is not three colon-separated segments", envelope)
			}

			decrypted, err := c.DecryptString(envelope)
			if err != nil {
				t.Fatalf("decrypt: %v", err)
			}
			if decrypted != plaintext {
				t.Errorf("roundtrip failed: got %q, want %q", decrypted, plaintext)
			}
		})
	}
}

func TestStructuredRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	original := map[string]any{
		"allergies": []any{"latex", "pénicilline"},
		"asa":       "2",
		"notes":     "RAS",
		"weight":    float64(72),
	}

	envelope, err := c.Encrypt(original)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	var decrypted map[string]any
	if err := c.DecryptInto(envelope, &decrypted); err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	want, _ := json.Marshal(original)
	got, _ := json.Marshal(decrypted)
	if string(got) != string(want) {
		t.Errorf("roundtrip failed: got %s, want %s", got, want)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c := newTestCipher(t)

	e1, err := c.EncryptString("Dupont")
	if err != nil {
		t.Fatalf("encrypt 1: %v", err)
	}
	e2, err := c.EncryptString("Dupont")
	if err != nil {
		t.Fatalf("encrypt 2: %v", err)
	}

	if e1 == e2 {
		t.Error("two encryptions of the same value must produce different envelopes")
	}

	d1, err := c.DecryptString(e1)
	if err != nil {
		t.Fatalf("decrypt 1: %v", err)
	}
	d2, err := c.DecryptString(e2)
	if err != nil {
		t.Fatalf("decrypt 2: %v", err)
	}
	if d1 != "Dupont" || d2 != "Dupont" {
		t.Error("both envelopes must decrypt to the original value")
	}
}

func TestTamperDetection(t *testing.T) {
	c := newTestCipher(t)

	envelope, err := c.EncryptString("sensitive value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	parts := strings.Split(envelope, ":")

	flip := func(s string) string {
		b := []byte(s)
		if b[0] == 'a' {
			b[0] = 'b'
		} else {
			b[0] = 'a'
		}
		return string(b)
	}

	t.Run("tampered tag", func(t *testing.T) {
		tampered := parts[0] + ":" + flip(parts[1]) + ":" + parts[2]
		if _, err := c.DecryptString(tampered); err == nil {
			t.Fatal("expected integrity error for tampered tag")
		}
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := parts[0] + ":" + parts[1] + ":" + flip(parts[2])
		if _, err := c.DecryptString(tampered); err == nil {
			t.Fatal("expected integrity error for tampered ciphertext")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other := newTestCipher(t)
		if _, err := other.DecryptString(envelope); err == nil {
			t.Fatal("expected integrity error when decrypting under a different key")
		}
	})
}

func TestMalformedEnvelope(t *testing.T) {
	c := newTestCipher(t)

	envelope, err := c.EncryptString("sensitive value")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	parts := strings.Split(envelope, ":")

	cases := map[string]string{
		"non-hex nonce":      "zz" + parts[0][2:] + ":" + parts[1] + ":" + parts[2],
		"truncated nonce":    parts[0][:8] + ":" + parts[1] + ":" + parts[2],
		"non-hex tag":        parts[0] + ":zz" + parts[1][2:] + ":" + parts[2],
		"truncated tag":      parts[0] + ":" + parts[1][:8] + ":" + parts[2],
		"non-hex ciphertext": parts[0] + ":" + parts[1] + ":zz",
	}
	for name, malformed := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := c.DecryptString(malformed); !apperr.Is(err, apperr.KindIntegrity) {
				t.Errorf("expected integrity error, got %v", err)
			}
		})
	}
}

func TestLegacyPlaintextFallback(t *testing.T) {
	c := newTestCipher(t)

	t.Run("legacy JSON string", func(t *testing.T) {
		got, err := c.DecryptString(`"Dupont"`)
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if got != "Dupont" {
			t.Errorf("got %q, want %q", got, "Dupont")
		}
	})

	t.Run("legacy bare string", func(t *testing.T) {
		got, err := c.DecryptString("not json, no colons")
		if err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if got != "not json, no colons" {
			t.Errorf("got %q, want raw input unchanged", got)
		}
	})

	t.Run("legacy JSON object", func(t *testing.T) {
		var m map[string]any
		if err := c.DecryptInto(`{"a":1}`, &m); err != nil {
			t.Fatalf("decrypt: %v", err)
		}
		if m["a"] != float64(1) {
			t.Errorf("got %v, want a=1", m)
		}
	})
}
