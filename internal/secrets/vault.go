// Package secrets seals sensitive contact values for storage in the primary
// database. Values are encrypted with an AEAD so that a dump of the users
// table never exposes a contact number; decryption happens only at the point
// of authorized disclosure.
package secrets

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoKey is returned when the vault was constructed without a key and a
// seal/open operation was attempted.
var ErrNoKey = errors.New("contact vault: no key configured")

// ErrCiphertext is returned when a stored blob is too short or fails
// authentication. Either means the value cannot be disclosed.
var ErrCiphertext = errors.New("contact vault: invalid ciphertext")

// Vault seals and opens contact values with XChaCha20-Poly1305. The zero
// Vault (no key) refuses to seal or open, which turns a missing CONTACT_KEY
// into loud per-request errors rather than silent plaintext storage.
type Vault struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
}

// New constructs a Vault from a 32-byte key. A nil or empty key yields a
// disabled vault; any other bad key length is an error.
func New(key []byte) (*Vault, error) {
	if len(key) == 0 {
		return &Vault{}, nil
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// Enabled reports whether the vault holds a key.
func (v *Vault) Enabled() bool { return v.aead != nil }

// Seal encrypts value into a self-contained blob (nonce || ciphertext)
// suitable for a database column. Each call uses a fresh random nonce, so
// sealing the same value twice produces different blobs.
func (v *Vault) Seal(value string) ([]byte, error) {
	if v.aead == nil {
		return nil, ErrNoKey
	}
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return v.aead.Seal(nonce, nonce, []byte(value), nil), nil
}

// Open decrypts a blob produced by Seal and returns the original value.
func (v *Vault) Open(blob []byte) (string, error) {
	if v.aead == nil {
		return "", ErrNoKey
	}
	ns := v.aead.NonceSize()
	if len(blob) <= ns {
		return "", ErrCiphertext
	}
	plain, err := v.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}
