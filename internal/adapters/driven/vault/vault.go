// Package vault seals credentials at rest with a key derived from a master secret.
package vault

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

// Ensure Vault implements SecretVault
var _ driven.SecretVault = (*Vault)(nil)

const (
	// saltSize is the per-blob KDF salt length
	saltSize = 16

	// nonceSize is the XSalsa20 nonce length
	nonceSize = 24

	// keySize is the secretbox key length
	keySize = 32

	// MinSecretLength is the shortest accepted master secret.
	MinSecretLength = 16

	headerSize = saltSize + nonceSize
)

// KDFParams are the scrypt cost parameters. They are not stored in the blob,
// so every process sharing a database must use the same values.
type KDFParams struct {
	N int
	R int
	P int
}

// DefaultKDFParams returns the production scrypt cost.
func DefaultKDFParams() KDFParams {
	return KDFParams{N: 1 << 15, R: 8, P: 1}
}

// Vault encrypts secrets with XSalsa20-Poly1305 under a key derived per blob
// from the master secret and a random salt with scrypt.
// The blob format is: salt(16) || nonce(24) || ciphertext(N+16)
type Vault struct {
	secret []byte
	params KDFParams
}

// New creates a Vault with the production KDF cost.
func New(masterSecret string) (*Vault, error) {
	return NewWithParams(masterSecret, DefaultKDFParams())
}

// NewWithParams creates a Vault with explicit KDF cost. Lower costs are for tests.
func NewWithParams(masterSecret string, params KDFParams) (*Vault, error) {
	if len(masterSecret) < MinSecretLength {
		return nil, domain.ErrWeakSecret
	}
	return &Vault{secret: []byte(masterSecret), params: params}, nil
}

// Encrypt seals plaintext. Each call uses a fresh salt and nonce.
func (v *Vault) Encrypt(plaintext string) ([]byte, error) {
	blob := make([]byte, headerSize, headerSize+len(plaintext)+secretbox.Overhead)
	if _, err := io.ReadFull(rand.Reader, blob[:headerSize]); err != nil {
		return nil, fmt.Errorf("generate salt and nonce: %w", err)
	}

	key, err := v.deriveKey(blob[:saltSize])
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], blob[saltSize:headerSize])

	return secretbox.Seal(blob, []byte(plaintext), &nonce, key), nil
}

// Decrypt opens a blob produced by Encrypt.
func (v *Vault) Decrypt(blob []byte) (string, error) {
	if len(blob) < headerSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: blob is %d bytes", domain.ErrDecryptionFailed, len(blob))
	}

	key, err := v.deriveKey(blob[:saltSize])
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], blob[saltSize:headerSize])

	plaintext, ok := secretbox.Open(nil, blob[headerSize:], &nonce, key)
	if !ok {
		return "", domain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func (v *Vault) deriveKey(salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key(v.secret, salt, v.params.N, v.params.R, v.params.P, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}
