package mocks

import (
	"bytes"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
)

var _ driven.SecretVault = (*MockVault)(nil)

var mockVaultPrefix = []byte("sealed:")

// MockVault is a reversible, non-cryptographic SecretVault for testing.
// Blobs without its prefix fail to decrypt, which simulates a rotated secret.
type MockVault struct {
	EncryptErr error
}

// NewMockVault creates a new MockVault
func NewMockVault() *MockVault {
	return &MockVault{}
}

func (m *MockVault) Encrypt(plaintext string) ([]byte, error) {
	if m.EncryptErr != nil {
		return nil, m.EncryptErr
	}
	return append(append([]byte{}, mockVaultPrefix...), plaintext...), nil
}

func (m *MockVault) Decrypt(blob []byte) (string, error) {
	if !bytes.HasPrefix(blob, mockVaultPrefix) {
		return "", domain.ErrDecryptionFailed
	}
	return string(blob[len(mockVaultPrefix):]), nil
}

// Seal is Encrypt without an error, for building fixtures.
func (m *MockVault) Seal(plaintext string) []byte {
	b, _ := m.Encrypt(plaintext)
	return b
}
