package driven

// SecretVault seals secrets for storage at rest.
// Implementations must be safe for concurrent use.
type SecretVault interface {
	// Encrypt seals plaintext into an opaque blob.
	Encrypt(plaintext string) ([]byte, error)

	// Decrypt opens a blob produced by Encrypt.
	// Returns domain.ErrDecryptionFailed on tamper, truncation or a wrong secret.
	Decrypt(blob []byte) (string, error)
}
