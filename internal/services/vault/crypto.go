package vault

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// Key derivation parameters. Argon2id over a random salt keeps brute
// forcing an exported vault expensive even for a weak passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	saltSize     = 16
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// sealVault encrypts the serialized vault under a passphrase-derived key.
// XChaCha20-Poly1305's 24-byte nonce is safe to draw at random per export.
func sealVault(plaintext []byte, passphrase string) (*models.VaultEnvelope, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is required")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &models.VaultEnvelope{
		Version:    models.EnvelopeVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// openVault reverses sealVault. A wrong passphrase surfaces as an
// authentication failure, indistinguishable from tampering.
func openVault(envelope *models.VaultEnvelope, passphrase string) ([]byte, error) {
	if envelope == nil {
		return nil, fmt.Errorf("envelope is required")
	}
	if envelope.Version != models.EnvelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", envelope.Version)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is required")
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, envelope.Salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if len(envelope.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("invalid envelope nonce")
	}

	plaintext, err := aead.Open(nil, envelope.Nonce, envelope.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("wrong passphrase or corrupted envelope")
	}
	return plaintext, nil
}
