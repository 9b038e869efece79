// Package models defines data structures for Stakd
package models

// VaultEnvelope is the sealed vault export format. The key is derived from
// the user's passphrase with argon2id over Salt; Ciphertext is the vault
// JSON sealed with ChaCha20-Poly1305 under Nonce. All byte fields encode
// as base64 in JSON.
type VaultEnvelope struct {
	Version    int    `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// EnvelopeVersion is the current export format version.
const EnvelopeVersion = 1
