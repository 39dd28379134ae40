// Package cryptox bundles the cryptographic primitives backupd relies on:
// AES-GCM for client-side blob encryption, SHA-256 content checksums, and
// RSA PKCS#1 v1.5 signatures for license documents.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/vkozyrev/backupd/internal/common"
)

// EncryptionKeySize is the account key length in bytes (AES-256).
const EncryptionKeySize = 32

// ErrCiphertextTooShort is returned when a blob is shorter than the
// prepended nonce and cannot possibly be valid.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// NewEncryptionKey returns a fresh random symmetric key suitable for
// AES-256-GCM. One key is issued per account at registration and is never
// regenerated; there is no server-side escrow.
func NewEncryptionKey() []byte {
	return common.GenerateRandByteArray(EncryptionKeySize)
}

// EncryptBlob encrypts plaintext with AES-GCM under key and returns the
// nonce followed by the ciphertext as a single blob. The key must be a
// valid AES key length (16, 24, or 32 bytes).
func EncryptBlob(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBlob reverses EncryptBlob: it splits the leading nonce off the
// blob and opens the remainder. Authentication failures surface as the
// underlying cipher error.
func DecryptBlob(blob, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(blob) < aesgcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := blob[:aesgcm.NonceSize()], blob[aesgcm.NonceSize():]
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
