// Package secrets encrypts SSO client secrets at rest. AES-256-GCM with a
// key derived from configured key material; the stored form is
// base64(nonce || ciphertext || tag). Secrets are written only by the admin
// configuration surface and decrypted only at the OAuth code-exchange call
// site.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

const nonceSize = 12

// ErrDecrypt is returned for any undecryptable payload, wrong key included.
var ErrDecrypt = errors.New("failed to decrypt secret")

// deriveKey stretches arbitrary key material to a 256-bit key.
func deriveKey(keyMaterial string) [32]byte {
	return sha256.Sum256([]byte(keyMaterial))
}

func newGCM(keyMaterial string) (cipher.AEAD, error) {
	key := deriveKey(keyMaterial)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with a key derived from keyMaterial.
func Encrypt(plaintext, keyMaterial string) (string, error) {
	gcm, err := newGCM(keyMaterial)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt.
func Decrypt(ciphertextB64, keyMaterial string) (string, error) {
	gcm, err := newGCM(keyMaterial)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding", ErrDecrypt)
	}

	if len(data) < nonceSize+gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plaintext), nil
}
