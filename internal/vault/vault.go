package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

var ErrCiphertextTooShort = errors.New("vault: ciphertext too short")

// Vault seals small secrets (backend bearer tokens) before they reach disk.
// The key is derived once at startup; Seal and Open are safe for concurrent use.
type Vault struct {
	gcm cipher.AEAD
}

// GenerateSalt returns SaltSize cryptographically random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 32-byte AES-256 key from a secret and salt using Argon2id.
func DeriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMem, argonPar, keySize)
}

// New derives the vault key from secret and salt.
func New(secret string, salt []byte) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault: empty secret")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("vault: salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	block, err := aes.NewCipher(DeriveKey(secret, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Vault{gcm: gcm}, nil
}

// Seal encrypts plaintext. Output format: [12-byte nonce][AES-256-GCM ciphertext]
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, nonceSize+len(plaintext)+v.gcm.Overhead())
	out = append(out, nonce...)
	return v.gcm.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func (v *Vault) Open(data []byte) ([]byte, error) {
	if len(data) < nonceSize+v.gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := v.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
