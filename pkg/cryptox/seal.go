package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

// ErrCiphertextTooShort is returned by Open when the input cannot contain a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Sealer encrypts small secrets (TOTP shared secrets) at rest using
// AES-256-GCM. The sealed form is base64(nonce || ciphertext || tag).
type Sealer struct {
	aead cipher.AEAD
}

// sealerInfo separates the TOTP sealing key from any other key derived from
// the same master key material.
const sealerInfo = "gatekeeper-totp-v1"

// NewSealer derives a 32-byte AES key from keyMaterial with HKDF-SHA256.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	return newSealer(keyMaterial, sealerInfo)
}

func newSealer(keyMaterial []byte, info string) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, errors.New("empty key material")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, keyMaterial, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

// LoadSealer builds a Sealer from, in order of preference:
//  1. the file at path (if path is non-empty)
//  2. the AUTH_MASTER_KEY environment variable
//  3. an ephemeral random key (development only, sealed data will not
//     survive a restart)
//
// The returned bool reports whether the key is ephemeral.
func LoadSealer(path string) (*Sealer, bool, error) {
	var keyMaterial []byte
	ephemeral := false

	switch {
	case path != "":
		data, err := os.ReadFile(path) // #nosec G304 - operator supplied path
		if err != nil {
			return nil, false, fmt.Errorf("failed to read master key file: %w", err)
		}
		keyMaterial = data
	case os.Getenv("AUTH_MASTER_KEY") != "":
		keyMaterial = []byte(os.Getenv("AUTH_MASTER_KEY"))
	default:
		keyMaterial = make([]byte, 32)
		if _, err := rand.Read(keyMaterial); err != nil {
			return nil, false, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
		ephemeral = true
	}

	s, err := NewSealer(keyMaterial)
	if err != nil {
		return nil, false, err
	}
	return s, ephemeral, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Tampered or foreign ciphertexts fail authentication.
func (s *Sealer) Open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}
