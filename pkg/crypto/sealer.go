package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	randomRead = rand.Read

	ErrInvalidKey         = errors.New("sealing key must be 32 bytes (64 hex chars)")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Sealer encrypts small blobs (ID photos) at rest with AES-256-GCM.
// The AES key is derived from the configured master key with HKDF so one
// master key can serve several purposes without key reuse.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a purpose-bound key from masterKeyHex and returns a Sealer
func NewSealer(masterKeyHex, purpose string) (*Sealer, error) {
	master, err := hex.DecodeString(masterKeyHex)
	if err != nil || len(master) != 32 {
		return nil, ErrInvalidKey
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal returns nonce||ciphertext. Empty input seals to nil.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := randomRead(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. Empty input opens to nil.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	ns := s.aead.NonceSize()
	if len(sealed) < ns {
		return nil, ErrCiphertextTooShort
	}
	return s.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
}
