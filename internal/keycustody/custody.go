package keycustody

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDecryptionFailed covers malformed blobs and wrong master keys alike.
// Callers must treat it as fatal to the operation; garbage key material is
// never returned.
var ErrDecryptionFailed = errors.New("private key decryption failed")

const masterKeyLength = 32

// Service holds escrow private keys in custody: it generates keypairs and
// encrypts key material at rest with AES-256-GCM under a process-wide master
// key sourced from the environment.
type Service struct {
	masterKey []byte
}

func NewService(masterKeyHex string) (*Service, error) {
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex")
	}
	if len(key) != masterKeyLength {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", masterKeyLength, len(key))
	}
	return &Service{masterKey: key}, nil
}

// Encrypt seals the private key bytes under the master key with a fresh
// random nonce. Blob format: hex(nonce) + ":" + hex(ciphertext), so
// decryption is self-contained.
func (s *Service) Encrypt(privateKey []byte) (string, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, privateKey, nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ciphertext), nil
}

func (s *Service) Decrypt(blob string) ([]byte, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 2 {
		return nil, ErrDecryptionFailed
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
