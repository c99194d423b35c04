package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrTampered is returned when a sealed value fails authentication
var ErrTampered = errors.New("sealed value failed authentication")

// Sealer encrypts sensitive identifiers at rest with AES-CBC and authenticates
// IV||ciphertext with HMAC-SHA256 (encrypt-then-MAC).
type Sealer struct {
	encKey []byte
	macKey []byte
}

// NewSealer builds a sealer from hex encoded keys. The encryption key must be 16, 24 or 32 bytes.
func NewSealer(encKeyHex, macKeyHex string) (*Sealer, error) {
	encKey, err := hex.DecodeString(encKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(encKey) != 16 && len(encKey) != 24 && len(encKey) != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(encKey))
	}
	macKey, err := hex.DecodeString(macKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode hmac secret: %w", err)
	}
	if len(macKey) < 32 {
		return nil, fmt.Errorf("hmac secret must be at least 32 bytes, got %d", len(macKey))
	}
	return &Sealer{encKey: encKey, macKey: macKey}, nil
}

// Seal encrypts data and returns hex(iv || ciphertext || mac)
func (s *Sealer) Seal(data string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("input data is empty")
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// PKCS#7 padding
	dataBytes := []byte(data)
	padding := aes.BlockSize - len(dataBytes)%aes.BlockSize
	for i := 0; i < padding; i++ {
		dataBytes = append(dataBytes, byte(padding))
	}

	ciphertext := make([]byte, len(dataBytes))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, dataBytes)

	sealed := append(iv, ciphertext...)
	sealed = append(sealed, s.mac(sealed)...)
	return hex.EncodeToString(sealed), nil
}

// Open authenticates and decrypts a value produced by Seal
func (s *Sealer) Open(encoded string) (string, error) {
	if len(encoded) == 0 {
		return "", fmt.Errorf("encrypted data is empty")
	}
	data, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(data) < 2*aes.BlockSize+sha256.Size {
		return "", fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}

	body, tag := data[:len(data)-sha256.Size], data[len(data)-sha256.Size:]
	if !hmac.Equal(tag, s.mac(body)) {
		return "", ErrTampered
	}

	iv, ciphertext := body[:aes.BlockSize], body[aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d bytes", len(ciphertext))
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding > aes.BlockSize || padding == 0 {
		return "", fmt.Errorf("invalid padding value: %d", padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("invalid padding bytes at position %d", i)
		}
	}
	return string(plaintext[:len(plaintext)-padding]), nil
}

func (s *Sealer) mac(data []byte) []byte {
	h := hmac.New(sha256.New, s.macKey)
	h.Write(data)
	return h.Sum(nil)
}
