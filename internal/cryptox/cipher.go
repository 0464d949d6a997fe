// Package cryptox implements the symmetric cipher used to keep provider
// refresh tokens encrypted at rest.
//
// Tokens are encrypted with AES-256-CBC and PKCS#7 padding under a static
// 32-byte key. The serialized form is hex(iv) + ":" + hex(ciphertext).
// CBC carries no MAC: tampering is only detected when it breaks the padding.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
)

// KeySize is the required AES-256 key length in bytes.
const KeySize = 32

// TokenCipher encrypts and decrypts refresh tokens with a fixed key.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher parses a 64-character hex key. An empty key, invalid hex or
// a decoded length other than KeySize yields common.ErrorConfiguration.
func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("%w: encryption key not configured", common.ErrorConfiguration)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != KeySize {
		return nil, fmt.Errorf("%w: encryption key must be a 64-character hex string (32 bytes)", common.ErrorConfiguration)
	}
	return &TokenCipher{key: key}, nil
}

// Encrypt returns hex(iv):hex(ciphertext) for plaintext using a fresh IV.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := common.GenerateRandByteArray(aes.BlockSize)
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Everything after the first colon is treated as
// ciphertext.
func (c *TokenCipher) Decrypt(token string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(token, ":")
	if !ok {
		return "", fmt.Errorf("%w: malformed token", common.ErrorDecryption)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: invalid iv", common.ErrorDecryption)
	}

	// a stray colon inside the ciphertext part is never valid hex
	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", common.ErrorDecryption)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext is not a multiple of the block size", common.ErrorDecryption)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", common.ErrorDecryption)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", common.ErrorDecryption)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", common.ErrorDecryption)
		}
	}
	return b[:len(b)-n], nil
}
