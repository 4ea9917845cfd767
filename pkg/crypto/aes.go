// Package crypto encrypts national identity numbers at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

var (
	ErrInvalidKey        = errors.New("encryption key must be 32 bytes")
	ErrMalformedCipher   = errors.New("malformed ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrEncryptorDisabled = errors.New("encryption key is not configured")
)

// Sealed is the stored form of an encrypted value.
type Sealed struct {
	Ciphertext *string
	Last4      *string
}

// Encryptor seals short identity values. The stored format is
// base64(iv):base64(ciphertext):base64(tag).
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor builds an encryptor. A nil key yields a disabled encryptor
// that fails only when asked to seal a non-empty value.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if key == nil {
		return &Encryptor{}, nil
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Encryptor{gcm: gcm}, nil
}

// Encrypt strips whitespace and seals the value. Empty input yields nil fields.
func (e *Encryptor) Encrypt(value string) (Sealed, error) {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
	if normalized == "" {
		return Sealed{}, nil
	}
	if e.gcm == nil {
		return Sealed{}, ErrEncryptorDisabled
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.gcm.Seal(nil, nonce, []byte(normalized), nil)
	tagStart := len(sealed) - e.gcm.Overhead()
	enc := base64.StdEncoding
	joined := strings.Join([]string{
		enc.EncodeToString(nonce),
		enc.EncodeToString(sealed[:tagStart]),
		enc.EncodeToString(sealed[tagStart:]),
	}, ":")

	last4 := normalized
	if runes := []rune(normalized); len(runes) > 4 {
		last4 = string(runes[len(runes)-4:])
	}
	return Sealed{Ciphertext: &joined, Last4: &last4}, nil
}

// Decrypt opens a value produced by Encrypt. Any tampering fails authentication.
func (e *Encryptor) Decrypt(stored string) (string, error) {
	if e.gcm == nil {
		return "", ErrEncryptorDisabled
	}
	parts := strings.Split(stored, ":")
	if len(parts) != 3 {
		return "", ErrMalformedCipher
	}
	enc := base64.StdEncoding
	nonce, err1 := enc.DecodeString(parts[0])
	body, err2 := enc.DecodeString(parts[1])
	tag, err3 := enc.DecodeString(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || len(nonce) != e.gcm.NonceSize() || len(tag) != e.gcm.Overhead() {
		return "", ErrMalformedCipher
	}

	plain, err := e.gcm.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}
