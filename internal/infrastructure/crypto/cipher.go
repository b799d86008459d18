package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize = 32 // AES-256
	ivSize  = aes.BlockSize
)

var (
	// ErrInvalidKey is returned when the key or iv has the wrong length
	// or is not valid hex.
	ErrInvalidKey = errors.New("invalid cipher key or iv")

	// ErrMalformedCiphertext is returned when the ciphertext cannot be
	// decrypted: wrong encoding, truncated block, or broken padding.
	// A changed key after re-initialization surfaces as this error.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Cipher encrypts and decrypts short secrets with AES-256-CBC. The
// stored credential is a webhook URL, encrypted at rest so a leaked
// config file alone does not grant portal access.
type Cipher struct {
	key []byte
	iv  []byte
}

// NewCipher builds a cipher from hex-encoded key and iv strings.
func NewCipher(hexKey, hexIV string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != keySize {
		return nil, ErrInvalidKey
	}
	iv, err := hex.DecodeString(hexIV)
	if err != nil || len(iv) != ivSize {
		return nil, ErrInvalidKey
	}
	return &Cipher{key: key, iv: iv}, nil
}

// NewCipherFromPassphrase derives the key from a passphrase with
// PBKDF2-SHA256. The iv is still supplied explicitly so a stored
// ciphertext stays decryptable across restarts.
func NewCipherFromPassphrase(passphrase, salt, hexIV string) (*Cipher, error) {
	if passphrase == "" {
		return nil, ErrInvalidKey
	}
	key := pbkdf2.Key([]byte(passphrase), []byte(salt), 4096, keySize, sha256.New)
	iv, err := hex.DecodeString(hexIV)
	if err != nil || len(iv) != ivSize {
		return nil, ErrInvalidKey
	}
	return &Cipher{key: key, iv: iv}, nil
}

// GenerateKeyIV returns a fresh random key and iv, hex-encoded.
func GenerateKeyIV() (hexKey, hexIV string, err error) {
	buf := make([]byte, keySize+ivSize)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate key material: %w", err)
	}
	return hex.EncodeToString(buf[:keySize]), hex.EncodeToString(buf[keySize:]), nil
}

// Encrypt returns the base64-encoded AES-256-CBC ciphertext of text.
func (c *Cipher) Encrypt(text string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	padded := pad([]byte(text))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: not base64", ErrMalformedCiphertext)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: truncated block", ErrMalformedCiphertext)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(out, raw)

	unpadded, ok := unpad(out)
	if !ok {
		return "", fmt.Errorf("%w: bad padding", ErrMalformedCiphertext)
	}
	return string(unpadded), nil
}

// pad applies PKCS#7 padding up to the AES block size.
func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
