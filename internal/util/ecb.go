package util

import (
	"bytes"
	"crypto/aes"
	"errors"
	"fmt"
)

// ECB mode only exists to read values written by older releases. Nothing new
// is ever encrypted with it outside of tests that build legacy fixtures.

var errBadPadding = errors.New("invalid PKCS#7 padding")

func EncryptAESECB(plainText, rawKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	bs := block.BlockSize()
	padded := pkcs7Pad(plainText, bs)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += bs {
		block.Encrypt(out[i:i+bs], padded[i:i+bs])
	}
	return out, nil
}

func DecryptAESECB(cipherText, rawKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	bs := block.BlockSize()
	if len(cipherText) == 0 || len(cipherText)%bs != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of %d", len(cipherText), bs)
	}
	out := make([]byte, len(cipherText))
	for i := 0; i < len(cipherText); i += bs {
		block.Decrypt(out[i:i+bs], cipherText[i:i+bs])
	}
	return pkcs7Unpad(out, bs)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(CopyBytes(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, errBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}
