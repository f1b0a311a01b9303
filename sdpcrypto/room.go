package sdpcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrBadCiphertext means Decrypt was given a ciphertext that does not
// decode, or whose length is not a whole number of AES blocks.
var ErrBadCiphertext = errors.New("sdpcrypto: malformed ciphertext")

// RoomKey is a symmetric AES-256 key for the (external) Room layer. The
// signaling core never constructs or consumes one itself.
type RoomKey [32]byte

// roomEnvelope is the wire shape of an encrypted message: {c, iv}.
type roomEnvelope struct {
	C  []byte `json:"c"`
	IV []byte `json:"iv"`
}

// DeriveRoomKey computes SHA-256 over "<password>:<ns>" and returns it as an
// AES-256 key.
func DeriveRoomKey(password, ns string) RoomKey {
	return sha256.Sum256([]byte(password + ":" + ns))
}

// Encrypt produces a JSON envelope {c: ciphertext, iv: 16 random bytes}
// encrypting plaintext under k with AES-256-CBC and PKCS#7 padding. A fresh
// random IV is generated on every call.
func (k RoomKey) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, fmt.Errorf("sdpcrypto: new cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(crand.Reader, iv); err != nil {
		return nil, fmt.Errorf("sdpcrypto: read iv: %w", err)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return json.Marshal(roomEnvelope{C: ciphertext, IV: iv})
}

// Decrypt is the exact inverse of Encrypt.
func (k RoomKey) Decrypt(envelope []byte) ([]byte, error) {
	var env roomEnvelope
	if err := json.Unmarshal(envelope, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCiphertext, err)
	}
	if len(env.IV) != aes.BlockSize {
		return nil, fmt.Errorf("%w: bad iv length", ErrBadCiphertext)
	}
	if len(env.C) == 0 || len(env.C)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext length", ErrBadCiphertext)
	}

	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, fmt.Errorf("sdpcrypto: new cipher: %w", err)
	}

	padded := make([]byte, len(env.C))
	cipher.NewCBCDecrypter(block, env.IV).CryptBlocks(padded, env.C)

	return pkcs7Unpad(padded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrBadCiphertext)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrBadCiphertext)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: bad padding", ErrBadCiphertext)
		}
	}
	return data[:len(data)-padLen], nil
}
