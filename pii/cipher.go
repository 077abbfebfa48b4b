package pii

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the CBC initialization vector length in bytes.
	IVSize = aes.BlockSize
)

var (
	// ErrKeyLength is returned when the key is not exactly 32 bytes.
	ErrKeyLength = errors.New("pii key must be 32 bytes")
	// ErrIVLength is returned when a static IV is not exactly 16 bytes.
	ErrIVLength = errors.New("pii iv must be 16 bytes")
	// ErrCorrupt is returned when a ciphertext cannot be decoded, is not a whole
	// number of blocks, or carries invalid padding.
	ErrCorrupt = errors.New("pii ciphertext corrupt")
)

// IVMode selects how initialization vectors are chosen.
type IVMode uint8

const (
	// IVStatic encrypts every value under the configured IV.
	IVStatic IVMode = iota
	// IVRandom encrypts every value under a fresh IV stored as the first block.
	IVRandom
)

// String returns the config spelling of the mode.
func (m IVMode) String() string {
	switch m {
	case IVStatic:
		return "static"
	case IVRandom:
		return "random"
	default:
		return fmt.Sprintf("IVMode(%d)", uint8(m))
	}
}

// ParseIVMode maps "static" or "random" onto an [IVMode].
func ParseIVMode(s string) (IVMode, error) {
	switch s {
	case "", "static":
		return IVStatic, nil
	case "random":
		return IVRandom, nil
	default:
		return IVStatic, fmt.Errorf("unknown pii iv mode %q", s)
	}
}

// Cipher is safe for concurrent use; it holds only read-only key material.
type Cipher struct {
	block cipher.Block
	iv    [IVSize]byte
	mode  IVMode
	rand  io.Reader
}

// New builds a Cipher. iv may be nil in [IVRandom] mode.
func New(key, iv []byte, mode IVMode) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeyLength
	}

	c := &Cipher{mode: mode, rand: rand.Reader}

	switch mode {
	case IVStatic:
		if len(iv) != IVSize {
			return nil, ErrIVLength
		}
		copy(c.iv[:], iv)
	case IVRandom:
		if len(iv) != 0 && len(iv) != IVSize {
			return nil, ErrIVLength
		}
	default:
		return nil, fmt.Errorf("unsupported pii iv mode %d", mode)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	c.block = block

	return c, nil
}

// NewFromHex decodes hex key and IV material, the form operators keep in the
// environment.
func NewFromHex(keyHex, ivHex string, mode IVMode) (*Cipher, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyLength, err)
	}

	var iv []byte
	if ivHex != "" {
		iv, err = hex.DecodeString(ivHex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIVLength, err)
		}
	}

	return New(key, iv, mode)
}

// Mode reports the IV mode the cipher was built with.
func (c *Cipher) Mode() IVMode {
	return c.mode
}

// Encrypt seals plaintext and returns its hex encoding.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	padded := pad([]byte(plaintext))

	var iv [IVSize]byte
	if c.mode == IVRandom {
		if _, err := io.ReadFull(c.rand, iv[:]); err != nil {
			return "", err
		}
	} else {
		iv = c.iv
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv[:]).CryptBlocks(out, padded)

	if c.mode == IVRandom {
		return hex.EncodeToString(iv[:]) + hex.EncodeToString(out), nil
	}
	return hex.EncodeToString(out), nil
}

// Decrypt reverses [Cipher.Encrypt]. Malformed input yields [ErrCorrupt].
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	iv := c.iv
	if c.mode == IVRandom {
		if len(raw) < IVSize {
			return "", fmt.Errorf("%w: missing iv", ErrCorrupt)
		}
		copy(iv[:], raw[:IVSize])
		raw = raw[IVSize:]
	}

	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: length %d", ErrCorrupt, len(raw))
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, iv[:]).CryptBlocks(out, raw)

	plain, err := unpad(out)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrCorrupt)
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrCorrupt)
		}
	}
	return b[:len(b)-n], nil
}
