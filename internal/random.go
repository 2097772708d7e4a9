package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// refreshAlphabet has exactly 64 symbols so each output byte maps to 6
// random bits with no modulo bias.
const refreshAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// RefreshTokenLength is the fixed length of opaque refresh tokens.
const RefreshTokenLength = 64

// NewCode generates a cryptographically random alphanumeric challenge code.
func NewCode(length int) (string, error) {
	if length < 1 || length > 32 {
		return "", errors.New("invalid code length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// NewRefreshToken generates a 64-character opaque session credential.
func NewRefreshToken() (string, error) {
	var raw [RefreshTokenLength]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}

	for i, b := range raw {
		raw[i] = refreshAlphabet[b&63]
	}

	return string(raw[:]), nil
}
