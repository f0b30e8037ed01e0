package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// secretSymbols is the extra alphabet used for shared secrets.
	secretSymbols = "!@#$%^&*()-_ []{}<>~`+=,.;:/?|"
)

// SecretAlphabet is the full character set secrets are drawn from.
const SecretAlphabet = alphanumeric + secretSymbols

// TokenAlphabet is the character set auto-login tokens are drawn from. It is
// URL-safe so tokens travel in query strings unescaped.
const TokenAlphabet = alphanumeric

// NewSecret returns length characters drawn uniformly from SecretAlphabet.
func NewSecret(length int) (string, error) {
	return randomString(length, SecretAlphabet)
}

// NewToken returns length characters drawn uniformly from TokenAlphabet.
func NewToken(length int) (string, error) {
	return randomString(length, TokenAlphabet)
}

// IsToken reports whether s could have been produced by NewToken(length).
func IsToken(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(TokenAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

func randomString(length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid random string length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return b.String(), nil
}
