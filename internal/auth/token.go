package auth

import (
	"crypto/rand"
	"fmt"
)

// TokenLength is the number of characters in a confirmation token.
// 25 symbols from a 62-symbol alphabet carry about 148 bits of entropy.
const TokenLength = 25

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Largest multiple of len(tokenAlphabet) that fits in a byte. Bytes at or
// above it are discarded so every symbol is equally likely.
const tokenRejectAbove = 256 - 256%len(tokenAlphabet)

// GenerateToken returns a fresh confirmation token drawn from crypto/rand.
func GenerateToken() (string, error) {
	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength*2)

	for len(out) < TokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		for _, b := range buf {
			if int(b) >= tokenRejectAbove {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}

	return string(out), nil
}

// ValidTokenFormat reports whether s has the shape of a generated token.
// It is a cheap pre-check before any store lookup.
func ValidTokenFormat(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
