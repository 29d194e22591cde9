// Package utils provides utility functions for the application.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

func ToPtr[T any](v T) *T {
	return &v
}

// IsTrue safely dereferences a *bool, treating nil as false
func IsTrue(b *bool) bool {
	return b != nil && *b
}

// Truncate caps s at max bytes. Oversized header values are stored truncated
// rather than rejected.
func Truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// HashIP returns the hex sha256 digest of a visitor address. An empty address
// hashes to the empty string so absent IPs never collide on a shared digest.
func HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

// HashAPIKey returns the hex sha256 digest of a raw API key
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
