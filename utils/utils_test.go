package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashIP(t *testing.T) {
	t.Run("EmptyIPStaysEmpty", func(t *testing.T) {
		assert.Equal(t, "", HashIP(""))
	})

	t.Run("Sha256Hex", func(t *testing.T) {
		sum := sha256.Sum256([]byte("203.0.113.9"))
		assert.Equal(t, hex.EncodeToString(sum[:]), HashIP("203.0.113.9"))
		assert.Len(t, HashIP("203.0.113.9"), 64)
	})

	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, HashIP("2001:db8::1"), HashIP("2001:db8::1"))
		assert.NotEqual(t, HashIP("203.0.113.9"), HashIP("203.0.113.10"))
	})
}

func TestHashAPIKey(t *testing.T) {
	assert.Len(t, HashAPIKey("ck_deadbeef"), 64)
	assert.NotEqual(t, HashAPIKey("ck_a"), HashAPIKey("ck_b"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("", 10))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
	assert.Equal(t, "abc", Truncate("abc", 3))
}

func TestIsTrue(t *testing.T) {
	assert.False(t, IsTrue(nil))
	assert.False(t, IsTrue(ToPtr(false)))
	assert.True(t, IsTrue(ToPtr(true)))
}

func TestStartOfDayUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2026, 8, 31, 1, 30, 0, 0, loc)
	out := StartOfDayUTC(in)
	assert.Equal(t, time.UTC, out.Location())
	assert.Equal(t, 0, out.Hour())
	// 01:30 UTC+3 is still the previous UTC day
	assert.Equal(t, 30, out.Day())
}
