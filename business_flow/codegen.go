package businessflow

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/clipr-app/clipr/repository"
	"github.com/clipr-app/clipr/utils"
)

// GenerateShortCode returns a random code of the given length over the short
// code alphabet, using crypto/rand so codes are not guessable.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		length = utils.ShortCodeLength
	}
	alphabet := utils.ShortCodeAlphabet
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// AllocateShortCode generates codes until one is not already taken, bounded
// by maxAttempts. The check is advisory; the storage layer still rejects a
// code that races in between, and callers retry on ErrDuplicateKey.
func AllocateShortCode(ctx context.Context, repo repository.LinkRepository, length, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = utils.ShortCodeMaxAttempts
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := GenerateShortCode(length)
		if err != nil {
			return "", err
		}
		taken, err := repo.IsTaken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check short code availability: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
