package businessflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/clipr-app/clipr/app/dto"
	"github.com/clipr-app/clipr/models"
	"github.com/clipr-app/clipr/repository"
	"github.com/clipr-app/clipr/utils"
)

// CredentialFlow issues and verifies API keys
// Only the sha256 digest of a key is stored; issuing a new key replaces and
// invalidates the previous one for the same owner
type CredentialFlow interface {
	IssueAPIKey(ctx context.Context, ownerID uint) (*dto.IssueAPIKeyResponse, error)
	VerifyAPIKey(ctx context.Context, rawKey string) (uint, error)
}

type CredentialFlowImpl struct {
	credRepo repository.APICredentialRepository
}

func NewCredentialFlow(credRepo repository.APICredentialRepository) CredentialFlow {
	return &CredentialFlowImpl{credRepo: credRepo}
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return "ck_" + hex.EncodeToString(buf), nil
}

func (f *CredentialFlowImpl) IssueAPIKey(ctx context.Context, ownerID uint) (*dto.IssueAPIKeyResponse, error) {
	rawKey, err := generateAPIKey()
	if err != nil {
		return nil, NewBusinessError("KEY_GENERATION_FAILED", "Failed to generate API key", err)
	}

	cred := &models.APICredential{
		OwnerID:   ownerID,
		KeyHash:   utils.HashAPIKey(rawKey),
		KeyPrefix: rawKey[:8],
		CreatedAt: utils.UTCNow(),
	}
	if err := f.credRepo.Replace(ctx, cred); err != nil {
		return nil, NewBusinessError("KEY_ISSUE_FAILED", "Failed to store API key", err)
	}

	return &dto.IssueAPIKeyResponse{
		Message:   "API key issued; store it now, it will not be shown again",
		APIKey:    rawKey,
		KeyPrefix: cred.KeyPrefix,
		CreatedAt: cred.CreatedAt,
	}, nil
}

func (f *CredentialFlowImpl) VerifyAPIKey(ctx context.Context, rawKey string) (uint, error) {
	if rawKey == "" {
		return 0, ErrInvalidAPIKey
	}
	cred, err := f.credRepo.ByKeyHash(ctx, utils.HashAPIKey(rawKey))
	if err != nil {
		return 0, NewBusinessError("KEY_LOOKUP_FAILED", "Failed to verify API key", err)
	}
	if cred == nil {
		return 0, ErrInvalidAPIKey
	}
	// Best effort; a stale last_used_at never blocks a request.
	_ = f.credRepo.TouchLastUsed(ctx, cred.ID, utils.UTCNow())
	return cred.OwnerID, nil
}
