// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware validates API keys for the management endpoints
type AuthMiddleware struct {
	credentialFlow businessflow.CredentialFlow
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(credentialFlow businessflow.CredentialFlow) *AuthMiddleware {
	return &AuthMiddleware{
		credentialFlow: credentialFlow,
	}
}

// Authenticate is the middleware function that validates API keys. The key
// comes from X-API-Key or an Authorization bearer header; on success the
// resolved owner ID is stored in request locals.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			authHeader := c.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "API key is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_API_KEY",
				},
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ownerID, err := m.credentialFlow.VerifyAPIKey(ctx, apiKey)
		if err != nil {
			if businessflow.IsInvalidAPIKey(err) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
					Success: false,
					Message: "Invalid API key",
					Error: dto.ErrorDetail{
						Code: "INVALID_API_KEY",
					},
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Failed to verify API key",
				Error: dto.ErrorDetail{
					Code: "KEY_VERIFICATION_FAILED",
				},
			})
		}

		c.Locals("owner_id", ownerID)
		return c.Next()
	}
}
