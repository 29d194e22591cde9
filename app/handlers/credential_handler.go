package handlers

import (
	"context"
	"log"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CredentialHandlerInterface defines the contract for credential handlers
type CredentialHandlerInterface interface {
	IssueAPIKey(c fiber.Ctx) error
}

// CredentialHandler handles API key issuance. The route is deployed behind
// an operator boundary, not on the public surface.
type CredentialHandler struct {
	credentialFlow businessflow.CredentialFlow
	validator      *validator.Validate
}

func NewCredentialHandler(credentialFlow businessflow.CredentialFlow) *CredentialHandler {
	return &CredentialHandler{
		credentialFlow: credentialFlow,
		validator:      validator.New(),
	}
}

func (h *CredentialHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// IssueAPIKeyRequest identifies the owner a key is issued for
type IssueAPIKeyRequest struct {
	OwnerID uint `json:"owner_id" validate:"required,gte=1"`
}

// IssueAPIKey issues a fresh API key, replacing any existing one
// @Summary Issue API Key
// @Description Issue a new API key for an owner; the previous key stops working
// @Tags Credentials
// @Accept json
// @Produce json
// @Param request body IssueAPIKeyRequest true "Owner to issue for"
// @Success 201 {object} dto.APIResponse{data=dto.IssueAPIKeyResponse} "Key issued"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/credentials [post]
func (h *CredentialHandler) IssueAPIKey(c fiber.Ctx) error {
	var req IssueAPIKeyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.credentialFlow.IssueAPIKey(h.createRequestContext(c, "/api/v1/credentials"), req.OwnerID)
	if err != nil {
		log.Println("API key issuance failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to issue API key", "KEY_ISSUE_FAILED", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.APIResponse{
		Success: true,
		Message: "API key issued successfully",
		Data:    result,
	})
}

func (h *CredentialHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}
