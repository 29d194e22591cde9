package handlers

import (
	"bytes"
	"context"
	"log"
	"strconv"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// LinkHandlerInterface defines the contract for link management handlers
type LinkHandlerInterface interface {
	CreateLink(c fiber.Ctx) error
	GetLink(c fiber.Ctx) error
	ListLinks(c fiber.Ctx) error
	UpdateLink(c fiber.Ctx) error
	DeactivateLink(c fiber.Ctx) error
	CheckSlug(c fiber.Ctx) error
	ExportLinks(c fiber.Ctx) error
	ImportLinks(c fiber.Ctx) error
}

// LinkHandler handles link management HTTP requests
type LinkHandler struct {
	shortenFlow  businessflow.ShortenFlow
	transferFlow businessflow.TransferFlow
	validator    *validator.Validate
}

func NewLinkHandler(shortenFlow businessflow.ShortenFlow, transferFlow businessflow.TransferFlow) *LinkHandler {
	return &LinkHandler{
		shortenFlow:  shortenFlow,
		transferFlow: transferFlow,
		validator:    validator.New(),
	}
}

func (h *LinkHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LinkHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ownerFromContext(c fiber.Ctx) (uint, bool) {
	ownerID, ok := c.Locals("owner_id").(uint)
	return ownerID, ok
}

func linkUUIDFromPath(c fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("uuid"))
}

// CreateLink handles the link shortening process
// @Summary Create Link
// @Description Shorten a URL with an optional custom slug
// @Tags Links
// @Accept json
// @Produce json
// @Param request body dto.CreateLinkRequest true "Link creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateLinkResponse} "Link created"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 409 {object} dto.APIResponse "Slug or code already taken"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLink(c fiber.Ctx) error {
	var req dto.CreateLinkRequest
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

	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	req.OwnerID = &ownerID

	result, err := h.shortenFlow.CreateLink(h.createRequestContext(c, "/api/v1/links"), &req)
	if err != nil {
		if businessflow.IsIdentifierTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Slug is already taken", "IDENTIFIER_TAKEN", nil)
		}
		if businessflow.IsSlugRejected(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "SLUG_REJECTED", nil)
		}
		switch err {
		case businessflow.ErrOriginalURLEmpty, businessflow.ErrOriginalURLInvalid, businessflow.ErrOriginalURLTooLong:
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_URL", nil)
		}

		log.Println("Link creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Link creation failed", "LINK_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Link created successfully", result)
}

// GetLink fetches one owned link
// @Summary Get Link
// @Tags Links
// @Produce json
// @Param uuid path string true "Link UUID"
// @Success 200 {object} dto.APIResponse{data=dto.LinkResponse} "Link fetched"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Router /api/v1/links/{uuid} [get]
func (h *LinkHandler) GetLink(c fiber.Ctx) error {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	linkUUID, err := linkUUIDFromPath(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	result, err := h.shortenFlow.GetLink(h.createRequestContext(c, "/api/v1/links/"+linkUUID.String()), linkUUID, ownerID)
	if err != nil {
		return h.linkError(c, err, "Failed to fetch link", "FETCH_LINK_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Link fetched successfully", result)
}

// ListLinks returns a paginated view of the owner's links
// @Summary List Links
// @Description List the authenticated owner's links with search, sort and pagination
// @Tags Links
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param orderby query string false "Sort order: newest, oldest, most_clicked"
// @Param search query string false "Search in URL, slug, title and code"
// @Param is_active query bool false "Filter by active state"
// @Success 200 {object} dto.APIResponse{data=dto.ListLinksResponse} "Links fetched"
// @Failure 400 {object} dto.APIResponse "Invalid pagination"
// @Router /api/v1/links [get]
func (h *LinkHandler) ListLinks(c fiber.Ctx) error {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	req := &dto.ListLinksRequest{
		OwnerID: ownerID,
		Page:    page,
		Limit:   limit,
		OrderBy: c.Query("orderby"),
	}
	filter := &dto.ListLinksFilter{}
	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}
	if isActive := c.Query("is_active"); isActive != "" {
		parsed, err := strconv.ParseBool(isActive)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "is_active must be a boolean", "INVALID_FILTER", nil)
		}
		filter.IsActive = &parsed
	}
	if filter.Search != nil || filter.IsActive != nil {
		req.Filter = filter
	}

	result, err := h.shortenFlow.ListLinks(h.createRequestContext(c, "/api/v1/links"), req)
	if err != nil {
		switch err {
		case businessflow.ErrInvalidPage, businessflow.ErrInvalidPageSize, businessflow.ErrInvalidOrderBy:
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_PAGINATION", nil)
		}
		log.Println("List links failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list links", "LIST_LINKS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Links fetched successfully", result)
}

// UpdateLink edits the destination URL or title of an owned link
// @Summary Update Link
// @Tags Links
// @Accept json
// @Produce json
// @Param uuid path string true "Link UUID"
// @Param request body dto.UpdateLinkRequest true "Link update data"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateLinkResponse} "Link updated"
// @Failure 403 {object} dto.APIResponse "Link access denied"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Router /api/v1/links/{uuid} [patch]
func (h *LinkHandler) UpdateLink(c fiber.Ctx) error {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	linkUUID, err := linkUUIDFromPath(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	var req dto.UpdateLinkRequest
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
	req.OwnerID = ownerID

	result, err := h.shortenFlow.UpdateLink(h.createRequestContext(c, "/api/v1/links/"+linkUUID.String()), linkUUID, &req)
	if err != nil {
		switch err {
		case businessflow.ErrOriginalURLEmpty, businessflow.ErrOriginalURLInvalid, businessflow.ErrOriginalURLTooLong:
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_URL", nil)
		}
		return h.linkError(c, err, "Failed to update link", "UPDATE_LINK_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Link updated successfully", result)
}

// DeactivateLink disables an owned link so it no longer resolves
// @Summary Deactivate Link
// @Tags Links
// @Produce json
// @Param uuid path string true "Link UUID"
// @Success 200 {object} dto.APIResponse "Link deactivated"
// @Failure 403 {object} dto.APIResponse "Link access denied"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Router /api/v1/links/{uuid} [delete]
func (h *LinkHandler) DeactivateLink(c fiber.Ctx) error {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	linkUUID, err := linkUUIDFromPath(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	if err := h.shortenFlow.DeactivateLink(h.createRequestContext(c, "/api/v1/links/"+linkUUID.String()), linkUUID, ownerID); err != nil {
		return h.linkError(c, err, "Failed to deactivate link", "DEACTIVATE_LINK_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Link deactivated successfully", nil)
}

// CheckSlug reports whether a custom slug can be claimed
// @Summary Check Slug Availability
// @Tags Links
// @Produce json
// @Param slug path string true "Candidate slug"
// @Success 200 {object} dto.APIResponse{data=dto.SlugAvailabilityResponse} "Availability checked"
// @Router /api/v1/links/slug/{slug} [get]
func (h *LinkHandler) CheckSlug(c fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Slug is required", "INVALID_REQUEST", nil)
	}

	result, err := h.shortenFlow.CheckSlug(h.createRequestContext(c, "/api/v1/links/slug/"+slug), slug)
	if err != nil {
		log.Println("Slug check failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check slug", "SLUG_CHECK_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Slug availability checked", result)
}

// ExportLinks downloads all the owner's links as CSV or Excel
// @Summary Export Links
// @Tags Links
// @Produce octet-stream
// @Param format query string false "Export format: csv or xlsx" default(csv)
// @Success 200 {file} file "Export file"
// @Router /api/v1/links/export [get]
func (h *LinkHandler) ExportLinks(c fiber.Ctx) error {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	ctx := h.createRequestContext(c, "/api/v1/links/export")

	var (
		filename    string
		payload     []byte
		contentType string
		err         error
	)
	switch c.Query("format", "csv") {
	case "csv":
		filename, payload, err = h.transferFlow.ExportLinksCSV(ctx, ownerID)
		contentType = "text/csv"
	case "xlsx":
		filename, payload, err = h.transferFlow.ExportLinksExcel(ctx, ownerID)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return h.ErrorResponse(c, fiber.StatusBadRequest, "format must be csv or xlsx", "INVALID_FORMAT", nil)
	}
	if err != nil {
		log.Println("Export links failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export links", "EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(payload)
}

// ImportLinks bulk-creates links from an uploaded CSV body
// @Summary Import Links
// @Description Accepts CSV rows of original_url[,custom_slug[,title]]
// @Tags Links
// @Accept plain
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ImportLinksResponse} "Import finished"
// @Failure 400 {object} dto.APIResponse "Empty or malformed file"
// @Router /api/v1/links/import [post]
func (h *LinkHandler) ImportLinks(c fiber.Ctx) error {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}

	body := c.Body()
	if len(body) == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Request body is required", "INVALID_REQUEST", nil)
	}

	// Imports may create many links; give them more room than a lookup.
	result, err := h.transferFlow.ImportLinksCSV(createRequestContextWithTimeout(c, "/api/v1/links/import", 60*time.Second), ownerID, bytes.NewReader(body))
	if err != nil {
		switch err {
		case businessflow.ErrImportFileEmpty:
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "IMPORT_FILE_EMPTY", nil)
		}
		log.Println("Import links failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import links", "IMPORT_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Import finished", result)
}

func (h *LinkHandler) linkError(c fiber.Ctx, err error, genericMessage, genericCode string) error {
	if businessflow.IsLinkNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
	}
	if err == businessflow.ErrLinkAccessDenied {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Link access denied", "LINK_ACCESS_DENIED", nil)
	}
	log.Println(genericMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, genericMessage, genericCode, nil)
}

func (h *LinkHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}
