package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AnalyticsHandlerInterface defines the contract for analytics handlers
type AnalyticsHandlerInterface interface {
	GetLinkAnalytics(c fiber.Ctx) error
	GetSiteStats(c fiber.Ctx) error
}

// AnalyticsHandler handles analytics HTTP requests
type AnalyticsHandler struct {
	analyticsFlow businessflow.AnalyticsFlow
}

func NewAnalyticsHandler(analyticsFlow businessflow.AnalyticsFlow) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsFlow: analyticsFlow}
}

func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// GetLinkAnalytics returns the aggregated click summary for an owned link
// @Summary Link Analytics
// @Description Time series, facet breakdowns and visitor counts over a time window
// @Tags Analytics
// @Produce json
// @Param uuid path string true "Link UUID"
// @Param window query int false "Window in days: 7, 30, 90 or 365" default(30)
// @Success 200 {object} dto.APIResponse{data=dto.LinkAnalyticsResponse} "Analytics fetched"
// @Failure 403 {object} dto.APIResponse "Link access denied"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links/{uuid}/analytics [get]
func (h *AnalyticsHandler) GetLinkAnalytics(c fiber.Ctx) error {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Owner ID not found in context", "MISSING_OWNER_ID", nil)
	}
	linkUUID, err := linkUUIDFromPath(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	// Out-of-range windows fall back to the default instead of failing.
	windowDays, _ := strconv.Atoi(c.Query("window", "30"))

	result, err := h.analyticsFlow.Summarize(h.createRequestContext(c, "/api/v1/links/"+linkUUID.String()+"/analytics"), linkUUID, ownerID, windowDays)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
		}
		if err == businessflow.ErrLinkAccessDenied {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Link access denied", "LINK_ACCESS_DENIED", nil)
		}
		log.Println("Analytics query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch analytics", "ANALYTICS_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Analytics fetched successfully",
		Data:    result,
	})
}

// GetSiteStats returns service-wide link counters
// @Summary Site Statistics
// @Description Total links and links created today, served from cache
// @Tags Analytics
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SiteStatsResponse} "Site stats fetched"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/stats [get]
func (h *AnalyticsHandler) GetSiteStats(c fiber.Ctx) error {
	result, err := h.analyticsFlow.SiteStats(h.createRequestContext(c, "/api/v1/stats"))
	if err != nil {
		log.Println("Site stats query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch site stats", "SITE_STATS_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Site stats fetched successfully",
		Data:    result,
	})
}

func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 15*time.Second)
}
