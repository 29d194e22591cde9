package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/clipr-app/clipr/app/dto"
	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/clipr-app/clipr/utils"
	"github.com/gofiber/fiber/v3"
	qrcode "github.com/skip2/go-qrcode"
)

// RedirectHandlerInterface defines contract for the public link surface
type RedirectHandlerInterface interface {
	Visit(c fiber.Ctx) error
	QRCode(c fiber.Ctx) error
	PublicStats(c fiber.Ctx) error
}

type RedirectHandler struct {
	visitFlow     businessflow.VisitFlow
	analyticsFlow businessflow.AnalyticsFlow
	domain        string
}

func NewRedirectHandler(visitFlow businessflow.VisitFlow, analyticsFlow businessflow.AnalyticsFlow, domain string) RedirectHandlerInterface {
	return &RedirectHandler{
		visitFlow:     visitFlow,
		analyticsFlow: analyticsFlow,
		domain:        strings.TrimSuffix(domain, "/"),
	}
}

// captureClickEvent snapshots the request attributes the pipeline needs.
// Geo headers come from the edge when present; the raw IP is only carried in
// memory and hashed before anything is stored.
func captureClickEvent(c fiber.Ctx) businessflow.ClickEvent {
	country := c.Get("CF-IPCountry")
	if country == "" {
		country = c.Get("X-Vercel-IP-Country")
	}
	city := c.Get("CF-IPCity")
	if city == "" {
		city = c.Get("X-Vercel-IP-City")
	}
	return businessflow.ClickEvent{
		OccurredAt:    utils.UTCNow(),
		IP:            c.IP(),
		UserAgent:     c.Get("User-Agent"),
		Referrer:      c.Get("Referer"),
		CountryHeader: country,
		CityHeader:    city,
	}
}

// Visit resolves a short code or custom slug and redirects
// @Summary Visit Link
// @Tags Public
// @Param identifier path string true "Short code or custom slug"
// @Success 302 {string} string "Redirect"
// @Failure 404 {object} dto.APIResponse "Link not found or inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /{identifier} [get]
func (h *RedirectHandler) Visit(c fiber.Ctx) error {
	identifier := c.Params("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).SendString("invalid link")
	}

	target, err := h.visitFlow.Visit(h.createRequestContext(c, "/"+identifier), identifier, captureClickEvent(c))
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return c.Status(fiber.StatusNotFound).SendString("not found")
		}
		log.Println("Visit failed", err)
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}

	c.Redirect().Status(fiber.StatusFound).To(target)
	return nil
}

// QRCode renders a PNG QR code pointing at the short URL
// @Summary Link QR Code
// @Tags Public
// @Produce png
// @Param identifier path string true "Short code or custom slug"
// @Success 200 {file} file "PNG image"
// @Failure 404 {object} dto.APIResponse "Link not found or inactive"
// @Router /{identifier}/qr [get]
func (h *RedirectHandler) QRCode(c fiber.Ctx) error {
	identifier := c.Params("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).SendString("invalid link")
	}

	// Resolve through the stats flow so only active links get a QR code.
	stats, err := h.analyticsFlow.PublicStats(h.createRequestContext(c, "/"+identifier+"/qr"), identifier)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return c.Status(fiber.StatusNotFound).SendString("not found")
		}
		log.Println("QR lookup failed", err)
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s/%s", h.domain, stats.Code), qrcode.Medium, 256)
	if err != nil {
		log.Println("QR encoding failed", err)
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// PublicStats returns the lightweight public stats for a link
// @Summary Public Link Stats
// @Tags Public
// @Produce json
// @Param identifier path string true "Short code or custom slug"
// @Success 200 {object} dto.APIResponse{data=dto.PublicStatsResponse} "Stats fetched"
// @Failure 404 {object} dto.APIResponse "Link not found or inactive"
// @Router /{identifier}/stats [get]
func (h *RedirectHandler) PublicStats(c fiber.Ctx) error {
	identifier := c.Params("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).SendString("invalid link")
	}

	stats, err := h.analyticsFlow.PublicStats(h.createRequestContext(c, "/"+identifier+"/stats"), identifier)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
				Success: false,
				Message: "Link not found",
				Error:   dto.ErrorDetail{Code: "LINK_NOT_FOUND"},
			})
		}
		log.Println("Public stats failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to fetch stats",
			Error:   dto.ErrorDetail{Code: "STATS_FAILED"},
		})
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Stats fetched",
		Data:    stats,
	})
}

func (h *RedirectHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
