package handlers

import (
	"net/http/httptest"
	"testing"

	businessflow "github.com/clipr-app/clipr/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureFromRequest(t *testing.T, headers map[string]string) businessflow.ClickEvent {
	t.Helper()
	app := fiber.New()
	var captured businessflow.ClickEvent
	app.Get("/go", func(c fiber.Ctx) error {
		captured = captureClickEvent(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/go", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return captured
}

func TestCaptureClickEventGeoHeaders(t *testing.T) {
	t.Run("CloudflareHeaders", func(t *testing.T) {
		event := captureFromRequest(t, map[string]string{
			"CF-IPCountry": "US",
			"CF-IPCity":    "Austin",
		})
		assert.Equal(t, "US", event.CountryHeader)
		assert.Equal(t, "Austin", event.CityHeader)
	})

	t.Run("VercelFallback", func(t *testing.T) {
		event := captureFromRequest(t, map[string]string{
			"X-Vercel-IP-Country": "DE",
			"X-Vercel-IP-City":    "Berlin",
		})
		assert.Equal(t, "DE", event.CountryHeader)
		assert.Equal(t, "Berlin", event.CityHeader)
	})

	t.Run("CloudflarePreferredOverVercel", func(t *testing.T) {
		event := captureFromRequest(t, map[string]string{
			"CF-IPCountry":        "US",
			"CF-IPCity":           "Austin",
			"X-Vercel-IP-Country": "DE",
			"X-Vercel-IP-City":    "Berlin",
		})
		assert.Equal(t, "US", event.CountryHeader)
		assert.Equal(t, "Austin", event.CityHeader)
	})

	t.Run("NoGeoHeaders", func(t *testing.T) {
		event := captureFromRequest(t, map[string]string{
			"User-Agent": "Mozilla/5.0",
			"Referer":    "https://news.ycombinator.com/",
		})
		assert.Empty(t, event.CountryHeader)
		assert.Empty(t, event.CityHeader)
		assert.Equal(t, "Mozilla/5.0", event.UserAgent)
		assert.Equal(t, "https://news.ycombinator.com/", event.Referrer)
	})
}
