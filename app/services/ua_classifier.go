// Package services contains supporting services used by flows and the
// click pipeline.
package services

import (
	"github.com/clipr-app/clipr/models"
	"github.com/mileusna/useragent"
)

// UAProfile is the classification of one user agent string
type UAProfile struct {
	DeviceType string
	Browser    string
	OS         string
}

// ClassifyUserAgent parses a raw user agent header into device, browser and
// OS. Unrecognized input yields the unknown device and empty browser/OS so
// facet rankings can skip them.
func ClassifyUserAgent(raw string) UAProfile {
	if raw == "" {
		return UAProfile{DeviceType: models.DeviceTypeUnknown}
	}

	parsed := useragent.Parse(raw)

	deviceType := models.DeviceTypeUnknown
	switch {
	case parsed.Bot:
		deviceType = models.DeviceTypeBot
	case parsed.Tablet:
		deviceType = models.DeviceTypeTablet
	case parsed.Mobile:
		deviceType = models.DeviceTypeMobile
	case parsed.Desktop:
		deviceType = models.DeviceTypeDesktop
	}

	return UAProfile{
		DeviceType: deviceType,
		Browser:    parsed.Name,
		OS:         parsed.OS,
	}
}
