package models

import "time"

// Device type classification values for Click.DeviceType
const (
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeDesktop = "desktop"
	DeviceTypeBot     = "bot"
	DeviceTypeUnknown = "unknown"
)

// Click represents a single recorded visit on a link
// Rows are created once and never updated; deleting a link cascades to its clicks
// IPHash is a one way digest of the visitor address, the raw IP is never stored
type Click struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LinkID    uint      `gorm:"not null;index:idx_clicks_link_id_clicked_at,priority:1" json:"link_id"`
	ClickedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_clicks_link_id_clicked_at,priority:2" json:"clicked_at"`

	Referrer   string `gorm:"size:2048;not null;default:''" json:"referrer"`
	UserAgent  string `gorm:"size:500;not null;default:''" json:"user_agent"`
	Country    string `gorm:"size:100;not null;default:''" json:"country"`
	City       string `gorm:"size:100;not null;default:''" json:"city"`
	DeviceType string `gorm:"size:20;not null;default:''" json:"device_type"`
	Browser    string `gorm:"size:50;not null;default:''" json:"browser"`
	OS         string `gorm:"size:50;not null;default:''" json:"os"`
	IPHash     string `gorm:"size:64;not null;default:''" json:"ip_hash"`
}

// TableName returns the table name for Click
func (Click) TableName() string { return "clicks" }

// ClickFilter provides filter fields for repository queries
type ClickFilter struct {
	LinkID        *uint
	ClickedAfter  *time.Time
	ClickedBefore *time.Time
	DeviceType    *string
	Country       *string
}
