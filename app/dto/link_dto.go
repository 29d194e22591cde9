package dto

import "time"

// LinkResponse represents a link in API responses
type LinkResponse struct {
	UUID        string    `json:"uuid"`
	ShortCode   string    `json:"short_code"`
	CustomSlug  *string   `json:"custom_slug,omitempty"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	Title       string    `json:"title"`
	IsActive    bool      `json:"is_active"`
	ClickCount  uint64    `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateLinkRequest represents the request to shorten a URL
type CreateLinkRequest struct {
	OwnerID     *uint   `json:"-"`
	OriginalURL string  `json:"original_url" validate:"required,max=2048"`
	CustomSlug  *string `json:"custom_slug,omitempty" validate:"omitempty,max=100"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
}

// CreateLinkResponse represents the response after shortening a URL
type CreateLinkResponse struct {
	Message string       `json:"message"`
	Item    LinkResponse `json:"item"`
}

// ListLinksFilter represents filter criteria for listing links in request layer
type ListLinksFilter struct {
	Search   *string `json:"search,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ListLinksRequest represents a paginated list request for an owner's links
type ListLinksRequest struct {
	OwnerID uint             `json:"-"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	OrderBy string           `json:"orderby"` // newest, oldest, most_clicked
	Filter  *ListLinksFilter `json:"filter,omitempty"`
}

// ListLinksResponse represents a paginated list of links
type ListLinksResponse struct {
	Message    string         `json:"message"`
	Items      []LinkResponse `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// UpdateLinkRequest represents partial updates to an owned link
type UpdateLinkRequest struct {
	OwnerID     uint    `json:"-"`
	OriginalURL *string `json:"original_url,omitempty" validate:"omitempty,max=2048"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
}

// UpdateLinkResponse represents the response after updating a link
type UpdateLinkResponse struct {
	Message string       `json:"message"`
	Item    LinkResponse `json:"item"`
}

// SlugAvailabilityResponse reports whether a custom slug can be claimed
type SlugAvailabilityResponse struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ImportLinksResponse summarizes a bulk CSV import
type ImportLinksResponse struct {
	Message  string   `json:"message"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// IssueAPIKeyResponse carries a freshly issued API key. The raw key appears
// here once and is never returned again.
type IssueAPIKeyResponse struct {
	Message   string    `json:"message"`
	APIKey    string    `json:"api_key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}
