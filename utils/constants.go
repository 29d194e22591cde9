package utils

import (
	"time"
)

// Shortener constants
const (
	// ShortCodeLength is the length of generated short codes
	ShortCodeLength = 7

	// ShortCodeAlphabet is the character set for generated short codes
	ShortCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// ShortCodeMaxAttempts bounds collision retries during code generation
	ShortCodeMaxAttempts = 10

	// SlugMinLength is the minimum accepted custom slug length
	SlugMinLength = 3

	// SlugMaxLength is the maximum accepted custom slug length
	SlugMaxLength = 100
)

// Analytics constants
const (
	// DefaultWindowDays is the analytics window used when the requested one is unsupported
	DefaultWindowDays = 30

	// TopFacetLimit caps each ranked facet breakdown
	TopFacetLimit = 10

	// StatsCacheTTL is how long public stats snapshots stay cached
	StatsCacheTTL = 5 * time.Minute
)

// Clickstream capture limits
const (
	// MaxUserAgentLength caps the stored user agent string
	MaxUserAgentLength = 500

	// MaxReferrerLength caps the stored referrer string
	MaxReferrerLength = 2048
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// AllowedWindowDays are the analytics windows the summarize operation accepts
var AllowedWindowDays = map[int]bool{7: true, 30: true, 90: true, 365: true}

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request context keys
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
	OwnerIDKey    ContextKey = "owner_id"
)
