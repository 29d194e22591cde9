package businessflow

import (
	"strings"

	"github.com/clipr-app/clipr/utils"
)

// reservedSlugs are identifiers that collide with routes or common
// infrastructure paths and can never be claimed as custom slugs.
var reservedSlugs = map[string]bool{
	"api":       true,
	"admin":     true,
	"app":       true,
	"auth":      true,
	"login":     true,
	"logout":    true,
	"signup":    true,
	"register":  true,
	"dashboard": true,
	"settings":  true,
	"account":   true,
	"profile":   true,
	"links":     true,
	"link":      true,
	"stats":     true,
	"analytics": true,
	"qr":        true,
	"health":    true,
	"metrics":   true,
	"static":    true,
	"assets":    true,
	"media":     true,
	"favicon":   true,
	"robots":    true,
	"about":     true,
	"contact":   true,
	"terms":     true,
	"privacy":   true,
	"help":      true,
	"docs":      true,
	"www":       true,
}

func isSlugChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

func isSlugEdgeChar(c byte) bool {
	return isSlugChar(c) && c != '-' && c != '_'
}

// ValidateSlug checks a requested custom slug against the reserved list,
// length bounds and character rules, in that order. Availability against
// existing links is a separate concern.
func ValidateSlug(slug string) error {
	if reservedSlugs[strings.ToLower(slug)] {
		return ErrSlugReserved
	}
	if len(slug) < utils.SlugMinLength {
		return ErrSlugTooShort
	}
	if len(slug) > utils.SlugMaxLength {
		return ErrSlugTooLong
	}
	if !isSlugEdgeChar(slug[0]) || !isSlugEdgeChar(slug[len(slug)-1]) {
		return ErrSlugInvalidChars
	}
	for i := 0; i < len(slug); i++ {
		if !isSlugChar(slug[i]) {
			return ErrSlugInvalidChars
		}
	}
	return nil
}

// SlugRejectionReason maps a validation error to a short machine readable
// reason string for the availability endpoint.
func SlugRejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case IsIdentifierTaken(err):
		return "taken"
	}
	switch err {
	case ErrSlugReserved:
		return "reserved"
	case ErrSlugTooShort:
		return "too_short"
	case ErrSlugTooLong:
		return "too_long"
	case ErrSlugInvalidChars:
		return "invalid_chars"
	}
	return "invalid"
}
