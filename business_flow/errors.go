// Package businessflow contains the core business logic and use cases for link workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Link-related errors
	ErrLinkNotFound       = errors.New("link not found")
	ErrLinkInactive       = errors.New("link is inactive")
	ErrLinkAccessDenied   = errors.New("link access denied")
	ErrOriginalURLEmpty   = errors.New("original URL is required")
	ErrOriginalURLInvalid = errors.New("original URL is invalid")
	ErrOriginalURLTooLong = errors.New("original URL is too long")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")

	// Slug-related errors
	ErrSlugReserved     = errors.New("slug is reserved")
	ErrSlugTooShort     = errors.New("slug is too short")
	ErrSlugTooLong      = errors.New("slug is too long")
	ErrSlugInvalidChars = errors.New("slug contains invalid characters")
	ErrIdentifierTaken  = errors.New("identifier already taken")

	// Credential errors
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidAPIKey      = errors.New("invalid API key")

	// Import errors
	ErrImportFileEmpty    = errors.New("import file has no rows")
	ErrImportRowMalformed = errors.New("import row is malformed")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
	ErrInvalidOrderBy  = errors.New("unsupported sort field")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsLinkNotFound(err error) bool {
	return errors.Is(err, ErrLinkNotFound)
}

func IsIdentifierTaken(err error) bool {
	return errors.Is(err, ErrIdentifierTaken)
}

func IsSlugRejected(err error) bool {
	return errors.Is(err, ErrSlugReserved) ||
		errors.Is(err, ErrSlugTooShort) ||
		errors.Is(err, ErrSlugTooLong) ||
		errors.Is(err, ErrSlugInvalidChars)
}

func IsInvalidAPIKey(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey)
}
