package validate

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Limits are exported for reuse (e.g., JSON Schema).
const (
	PageMin    = 1
	PerPageMin = 1
	PerPageMax = 100

	ViewLimitMax = 500

	EventIDPattern = `^\S+$`
	EventIDMax     = 128
)

var reEventID = regexp.MustCompile(EventIDPattern)

// Sentinel errors for classification by callers.
var (
	ErrInvalidAPIURL  = errors.New("invalid api url")
	ErrInvalidPage    = errors.New("invalid page number")
	ErrInvalidPerPage = errors.New("invalid page size")
	ErrInvalidEventID = errors.New("invalid event id")
)

// ValidateAPIURL checks that the feed endpoint is an absolute http(s) URL.
// The URL may already carry a query string; page parameters are added to it.
func ValidateAPIURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidAPIURL)
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAPIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidAPIURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidAPIURL)
	}
	return nil
}

// ValidatePage checks that a page cursor is >= 1.
func ValidatePage(page int) error {
	if page < PageMin {
		return fmt.Errorf("%w: must be >= %d, got %d", ErrInvalidPage, PageMin, page)
	}
	return nil
}

// ValidatePerPage checks the page size range.
func ValidatePerPage(perPage int) error {
	if perPage < PerPageMin || perPage > PerPageMax {
		return fmt.Errorf("%w: must be %d-%d, got %d", ErrInvalidPerPage, PerPageMin, PerPageMax, perPage)
	}
	return nil
}

// ValidateEventID checks that an id is non-empty, has no whitespace and is at
// most EventIDMax bytes long.
func ValidateEventID(s string) error {
	if len(s) == 0 || len(s) > EventIDMax || !reEventID.MatchString(s) {
		return fmt.Errorf("%w: 1-%d chars without whitespace", ErrInvalidEventID, EventIDMax)
	}
	return nil
}
