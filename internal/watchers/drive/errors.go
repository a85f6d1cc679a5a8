package drive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/quarrylabs/ragsync/internal/core/domain"
)

// Common Drive API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("drive: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("drive: forbidden (insufficient permissions)")
)

// wrapError converts a Drive API error to a more specific error type.
// Rate limit and server errors wrap the shared domain sentinels so
// callers can decide between retry and skip without knowing Drive.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return ErrUnauthorized
	case gerr.Code == http.StatusForbidden:
		return ErrForbidden
	case gerr.Code == http.StatusNotFound:
		return domain.ErrNotFound
	case gerr.Code == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case gerr.Code >= 500:
		return domain.ErrSourceUnavailable
	default:
		return err
	}
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}

// retryAfterSeconds extracts the Retry-After header from an API error,
// returning 0 when absent.
func retryAfterSeconds(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	retryAfter := gerr.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	seconds := 0
	for _, r := range retryAfter {
		if r < '0' || r > '9' {
			return 0
		}
		seconds = seconds*10 + int(r-'0')
	}
	return seconds
}
