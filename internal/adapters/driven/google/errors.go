package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// Google API errors.
var (
	// ErrNotConfigured indicates no consent has been stored.
	ErrNotConfigured = errors.New("google: not configured (run 'lettermerge auth google')")

	// ErrUnauthorized indicates invalid or revoked credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates the consent lacks a required scope.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates a missing resource such as a Drive folder.
	ErrNotFound = errors.New("google: resource not found")
)

// IsRateLimited returns true if the error is a 429 or a rate-limit 403.
func IsRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			switch item.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded":
				return true
			}
		}
	}
	return false
}

// RetryAfter returns the Retry-After header of a Google API error in
// seconds, or 0 when absent.
func RetryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs < 0 {
		return 0
	}
	return secs
}

// WrapError maps a Google API error onto this package's sentinels while
// keeping the original message.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsRateLimited(err) {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, gerr.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, gerr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
	default:
		return err
	}
}
