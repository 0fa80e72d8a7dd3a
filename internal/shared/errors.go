package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrDestinationMissing = fmt.Errorf("destination folder does not exist")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Download errors
	ErrFetchFailed = fmt.Errorf("track fetch failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsConfigurationError reports whether err should stop a sync loop instead of being retried on the next pass.
func IsConfigurationError(err error) bool {
	for _, target := range []error{ErrDestinationMissing, ErrInvalidConfig, ErrMissingCredentials, ErrNotAuthenticated, ErrInvalidArgument} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
