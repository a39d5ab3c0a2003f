package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	//
	// ErrAuthInvalid signals a permanently rejected credential. Any phase
	// that sees it aborts immediately instead of burning through the
	// remaining batch against a guaranteed-failing credential.
	ErrAuthInvalid    = fmt.Errorf("credential rejected - reacquire it")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrWorkoutNotFound    = fmt.Errorf("workout not found")
	ErrArtifactMissing    = fmt.Errorf("artifact file missing")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
