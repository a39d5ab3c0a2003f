package services

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies an API failure into the engine's error taxonomy.
type ErrorKind int

const (
	// KindTransient covers network blips and destination 5xx responses;
	// always retried with backoff.
	KindTransient ErrorKind = iota
	// KindRateLimited is a destination throttle signal; the caller must wait
	// out a cooldown and retry the identical operation.
	KindRateLimited
	// KindAuthInvalid means the credential was rejected outright; the whole
	// phase aborts rather than burning quota against it.
	KindAuthInvalid
	// KindNotFound is a definitive miss for one record; never retried.
	KindNotFound
	// KindDuplicate is the destination's conflict response; terminal and
	// success-adjacent, not an error for the record.
	KindDuplicate
	// KindPermanent covers flat content rejections for one record.
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindPermanent:
		return "permanent"
	default:
		return ""
	}
}

// APIError is the normalized form of any transport-layer failure.
type APIError struct {
	Kind       ErrorKind
	StatusCode int           // 0 when the failure never produced a response
	RetryAfter time.Duration // Set when the service advertised a retry delay
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the same operation may eventually succeed.
func (e *APIError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindRateLimited
}

// AsAPIError unwraps err into an *APIError if one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Classify maps a transport outcome onto the error taxonomy. It is the single
// normalization point at the HTTP boundary: pass the response (nil if the
// request never completed) and any transport error.
//
// Returns nil for 2xx responses.
func Classify(resp *http.Response, err error) error {
	if err != nil {
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}
	if resp == nil {
		return &APIError{Kind: KindTransient, Message: "no response"}
	}

	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusMovedPermanently || status == http.StatusFound:
		// Redirect to a login page; the session is no longer valid.
		return &APIError{Kind: KindAuthInvalid, StatusCode: status, Message: "redirected to login"}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{Kind: KindAuthInvalid, StatusCode: status, Message: http.StatusText(status)}
	case status == http.StatusNotFound:
		return &APIError{Kind: KindNotFound, StatusCode: status, Message: http.StatusText(status)}
	case status == http.StatusConflict:
		return &APIError{Kind: KindDuplicate, StatusCode: status, Message: http.StatusText(status)}
	case status == http.StatusTooManyRequests:
		return &APIError{
			Kind:       KindRateLimited,
			StatusCode: status,
			RetryAfter: retryAfter(resp),
			Message:    http.StatusText(status),
		}
	case status >= 500:
		return &APIError{Kind: KindTransient, StatusCode: status, Message: http.StatusText(status)}
	default:
		return &APIError{Kind: KindPermanent, StatusCode: status, Message: http.StatusText(status)}
	}
}

// retryAfter parses the Retry-After header as a delay in seconds. Returns
// zero when the header is absent or unparseable, letting the caller fall
// back to its configured cooldown.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
