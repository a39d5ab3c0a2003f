package services

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func response(status int, headers map[string]string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
	for key, value := range headers {
		resp.Header.Set(key, value)
	}
	return resp
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		resp       *http.Response
		err        error
		wantKind   ErrorKind
		wantStatus int
		wantRetry  time.Duration
	}{
		{
			name:     "TransportError",
			err:      errors.New("connection reset"),
			wantKind: KindTransient,
		},
		{
			name:     "NoResponse",
			wantKind: KindTransient,
		},
		{
			name:       "RedirectMoved",
			resp:       response(http.StatusMovedPermanently, nil),
			wantKind:   KindAuthInvalid,
			wantStatus: 301,
		},
		{
			name:       "RedirectFound",
			resp:       response(http.StatusFound, nil),
			wantKind:   KindAuthInvalid,
			wantStatus: 302,
		},
		{
			name:       "Unauthorized",
			resp:       response(http.StatusUnauthorized, nil),
			wantKind:   KindAuthInvalid,
			wantStatus: 401,
		},
		{
			name:       "Forbidden",
			resp:       response(http.StatusForbidden, nil),
			wantKind:   KindAuthInvalid,
			wantStatus: 403,
		},
		{
			name:       "NotFound",
			resp:       response(http.StatusNotFound, nil),
			wantKind:   KindNotFound,
			wantStatus: 404,
		},
		{
			name:       "Conflict",
			resp:       response(http.StatusConflict, nil),
			wantKind:   KindDuplicate,
			wantStatus: 409,
		},
		{
			name:       "RateLimitedWithRetryAfter",
			resp:       response(http.StatusTooManyRequests, map[string]string{"Retry-After": "120"}),
			wantKind:   KindRateLimited,
			wantStatus: 429,
			wantRetry:  120 * time.Second,
		},
		{
			name:       "RateLimitedWithoutRetryAfter",
			resp:       response(http.StatusTooManyRequests, nil),
			wantKind:   KindRateLimited,
			wantStatus: 429,
		},
		{
			name:       "RateLimitedBadRetryAfter",
			resp:       response(http.StatusTooManyRequests, map[string]string{"Retry-After": "soon"}),
			wantKind:   KindRateLimited,
			wantStatus: 429,
		},
		{
			name:       "ServerError",
			resp:       response(http.StatusBadGateway, nil),
			wantKind:   KindTransient,
			wantStatus: 502,
		},
		{
			name:       "OtherClientError",
			resp:       response(http.StatusUnprocessableEntity, nil),
			wantKind:   KindPermanent,
			wantStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.resp, tt.err)
			if err == nil {
				t.Fatal("expected an error")
			}

			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, apiErr.Kind)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.StatusCode)
			}
			if apiErr.RetryAfter != tt.wantRetry {
				t.Errorf("expected retry-after %s, got %s", tt.wantRetry, apiErr.RetryAfter)
			}
		})
	}

	t.Run("SuccessIsNil", func(t *testing.T) {
		for _, status := range []int{200, 201, 204} {
			if err := Classify(response(status, nil), nil); err != nil {
				t.Errorf("status %d should classify clean, got %v", status, err)
			}
		}
	})
}

func TestAPIError(t *testing.T) {
	t.Run("Retryable", func(t *testing.T) {
		retryable := map[ErrorKind]bool{
			KindTransient:   true,
			KindRateLimited: true,
			KindAuthInvalid: false,
			KindNotFound:    false,
			KindDuplicate:   false,
			KindPermanent:   false,
		}
		for kind, want := range retryable {
			err := &APIError{Kind: kind}
			if err.Retryable() != want {
				t.Errorf("%s: expected retryable=%v", kind, want)
			}
		}
	})

	t.Run("ErrorStringIncludesStatus", func(t *testing.T) {
		err := &APIError{Kind: KindNotFound, StatusCode: 404, Message: "Not Found"}
		if got := err.Error(); got != "not_found (status 404): Not Found" {
			t.Errorf("unexpected error string: %s", got)
		}
	})

	t.Run("ErrorStringWithoutStatus", func(t *testing.T) {
		err := &APIError{Kind: KindTransient, Message: "connection reset"}
		if got := err.Error(); got != "transient: connection reset" {
			t.Errorf("unexpected error string: %s", got)
		}
	})

	t.Run("AsAPIErrorUnwraps", func(t *testing.T) {
		wrapped := &APIError{Kind: KindDuplicate, StatusCode: 409}
		apiErr, ok := AsAPIError(errors.Join(errors.New("upload failed"), wrapped))
		if !ok {
			t.Fatal("expected to unwrap *APIError")
		}
		if apiErr.Kind != KindDuplicate {
			t.Errorf("expected duplicate, got %s", apiErr.Kind)
		}
	})

	t.Run("AsAPIErrorMiss", func(t *testing.T) {
		if _, ok := AsAPIError(errors.New("plain")); ok {
			t.Error("plain error should not unwrap")
		}
	})
}
