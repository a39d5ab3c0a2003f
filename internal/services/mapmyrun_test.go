package services_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/wtx/internal/services"
	wtxtest "github.com/desertthunder/wtx/internal/testing"
)

func tcxResponse(status int, contentType, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	return resp
}

func TestMapMyRunService(t *testing.T) {
	t.Run("FetchArtifact", func(t *testing.T) {
		body := `<?xml version="1.0"?><TrainingCenterDatabase></TrainingCenterDatabase>`
		transport := wtxtest.NewSeqRoundTripper(tcxResponse(200, "application/xml", body))
		svc := services.NewMapMyRunService("https://mmr.test", "session=abc", 1000, &http.Client{Transport: transport})

		got, err := svc.FetchArtifact(context.Background(), 123456)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if string(got) != body {
			t.Errorf("unexpected body: %s", got)
		}

		if len(transport.Requests) != 1 {
			t.Fatalf("expected 1 request, got %d", len(transport.Requests))
		}
		req := transport.Requests[0]
		if req.URL.Path != "/workout/export/123456/tcx" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		if req.Header.Get("Cookie") != "session=abc" {
			t.Errorf("cookie header not forwarded, got %q", req.Header.Get("Cookie"))
		}
		if req.Header.Get("User-Agent") == "" {
			t.Error("expected a browser user agent")
		}
	})

	t.Run("HTMLBodyMeansExpiredCookie", func(t *testing.T) {
		transport := wtxtest.NewSeqRoundTripper(tcxResponse(200, "text/html; charset=utf-8", "<html>Sign In</html>"))
		svc := services.NewMapMyRunService("https://mmr.test", "stale", 1000, &http.Client{Transport: transport})

		_, err := svc.FetchArtifact(context.Background(), 1)
		apiErr, ok := services.AsAPIError(err)
		if !ok {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Kind != services.KindAuthInvalid {
			t.Errorf("expected auth_invalid, got %s", apiErr.Kind)
		}
	})

	t.Run("LoginRedirectIsAuthFailure", func(t *testing.T) {
		resp := tcxResponse(302, "", "")
		resp.Header.Set("Location", "https://mmr.test/auth/login")
		transport := wtxtest.NewSeqRoundTripper(resp)
		svc := services.NewMapMyRunService("https://mmr.test", "stale", 1000, &http.Client{Transport: transport})

		_, err := svc.FetchArtifact(context.Background(), 1)
		apiErr, ok := services.AsAPIError(err)
		if !ok {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Kind != services.KindAuthInvalid {
			t.Errorf("expected auth_invalid, got %s", apiErr.Kind)
		}
		// The redirect itself must be the terminal response, never followed.
		if len(transport.Requests) != 1 {
			t.Errorf("redirect should not be followed, saw %d requests", len(transport.Requests))
		}
	})

	t.Run("MissingWorkout", func(t *testing.T) {
		transport := wtxtest.NewSeqRoundTripper(tcxResponse(404, "text/plain", "not found"))
		svc := services.NewMapMyRunService("https://mmr.test", "session=abc", 1000, &http.Client{Transport: transport})

		_, err := svc.FetchArtifact(context.Background(), 999)
		apiErr, ok := services.AsAPIError(err)
		if !ok {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Kind != services.KindNotFound {
			t.Errorf("expected not_found, got %s", apiErr.Kind)
		}
	})

	t.Run("TransportFailure", func(t *testing.T) {
		transport := wtxtest.NewMockRoundTripper(nil, errors.New("dial tcp: timeout"))
		svc := services.NewMapMyRunService("https://mmr.test", "session=abc", 1000, &http.Client{Transport: transport})

		_, err := svc.FetchArtifact(context.Background(), 1)
		apiErr, ok := services.AsAPIError(err)
		if !ok {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Kind != services.KindTransient {
			t.Errorf("expected transient, got %s", apiErr.Kind)
		}
		if !apiErr.Retryable() {
			t.Error("transport failures should be retryable")
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		transport := wtxtest.NewSeqRoundTripper(tcxResponse(200, "application/xml", "<x/>"))
		svc := services.NewMapMyRunService("https://mmr.test", "session=abc", 1000, &http.Client{Transport: transport})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := svc.FetchArtifact(ctx, 1); err == nil {
			t.Error("expected context error")
		}
	})
}
