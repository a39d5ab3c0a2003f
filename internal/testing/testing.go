// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/desertthunder/wtx/internal/services"
)

// ScriptedSource is a test double for [services.Source] that returns
// per-workout scripted responses and counts calls.
type ScriptedSource struct {
	Artifacts map[int64][]byte
	Errors    map[int64]error
	Calls     []int64
}

func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{
		Artifacts: map[int64][]byte{},
		Errors:    map[int64]error{},
	}
}

func (s *ScriptedSource) FetchArtifact(ctx context.Context, workoutID int64) ([]byte, error) {
	s.Calls = append(s.Calls, workoutID)
	if err, ok := s.Errors[workoutID]; ok {
		return nil, err
	}
	if body, ok := s.Artifacts[workoutID]; ok {
		return body, nil
	}
	return nil, errors.New("no scripted artifact")
}

func (s *ScriptedSource) Name() string { return "scripted-source" }

// ScriptedDestination is a test double for [services.Destination] with
// scripted upload and poll outcomes.
type ScriptedDestination struct {
	Activities   []services.RemoteActivity
	ListErr      error
	UploadStatus *services.UploadStatus
	UploadErr    error
	PollStatuses []*services.UploadStatus
	PollErr      error

	ListCalls   int
	UploadCalls int
	PollCalls   int
	Uploads     []services.UploadRequest
}

func (d *ScriptedDestination) ListActivities(ctx context.Context, after, before time.Time) ([]services.RemoteActivity, error) {
	d.ListCalls++
	if d.ListErr != nil {
		return nil, d.ListErr
	}
	return d.Activities, nil
}

func (d *ScriptedDestination) UploadArtifact(ctx context.Context, req services.UploadRequest) (*services.UploadStatus, error) {
	d.UploadCalls++
	d.Uploads = append(d.Uploads, req)
	if d.UploadErr != nil {
		return nil, d.UploadErr
	}
	return d.UploadStatus, nil
}

func (d *ScriptedDestination) PollUpload(ctx context.Context, uploadID int64) (*services.UploadStatus, error) {
	d.PollCalls++
	if d.PollErr != nil {
		return nil, d.PollErr
	}
	if len(d.PollStatuses) == 0 {
		return d.UploadStatus, nil
	}
	status := d.PollStatuses[0]
	if len(d.PollStatuses) > 1 {
		d.PollStatuses = d.PollStatuses[1:]
	}
	return status, nil
}

func (d *ScriptedDestination) Name() string { return "scripted-destination" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SeqRoundTripper returns scripted responses in sequence, repeating the last.
type SeqRoundTripper struct {
	responses []*http.Response
	Requests  []*http.Request
}

func NewSeqRoundTripper(responses ...*http.Response) *SeqRoundTripper {
	return &SeqRoundTripper{responses: responses}
}

func (m *SeqRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, r)
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
