// Strava API [Destination] implementation
//
// Endpoints based on https://developers.strava.com/docs/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const defaultStravaBaseURL = "https://www.strava.com/api/v3"

// StravaService implements [Destination] against the Strava v3 API.
type StravaService struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
}

// NewStravaService creates a new Strava service instance.
func NewStravaService(baseURL string, tokens TokenProvider, client *http.Client) *StravaService {
	if baseURL == "" {
		baseURL = defaultStravaBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &StravaService{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: client,
	}
}

// Name returns the service name.
func (s *StravaService) Name() string { return "Strava" }

// ListActivities returns the athlete's activities between after and before,
// used by the proactive duplicate check.
func (s *StravaService) ListActivities(ctx context.Context, after, before time.Time) ([]RemoteActivity, error) {
	query := url.Values{}
	query.Set("after", strconv.FormatInt(after.Unix(), 10))
	query.Set("before", strconv.FormatInt(before.Unix(), 10))
	query.Set("per_page", "100")

	body, err := s.get(ctx, "/athlete/activities?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var activities []RemoteActivity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("failed to parse activities: %w", err)
	}

	return activities, nil
}

// UploadArtifact starts an activity import from a local TCX file.
//
// The external id travels with the upload so Strava's own bookkeeping can
// reject re-submissions of the same workout.
func (s *StravaService) UploadArtifact(ctx context.Context, req UploadRequest) (*UploadStatus, error) {
	// Local file problems are per-record failures, never phase aborts.
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, &APIError{Kind: KindPermanent, Message: fmt.Sprintf("failed to open artifact %s: %v", req.FilePath, err)}
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fmt.Sprintf("%s.%s", req.ExternalID, req.DataType))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, &APIError{Kind: KindPermanent, Message: fmt.Sprintf("failed to read artifact %s: %v", req.FilePath, err)}
	}

	fields := map[string]string{
		"data_type":     req.DataType,
		"name":          req.Name,
		"description":   req.Description,
		"activity_type": req.ActivityType,
		"external_id":   req.ExternalID,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/uploads", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return s.doUpload(httpReq)
}

// PollUpload resolves an upload handle to its current processing state.
func (s *StravaService) PollUpload(ctx context.Context, uploadID int64) (*UploadStatus, error) {
	body, err := s.get(ctx, fmt.Sprintf("/uploads/%d", uploadID))
	if err != nil {
		return nil, err
	}

	var status UploadStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse upload status: %w", err)
	}

	return &status, nil
}

func (s *StravaService) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if err := s.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if clsErr := Classify(resp, err); clsErr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, clsErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	return body, nil
}

func (s *StravaService) doUpload(req *http.Request) (*UploadStatus, error) {
	if err := s.authorize(req.Context(), req); err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if clsErr := Classify(resp, err); clsErr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, clsErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	var status UploadStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}

	return &status, nil
}

func (s *StravaService) authorize(ctx context.Context, req *http.Request) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		if _, ok := AsAPIError(err); ok {
			return err
		}
		return &APIError{Kind: KindAuthInvalid, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
