package services

import (
	"context"
	"strings"
	"time"
)

// Source retrieves raw workout artifacts from the source service.
type Source interface {
	// FetchArtifact downloads the raw TCX body for one workout.
	// Failures are returned as [APIError] values.
	FetchArtifact(ctx context.Context, workoutID int64) ([]byte, error)

	// Name returns the name of the service (e.g., "MapMyRun")
	Name() string
}

// Destination creates activities on the destination service.
type Destination interface {
	// ListActivities returns the athlete's activities inside the given time
	// window, used for proactive duplicate detection.
	ListActivities(ctx context.Context, after, before time.Time) ([]RemoteActivity, error)

	// UploadArtifact starts an activity import and returns its upload handle.
	UploadArtifact(ctx context.Context, req UploadRequest) (*UploadStatus, error)

	// PollUpload resolves an upload handle to its current processing state.
	PollUpload(ctx context.Context, uploadID int64) (*UploadStatus, error)

	// Name returns the name of the service (e.g., "Strava")
	Name() string
}

// TokenProvider supplies a currently valid bearer credential.
//
// Implementations refresh transparently; a permanently invalid credential is
// reported as an [APIError] with KindAuthInvalid.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// RemoteActivity represents an existing activity on the destination, as
// returned by the activity list endpoint.
type RemoteActivity struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Distance    float64   `json:"distance"`     // meters
	ElapsedTime int       `json:"elapsed_time"` // seconds
	StartDate   time.Time `json:"start_date"`
	SportType   string    `json:"sport_type"`
}

// UploadRequest describes one activity import.
type UploadRequest struct {
	FilePath     string // Local artifact to upload
	DataType     string // Wire format, "tcx" for this migration
	Name         string
	Description  string
	ActivityType string
	ExternalID   string // Destination-side duplicate hint
}

// UploadStatus represents the state of an asynchronous activity import.
type UploadStatus struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	ActivityID *int64 `json:"activity_id"`
}

// Processing reports whether the import is still being worked on.
//
// Keyed on the status text rather than the absence of a result: Strava
// resolves some imports with neither an activity id nor an error (for
// example "The created activity has been deleted."), and those must read
// as final, not pending.
func (u *UploadStatus) Processing() bool {
	return u.ActivityID == nil && u.Error == "" &&
		strings.Contains(strings.ToLower(u.Status), "still being processed")
}

// Complete reports whether the import resolved to an activity.
func (u *UploadStatus) Complete() bool {
	return u.ActivityID != nil
}

// Duplicate reports whether the destination rejected the import as a
// duplicate of an existing activity.
func (u *UploadStatus) Duplicate() bool {
	return strings.Contains(strings.ToLower(u.Error), "duplicate")
}
