package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/wtx/internal/shared"
)

// AuditEntry records the outcome of a single destination API call.
type AuditEntry struct {
	WorkoutID  int64
	Endpoint   string
	StatusCode int
	Outcome    string // ok, rate_limited, duplicate, auth_invalid, error
	RetryAfter time.Duration
	Duration   time.Duration
}

// AuditRepository appends destination-call outcomes for post-run audit.
// The engine writes this log and never reads it.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository with the given database connection
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one entry to the destination call log.
func (r *AuditRepository) Record(entry AuditEntry) error {
	query := `
		INSERT INTO destination_calls (id, workout_id, endpoint, status_code, outcome, retry_after_sec, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		shared.GenerateID(),
		entry.WorkoutID,
		entry.Endpoint,
		entry.StatusCode,
		entry.Outcome,
		entry.RetryAfter.Seconds(),
		entry.Duration.Milliseconds(),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record destination call: %w", err)
	}

	return nil
}
