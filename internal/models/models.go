package models

import (
	"fmt"
	"time"
)

// Step identifies one phase of the migration pipeline.
type Step int

const (
	StepFetch Step = iota
	StepValidate
	StepSubmit
)

func (s Step) String() string {
	switch s {
	case StepFetch:
		return "fetch"
	case StepValidate:
		return "validate"
	case StepSubmit:
		return "submit"
	default:
		return ""
	}
}

// FetchState tracks progress of artifact retrieval from MapMyRun.
type FetchState string

const (
	FetchNotStarted      FetchState = "not_started"
	FetchInProgress      FetchState = "in_progress"
	FetchSucceeded       FetchState = "succeeded"
	FetchFailedPermanent FetchState = "failed_permanent"
	FetchFailedRetryable FetchState = "failed_retryable"
)

// Terminal reports whether the state is final for normal processing.
// failed_retryable is deliberately non-terminal: the record stays eligible
// for re-selection on the next pass.
func (s FetchState) Terminal() bool {
	return s == FetchSucceeded || s == FetchFailedPermanent
}

// ValidationState tracks the outcome of local TCX validation.
type ValidationState string

const (
	NotValidated ValidationState = "not_validated"
	Valid        ValidationState = "valid"
	Invalid      ValidationState = "invalid"
)

// Invalidity reason codes recorded alongside ValidationState == Invalid.
const (
	ReasonCorrupt = "corrupt"
	ReasonEmpty   = "empty"
)

// SubmitState tracks progress of the Strava upload.
type SubmitState string

const (
	NotSubmitted          SubmitState = "not_submitted"
	Submitted             SubmitState = "submitted"
	SkippedDuplicate      SubmitState = "skipped_duplicate"
	SubmitFailedPermanent SubmitState = "failed_permanent"
	SubmitFailedRetryable SubmitState = "failed_retryable"
)

// Terminal reports whether the state is final for normal processing.
func (s SubmitState) Terminal() bool {
	return s == Submitted || s == SkippedDuplicate || s == SubmitFailedPermanent
}

// Workout represents one source-side unit of work: a single MapMyRun workout
// to be migrated to Strava.
//
// A Workout is created once at inventory time and mutated only by the phase
// that currently owns it, through its corresponding state field.
type Workout struct {
	WorkoutID        int64           // Immutable MapMyRun identifier
	ActivityType     string          // Source activity vocabulary (e.g. "Treadmill Run")
	MappedType       string          // Normalized Strava activity type, set at validation
	ActivityName     *string         // Human-readable title, may be absent
	Notes            string          // Free-form notes carried into the upload description
	WorkoutDate      time.Time       // Source timestamp, drives duplicate matching
	FetchState       FetchState
	ValidationState  ValidationState
	InvalidReason    string
	SubmitState      SubmitState
	SubmitReason     string  // Failure or skip detail for diagnosis
	ArtifactPath     string  // Local TCX location, set only on confirmed write
	DurationSec      float64 // Derived at validation, used for duplicate matching
	DistanceM        float64 // Derived at validation, used for duplicate matching
	StravaActivityID *int64  // Remote identity once submitted (or matched duplicate)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks that the workout carries the minimum identity required for
// migration.
func (w *Workout) Validate() error {
	if w.WorkoutID <= 0 {
		return fmt.Errorf("workout id must be positive, got %d", w.WorkoutID)
	}
	return nil
}

// Name returns the activity name, falling back to "<Type> on <date>" when the
// source export had none.
func (w *Workout) Name() string {
	if w.ActivityName != nil && *w.ActivityName != "" {
		return *w.ActivityName
	}
	t := w.MappedType
	if t == "" {
		t = "Workout"
	} else {
		t = titleCase(t)
	}
	return fmt.Sprintf("%s on %s", t, w.WorkoutDate.Format("2006-01-02"))
}

// ExternalID returns the destination external-id hint used for server-side
// duplicate detection.
func (w *Workout) ExternalID() string {
	return fmt.Sprintf("mmr_%d", w.WorkoutID)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// Summary holds per-state record counts for one phase.
type Summary struct {
	Fetch      map[FetchState]int
	Validation map[ValidationState]int
	Submit     map[SubmitState]int
	Total      int
}

// NewSummary returns a Summary with all maps allocated.
func NewSummary() *Summary {
	return &Summary{
		Fetch:      make(map[FetchState]int),
		Validation: make(map[ValidationState]int),
		Submit:     make(map[SubmitState]int),
	}
}
