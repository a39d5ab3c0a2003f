package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPhase Phase = iota
	ValidatePhase
	SubmitPhase
	CooldownPhase
)

func (p Phase) String() string {
	switch p {
	case FetchPhase:
		return "fetch"
	case ValidatePhase:
		return "validate"
	case SubmitPhase:
		return "submit"
	case CooldownPhase:
		return "cooldown"
	default:
		return ""
	}
}

func fetchUpdate(step, total int, workoutID int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading workout %d...", step, total, workoutID),
	}
}

func validateUpdate(step, total int, workoutID int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValidatePhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Validating workout %d...", step, total, workoutID),
	}
}

func submitUpdate(step, total int, workoutID int64, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading %s (workout %d)...", step, total, name, workoutID),
	}
}

func submittedUpdate(step, total int, workoutID, activityID int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ workout %d → activity %d", step, total, workoutID, activityID),
	}
}

func skippedUpdate(step, total int, workoutID int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] workout %d already on Strava, skipped", step, total, workoutID),
	}
}

func cooldownUpdate(d time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CooldownPhase,
		Message: fmt.Sprintf("Rate limit hit, pausing %s...", d),
		Data:    d,
	}
}
