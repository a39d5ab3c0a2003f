package models

import (
	"testing"
	"time"
)

func TestWorkoutName(t *testing.T) {
	date := time.Date(2020, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("PrefersActivityName", func(t *testing.T) {
		name := "Sunrise 5K"
		w := &Workout{ActivityName: &name, MappedType: "run", WorkoutDate: date}
		if got := w.Name(); got != "Sunrise 5K" {
			t.Errorf("expected activity name, got %q", got)
		}
	})

	t.Run("FallsBackToMappedType", func(t *testing.T) {
		w := &Workout{MappedType: "run", WorkoutDate: date}
		if got := w.Name(); got != "Run on 2020-06-01" {
			t.Errorf("unexpected fallback name: %q", got)
		}
	})

	t.Run("FallsBackToGeneric", func(t *testing.T) {
		w := &Workout{WorkoutDate: date}
		if got := w.Name(); got != "Workout on 2020-06-01" {
			t.Errorf("unexpected generic name: %q", got)
		}
	})

	t.Run("EmptyNamePointer", func(t *testing.T) {
		empty := ""
		w := &Workout{ActivityName: &empty, MappedType: "walk", WorkoutDate: date}
		if got := w.Name(); got != "Walk on 2020-06-01" {
			t.Errorf("empty name should fall back, got %q", got)
		}
	})
}

func TestWorkoutExternalID(t *testing.T) {
	w := &Workout{WorkoutID: 8422810051}
	if got := w.ExternalID(); got != "mmr_8422810051" {
		t.Errorf("unexpected external id: %q", got)
	}
}

func TestWorkoutValidate(t *testing.T) {
	if err := (&Workout{WorkoutID: 1}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&Workout{}).Validate(); err == nil {
		t.Error("expected error for zero id")
	}
	if err := (&Workout{WorkoutID: -3}).Validate(); err == nil {
		t.Error("expected error for negative id")
	}
}

func TestTerminalStates(t *testing.T) {
	fetchTerminal := map[FetchState]bool{
		FetchNotStarted:      false,
		FetchInProgress:      false,
		FetchSucceeded:       true,
		FetchFailedPermanent: true,
		FetchFailedRetryable: false,
	}
	for state, want := range fetchTerminal {
		if state.Terminal() != want {
			t.Errorf("%s: expected terminal=%v", state, want)
		}
	}

	submitTerminal := map[SubmitState]bool{
		NotSubmitted:          false,
		Submitted:             true,
		SkippedDuplicate:      true,
		SubmitFailedPermanent: true,
		SubmitFailedRetryable: false,
	}
	for state, want := range submitTerminal {
		if state.Terminal() != want {
			t.Errorf("%s: expected terminal=%v", state, want)
		}
	}
}

func TestStepString(t *testing.T) {
	steps := map[Step]string{StepFetch: "fetch", StepValidate: "validate", StepSubmit: "submit"}
	for step, want := range steps {
		if step.String() != want {
			t.Errorf("expected %q, got %q", want, step.String())
		}
	}
}
