package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/wtx/internal/models"
	"github.com/desertthunder/wtx/internal/shared"
)

var _ list.Item = workoutItem{}

// workoutItem wraps [models.Workout] to implement [list.Item].
type workoutItem struct {
	workout *models.Workout
}

func (i workoutItem) FilterValue() string { return i.workout.Name() }
func (i workoutItem) Title() string {
	return fmt.Sprintf("%d · %s", i.workout.WorkoutID, i.workout.Name())
}
func (i workoutItem) Description() string {
	w := i.workout
	desc := fmt.Sprintf("fetch %s · validate %s · submit %s", w.FetchState, w.ValidationState, w.SubmitState)
	if w.DurationSec > 0 {
		desc = fmt.Sprintf("%s · %s, %s", desc, shared.FormatDuration(int(w.DurationSec)), shared.FormatDistance(w.DistanceM))
	}
	return desc
}
