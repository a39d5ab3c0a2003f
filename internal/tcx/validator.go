package tcx

import (
	"strings"

	"github.com/desertthunder/wtx/internal/models"
)

// Result is the outcome of validating one artifact.
type Result struct {
	Valid       bool
	Reason      string // models.ReasonCorrupt or models.ReasonEmpty when invalid
	DurationSec float64
	DistanceM   float64
	Trackpoints int
}

// Validate checks a raw TCX artifact for structural and semantic soundness.
//
// A workout is valid if it has a positive duration OR at least one
// trackpoint. Indoor activities (treadmill, weights) legitimately carry a
// duration with no positional samples, so the absence of trackpoints alone is
// never grounds for rejection.
func Validate(data []byte) Result {
	doc, err := Parse(data)
	if err != nil {
		return Result{Reason: models.ReasonCorrupt}
	}

	summary := doc.Summarize()

	hasDuration := summary.DurationSec > 0
	hasTrackpoints := summary.Trackpoints > 0
	if !hasDuration && !hasTrackpoints {
		return Result{Reason: models.ReasonEmpty}
	}

	return Result{
		Valid:       true,
		DurationSec: summary.DurationSec,
		DistanceM:   summary.DistanceM,
		Trackpoints: summary.Trackpoints,
	}
}

// typeMapping pairs MapMyRun activity substrings with Strava activity types.
// Ordered so multi-word source types still match on their core word.
var typeMapping = []struct {
	substr string
	strava string
}{
	{"run", "run"},
	{"walk", "walk"},
	{"hike", "hike"},
	{"bike", "ride"},
	{"biking", "ride"},
	{"cycle", "ride"},
	{"spin", "ride"},
	{"swim", "swim"},
	{"elliptical", "elliptical"},
	{"stairs", "stairstepper"},
	{"weight training", "weighttraining"},
}

// MapActivityType normalizes a MapMyRun activity type to Strava's accepted
// vocabulary.
//
// An unmappable type is not an error: category is cosmetic metadata, so
// anything unrecognized falls back to the generic "workout".
func MapActivityType(sourceType string) string {
	if sourceType == "" {
		return "workout"
	}

	lowered := strings.ToLower(sourceType)
	for _, m := range typeMapping {
		if strings.Contains(lowered, m.substr) {
			return m.strava
		}
	}

	return "workout"
}
