package tcx

import (
	"testing"

	"github.com/desertthunder/wtx/internal/models"
)

const sampleTCX = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase xmlns="http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2">
  <Activities>
    <Activity Sport="Running">
      <Id>2020-06-01T08:00:00Z</Id>
      <Lap StartTime="2020-06-01T08:00:00Z">
        <TotalTimeSeconds>900</TotalTimeSeconds>
        <DistanceMeters>2500</DistanceMeters>
        <Track>
          <Trackpoint>
            <Time>2020-06-01T08:00:00Z</Time>
            <Position>
              <LatitudeDegrees>30.2672</LatitudeDegrees>
              <LongitudeDegrees>-97.7431</LongitudeDegrees>
            </Position>
            <HeartRateBpm><Value>142</Value></HeartRateBpm>
          </Trackpoint>
          <Trackpoint>
            <Time>2020-06-01T08:00:10Z</Time>
            <HeartRateBpm><Value>148</Value></HeartRateBpm>
          </Trackpoint>
        </Track>
      </Lap>
      <Lap StartTime="2020-06-01T08:15:00Z">
        <TotalTimeSeconds>900</TotalTimeSeconds>
        <DistanceMeters>2500</DistanceMeters>
        <Track>
          <Trackpoint>
            <Time>2020-06-01T08:15:00Z</Time>
            <Position>
              <LatitudeDegrees>30.2680</LatitudeDegrees>
              <LongitudeDegrees>-97.7440</LongitudeDegrees>
            </Position>
          </Trackpoint>
        </Track>
      </Lap>
    </Activity>
  </Activities>
</TrainingCenterDatabase>`

const indoorTCX = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase>
  <Activities>
    <Activity Sport="Other">
      <Id>2020-06-02T18:00:00Z</Id>
      <Lap StartTime="2020-06-02T18:00:00Z">
        <TotalTimeSeconds>2700</TotalTimeSeconds>
        <DistanceMeters>0</DistanceMeters>
      </Lap>
    </Activity>
  </Activities>
</TrainingCenterDatabase>`

const hollowTCX = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase>
  <Activities>
    <Activity Sport="Running">
      <Id>2020-06-03T08:00:00Z</Id>
      <Lap StartTime="2020-06-03T08:00:00Z">
        <TotalTimeSeconds>0</TotalTimeSeconds>
        <DistanceMeters>0</DistanceMeters>
      </Lap>
    </Activity>
  </Activities>
</TrainingCenterDatabase>`

func TestSummarize(t *testing.T) {
	doc, err := Parse([]byte(sampleTCX))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	summary := doc.Summarize()
	if summary.DurationSec != 1800 {
		t.Errorf("expected 1800s across laps, got %f", summary.DurationSec)
	}
	if summary.DistanceM != 5000 {
		t.Errorf("expected 5000m across laps, got %f", summary.DistanceM)
	}
	if summary.Trackpoints != 3 {
		t.Errorf("expected 3 trackpoints, got %d", summary.Trackpoints)
	}
	if summary.WithGPS != 2 {
		t.Errorf("expected 2 GPS samples, got %d", summary.WithGPS)
	}
	if summary.WithHR != 2 {
		t.Errorf("expected 2 heart rate samples, got %d", summary.WithHR)
	}
}

func TestValidate(t *testing.T) {
	t.Run("OutdoorWorkout", func(t *testing.T) {
		result := Validate([]byte(sampleTCX))
		if !result.Valid {
			t.Fatalf("expected valid, got reason %q", result.Reason)
		}
		if result.DurationSec != 1800 || result.DistanceM != 5000 {
			t.Errorf("unexpected measures: %f / %f", result.DurationSec, result.DistanceM)
		}
		if result.Trackpoints != 3 {
			t.Errorf("expected 3 trackpoints, got %d", result.Trackpoints)
		}
	})

	t.Run("IndoorWorkoutWithoutTrackpoints", func(t *testing.T) {
		result := Validate([]byte(indoorTCX))
		if !result.Valid {
			t.Errorf("duration alone should satisfy validation, got reason %q", result.Reason)
		}
	})

	t.Run("NoDurationNoTrackpoints", func(t *testing.T) {
		result := Validate([]byte(hollowTCX))
		if result.Valid {
			t.Fatal("expected invalid")
		}
		if result.Reason != models.ReasonEmpty {
			t.Errorf("expected reason %q, got %q", models.ReasonEmpty, result.Reason)
		}
	})

	t.Run("MalformedXML", func(t *testing.T) {
		result := Validate([]byte("<TrainingCenterDatabase><Activities>"))
		if result.Valid {
			t.Fatal("expected invalid")
		}
		if result.Reason != models.ReasonCorrupt {
			t.Errorf("expected reason %q, got %q", models.ReasonCorrupt, result.Reason)
		}
	})

	t.Run("HTMLErrorPage", func(t *testing.T) {
		result := Validate([]byte("<html><body>Please sign in</body></html>"))
		if result.Valid {
			t.Fatal("an HTML page is not a workout")
		}
	})
}

func TestMapActivityType(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"Run", "run"},
		{"Trail Run", "run"},
		{"Walk", "walk"},
		{"Dog Walk", "walk"},
		{"Hike", "hike"},
		{"Bike Ride", "ride"},
		{"Road Cycling", "ride"},
		{"Indoor Cycle", "ride"},
		{"Spin Class", "ride"},
		{"Open Water Swim", "swim"},
		{"Elliptical", "elliptical"},
		{"Machine Stairs", "stairstepper"},
		{"Weight Training", "weighttraining"},
		{"Yoga", "workout"},
		{"", "workout"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := MapActivityType(tt.source); got != tt.want {
				t.Errorf("MapActivityType(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}
