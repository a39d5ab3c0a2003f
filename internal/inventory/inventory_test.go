package inventory

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/wtx/internal/shared"
)

const sampleCSV = `Date Submitted,Workout Date,Activity Type,Calories Burned (kCal),Distance (mi),Workout Time (seconds),Avg Pace (min/mi),Max Pace,Avg Speed (mi/h),Max Speed,Avg Heart Rate,Steps,Notes,Source,Link
"June 1, 2020","June 1, 2020",Run,450,3.1,1800,9.4,8.2,6.4,7.3,152,4200,Easy morning loop,mapmyrun,http://www.mapmyrun.com/workout/8422810051
"Sept. 15, 2020","Sept. 14, 2020",Bike Ride,600,12.5,2700,,,16.6,21.0,,,,"mapmyrun",http://www.mapmyrun.com/workout/8422810052/
"October 2, 2020","October 1, 2020",Walk,120,1.2,1500,,,,,,,,"mapmyrun",
"October 3, 2020","October 2, 2020",Hike,300,4.0,5400,,,,,,,,"mapmyrun",http://www.mapmyrun.com/workout/abc
`

func TestParse(t *testing.T) {
	result, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	t.Run("ResolvesRows", func(t *testing.T) {
		if len(result.Rows) != 2 {
			t.Fatalf("expected 2 usable rows, got %d", len(result.Rows))
		}

		first := result.Rows[0]
		if first.WorkoutID != 8422810051 {
			t.Errorf("expected workout 8422810051, got %d", first.WorkoutID)
		}
		if first.ActivityType != "Run" {
			t.Errorf("expected Run, got %q", first.ActivityType)
		}
		if first.Notes != "Easy morning loop" {
			t.Errorf("unexpected notes: %q", first.Notes)
		}
		if want := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC); !first.WorkoutDate.Equal(want) {
			t.Errorf("expected %s, got %s", want, first.WorkoutDate)
		}
	})

	t.Run("TrailingSlashAndSeptAbbreviation", func(t *testing.T) {
		second := result.Rows[1]
		if second.WorkoutID != 8422810052 {
			t.Errorf("expected workout 8422810052, got %d", second.WorkoutID)
		}
		if want := time.Date(2020, 9, 14, 0, 0, 0, 0, time.UTC); !second.WorkoutDate.Equal(want) {
			t.Errorf("expected %s, got %s", want, second.WorkoutDate)
		}
	})

	t.Run("ReportsSkippedRows", func(t *testing.T) {
		if len(result.Skipped) != 2 {
			t.Fatalf("expected 2 skipped rows, got %d", len(result.Skipped))
		}
		if result.Skipped[0].Line != 4 {
			t.Errorf("expected skip at line 4, got %d", result.Skipped[0].Line)
		}
		if result.Skipped[1].Line != 5 {
			t.Errorf("expected skip at line 5, got %d", result.Skipped[1].Line)
		}
	})
}

func TestParseRejectsMissingLinkColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("Workout Date,Activity Type\nJune 1 2020,Run\n"))
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseRejectsEmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseToleratesShortRecords(t *testing.T) {
	csv := "Link,Activity Type,Notes\nhttp://www.mapmyrun.com/workout/42\n"
	result, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0].WorkoutID != 42 || result.Rows[0].ActivityType != "" {
		t.Errorf("short record should parse with empty optional columns, got %+v", result.Rows[0])
	}
}

func TestWorkouts(t *testing.T) {
	result, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	workouts := result.Workouts()
	if len(workouts) != 2 {
		t.Fatalf("expected 2 workouts, got %d", len(workouts))
	}
	if workouts[0].WorkoutID != 8422810051 || workouts[0].ActivityType != "Run" {
		t.Errorf("unexpected workout record: %+v", workouts[0])
	}
	if workouts[1].Notes != "" {
		t.Errorf("expected empty notes, got %q", workouts[1].Notes)
	}
}

func TestWorkoutIDFromLink(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    int64
		wantErr bool
	}{
		{"Plain", "http://www.mapmyrun.com/workout/8422810051", 8422810051, false},
		{"TrailingSlash", "https://www.mapmyrun.com/workout/123/", 123, false},
		{"SurroundingSpace", "  http://www.mapmyrun.com/workout/7 ", 7, false},
		{"Empty", "", 0, true},
		{"NoSegments", "8422810051", 0, true},
		{"NonNumeric", "http://www.mapmyrun.com/workout/abc", 0, true},
		{"ZeroID", "http://www.mapmyrun.com/workout/0", 0, true},
		{"NegativeID", "http://www.mapmyrun.com/workout/-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := WorkoutIDFromLink(tt.link)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.link)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.want {
				t.Errorf("expected %d, got %d", tt.want, id)
			}
		})
	}
}
