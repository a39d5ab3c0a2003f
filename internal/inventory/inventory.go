// package inventory parses the MapMyRun workout export CSV into the fixed
// set of records the migration operates on.
//
// The CSV is the authoritative inventory: every row with a parseable workout
// link becomes exactly one record, and re-loading the same file is a no-op
// for rows already known to the store.
package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/wtx/internal/models"
	"github.com/desertthunder/wtx/internal/shared"
)

// Column headers as they appear in the MapMyRun CSV export.
const (
	colWorkoutDate  = "Workout Date"
	colActivityType = "Activity Type"
	colNotes        = "Notes"
	colLink         = "Link"
)

// dateLayouts covers the formats MapMyRun has used for the Workout Date
// column, in both full and abbreviated month forms.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan. 2, 2006",
	"2006-01-02",
}

// Row is one parsed line of the export, resolved to a workout id.
type Row struct {
	WorkoutID    int64
	ActivityType string
	Notes        string
	WorkoutDate  time.Time
}

// Result reports what a parse pass found, including rows it had to skip.
type Result struct {
	Rows    []Row
	Skipped []SkippedRow
}

// SkippedRow records a line that could not be resolved to a workout.
type SkippedRow struct {
	Line   int
	Reason string
}

// ParseFile reads and parses a MapMyRun export CSV from disk.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer f.Close()

	result, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return result, nil
}

// Parse reads a MapMyRun export CSV and resolves each row to a workout.
//
// Rows without a usable Link value are skipped and reported, never dropped
// silently: the inventory defines the scope of the migration, so the caller
// must be able to see what fell out.
func Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing CSV header", shared.ErrInvalidInput)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols[colLink]; !ok {
		return nil, fmt.Errorf("%w: CSV has no %q column", shared.ErrInvalidInput, colLink)
	}

	result := &Result{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}

		id, err := WorkoutIDFromLink(column(record, cols, colLink))
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}

		row := Row{
			WorkoutID:    id,
			ActivityType: column(record, cols, colActivityType),
			Notes:        column(record, cols, colNotes),
		}
		if raw := column(record, cols, colWorkoutDate); raw != "" {
			if date, err := parseWorkoutDate(raw); err == nil {
				row.WorkoutDate = date
			}
		}

		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// Workouts converts parsed rows into store records.
func (r *Result) Workouts() []*models.Workout {
	workouts := make([]*models.Workout, 0, len(r.Rows))
	for _, row := range r.Rows {
		workouts = append(workouts, &models.Workout{
			WorkoutID:    row.WorkoutID,
			ActivityType: row.ActivityType,
			Notes:        row.Notes,
			WorkoutDate:  row.WorkoutDate,
		})
	}
	return workouts
}

// WorkoutIDFromLink extracts the numeric workout id from a MapMyRun workout
// URL, e.g. "http://www.mapmyrun.com/workout/8422810051".
func WorkoutIDFromLink(link string) (int64, error) {
	link = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(link), "/"))
	if link == "" {
		return 0, fmt.Errorf("%w: empty workout link", shared.ErrInvalidInput)
	}

	idx := strings.LastIndex(link, "/")
	if idx < 0 || idx == len(link)-1 {
		return 0, fmt.Errorf("%w: workout link %q has no id segment", shared.ErrInvalidInput, link)
	}

	id, err := strconv.ParseInt(link[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: workout link %q has a non-numeric id", shared.ErrInvalidInput, link)
	}
	return id, nil
}

// parseWorkoutDate handles MapMyRun's date formats, including the
// non-standard "Sept." abbreviation that Go's time package does not accept.
func parseWorkoutDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(strings.Replace(raw, "Sept.", "Sep.", 1))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized workout date %q", shared.ErrInvalidInput, raw)
}

func column(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
