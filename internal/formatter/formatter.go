// package formatter provides functions to export migration reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/wtx/internal/models"
	"github.com/desertthunder/wtx/internal/shared"
)

// Report bundles the record list and summary counts for export.
type Report struct {
	Workouts []*models.Workout
	Summary  *models.Summary
}

// ExportToCSV converts a Report to CSV format with one row per workout.
func ExportToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"Workout ID", "Activity Type", "Mapped Type", "Workout Date",
		"Fetch State", "Validation State", "Invalid Reason",
		"Submit State", "Submit Reason", "Strava Activity ID",
		"Duration (s)", "Distance (m)", "Artifact Path",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, w := range report.Workouts {
		activityID := ""
		if w.StravaActivityID != nil {
			activityID = strconv.FormatInt(*w.StravaActivityID, 10)
		}
		date := ""
		if !w.WorkoutDate.IsZero() {
			date = w.WorkoutDate.Format("2006-01-02")
		}
		record := []string{
			strconv.FormatInt(w.WorkoutID, 10),
			w.ActivityType,
			w.MappedType,
			date,
			string(w.FetchState),
			string(w.ValidationState),
			w.InvalidReason,
			string(w.SubmitState),
			w.SubmitReason,
			activityID,
			strconv.FormatFloat(w.DurationSec, 'f', 1, 64),
			strconv.FormatFloat(w.DistanceM, 'f', 1, 64),
			w.ArtifactPath,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Report to Markdown format with a summary table
// and a per-workout listing.
func ExportToMarkdown(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Migration Report\n\n")
	buf.WriteString(fmt.Sprintf("**Workouts**: %d\n\n", report.Summary.Total))

	buf.WriteString("## Summary\n\n")
	buf.WriteString("| Phase | State | Count |\n")
	buf.WriteString("|-------|-------|-------|\n")
	for _, state := range fetchStates {
		if n := report.Summary.Fetch[state]; n > 0 {
			buf.WriteString(fmt.Sprintf("| fetch | %s | %d |\n", state, n))
		}
	}
	for _, state := range validationStates {
		if n := report.Summary.Validation[state]; n > 0 {
			buf.WriteString(fmt.Sprintf("| validate | %s | %d |\n", state, n))
		}
	}
	for _, state := range submitStates {
		if n := report.Summary.Submit[state]; n > 0 {
			buf.WriteString(fmt.Sprintf("| submit | %s | %d |\n", state, n))
		}
	}
	buf.WriteString("\n## Workouts\n\n")

	for i, w := range report.Workouts {
		line := fmt.Sprintf("%d. **%d** %s", i+1, w.WorkoutID, w.Name())
		if w.DurationSec > 0 {
			line += fmt.Sprintf(" [%s, %s]", shared.FormatDuration(int(w.DurationSec)), shared.FormatDistance(w.DistanceM))
		}
		line += fmt.Sprintf(" — %s", outcome(w))
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Report to plain text format.
func ExportToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Workouts: %d\n\n", report.Summary.Total))
	for i, w := range report.Workouts {
		buf.WriteString(fmt.Sprintf("%d. %d %s: %s\n", i+1, w.WorkoutID, w.Name(), outcome(w)))
	}

	return buf.Bytes(), nil
}

// ToSummaryJSON generates a JSON representation of the summary counts.
func ToSummaryJSON(summary *models.Summary) ([]byte, error) {
	return shared.MarshalJSON(summary, true)
}

// WriteCSVExport writes a Report to {base}_report.csv with an accompanying
// {base}_summary.json.
//
// Defaults to "migration" as the base filename.
func WriteCSVExport(report *Report, baseFilepath string) (string, error) {
	if baseFilepath == "" {
		baseFilepath = "migration"
	}

	csvData, err := ExportToCSV(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	reportFile := baseFilepath + "_report.csv"
	if err := os.WriteFile(reportFile, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	summaryJSON, err := ToSummaryJSON(report.Summary)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_summary.json"
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return reportFile, nil
}

// WriteMarkdownExport writes a Report to the given path, defaulting to
// migration_report.md.
func WriteMarkdownExport(report *Report, filepath string) (string, error) {
	if filepath == "" {
		filepath = "migration_report.md"
	}

	mdData, err := ExportToMarkdown(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport writes a Report to the given path, defaulting to
// migration_report.txt.
func WriteTextExport(report *Report, filepath string) (string, error) {
	if filepath == "" {
		filepath = "migration_report.txt"
	}

	textData, err := ExportToText(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// outcome renders the workout's furthest-progressed state for display.
func outcome(w *models.Workout) string {
	switch {
	case w.SubmitState == models.Submitted && w.StravaActivityID != nil:
		return fmt.Sprintf("submitted as activity %d", *w.StravaActivityID)
	case w.SubmitState == models.SkippedDuplicate:
		return "skipped (duplicate)"
	case w.SubmitState != models.NotSubmitted && w.SubmitState != "":
		return fmt.Sprintf("submit %s: %s", w.SubmitState, w.SubmitReason)
	case w.ValidationState == models.Invalid:
		return fmt.Sprintf("invalid (%s)", w.InvalidReason)
	case w.ValidationState == models.Valid:
		return "validated, awaiting submit"
	case w.FetchState == models.FetchSucceeded:
		return "fetched, awaiting validation"
	case w.FetchState != models.FetchNotStarted && w.FetchState != "":
		return fmt.Sprintf("fetch %s", w.FetchState)
	default:
		return "pending"
	}
}

// Display ordering for summary tables.
var (
	fetchStates = []models.FetchState{
		models.FetchNotStarted, models.FetchInProgress, models.FetchSucceeded,
		models.FetchFailedRetryable, models.FetchFailedPermanent,
	}
	validationStates = []models.ValidationState{
		models.NotValidated, models.Valid, models.Invalid,
	}
	submitStates = []models.SubmitState{
		models.NotSubmitted, models.Submitted, models.SkippedDuplicate,
		models.SubmitFailedRetryable, models.SubmitFailedPermanent,
	}
)
