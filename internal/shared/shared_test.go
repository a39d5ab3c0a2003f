package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{90, "1:30"},
		{1800, "30:00"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0.00 km"},
		{5000, "5.00 km"},
		{161, "0.16 km"},
		{42195, "42.20 km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.meters); got != tt.want {
			t.Errorf("FormatDistance(%f) = %q, want %q", tt.meters, got, tt.want)
		}
	}
}

func TestGenerateState(t *testing.T) {
	first, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}
	if len(first) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(first))
	}

	second, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}
	if first == second {
		t.Error("consecutive states should differ")
	}
}

func TestGenerateID(t *testing.T) {
	if GenerateID() == GenerateID() {
		t.Error("consecutive ids should differ")
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wtx.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create file logger: %v", err)
	}
	logger.Info("hello")

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
}
