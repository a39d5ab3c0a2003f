package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wtx/internal/repositories"
	"github.com/desertthunder/wtx/internal/services"
	"github.com/desertthunder/wtx/internal/shared"
	"github.com/desertthunder/wtx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger, used when a TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, inventoryCommand, fetchCommand, validateCommand,
		submitCommand, runCommand, statusCommand, reportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the per-command config flag, falling back to the
// runner's config when the file is absent.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		if config, err := shared.LoadConfig(configPath); err == nil {
			return config
		} else {
			r.logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	return r.config
}

// openDatabase opens the migration database and applies pool settings.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	return db, nil
}

// newEngine wires the store, clients, and pacing options into an engine.
func (r *Runner) newEngine(config *shared.Config, db *sql.DB, opts tasks.Options) *tasks.MigrationEngine {
	store := repositories.NewWorkoutRepository(db)
	audit := repositories.NewAuditRepository(db)

	source := services.NewMapMyRunService(
		config.Source.BaseURL, config.Source.Cookie, config.Source.RequestsPerSec, r.sourceClient(config))
	dest := services.NewStravaService(
		config.Destination.BaseURL, newStravaTokens(config), r.httpClient)

	if opts.ArtifactDir == "" {
		opts.ArtifactDir = config.Source.ArtifactDir
	}
	if opts.MaxFetchAttempts == 0 {
		opts.MaxFetchAttempts = config.Source.MaxAttempts
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = config.Migration.BatchSize
	}
	opts.BatchPause = time.Duration(config.Migration.BatchPauseSeconds) * time.Second
	opts.UploadPause = time.Duration(config.Migration.UploadPauseSeconds) * time.Second
	opts.PollTimeout = time.Duration(config.Migration.PollTimeoutSeconds) * time.Second
	opts.Cooldown = time.Duration(config.Migration.CooldownMinutes) * time.Minute
	opts.DupWindow = time.Duration(config.Duplicates.WindowHours) * time.Hour
	opts.DupDurationTol = config.Duplicates.DurationToleranceSec
	opts.DupDistanceTol = config.Duplicates.DistanceToleranceM

	return tasks.NewMigrationEngine(store, audit, source, dest, r.logger, opts)
}

// sourceClient builds an HTTP client with the configured per-request timeout
// for MapMyRun exports, which can be slow for long workouts.
func (r *Runner) sourceClient(config *shared.Config) *http.Client {
	timeout := time.Duration(config.Source.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// drainProgress prints progress messages until the channel closes.
func (r *Runner) drainProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.writePlain("%s\n", update.Message)
	}
	close(done)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
