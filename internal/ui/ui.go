package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/wtx/internal/models"
	"github.com/desertthunder/wtx/internal/repositories"
	"github.com/desertthunder/wtx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WorkoutListView ViewState = iota
	ConfirmView
	RunView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	store        *repositories.WorkoutRepository
	engine       *tasks.MigrationEngine
	width        int
	height       int
	workoutList  list.Model
	workouts     []*models.Workout
	summary      *models.Summary
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

type workoutsLoadedMsg struct {
	workouts []*models.Workout
	summary  *models.Summary
	err      error
}

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	result *tasks.RunResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, store *repositories.WorkoutRepository, engine *tasks.MigrationEngine) *Model {
	return &Model{
		ctx:    ctx,
		view:   WorkoutListView,
		store:  store,
		engine: engine,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init initializes the TUI by loading the workout inventory from the store.
func (m *Model) Init() tea.Cmd {
	return m.loadWorkouts()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.workoutList.Width() == 0 {
			m.workoutList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case WorkoutListView:
			return m.handleWorkoutListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case workoutsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.workouts = msg.workouts
		m.summary = msg.summary
		items := make([]list.Item, len(msg.workouts))
		for i, w := range msg.workouts {
			items[i] = workoutItem{workout: w}
		}
		m.workoutList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.workoutList.Title = fmt.Sprintf("MapMyRun Workouts (%d)", len(msg.workouts))
		m.workoutList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case WorkoutListView:
		return m.renderWorkoutList()
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleWorkoutListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.loadWorkouts()
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.workoutList, cmd = m.workoutList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = WorkoutListView
		return m, nil
	case "y":
		m.view = RunView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = WorkoutListView
		m.result = nil
		m.err = nil
		return m, m.loadWorkouts()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == WorkoutListView {
		m.workoutList, cmd = m.workoutList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadWorkouts() tea.Cmd {
	return func() tea.Msg {
		workouts, err := m.store.List()
		if err != nil {
			return workoutsLoadedMsg{err: err}
		}
		summary, err := m.store.Summary()
		return workoutsLoadedMsg{workouts: workouts, summary: summary, err: err}
	}
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progressChan := m.progressChan

	go func() {
		result, err := m.engine.Run(m.ctx, progressChan)
		m.result = result
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderWorkoutList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	var counts string
	if m.summary != nil {
		counts = styles.help.Render(fmt.Sprintf(
			"fetched %d · valid %d · submitted %d · skipped %d",
			m.summary.Fetch[models.FetchSucceeded],
			m.summary.Validation[models.Valid],
			m.summary.Submit[models.Submitted],
			m.summary.Submit[models.SkippedDuplicate],
		))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", m.workoutList.View(), counts, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Migrate remaining workouts to Strava?")

	remaining := 0
	if m.summary != nil {
		remaining = m.summary.Total - m.summary.Submit[models.Submitted] - m.summary.Submit[models.SkippedDuplicate]
	}
	info := fmt.Sprintf("\nWorkouts: %d\nNot yet on Strava: %d\n", len(m.workouts), remaining)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Migrating Workouts")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchPhase:
		phase = fmt.Sprintf("Downloading from MapMyRun (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ValidatePhase:
		phase = fmt.Sprintf("Validating artifacts (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.SubmitPhase:
		phase = fmt.Sprintf("Uploading to Strava (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CooldownPhase:
		phase = styles.warn.Render("Rate limit cooldown")
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Migration stopped: %v\n\nPress r to return, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to return, q to quit")
	}

	title := styles.ok.Render("✓ Migration Pass Complete")
	info := fmt.Sprintf(
		"\nFetched: %d (permanent failures %d, retryable %d)\nValidated: %d valid, %d invalid\nSubmitted: %d, skipped %d, failed %d",
		m.result.Fetch.Succeeded,
		m.result.Fetch.FailedPermanent,
		m.result.Fetch.FailedRetryable,
		m.result.Validate.Valid,
		m.result.Validate.Invalid,
		m.result.Submit.Submitted,
		m.result.Submit.Skipped,
		m.result.Submit.FailedPermanent+m.result.Submit.FailedRetryable,
	)

	var warn string
	if m.result.Submit.FailedRetryable > 0 {
		warn = fmt.Sprintf("\n\n%s", styles.warn.Render(
			fmt.Sprintf("%d workouts will be retried on the next run", m.result.Submit.FailedRetryable)))
	}

	helpKeys := []key.Binding{m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, warn, helpView)
}
