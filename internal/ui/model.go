package ui

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hyrodium/roBa-writer/internal/firmware"
	"github.com/hyrodium/roBa-writer/internal/flash"
	"github.com/hyrodium/roBa-writer/internal/volumes"
)

// screen represents the different UI screens available in the application.
type screen int

const (
	screenModeSelect screen = iota // Operation mode menu
	screenProgress                 // Live flashing progress
	screenStepFailed               // Retry/Skip/Abort decision menu
	screenComplete                 // Run finished successfully
	screenError                    // Error display requiring manual dismissal
	screenAbout                    // About/help information
)

// modeMenuChoices defines the mode menu options in plan order.
var modeMenuChoices = []string{
	"🔁 Full Flash (reset + both halves)",
	"⚡ Both Halves (skip settings reset)",
	"🎯 Right Half Only",
	"ℹ️ About",
	"❌ Exit",
}

// failedMenuChoices are the operator's options when a step fails.
var failedMenuChoices = []string{
	"🔄 Retry This Step",
	"⏭️ Skip This Step",
	"🛑 Abort Run",
}

// Config carries everything the TUI needs to run flashing sessions.
type Config struct {
	FirmwareSet  *firmware.Set
	SkippedFiles []string // unclassifiable .uf2 files found during discovery
	Logger       *log.Logger
	LogPath      string // shown on the progress screen, may be empty

	// ExpectedLabel restricts claiming to matching volume labels (optional).
	ExpectedLabel string

	ArriveTimeout time.Duration
	DepartTimeout time.Duration

	// Mounter mounts arriving block devices; ManualMounter when the
	// system has no mount helper.
	Mounter volumes.Mounter
}

// Model represents the complete application state for the roBa Writer TUI.
// It implements the tea.Model interface.
type Model struct {
	config Config

	// Screen and navigation state
	screen  screen
	cursor  int
	choices []string

	// Display dimensions
	width  int
	height int

	// Run state
	plan     *firmware.Plan
	progress flash.Progress
	haveProg bool
	message  string

	// Pending step-failure decision, nil when none is outstanding
	pendingDecision *stepFailedMsg

	// Run plumbing
	runMsgs   chan tea.Msg
	cancelRun context.CancelFunc
	result    *flash.Result
}

// InitialModel creates the model with the mode menu active.
func InitialModel(config Config) Model {
	return Model{
		config:  config,
		screen:  screenModeSelect,
		choices: modeMenuChoices,
		width:   100,
		height:  30,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model and routes all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case progressMsg:
		m.progress = msg.progress
		m.haveProg = true
		if msg.progress.Note != "" {
			m.message = msg.progress.Note
		}
		return m, m.waitForRunMsg()

	case stepFailedMsg:
		m.pendingDecision = &msg
		m.screen = screenStepFailed
		m.choices = failedMenuChoices
		m.cursor = 0
		return m, nil

	case runFinishedMsg:
		result := msg.result
		m.result = &result
		m.cancelRun = nil
		switch result.Outcome {
		case flash.Success, flash.PartialSuccess:
			m.screen = screenComplete
		default:
			m.screen = screenError
			if result.Err != nil {
				m.message = result.Err.Error()
			} else {
				m.message = "flashing run " + result.Outcome.String()
			}
		}
		return m, nil

	case tickMsg:
		if m.screen == screenProgress {
			return m, tickCmd()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey processes keyboard input for the active screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Ctrl+C aborts from anywhere. A run in progress is cancelled at the
	// next transition boundary; an in-flight copy still finishes first.
	if key == "ctrl+c" {
		if m.pendingDecision != nil {
			m.pendingDecision.resp <- flash.Abort
			m.pendingDecision = nil
			m.screen = screenProgress
			return m, m.waitForRunMsg()
		}
		if m.cancelRun != nil {
			m.cancelRun()
			m.message = "Aborting after the current operation finishes..."
			m.screen = screenProgress
			return m, nil
		}
		return m, tea.Quit
	}

	switch m.screen {
	case screenModeSelect:
		return m.handleMenuKey(key)

	case screenStepFailed:
		return m.handleFailedKey(key)

	case screenProgress:
		// The run owns this screen; only abort is meaningful.
		return m, nil

	case screenAbout:
		m.screen = screenModeSelect
		m.choices = modeMenuChoices
		m.cursor = 0
		return m, nil

	case screenComplete, screenError:
		if m.result != nil {
			return m, tea.Quit
		}
		// Plan-construction errors return to the menu.
		m.screen = screenModeSelect
		m.choices = modeMenuChoices
		m.cursor = 0
		m.message = ""
		return m, nil
	}

	return m, nil
}

// handleMenuKey handles navigation and selection on the mode menu.
func (m Model) handleMenuKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "q", "esc":
		return m, tea.Quit
	case "enter", " ":
		switch m.cursor {
		case 0:
			return m.startRun(firmware.ResetAndBoth)
		case 1:
			return m.startRun(firmware.BothNoReset)
		case 2:
			return m.startRun(firmware.MainOnly)
		case 3:
			m.screen = screenAbout
			return m, nil
		case 4:
			return m, tea.Quit
		}
	}
	return m, nil
}

// handleFailedKey handles the retry/skip/abort decision menu. The run
// goroutine is blocked on the decision channel until we answer.
func (m Model) handleFailedKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter", " ":
		if m.pendingDecision == nil {
			return m, nil
		}
		decision := flash.Abort
		switch m.cursor {
		case 0:
			decision = flash.Retry
		case 1:
			decision = flash.SkipStep
		}
		m.pendingDecision.resp <- decision
		m.pendingDecision = nil
		m.screen = screenProgress
		m.message = ""
		return m, tea.Batch(m.waitForRunMsg(), tickCmd())
	}
	return m, nil
}

// startRun builds the plan for the selected mode and launches the flashing
// run in a background goroutine wired to the Update loop via runMsgs.
func (m Model) startRun(mode firmware.Mode) (tea.Model, tea.Cmd) {
	plan, err := firmware.BuildPlan(mode, m.config.FirmwareSet)
	if err != nil {
		m.screen = screenError
		m.message = err.Error()
		return m, nil
	}

	m.plan = plan
	m.screen = screenProgress
	m.haveProg = false
	m.message = ""
	m.result = nil
	m.runMsgs = make(chan tea.Msg, 16)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel

	runMsgs := m.runMsgs
	programmer := flash.New(&flash.Config{
		Plan: plan,
		Monitor: volumes.NewMonitor(
			volumes.NewSystemSnapshotter(),
			m.config.Mounter,
			m.config.Logger,
		),
		Decider: flash.DeciderFunc(func(stepIndex int, step firmware.Step, err error) flash.Decision {
			resp := make(chan flash.Decision)
			runMsgs <- stepFailedMsg{stepIndex: stepIndex, step: step, err: err, resp: resp}
			return <-resp
		}),
		OnProgress: func(p flash.Progress) {
			runMsgs <- progressMsg{progress: p}
		},
		Logger:        m.config.Logger,
		ArriveTimeout: m.config.ArriveTimeout,
		DepartTimeout: m.config.DepartTimeout,
		ExpectedLabel: m.config.ExpectedLabel,
	})

	go func() {
		result := programmer.Run(ctx)
		runMsgs <- runFinishedMsg{result: result}
	}()

	return m, tea.Batch(m.waitForRunMsg(), tickCmd())
}

// waitForRunMsg returns a command that delivers the next message from the
// run goroutine to the Update loop.
func (m Model) waitForRunMsg() tea.Cmd {
	runMsgs := m.runMsgs
	return func() tea.Msg {
		return <-runMsgs
	}
}

// tickCmd drives the elapsed-time refresh on the progress screen.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
