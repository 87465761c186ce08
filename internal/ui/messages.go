package ui

import (
	"time"

	"github.com/hyrodium/roBa-writer/internal/firmware"
	"github.com/hyrodium/roBa-writer/internal/flash"
)

// progressMsg wraps an engine status report for the Update loop.
type progressMsg struct {
	progress flash.Progress
}

// stepFailedMsg asks the operator what to do about a failed step.
// The run goroutine blocks on resp until the operator chooses.
type stepFailedMsg struct {
	stepIndex int
	step      firmware.Step
	err       error
	resp      chan flash.Decision
}

// runFinishedMsg carries the terminal result of a flashing run.
type runFinishedMsg struct {
	result flash.Result
}

// tickMsg refreshes the elapsed-time display on the progress screen.
type tickMsg time.Time
