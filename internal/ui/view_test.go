package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/hyrodium/roBa-writer/internal/flash"
)

// The wait line must track real time, not the elapsed value frozen into the
// last engine report.
func TestStepInstructionShowsLiveWaitTime(t *testing.T) {
	p := flash.Progress{
		State:     flash.AwaitingDevice,
		StepLabel: "left half",
		Since:     time.Now().Add(-5 * time.Second),
		Elapsed:   0, // what the report carried when the wait began
	}
	if got := stepInstruction(p); !strings.Contains(got, "waited 5s") {
		t.Errorf("instruction does not reflect the ongoing wait: %q", got)
	}

	p.State = flash.AwaitingDeparture
	p.Since = time.Now().Add(-9 * time.Second)
	if got := stepInstruction(p); !strings.Contains(got, "waited 9s") {
		t.Errorf("instruction does not reflect the ongoing wait: %q", got)
	}
}
