// Package flash implements the flashing state machine and the run
// orchestrator that sequences firmware writes across hot-plugged
// bootloader volumes.
package flash

import "time"

// State is a step's sub-state within the flashing state machine.
type State int

const (
	// AwaitingDevice waits for a mounted bootloader volume to arrive.
	AwaitingDevice State = iota
	// DeviceMountedWritable means a volume has been claimed for this step.
	DeviceMountedWritable
	// Copying means the firmware write is in progress.
	Copying
	// AwaitingDeparture waits for the claimed device to reboot and vanish.
	AwaitingDeparture
	// StepComplete means the step finished; the engine advances.
	StepComplete
)

// String returns the state name shown to the operator.
func (s State) String() string {
	switch s {
	case AwaitingDevice:
		return "waiting for device"
	case DeviceMountedWritable:
		return "device ready"
	case Copying:
		return "writing firmware"
	case AwaitingDeparture:
		return "waiting for reboot"
	case StepComplete:
		return "step complete"
	default:
		return "unknown"
	}
}

// Progress is one status report from the engine. Reports fire on every
// state transition and on notable ignored events, carrying enough context
// for the operator to correct the physical situation.
type Progress struct {
	StepIndex int    // 0-based index into the plan
	StepCount int    // total steps in the plan
	StepLabel string // e.g. "left half"
	State     State
	Device    string        // claimed device identifier, when known
	Since     time.Time     // when the current sub-state was entered
	Elapsed   time.Duration // time spent in the sub-state when the report fired
	Err       error         // terminal failure of this step attempt, if any
	Note      string        // one-line detail, e.g. "ignored extra device /dev/sdb1"
}

// ProgressFunc receives engine status reports. Implementations should
// return quickly; they are invoked from the engine's run loop.
type ProgressFunc func(Progress)

// RunState tracks the engine's position in the plan for one run. Owned
// exclusively by the engine; discarded when the run ends.
type RunState struct {
	StepIndex int
	State     State
	Since     time.Time // when the current sub-state was entered
	Completed []string  // labels of completed steps, in order
}
