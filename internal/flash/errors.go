package flash

import (
	"fmt"
	"time"
)

// CopyError indicates an I/O failure while writing a firmware file to a
// claimed bootloader volume. Recoverable: the operator may retry the step.
type CopyError struct {
	StepLabel string
	Device    string
	MountPath string
	Err       error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy failed for %s step (device %s at %s): %v",
		e.StepLabel, e.Device, e.MountPath, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// TimeoutError indicates no qualifying arrival or departure was observed
// within the configured bound. Recoverable via retry or abort; distinguishes
// "operator walked away" from a hung device.
type TimeoutError struct {
	StepLabel string
	State     State // the sub-state that timed out
	Waited    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s step timed out after %s while %s",
		e.StepLabel, e.Waited.Round(time.Second), e.State)
}

// UnexpectedDeviceStateError describes a benign race such as a departure
// observed for a device that was never claimed. Logged, never fatal.
type UnexpectedDeviceStateError struct {
	Device string
	Detail string
}

func (e *UnexpectedDeviceStateError) Error() string {
	return fmt.Sprintf("unexpected device state for %s: %s", e.Device, e.Detail)
}
