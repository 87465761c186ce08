package flash

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/hyrodium/roBa-writer/internal/firmware"
	"github.com/hyrodium/roBa-writer/internal/volumes"
)

// Default wait bounds, taken from the original tooling: a minute for the
// operator to plug in and double-tap reset, half that for the reboot.
const (
	DefaultArriveTimeout = 60 * time.Second
	DefaultDepartTimeout = 30 * time.Second
)

// Engine executes individual plan steps against the volume event stream.
// Per step the engine walks AwaitingDevice -> DeviceMountedWritable ->
// Copying -> AwaitingDeparture -> StepComplete, claiming exactly one
// volume and writing exactly one file. Failures surface as typed errors;
// retry policy lives in the Programmer, not here, which keeps the engine
// free of interactive I/O and drivable headlessly in tests.
type Engine struct {
	copier        func(srcPath, mountPath string) error
	arriveTimeout time.Duration
	departTimeout time.Duration
	expectedLabel string
	onProgress    ProgressFunc
	logger        *log.Logger

	run RunState
}

// EngineConfig configures an Engine. Zero values select the defaults.
type EngineConfig struct {
	ArriveTimeout time.Duration
	DepartTimeout time.Duration

	// ExpectedLabel restricts claiming to volumes whose label matches,
	// e.g. the bootloader's advertised drive name. Empty claims any
	// mounted arrival.
	ExpectedLabel string

	OnProgress ProgressFunc
	Logger     *log.Logger

	// Copier overrides the firmware copy operation (tests). Nil uses
	// CopyFirmware.
	Copier func(srcPath, mountPath string) error
}

// NewEngine creates an engine with the given configuration.
func NewEngine(config EngineConfig) *Engine {
	e := &Engine{
		copier:        config.Copier,
		arriveTimeout: config.ArriveTimeout,
		departTimeout: config.DepartTimeout,
		expectedLabel: config.ExpectedLabel,
		onProgress:    config.OnProgress,
		logger:        config.Logger,
	}
	if e.copier == nil {
		e.copier = CopyFirmware
	}
	if e.arriveTimeout <= 0 {
		e.arriveTimeout = DefaultArriveTimeout
	}
	if e.departTimeout <= 0 {
		e.departTimeout = DefaultDepartTimeout
	}
	if e.onProgress == nil {
		e.onProgress = func(Progress) {}
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	return e
}

// RunStep drives one plan step to completion: wait for a qualifying
// arrival, copy the step's file, wait for the departure. Returns nil on
// StepComplete, a *TimeoutError or *CopyError on failure, or ctx.Err()
// when cancelled. A failed step never advances; calling RunStep again with
// the same arguments is the retry path and targets the same file.
func (e *Engine) RunStep(ctx context.Context, stepIndex, stepCount int, step firmware.Step, events <-chan volumes.Event) error {
	e.enter(stepIndex, AwaitingDevice)

	claimed, err := e.awaitDevice(ctx, stepIndex, stepCount, step, events)
	if err != nil {
		return err
	}

	e.enter(stepIndex, DeviceMountedWritable)
	e.report(stepIndex, stepCount, step, claimed.Device, "", nil)

	// The copy is synchronous and blocking: no events are consulted until
	// it finishes, and cancellation is not honored mid-copy. A half-written
	// firmware file is worse than a late abort.
	e.enter(stepIndex, Copying)
	e.report(stepIndex, stepCount, step, claimed.Device, "", nil)
	e.logger.Printf("step %d (%s): writing %s to %s", stepIndex, step.Label, step.File.Name(), claimed.MountPath)

	if copyErr := e.copier(step.File.Path, claimed.MountPath); copyErr != nil {
		err := &CopyError{
			StepLabel: step.Label,
			Device:    claimed.Device,
			MountPath: claimed.MountPath,
			Err:       copyErr,
		}
		e.report(stepIndex, stepCount, step, claimed.Device, "", err)
		return err
	}

	e.enter(stepIndex, AwaitingDeparture)
	e.report(stepIndex, stepCount, step, claimed.Device, "", nil)

	if err := e.awaitDeparture(ctx, stepIndex, stepCount, step, claimed, events); err != nil {
		return err
	}

	e.enter(stepIndex, StepComplete)
	e.run.Completed = append(e.run.Completed, step.Label)
	e.report(stepIndex, stepCount, step, claimed.Device, "", nil)
	return nil
}

// awaitDevice blocks until a claimable (mounted, label-matching) volume
// arrives. Arrivals without a mount path are ignored: the device is
// attached but not yet writable, so keep waiting. Departures here refer to
// nothing we claimed and are logged as a benign race.
func (e *Engine) awaitDevice(ctx context.Context, stepIndex, stepCount int, step firmware.Step, events <-chan volumes.Event) (volumes.Volume, error) {
	e.report(stepIndex, stepCount, step, "", "", nil)

	timeout := time.NewTimer(e.arriveTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return volumes.Volume{}, ctx.Err()

		case <-timeout.C:
			err := &TimeoutError{StepLabel: step.Label, State: AwaitingDevice, Waited: e.arriveTimeout}
			e.report(stepIndex, stepCount, step, "", "", err)
			return volumes.Volume{}, err

		case ev, ok := <-events:
			if !ok {
				return volumes.Volume{}, context.Canceled
			}
			switch ev.Kind {
			case volumes.Arrived:
				v := ev.Volume
				if !v.Mounted() {
					e.logger.Printf("step %d (%s): %s arrived without mount path, waiting", stepIndex, step.Label, v.Device)
					e.report(stepIndex, stepCount, step, "", "device "+v.Device+" attached, waiting for mount", nil)
					continue
				}
				if e.expectedLabel != "" && v.Label != e.expectedLabel {
					e.logger.Printf("step %d (%s): ignoring %s (label %q, want %q)", stepIndex, step.Label, v.Device, v.Label, e.expectedLabel)
					e.report(stepIndex, stepCount, step, "", "ignored "+v.Device+" (label mismatch)", nil)
					continue
				}
				// First qualifying arrival in poll order wins; anything
				// else queued behind it is ignored for this step.
				return v, nil

			case volumes.Departed:
				race := &UnexpectedDeviceStateError{Device: ev.Device, Detail: "departed while nothing was claimed"}
				e.logger.Printf("step %d (%s): %v", stepIndex, step.Label, race)
			}
		}
	}
}

// awaitDeparture blocks until the claimed device vanishes (the bootloader
// rebooting into the new firmware). Arrivals of other devices do not reset
// the wait; departures of other devices are ignored.
func (e *Engine) awaitDeparture(ctx context.Context, stepIndex, stepCount int, step firmware.Step, claimed volumes.Volume, events <-chan volumes.Event) error {
	timeout := time.NewTimer(e.departTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timeout.C:
			err := &TimeoutError{StepLabel: step.Label, State: AwaitingDeparture, Waited: e.departTimeout}
			e.report(stepIndex, stepCount, step, claimed.Device, "", err)
			return err

		case ev, ok := <-events:
			if !ok {
				return context.Canceled
			}
			switch ev.Kind {
			case volumes.Departed:
				if ev.Device == claimed.Device {
					return nil
				}
				e.logger.Printf("step %d (%s): unrelated device %s departed", stepIndex, step.Label, ev.Device)

			case volumes.Arrived:
				e.logger.Printf("step %d (%s): ignored extra device %s", stepIndex, step.Label, ev.Device)
				e.report(stepIndex, stepCount, step, claimed.Device, "ignored extra device "+ev.Device, nil)
			}
		}
	}
}

// enter records a sub-state transition.
func (e *Engine) enter(stepIndex int, state State) {
	e.run.StepIndex = stepIndex
	e.run.State = state
	e.run.Since = time.Now()
}

// report emits a progress update for the current sub-state.
func (e *Engine) report(stepIndex, stepCount int, step firmware.Step, device, note string, err error) {
	e.onProgress(Progress{
		StepIndex: stepIndex,
		StepCount: stepCount,
		StepLabel: step.Label,
		State:     e.run.State,
		Device:    device,
		Since:     e.run.Since,
		Elapsed:   time.Since(e.run.Since),
		Err:       err,
		Note:      note,
	})
}
