package firmware

import (
	"fmt"
	"strings"
)

// Mode selects which steps belong in the flashing plan.
type Mode int

const (
	// ResetAndBoth flashes the settings-reset image first, then the left
	// half, then the right half. The full factory flow.
	ResetAndBoth Mode = iota
	// BothNoReset flashes both halves without the settings reset.
	BothNoReset
	// MainOnly flashes only the right (central) half.
	MainOnly
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ResetAndBoth:
		return "reset + both halves"
	case BothNoReset:
		return "both halves (skip reset)"
	case MainOnly:
		return "right half only"
	default:
		return "unknown"
	}
}

// required returns the roles a mode needs, in plan order.
func (m Mode) required() []Role {
	switch m {
	case ResetAndBoth:
		return []Role{Reset, Left, Right}
	case BothNoReset:
		return []Role{Left, Right}
	case MainOnly:
		return []Role{Right}
	default:
		return nil
	}
}

// Step is one unit of the flashing plan: write one firmware file to one
// arriving bootloader volume, then wait for its departure.
type Step struct {
	Label              string // Operator-facing name, e.g. "left half"
	File               File
	RequiresPriorReset bool // true when this write assumes the reset step already ran
}

// Plan is the ordered, immutable step sequence for one run.
type Plan struct {
	Mode  Mode
	Steps []Step
}

// IncompleteFirmwareSetError indicates the discovered firmware files cannot
// satisfy the selected mode. Fatal: surfaced before any device interaction.
type IncompleteFirmwareSetError struct {
	Mode    Mode
	Missing []Role
}

func (e *IncompleteFirmwareSetError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = r.String()
	}
	return fmt.Sprintf("firmware set incomplete for %s: missing %s firmware",
		e.Mode, strings.Join(names, ", "))
}

// stepLabels maps roles to the labels shown to the operator.
var stepLabels = map[Role]string{
	Reset: "settings reset",
	Left:  "left half",
	Right: "right half",
}

// BuildPlan constructs the ordered step sequence for a mode from a
// discovered firmware set. Pure and deterministic: same inputs, same plan.
// The reset step, when present, is always step 0.
func BuildPlan(mode Mode, set *Set) (*Plan, error) {
	roles := mode.required()
	if roles == nil {
		return nil, fmt.Errorf("unknown operation mode %d", int(mode))
	}

	var missing []Role
	for _, role := range roles {
		if _, ok := set.Get(role); !ok {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteFirmwareSetError{Mode: mode, Missing: missing}
	}

	withReset := mode == ResetAndBoth
	steps := make([]Step, 0, len(roles))
	for _, role := range roles {
		f, _ := set.Get(role)
		steps = append(steps, Step{
			Label:              stepLabels[role],
			File:               f,
			RequiresPriorReset: withReset && role != Reset,
		})
	}
	return &Plan{Mode: mode, Steps: steps}, nil
}
