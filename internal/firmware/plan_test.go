package firmware

import (
	"errors"
	"testing"
)

func fullSet() *Set {
	s := &Set{}
	s.add(File{Path: "fw/settings_reset-zmk.uf2", Role: Reset})
	s.add(File{Path: "fw/roBa_L-zmk.uf2", Role: Left})
	s.add(File{Path: "fw/roBa_R-zmk.uf2", Role: Right})
	return s
}

func TestBuildPlanResetAndBoth(t *testing.T) {
	plan, err := BuildPlan(ResetAndBoth, fullSet())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(plan.Steps))
	}

	if plan.Steps[0].File.Role != Reset {
		t.Errorf("reset must be step 0, got %s", plan.Steps[0].File.Role)
	}
	if plan.Steps[1].File.Role != Left || plan.Steps[2].File.Role != Right {
		t.Errorf("side steps out of order: %s, %s", plan.Steps[1].File.Role, plan.Steps[2].File.Role)
	}

	if plan.Steps[0].RequiresPriorReset {
		t.Error("the reset step cannot require a prior reset")
	}
	for _, step := range plan.Steps[1:] {
		if !step.RequiresPriorReset {
			t.Errorf("%s step should record its reset dependency", step.Label)
		}
	}
}

func TestBuildPlanMissingResetFails(t *testing.T) {
	s := &Set{}
	s.add(File{Path: "fw/roBa_L-zmk.uf2", Role: Left})
	s.add(File{Path: "fw/roBa_R-zmk.uf2", Role: Right})

	_, err := BuildPlan(ResetAndBoth, s)
	var incomplete *IncompleteFirmwareSetError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteFirmwareSetError, got %v", err)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != Reset {
		t.Errorf("expected missing reset role, got %v", incomplete.Missing)
	}
}

func TestBuildPlanBothNoReset(t *testing.T) {
	plan, err := BuildPlan(BothNoReset, fullSet())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	if plan.Steps[0].File.Role != Left || plan.Steps[1].File.Role != Right {
		t.Errorf("unexpected step order: %+v", plan.Steps)
	}
	for _, step := range plan.Steps {
		if step.RequiresPriorReset {
			t.Errorf("%s step claims a reset dependency in a reset-free plan", step.Label)
		}
	}
}

func TestBuildPlanMainOnly(t *testing.T) {
	s := &Set{}
	s.add(File{Path: "fw/roBa_R-zmk.uf2", Role: Right})

	plan, err := BuildPlan(MainOnly, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].File.Role != Right {
		t.Fatalf("MainOnly should plan exactly the right half, got %+v", plan.Steps)
	}
}

func TestBuildPlanDeterministic(t *testing.T) {
	a, err := BuildPlan(ResetAndBoth, fullSet())
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildPlan(ResetAndBoth, fullSet())
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Steps {
		if a.Steps[i] != b.Steps[i] {
			t.Fatalf("plans differ at step %d: %+v vs %+v", i, a.Steps[i], b.Steps[i])
		}
	}
}
