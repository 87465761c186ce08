package firmware

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		role Role
		ok   bool
	}{
		{"settings_reset-seeeduino_xiao_ble-zmk.uf2", Reset, true},
		{"roBa_L-seeeduino_xiao_ble-zmk.uf2", Left, true},
		{"roBa_R-seeeduino_xiao_ble-zmk.uf2", Right, true},
		{"corne_left-nice_nano_v2-zmk.uf2", Left, true},
		{"corne_right-nice_nano_v2-zmk.uf2", Right, true},
		{"SETTINGS_RESET.UF2", Reset, true},
		{"roBa_L-seeeduino_xiao_ble-zmk.bin", 0, false},
		{"firmware.uf2", 0, false},
		{"README.md", 0, false},
	}

	for _, tt := range tests {
		role, ok := Classify(tt.name)
		if ok != tt.ok {
			t.Errorf("Classify(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && role != tt.role {
			t.Errorf("Classify(%q) = %v, want %v", tt.name, role, tt.role)
		}
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("uf2"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"settings_reset-seeeduino_xiao_ble-zmk.uf2",
		"roBa_L-seeeduino_xiao_ble-zmk.uf2",
		"roBa_R-seeeduino_xiao_ble-zmk.uf2",
		"notes.txt",
	)

	set, skipped, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped files: %v", skipped)
	}

	for _, role := range []Role{Reset, Left, Right} {
		f, ok := set.Get(role)
		if !ok {
			t.Fatalf("missing %s firmware", role)
		}
		if got, _ := Classify(f.Name()); got != role {
			t.Errorf("file %s classified as %s, stored under %s", f.Name(), got, role)
		}
	}
}

func TestDiscoverSkipsUnclassifiableAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"mystery.uf2",
		"roBa_R-seeeduino_xiao_ble-zmk.uf2",
		"zz_other_right-zmk.uf2", // second right-half image
	)

	set, skipped, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 2 {
		t.Errorf("expected 2 skipped files, got %v", skipped)
	}

	f, ok := set.Get(Right)
	if !ok {
		t.Fatal("right firmware missing")
	}
	// Directory order is lexical; the first classified right image wins.
	if f.Name() != "roBa_R-seeeduino_xiao_ble-zmk.uf2" {
		t.Errorf("wrong right firmware claimed: %s", f.Name())
	}
	if _, ok := set.Get(Reset); ok {
		t.Error("no reset firmware was present, but Set has one")
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	if _, _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
