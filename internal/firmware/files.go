// Package firmware handles discovery and classification of split-keyboard
// firmware files and builds the ordered flashing plan.
//
// The bootloader accepts one UF2 file per flash cycle. A firmware bundle for
// a two-unit keyboard carries up to three payloads: a settings-reset image
// and one image per physical side. Classification is pure filename matching
// against the ZMK build naming convention (e.g.
// "settings_reset-seeeduino_xiao_ble-zmk.uf2", "roBa_L-seeeduino_xiao_ble-zmk.uf2").
package firmware

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Role tags what a firmware file is for.
type Role int

const (
	// Reset clears the persisted settings (including the split pairing).
	Reset Role = iota
	// Left is the firmware for the left half.
	Left
	// Right is the firmware for the right half. On this keyboard the right
	// half is the central/main unit.
	Right
)

// String returns the role name for labels and logs.
func (r Role) String() string {
	switch r {
	case Reset:
		return "reset"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// File is a resolved, existing firmware file with its classified role.
// Files are discovered once before the plan starts and immutable afterward.
type File struct {
	Path string // Absolute or caller-relative path to the .uf2 file
	Role Role
}

// Name returns the bare filename, which is also the name written onto the
// bootloader volume.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// Set holds at most one firmware file per role.
type Set struct {
	files map[Role]File
}

// Get returns the file for a role, if present.
func (s *Set) Get(role Role) (File, bool) {
	f, ok := s.files[role]
	return f, ok
}

// add records a file for its role. The first file classified for a role
// wins; duplicates are reported back so the caller can log them.
func (s *Set) add(f File) bool {
	if s.files == nil {
		s.files = make(map[Role]File)
	}
	if _, exists := s.files[f.Role]; exists {
		return false
	}
	s.files[f.Role] = f
	return true
}

// Classify determines a firmware file's role from its filename.
// Returns false for anything that is not a recognizable .uf2 payload.
func Classify(name string) (Role, bool) {
	base := strings.ToLower(filepath.Base(name))
	if !strings.HasSuffix(base, ".uf2") {
		return 0, false
	}

	switch {
	case strings.Contains(base, "reset"):
		return Reset, true
	case strings.Contains(base, "_l-") || strings.Contains(base, "left"):
		return Left, true
	case strings.Contains(base, "_r-") || strings.Contains(base, "right"):
		return Right, true
	}
	return 0, false
}

// Discover scans a directory (non-recursively) and classifies every .uf2
// file found. Unclassifiable and duplicate files are skipped; their names
// are returned for logging.
func Discover(dir string) (*Set, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read firmware directory: %w", err)
	}

	set := &Set{}
	var skipped []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		role, ok := Classify(entry.Name())
		if !ok {
			if strings.HasSuffix(strings.ToLower(entry.Name()), ".uf2") {
				skipped = append(skipped, entry.Name())
			}
			continue
		}
		f := File{Path: filepath.Join(dir, entry.Name()), Role: role}
		if !set.add(f) {
			skipped = append(skipped, entry.Name())
		}
	}
	return set, skipped, nil
}
