package firmware

import (
	"fmt"
	"os"
	"strings"

	"github.com/mholt/archiver/v3"
)

// Extractor prepares the firmware directory from the path the operator
// handed us: a plain directory is used in place, a .zip bundle (what the
// ZMK build pipeline produces) is unpacked into a temp staging directory
// that Cleanup removes.
type Extractor struct {
	source  string
	tempDir string
}

// NewExtractor creates an extractor for a firmware directory or archive.
func NewExtractor(source string) *Extractor {
	return &Extractor{source: source}
}

// Prepare resolves the firmware directory, extracting the archive first
// when the source is a zip file.
func (e *Extractor) Prepare() (string, error) {
	info, err := os.Stat(e.source)
	if err != nil {
		return "", fmt.Errorf("firmware path: %w", err)
	}

	if info.IsDir() {
		return e.source, nil
	}

	if !strings.HasSuffix(strings.ToLower(e.source), ".zip") {
		return "", fmt.Errorf("firmware path %s is neither a directory nor a .zip archive", e.source)
	}

	tempDir, err := os.MkdirTemp("", "roba-writer-")
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	e.tempDir = tempDir

	if err := archiver.Unarchive(e.source, tempDir); err != nil {
		e.Cleanup()
		return "", fmt.Errorf("extract %s: %w", e.source, err)
	}
	return tempDir, nil
}

// Cleanup removes the staging directory, if one was created. Safe to call
// multiple times and when Prepare never ran.
func (e *Extractor) Cleanup() {
	if e.tempDir == "" {
		return
	}
	os.RemoveAll(e.tempDir)
	e.tempDir = ""
}
