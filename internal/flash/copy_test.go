package flash

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFirmware(t *testing.T) {
	srcDir := t.TempDir()
	mount := t.TempDir()

	payload := bytes.Repeat([]byte("UF2!"), 10000) // spans multiple chunks
	src := filepath.Join(srcDir, "roBa_R-zmk.uf2")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFirmware(src, mount); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(mount, "roBa_R-zmk.uf2"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("copied payload differs from source")
	}

	if _, err := os.Stat(filepath.Join(mount, writeProbeName)); !os.IsNotExist(err) {
		t.Error("write probe left behind on the volume")
	}
}

func TestCopyFirmwareMissingSource(t *testing.T) {
	if err := CopyFirmware(filepath.Join(t.TempDir(), "nope.uf2"), t.TempDir()); err == nil {
		t.Fatal("expected error for missing source")
	}
}

// A write failure is only an error while the mount point still exists. Once
// the bootloader reboots and the mount tears down, the same failure means
// the payload landed.
func TestCopyWriteFailureResolvedByMountFate(t *testing.T) {
	ioErr := errors.New("input/output error")

	gone := filepath.Join(t.TempDir(), "gone")
	if err := vanishTolerant(gone, ioErr); err != nil {
		t.Errorf("failure after the mount tore down must count as success, got %v", err)
	}

	present := t.TempDir()
	if err := vanishTolerant(present, ioErr); !errors.Is(err, ioErr) {
		t.Errorf("failure with the mount still present must surface, got %v", err)
	}
}

func TestCopyFirmwareReadOnlyVolume(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "roBa_L-zmk.uf2")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	mount := t.TempDir()
	if err := os.Chmod(mount, 0o555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(mount, 0o755)

	err := CopyFirmware(src, mount)
	if err == nil {
		t.Fatal("expected write probe to fail on a read-only volume")
	}
}
