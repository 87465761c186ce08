package firmware

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractorPlainDirectory(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(dir)

	got, err := e.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("directories are used in place, got %s", got)
	}

	// Cleanup without a staging dir must not touch the source.
	e.Cleanup()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cleanup removed the source directory: %v", err)
	}
}

func TestExtractorZipBundle(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "firmware.zip")
	writeZip(t, zipPath, map[string]string{
		"roBa_L-seeeduino_xiao_ble-zmk.uf2": "left payload",
		"roBa_R-seeeduino_xiao_ble-zmk.uf2": "right payload",
	})

	e := NewExtractor(zipPath)
	dir, err := e.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	defer e.Cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "roBa_L-seeeduino_xiao_ble-zmk.uf2"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "left payload" {
		t.Errorf("extracted content mismatch: %q", data)
	}

	e.Cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("staging directory survived cleanup: %v", err)
	}
	e.Cleanup() // idempotent
}

func TestExtractorRejectsOtherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firmware.tar")
	if err := os.WriteFile(path, []byte("not firmware"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewExtractor(path).Prepare(); err == nil {
		t.Fatal("expected error for non-zip file")
	}
	if _, err := NewExtractor(filepath.Join(t.TempDir(), "missing.zip")).Prepare(); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
