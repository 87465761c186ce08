package flash

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyChunkSize keeps writes small so a vanishing mount point is noticed
// promptly instead of after one large buffered write.
const copyChunkSize = 8192

// writeProbeName is a throwaway file written and deleted before the real
// copy to surface read-only mounts without touching the payload.
const writeProbeName = ".roba-writer-probe"

// CopyFirmware writes the firmware file at srcPath onto the mounted volume
// at mountPath, under the same filename.
//
// UF2 bootloaders reboot the instant the payload is fully received, which
// tears the mount down underneath us. A write or close failure is therefore
// treated as success when the mount point no longer exists; every other
// failure is a real copy error.
func CopyFirmware(srcPath, mountPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open firmware file: %w", err)
	}
	defer src.Close()

	if err := probeWritable(mountPath); err != nil {
		return err
	}

	dstPath := filepath.Join(mountPath, filepath.Base(srcPath))
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}

	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				dst.Close()
				return vanishTolerant(mountPath, fmt.Errorf("write %s: %w", dstPath, writeErr))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dst.Close()
			return fmt.Errorf("read firmware file: %w", readErr)
		}
	}

	// Flush to the device; the bootloader only acts on received blocks.
	if err := dst.Sync(); err != nil {
		dst.Close()
		return vanishTolerant(mountPath, fmt.Errorf("sync %s: %w", dstPath, err))
	}
	if err := dst.Close(); err != nil {
		return vanishTolerant(mountPath, fmt.Errorf("close %s: %w", dstPath, err))
	}
	return nil
}

// vanishTolerant resolves a device write error against the mount's fate: a
// failure after the bootloader rebooted and tore the mount down means the
// payload was fully received, so the copy succeeded. With the mount still
// present the error is real.
func vanishTolerant(mountPath string, err error) error {
	if mountVanished(mountPath) {
		return nil
	}
	return err
}

// probeWritable creates and removes a small file on the volume. Read-only
// mounts fail here with a clear error instead of midway through the payload.
func probeWritable(mountPath string) error {
	probe := filepath.Join(mountPath, writeProbeName)
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		return fmt.Errorf("volume %s is not writable: %w", mountPath, err)
	}
	os.Remove(probe)
	return nil
}

// mountVanished reports whether the mount point disappeared, which is what
// a completed UF2 write looks like from this side.
func mountVanished(mountPath string) bool {
	_, err := os.Stat(mountPath)
	return err != nil
}
