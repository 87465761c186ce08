// Package volumes provides removable volume detection, mounting, and hot-plug
// monitoring for USB mass-storage bootloader devices.
// This module handles mount/unmount operations via udisks2.
package volumes

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Mounter is the OS auto-mount capability. Platforms (or installs) without
// a mount helper use ManualMounter, which degrades to "the operator mounts
// the drive themselves" without the monitor ever noticing the difference.
type Mounter interface {
	// Mount attaches the block device and returns its mount point.
	Mount(device string) (string, error)

	// Unmount detaches the filesystem at the given mount point.
	Unmount(mountPath string) error
}

// UdisksMounter mounts block devices through udisksctl, which works for an
// unprivileged desktop user (no sudo required). Same helper the original
// desktop tooling uses for removable media.
type UdisksMounter struct{}

// Available reports whether udisksctl exists in PATH.
func (UdisksMounter) Available() bool {
	_, err := exec.LookPath("udisksctl")
	return err == nil
}

// Mount attaches a block device with udisksctl and returns the mount point.
// Typical output: "Mounted /dev/sda1 at /run/media/user/XIAO-SENSE."
func (UdisksMounter) Mount(device string) (string, error) {
	out, err := exec.Command("udisksctl", "mount", "-b", device).Output()
	if err != nil {
		// Racing the desktop's own auto-mounter is common; recover the
		// existing mount point instead of failing.
		if mountPoint, findErr := FindMountPointForDevice(device); findErr == nil {
			return mountPoint, nil
		}
		return "", fmt.Errorf("udisksctl mount %s: %w", device, err)
	}

	mountOutput := strings.TrimSpace(string(out))
	if idx := strings.Index(mountOutput, " at "); idx != -1 {
		return strings.TrimSuffix(mountOutput[idx+4:], "."), nil
	}

	// Output parsing failed; fall back to /proc/mounts.
	if mountPoint, findErr := FindMountPointForDevice(device); findErr == nil {
		return mountPoint, nil
	}
	return "", fmt.Errorf("udisksctl mounted %s but no mount point found", device)
}

// Unmount detaches the filesystem at mountPath with udisksctl. udisksctl
// addresses filesystems by block device, so the device is resolved from
// /proc/mounts first.
func (UdisksMounter) Unmount(mountPath string) error {
	device, err := findDeviceForMountPoint(mountPath)
	if err != nil {
		return err
	}
	if err := exec.Command("udisksctl", "unmount", "-b", device).Run(); err != nil {
		return fmt.Errorf("udisksctl unmount %s: %w", device, err)
	}
	return nil
}

// ManualMounter is the no-op Mounter used when udisksctl is unavailable.
// Mount reports failure so arrivals stay unmounted until the operator
// mounts the drive by hand.
type ManualMounter struct{}

// Mount always fails: there is no helper to invoke.
func (ManualMounter) Mount(device string) (string, error) {
	return "", fmt.Errorf("no mount helper available, mount %s manually", device)
}

// Unmount is a no-op.
func (ManualMounter) Unmount(mountPath string) error {
	return nil
}

// FindMountPointForDevice returns the mount point for a device path by
// parsing /proc/mounts directly, avoiding a findmnt dependency.
func FindMountPointForDevice(device string) (string, error) {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == device {
			return fields[1], nil
		}
	}

	return "", fmt.Errorf("device %s not found in /proc/mounts", device)
}

// findDeviceForMountPoint is the inverse lookup: mount point to device path.
func findDeviceForMountPoint(mountPath string) (string, error) {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == mountPath {
			return fields[0], nil
		}
	}

	return "", fmt.Errorf("mount point %s not found in /proc/mounts", mountPath)
}
