// Package volumes provides removable volume detection, mounting, and hot-plug
// monitoring for USB mass-storage bootloader devices.
// This module handles point-in-time enumeration of removable volumes.
package volumes

import (
	"encoding/json"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Snapshotter takes a point-in-time enumeration of removable volumes.
// Implementations must be side-effect free with respect to the flashing
// logic and bounded in time, since Snapshot is polled in a tight loop.
type Snapshotter interface {
	Snapshot() ([]Volume, error)
}

// SystemSnapshotter enumerates removable volumes on the running Linux system.
// Mounted volumes come from gopsutil partition enumeration; attached but
// unmounted USB devices (bootloader drives the desktop has not auto-mounted)
// and volume labels come from lsblk.
//
// A transient OS failure returns the previous snapshot unchanged, so a
// hiccup in lsblk never looks like every device departing at once.
type SystemSnapshotter struct {
	last []Volume
}

// NewSystemSnapshotter creates a snapshotter backed by the running system.
func NewSystemSnapshotter() *SystemSnapshotter {
	return &SystemSnapshotter{}
}

// bootloaderFilesystems are the filesystem types a mass-storage bootloader
// presents. The XIAO nRF52840 bootloader volume is FAT.
var bootloaderFilesystems = []string{"vfat", "fat32", "msdos"}

// Snapshot returns the current set of removable volumes, mounted or not.
func (s *SystemSnapshotter) Snapshot() ([]Volume, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return s.last, nil
	}

	labels, unmounted, err := scanBlockDevices()
	if err != nil {
		return s.last, nil
	}

	volumes := make([]Volume, 0, 4)
	seen := make(map[string]bool)

	for _, part := range parts {
		if !isRemovablePartition(part) {
			continue
		}
		// Stale /proc entries can outlive a yanked device briefly.
		if _, err := os.Stat(part.Mountpoint); err != nil {
			continue
		}
		volumes = append(volumes, Volume{
			Device:    part.Device,
			MountPath: part.Mountpoint,
			Label:     labels[part.Device],
		})
		seen[part.Device] = true
	}

	for _, dev := range unmounted {
		if seen[dev] {
			continue
		}
		volumes = append(volumes, Volume{
			Device: dev,
			Label:  labels[dev],
		})
	}

	s.last = volumes
	return volumes, nil
}

// isRemovablePartition reports whether a mounted partition looks like a
// removable drive: either the kernel flags it removable or it carries a
// FAT filesystem, which is what bootloader volumes use.
func isRemovablePartition(part disk.PartitionStat) bool {
	if slices.Contains(part.Opts, "removable") {
		return true
	}
	return slices.Contains(bootloaderFilesystems, strings.ToLower(part.Fstype))
}

// scanBlockDevices runs lsblk once and extracts volume labels plus the
// device paths of attached USB FAT devices that have no mount point yet.
func scanBlockDevices() (labels map[string]string, unmounted []string, err error) {
	cmd := exec.Command("lsblk", "-J", "-o", "NAME,LABEL,FSTYPE,MOUNTPOINT,TRAN,TYPE,HOTPLUG")
	out, err := cmd.Output()
	if err != nil {
		return nil, nil, err
	}

	var parsed LsblkOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, nil, err
	}

	labels = make(map[string]string)
	for _, device := range parsed.BlockDevices {
		usb := device.Tran == "usb"
		collectUSBVolumes(&device, usb, labels, &unmounted)
	}
	return labels, unmounted, nil
}

// collectUSBVolumes walks a device hierarchy collecting labels and unmounted
// FAT filesystems. The usb flag is inherited: partitions report no transport
// of their own, only the parent disk does.
func collectUSBVolumes(device *LsblkDevice, usb bool, labels map[string]string, unmounted *[]string) {
	if device.Tran == "usb" {
		usb = true
	}

	if slices.Contains(bootloaderFilesystems, strings.ToLower(device.Fstype)) {
		path := "/dev/" + device.Name
		if device.Label != "" {
			labels[path] = device.Label
		}
		if usb && device.Mountpoint == "" {
			*unmounted = append(*unmounted, path)
		}
	}

	for i := range device.Children {
		collectUSBVolumes(&device.Children[i], usb, labels, unmounted)
	}
}
