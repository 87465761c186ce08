// Package volumes provides removable volume detection, mounting, and hot-plug
// monitoring for USB mass-storage bootloader devices.
// This module defines the core types used throughout the volumes package.
package volumes

// Volume describes one removable filesystem observed in a snapshot.
// Volumes are value objects: every snapshot produces fresh instances, and two
// volumes refer to the same physical device iff their Device paths match.
type Volume struct {
	Device    string // Block device path (e.g., "/dev/sda1") - the stable identifier
	MountPath string // Filesystem mount point; empty when the device is attached but not mounted
	Label     string // Volume label if the OS exposes one (e.g., "XIAO-SENSE")
	Seen      uint64 // Monotonic sequence number stamped by the Monitor on arrival
}

// Mounted reports whether the volume currently has a usable mount point.
func (v Volume) Mounted() bool {
	return v.MountPath != ""
}

// EventKind distinguishes the two observable hot-plug transitions.
type EventKind int

const (
	// Arrived means a device identifier appeared that was absent from the
	// previous snapshot (or re-appeared after a synthesized departure).
	Arrived EventKind = iota

	// Departed means a device identifier vanished from the current snapshot.
	Departed
)

// String returns the event kind name for logs and progress output.
func (k EventKind) String() string {
	switch k {
	case Arrived:
		return "arrived"
	case Departed:
		return "departed"
	default:
		return "unknown"
	}
}

// Event is one hot-plug transition produced by diffing two snapshots.
// For Departed events only Device is populated.
type Event struct {
	Kind   EventKind
	Device string // Device identifier, always set
	Volume Volume // Full volume details, set for Arrived events
}

// LsblkDevice represents a block device from lsblk JSON output.
type LsblkDevice struct {
	Name       string        `json:"name"`
	Label      string        `json:"label"`
	Fstype     string        `json:"fstype"`
	Mountpoint string        `json:"mountpoint"`
	Tran       string        `json:"tran"`
	Type       string        `json:"type"`
	Hotplug    bool          `json:"hotplug"`
	Children   []LsblkDevice `json:"children"`
}

// LsblkOutput represents the root JSON structure from the lsblk command.
type LsblkOutput struct {
	BlockDevices []LsblkDevice `json:"blockdevices"`
}
