// Package volumes provides removable volume detection, mounting, and hot-plug
// monitoring for USB mass-storage bootloader devices.
// This module computes arrival/departure events from successive snapshots.
package volumes

import (
	"context"
	"io"
	"log"
	"time"
)

// DefaultPollInterval matches the original tooling's 500ms device poll.
const DefaultPollInterval = 500 * time.Millisecond

// Monitor turns successive volume snapshots into an ordered stream of
// arrival and departure events. The previous snapshot is explicit state
// threaded through each poll, never a hidden global, so the monitor can be
// driven with synthetic snapshot sequences in tests.
//
// Guarantee: for a single device identifier, Arrived and Departed always
// alternate. If the OS re-mounts a device between polls without an observed
// unmount, the monitor synthesizes the missing Departed immediately before
// the fresh Arrived.
type Monitor struct {
	snap    Snapshotter
	mounter Mounter
	logger  *log.Logger

	prev []Volume
	seq  uint64
}

// NewMonitor creates a monitor over the given snapshot source. The mounter
// is invoked for attached-but-unmounted devices before each poll's final
// snapshot so arrivals carry a usable mount path whenever the OS allows it;
// pass ManualMounter to disable auto-mounting. A nil logger discards.
func NewMonitor(snap Snapshotter, mounter Mounter, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Monitor{snap: snap, mounter: mounter, logger: logger}
}

// Prime records the current snapshot as the baseline without emitting
// events. Volumes already attached at startup are not arrivals.
func (m *Monitor) Prime() {
	if current, err := m.snap.Snapshot(); err == nil {
		m.prev = current
	}
}

// PollOnce takes one snapshot, auto-mounts any unmounted candidates, and
// returns the events relative to the previous poll.
func (m *Monitor) PollOnce() []Event {
	current, err := m.snap.Snapshot()
	if err != nil {
		// Snapshot sources absorb transient failures themselves; a hard
		// error here means the poll learns nothing, so reuse the baseline.
		return nil
	}

	if m.autoMount(current) {
		// A mount succeeded; re-snapshot so the arrival carries its path.
		if refreshed, err := m.snap.Snapshot(); err == nil {
			current = refreshed
		}
	}

	current, events := m.diff(m.prev, current)
	m.prev = current
	return events
}

// Run polls at the given interval until the context is cancelled, delivering
// events to ch in poll order. Cancellation takes effect between poll cycles,
// never mid-delivery. The channel is closed on return.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, ch chan<- Event) {
	defer close(ch)
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Deliver the whole poll before honoring cancellation: consumers
		// never see a truncated event batch.
		for _, ev := range m.PollOnce() {
			ch <- ev
		}
	}
}

// autoMount tries to mount every unmounted volume in the snapshot.
// Returns true if at least one mount succeeded. Failures are logged and the
// volume stays in the snapshot without a mount path; the consumer treats
// that as "not yet writable" and keeps waiting.
func (m *Monitor) autoMount(current []Volume) bool {
	mounted := false
	for _, v := range current {
		if v.Mounted() {
			continue
		}
		mountPoint, err := m.mounter.Mount(v.Device)
		if err != nil {
			m.logger.Printf("auto-mount %s failed: %v", v.Device, err)
			continue
		}
		m.logger.Printf("auto-mounted %s at %s", v.Device, mountPoint)
		mounted = true
	}
	return mounted
}

// diff computes events between two snapshots and stamps arrival sequence
// numbers. Order within one poll: plain arrivals first, then synthesized
// Departed+Arrived pairs for devices whose mount state changed in place,
// then departures.
func (m *Monitor) diff(prev, current []Volume) ([]Volume, []Event) {
	prevByDev := make(map[string]Volume, len(prev))
	for _, v := range prev {
		prevByDev[v.Device] = v
	}
	currByDev := make(map[string]Volume, len(current))
	for _, v := range current {
		currByDev[v.Device] = v
	}

	var events []Event
	stamped := make([]Volume, 0, len(current))

	arrive := func(v Volume) Volume {
		m.seq++
		v.Seen = m.seq
		events = append(events, Event{Kind: Arrived, Device: v.Device, Volume: v})
		return v
	}

	// New identifiers arrive first so a fresh plug-in is reacted to promptly.
	for _, v := range current {
		if _, ok := prevByDev[v.Device]; !ok {
			v = arrive(v)
		}
		stamped = append(stamped, v)
	}

	// Same identifier, different mount state: the device was re-mounted (or
	// finally mounted) without an observed unmount. Toggle via a synthesized
	// departure to keep the alternation invariant for consumers.
	for i, v := range stamped {
		old, ok := prevByDev[v.Device]
		if !ok || old.MountPath == v.MountPath {
			if ok {
				stamped[i].Seen = old.Seen
			}
			continue
		}
		events = append(events, Event{Kind: Departed, Device: v.Device})
		stamped[i] = arrive(v)
	}

	for _, v := range prev {
		if _, ok := currByDev[v.Device]; !ok {
			events = append(events, Event{Kind: Departed, Device: v.Device})
		}
	}

	return stamped, events
}
