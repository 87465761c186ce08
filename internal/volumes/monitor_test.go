package volumes

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSnapshotter replays a scripted sequence of snapshots. Once the script
// is exhausted the last snapshot repeats.
type fakeSnapshotter struct {
	snapshots [][]Volume
	idx       int
}

func (f *fakeSnapshotter) Snapshot() ([]Volume, error) {
	if len(f.snapshots) == 0 {
		return nil, nil
	}
	if f.idx >= len(f.snapshots) {
		return f.snapshots[len(f.snapshots)-1], nil
	}
	snap := f.snapshots[f.idx]
	f.idx++
	return snap, nil
}

// fakeMounter records mount requests and optionally fails.
type fakeMounter struct {
	mountPoint string
	err        error
	mounted    []string
}

func (f *fakeMounter) Mount(device string) (string, error) {
	f.mounted = append(f.mounted, device)
	if f.err != nil {
		return "", f.err
	}
	return f.mountPoint, nil
}

func (f *fakeMounter) Unmount(string) error { return nil }

func vol(device, mountPath string) Volume {
	return Volume{Device: device, MountPath: mountPath}
}

func TestPollOnceArrivalsAndDepartures(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{vol("/dev/sda1", "/media/a")},
		{vol("/dev/sdb1", "/media/b")},
	}}
	m := NewMonitor(snap, &fakeMounter{}, nil)

	events := m.PollOnce()
	if len(events) != 1 || events[0].Kind != Arrived || events[0].Device != "/dev/sda1" {
		t.Fatalf("first poll: expected one arrival for /dev/sda1, got %+v", events)
	}
	if events[0].Volume.MountPath != "/media/a" {
		t.Errorf("arrival lost mount path: %+v", events[0].Volume)
	}

	events = m.PollOnce()
	if len(events) != 2 {
		t.Fatalf("second poll: expected arrival+departure, got %+v", events)
	}
	if events[0].Kind != Arrived || events[0].Device != "/dev/sdb1" {
		t.Errorf("expected arrival of /dev/sdb1 first, got %+v", events[0])
	}
	if events[1].Kind != Departed || events[1].Device != "/dev/sda1" {
		t.Errorf("expected departure of /dev/sda1, got %+v", events[1])
	}
}

func TestPrimeSuppressesStartupArrivals(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{vol("/dev/sda1", "/media/a")},
		{vol("/dev/sda1", "/media/a")},
	}}
	m := NewMonitor(snap, &fakeMounter{}, nil)
	m.Prime()

	if events := m.PollOnce(); len(events) != 0 {
		t.Fatalf("volumes attached at startup must not arrive, got %+v", events)
	}
}

func TestSynthesizedDepartureOnRemount(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{vol("/dev/sda1", "/media/a")},
		{vol("/dev/sda1", "/media/b")}, // re-mounted without an observed unmount
	}}
	m := NewMonitor(snap, &fakeMounter{}, nil)

	m.PollOnce()
	events := m.PollOnce()
	if len(events) != 2 {
		t.Fatalf("expected synthesized departure + fresh arrival, got %+v", events)
	}
	if events[0].Kind != Departed || events[0].Device != "/dev/sda1" {
		t.Errorf("expected synthesized departure first, got %+v", events[0])
	}
	if events[1].Kind != Arrived || events[1].Volume.MountPath != "/media/b" {
		t.Errorf("expected re-arrival with new mount path, got %+v", events[1])
	}
}

// For a single device identifier, Arrived and Departed must always
// alternate, whatever the snapshot sequence does.
func TestArrivalDepartureAlternation(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{},
		{vol("/dev/sda1", "")},
		{vol("/dev/sda1", "/media/a")}, // mount appears in place
		{vol("/dev/sda1", "/media/a"), vol("/dev/sdb1", "/media/b")},
		{vol("/dev/sdb1", "/media/b")},
		{},
		{vol("/dev/sda1", "/media/a2")},
		{},
	}}
	m := NewMonitor(snap, &ManualMounter{}, nil)

	lastKind := make(map[string]EventKind)
	for i := 0; i < len(snap.snapshots); i++ {
		for _, ev := range m.PollOnce() {
			if prev, seen := lastKind[ev.Device]; seen && prev == ev.Kind {
				t.Fatalf("device %s saw consecutive %s events", ev.Device, ev.Kind)
			}
			lastKind[ev.Device] = ev.Kind
		}
	}
}

func TestAutoMountHook(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{vol("/dev/sda1", "")},
		{vol("/dev/sda1", "/media/boot")}, // what the re-snapshot sees after mounting
	}}
	mounter := &fakeMounter{mountPoint: "/media/boot"}
	m := NewMonitor(snap, mounter, nil)

	events := m.PollOnce()
	if len(mounter.mounted) != 1 || mounter.mounted[0] != "/dev/sda1" {
		t.Fatalf("expected auto-mount of /dev/sda1, got %v", mounter.mounted)
	}
	if len(events) != 1 || events[0].Kind != Arrived {
		t.Fatalf("expected one arrival, got %+v", events)
	}
	if events[0].Volume.MountPath != "/media/boot" {
		t.Errorf("arrival should carry the fresh mount path, got %q", events[0].Volume.MountPath)
	}
}

func TestAutoMountFailureStillArrives(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{vol("/dev/sda1", "")},
	}}
	mounter := &fakeMounter{err: errors.New("mount helper broken")}
	m := NewMonitor(snap, mounter, nil)

	events := m.PollOnce()
	if len(events) != 1 || events[0].Kind != Arrived {
		t.Fatalf("expected arrival despite mount failure, got %+v", events)
	}
	if events[0].Volume.Mounted() {
		t.Errorf("failed mount must not produce a mount path: %+v", events[0].Volume)
	}
}

func TestArrivalSequenceNumbersIncrease(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{vol("/dev/sda1", "/media/a")},
		{},
		{vol("/dev/sda1", "/media/a")},
	}}
	m := NewMonitor(snap, &fakeMounter{}, nil)

	first := m.PollOnce()[0].Volume.Seen
	m.PollOnce()
	second := m.PollOnce()[0].Volume.Seen
	if second <= first {
		t.Errorf("re-arrival sequence %d not after %d", second, first)
	}
}

func TestRunDeliversInPollOrderAndCloses(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: [][]Volume{
		{},
		{vol("/dev/sda1", "/media/a")},
		{},
	}}
	m := NewMonitor(snap, &fakeMounter{}, nil)
	m.Prime()

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan Event, 8)
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond, ch)
		close(done)
	}()

	var got []Event
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-ch:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %+v", got)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	if got[0].Kind != Arrived || got[1].Kind != Departed {
		t.Errorf("events out of order: %+v", got)
	}
}
