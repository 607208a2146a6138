package hotkey

import (
	"testing"
	"time"
)

type hybridHarness struct {
	fk *FakeHotkey
	hy *Hybrid
}

func newHarness(threshold time.Duration) *hybridHarness {
	fk := NewFake()
	return &hybridHarness{fk: fk, hy: NewHybrid(fk, threshold)}
}

func (hh *hybridHarness) expectStart(t *testing.T) {
	t.Helper()
	select {
	case <-hh.hy.Start():
	case <-time.After(time.Second):
		t.Fatal("no start signal")
	}
}

func (hh *hybridHarness) expectStop(t *testing.T) {
	t.Helper()
	select {
	case <-hh.hy.Stop():
	case <-time.After(time.Second):
		t.Fatal("no stop signal")
	}
}

func (hh *hybridHarness) expectQuiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-hh.hy.Stop():
		t.Fatal("stop fired while recording should stay on")
	case <-time.After(d):
	}
}

func TestHoldPastThreshold(t *testing.T) {
	hh := newHarness(40 * time.Millisecond)

	hh.fk.SimKeydown()
	hh.expectStart(t)
	time.Sleep(60 * time.Millisecond)
	if hh.hy.IsToggle() {
		t.Error("a hold must not report toggle")
	}
	hh.fk.SimKeyup()
	hh.expectStop(t)
}

func TestTapTogglesRecording(t *testing.T) {
	hh := newHarness(250 * time.Millisecond)

	hh.fk.SimKeydown()
	hh.expectStart(t)
	hh.fk.SimKeyup()
	time.Sleep(20 * time.Millisecond)
	if !hh.hy.IsToggle() {
		t.Error("a tap must report toggle")
	}

	// The recording rides on until the next tap.
	hh.expectQuiet(t, 50*time.Millisecond)

	hh.fk.SimKeydown()
	hh.fk.SimKeyup()
	hh.expectStop(t)
}

func TestHoldAndTapCyclesInterleave(t *testing.T) {
	hh := newHarness(50 * time.Millisecond)

	for _, style := range []string{"hold", "tap", "hold", "tap"} {
		hh.fk.SimKeydown()
		hh.expectStart(t)
		switch style {
		case "hold":
			time.Sleep(70 * time.Millisecond)
			hh.fk.SimKeyup()
		case "tap":
			hh.fk.SimKeyup()
			time.Sleep(20 * time.Millisecond)
			hh.fk.SimKeydown()
			hh.fk.SimKeyup()
		}
		hh.expectStop(t)
	}
}

func TestToggleFlagTracksStyle(t *testing.T) {
	hh := newHarness(50 * time.Millisecond)

	// Tap: flag goes up.
	hh.fk.SimKeydown()
	hh.expectStart(t)
	hh.fk.SimKeyup()
	time.Sleep(20 * time.Millisecond)
	if !hh.hy.IsToggle() {
		t.Fatal("tap did not set the toggle flag")
	}
	hh.fk.SimKeydown()
	hh.fk.SimKeyup()
	hh.expectStop(t)

	// Hold: flag comes back down for the new recording.
	hh.fk.SimKeydown()
	hh.expectStart(t)
	time.Sleep(70 * time.Millisecond)
	if hh.hy.IsToggle() {
		t.Error("hold left the toggle flag set")
	}
	hh.fk.SimKeyup()
	hh.expectStop(t)
}
