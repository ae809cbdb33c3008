package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cardpile/cardpile/internal/domain"
)

func TestEventSingleSidedImmediate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.capture.Event(ctx, []byte("front"))
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if result == nil {
		t.Fatal("expected an immediate scan result")
	}
	if result.RawText != "ok" {
		t.Errorf("RawText = %q, want %q", result.RawText, "ok")
	}

	_, scans, _, _, _ := f.staging.calls()
	if scans != 1 {
		t.Errorf("scan calls = %d, want 1", scans)
	}

	snap := f.pipe.Snapshot()
	if snap.LocalOutstanding() != 0 {
		t.Errorf("local outstanding = %d, want 0", snap.LocalOutstanding())
	}
	if snap.ServerStaged != 0 {
		t.Errorf("ServerStaged = %d, want 0", snap.ServerStaged)
	}
}

func TestEventSingleSidedAccumulating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.session.EnableAccumulation(ctx); err != nil {
		t.Fatalf("EnableAccumulation: %v", err)
	}

	result, err := f.capture.Event(ctx, []byte("card"))
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if result != nil {
		t.Fatal("queued capture must not return a scan result")
	}

	waitIdle(t, f.pipe)

	stages, scans, _, _, _ := f.staging.calls()
	if stages != 1 {
		t.Errorf("stage calls = %d, want 1", stages)
	}
	if scans != 0 {
		t.Errorf("scan calls = %d, want 0", scans)
	}

	snap := f.pipe.Snapshot()
	if snap.ServerStaged != 1 {
		t.Errorf("ServerStaged = %d, want 1", snap.ServerStaged)
	}
	if got := snap.Display(); got != "1" {
		t.Errorf("Display() = %q, want %q", got, "1")
	}
}

func TestEventTwoSidedAccumulating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.session.EnableAccumulation(ctx); err != nil {
		t.Fatalf("EnableAccumulation: %v", err)
	}
	if err := f.capture.SetMode(domain.TwoSided, false); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	// First capture is the front half.
	result, err := f.capture.Event(ctx, []byte("front"))
	if err != nil {
		t.Fatalf("Event front: %v", err)
	}
	if result != nil {
		t.Fatal("front half must not return a scan result")
	}

	snap := f.pipe.Snapshot()
	if !snap.HalfPair {
		t.Fatal("expected a pending half-pair")
	}
	if got := snap.Display(); got != "0.5" {
		t.Errorf("Display() = %q, want %q", got, "0.5")
	}

	// Second capture completes the pair.
	if _, err := f.capture.Event(ctx, []byte("back")); err != nil {
		t.Fatalf("Event back: %v", err)
	}

	waitIdle(t, f.pipe)

	if got := f.merger.callCount(); got != 1 {
		t.Errorf("merge calls = %d, want 1", got)
	}
	stages, _, _, _, _ := f.staging.calls()
	if stages != 1 {
		t.Errorf("stage calls = %d, want 1", stages)
	}

	snap = f.pipe.Snapshot()
	if snap.HalfPair {
		t.Error("half-pair not cleared after the back side")
	}
	if snap.ServerStaged != 1 {
		t.Errorf("ServerStaged = %d, want 1", snap.ServerStaged)
	}
	if got := snap.Display(); got != "1" {
		t.Errorf("Display() = %q, want %q", got, "1")
	}
}

func TestEventTwoSidedImmediate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.capture.SetMode(domain.TwoSided, false); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	if _, err := f.capture.Event(ctx, []byte("front")); err != nil {
		t.Fatalf("Event front: %v", err)
	}
	result, err := f.capture.Event(ctx, []byte("back"))
	if err != nil {
		t.Fatalf("Event back: %v", err)
	}
	if result == nil {
		t.Fatal("expected an immediate scan result for the completed pair")
	}

	// The pair merges synchronously and never touches the queues.
	if got := f.merger.callCount(); got != 1 {
		t.Errorf("merge calls = %d, want 1", got)
	}
	_, scans, _, _, _ := f.staging.calls()
	if scans != 1 {
		t.Errorf("scan calls = %d, want 1", scans)
	}
	if got := f.pipe.Snapshot().LocalOutstanding(); got != 0 {
		t.Errorf("local outstanding = %d, want 0", got)
	}
}

func TestRetakeDiscardsPendingFront(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.capture.SetMode(domain.TwoSided, false); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if _, err := f.capture.Event(ctx, []byte("front")); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if !f.pipe.Snapshot().HalfPair {
		t.Fatal("expected a pending half-pair")
	}

	f.capture.Retake()
	if f.pipe.Snapshot().HalfPair {
		t.Fatal("retake did not clear the pending front")
	}

	// The next capture starts a fresh pair.
	if _, err := f.capture.Event(ctx, []byte("front-2")); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if !f.pipe.Snapshot().HalfPair {
		t.Fatal("expected the next capture to become a new front half")
	}
}

func TestSetModeRequiresConfirmWithHalfPair(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.capture.SetMode(domain.TwoSided, false); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if _, err := f.capture.Event(ctx, []byte("front")); err != nil {
		t.Fatalf("Event: %v", err)
	}

	err := f.capture.SetMode(domain.SingleSided, false)
	if !errors.Is(err, domain.ErrConfirmRequired) {
		t.Fatalf("SetMode without confirm = %v, want ErrConfirmRequired", err)
	}
	if f.pipe.Mode() != domain.TwoSided {
		t.Error("mode changed despite missing confirmation")
	}

	if err := f.capture.SetMode(domain.SingleSided, true); err != nil {
		t.Fatalf("SetMode with confirm: %v", err)
	}
	if f.pipe.Mode() != domain.SingleSided {
		t.Error("mode not changed after confirmation")
	}
	if f.pipe.Snapshot().HalfPair {
		t.Error("pending front survived the mode change")
	}
}

func TestSetModeSameModeIsNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.capture.SetMode(domain.TwoSided, false); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if _, err := f.capture.Event(ctx, []byte("front")); err != nil {
		t.Fatalf("Event: %v", err)
	}

	// Re-selecting the active mode never needs confirmation and keeps
	// the pending front.
	if err := f.capture.SetMode(domain.TwoSided, false); err != nil {
		t.Fatalf("SetMode same mode: %v", err)
	}
	if !f.pipe.Snapshot().HalfPair {
		t.Error("pending front lost on a no-op mode change")
	}
}

func TestEventTwoSidedConcurrentConservation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.pipe.setCapability(true)
	f.pipe.setAccumulating(true)
	if err := f.capture.SetMode(domain.TwoSided, false); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	// Park the drain loop by occupying its single-flight guard, so queued
	// pairs stay queued and can be counted at the end.
	if !f.pipe.beginDrain() {
		t.Fatal("could not occupy the drain guard")
	}
	defer f.pipe.endDrain()

	// Two captures racing for the same empty half-pair slot must never lose
	// a side: every delivered capture ends up in the merge queue or as the
	// pending front.
	const rounds = 500
	for i := 0; i < rounds; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				if _, err := f.capture.Event(ctx, []byte("side")); err != nil {
					t.Errorf("Event: %v", err)
				}
			}()
		}
		wg.Wait()
	}

	snap := f.pipe.Snapshot()
	captured := 2 * snap.MergeQueued
	if snap.HalfPair {
		captured++
	}
	if want := 2 * rounds; captured != want {
		t.Fatalf("accounted captures = %d, want %d", captured, want)
	}
}

func TestScanNowAuthRevoked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.pipe.setCapability(true)
	f.staging.scanFn = func(ctx context.Context, id domain.Identity, image []byte) (domain.ScanResult, error) {
		return domain.ScanResult{}, domain.ErrAuthorizationRevoked
	}

	_, err := f.capture.Event(ctx, []byte("card"))
	if !errors.Is(err, domain.ErrAuthorizationRevoked) {
		t.Fatalf("Event = %v, want ErrAuthorizationRevoked", err)
	}
	if f.pipe.Capability() {
		t.Error("capability not downgraded after revocation")
	}
	if got := f.emitter.reauthCount(); got != 1 {
		t.Errorf("reauth prompts = %d, want 1", got)
	}
}
