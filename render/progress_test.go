package render

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestProgressCancelIsSticky(t *testing.T) {
	p := NewProgress()

	p.SetCancel("user abort")
	if !p.Cancelled() {
		t.Fatal("expected cancel flag to be set")
	}
	if got := p.CancelReason(); got != "user abort" {
		t.Fatalf("expected reason %q; got %q", "user abort", got)
	}

	// The first reason wins and the flag never clears until reset.
	p.SetCancel("second reason")
	if got := p.CancelReason(); got != "user abort" {
		t.Fatalf("expected first reason to stick; got %q", got)
	}
	if !p.Cancelled() {
		t.Fatal("expected cancel flag to remain set")
	}

	p.Reset()
	if p.Cancelled() {
		t.Fatal("expected reset to clear the cancel flag")
	}
	if p.CancelReason() != "" {
		t.Fatalf("expected reset to clear the reason; got %q", p.CancelReason())
	}
}

func TestProgressCancelCallbackFiresOnce(t *testing.T) {
	p := NewProgress()

	var fired int32
	p.SetCancelCallback(func() {
		atomic.AddInt32(&fired, 1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.SetCancel("race")
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("expected cancel callback to fire exactly once; got %d", got)
	}
	if !p.Cancelled() {
		t.Fatal("expected cancel flag to be set after concurrent setters")
	}
}

func TestProgressCallbackMayReenter(t *testing.T) {
	p := NewProgress()

	// Callbacks run outside the progress lock so they may query state.
	p.SetCancelCallback(func() {
		if !p.Cancelled() {
			t.Error("expected cancel flag visible inside callback")
		}
		_ = p.CancelReason()
	})
	p.SetCancel("reentrant")
}

func TestProgressFirstErrorWins(t *testing.T) {
	p := NewProgress()

	first := errors.New("device lost")
	second := errors.New("tile failed")
	p.SetError(first)
	p.SetError(second)

	if got := p.Error(); got != first {
		t.Fatalf("expected first error to stick; got %v", got)
	}
	if got := p.ErrorMessage(); got != "device lost" {
		t.Fatalf("expected message %q; got %q", "device lost", got)
	}

	p.Reset()
	if p.Error() != nil {
		t.Fatalf("expected reset to clear the error; got %v", p.Error())
	}
}

func TestProgressResetKeepsCallbacks(t *testing.T) {
	p := NewProgress()

	var fired int32
	p.SetCancelCallback(func() {
		atomic.AddInt32(&fired, 1)
	})

	p.SetCancel("before reset")
	p.Reset()
	p.SetCancel("after reset")

	if got := atomic.LoadInt32(&fired); got != 2 {
		t.Fatalf("expected callback to survive reset; fired %d times", got)
	}
}

func TestProgressCounters(t *testing.T) {
	p := NewProgress()

	var updates int32
	p.SetUpdateCallback(func() {
		atomic.AddInt32(&updates, 1)
	})

	p.AddSamples(4)
	p.AddSamples(4)
	if got := p.Sample(); got != 8 {
		t.Fatalf("expected 8 samples; got %d", got)
	}

	p.AddFinishedTile(0)
	tiles, _, _, _ := p.Tile()
	if tiles != 1 {
		t.Fatalf("expected 1 finished tile; got %d", tiles)
	}

	p.SetStatus("Rendering", "Sample 8/16")
	status, substatus := p.Status()
	if status != "Rendering" || substatus != "Sample 8/16" {
		t.Fatalf("unexpected status %q/%q", status, substatus)
	}

	// Repeating the same status is not a meaningful change.
	before := atomic.LoadInt32(&updates)
	p.SetStatus("Rendering", "Sample 8/16")
	if got := atomic.LoadInt32(&updates); got != before {
		t.Fatalf("expected no update for unchanged status; got %d extra", got-before)
	}

	p.Reset()
	if p.Sample() != 0 {
		t.Fatalf("expected reset to clear samples; got %d", p.Sample())
	}
	tiles, _, _, _ = p.Tile()
	if tiles != 0 {
		t.Fatalf("expected reset to clear tiles; got %d", tiles)
	}
}
