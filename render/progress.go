package render

import (
	"sync"
	"time"
)

// Progress tracks the mutable per-session state: sample counters, timers,
// status strings, the sticky error and the sticky cancel flag. All methods
// are safe for concurrent use; notification callbacks are always invoked
// after the internal lock has been released so a callback may query
// progress without deadlocking.
type Progress struct {
	mu sync.Mutex

	start       time.Time
	renderStart time.Time

	// wall clock spent paused, subtracted from render time
	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration

	sample        int
	finishedTiles int
	tileTime      time.Duration

	status    string
	substatus string

	err          error
	cancel       bool
	cancelReason string

	updateCb func()
	cancelCb func()
}

func NewProgress() *Progress {
	p := &Progress{}
	p.Reset()
	return p
}

// Reset clears all counters, timers, status, error and cancel state.
// Registered callbacks survive a reset.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.start = now
	p.renderStart = now
	p.paused = false
	p.pausedTotal = 0
	p.sample = 0
	p.finishedTiles = 0
	p.tileTime = 0
	p.status = ""
	p.substatus = ""
	p.err = nil
	p.cancel = false
	p.cancelReason = ""
}

// SetUpdateCallback registers a notification invoked after every meaningful
// change to status or counters.
func (p *Progress) SetUpdateCallback(cb func()) {
	p.mu.Lock()
	p.updateCb = cb
	p.mu.Unlock()
}

// SetCancelCallback registers a notification invoked once when the cancel
// flag transitions to set.
func (p *Progress) SetCancelCallback(cb func()) {
	p.mu.Lock()
	p.cancelCb = cb
	p.mu.Unlock()
}

// SetStartTime restarts the total wall-clock timer.
func (p *Progress) SetStartTime() {
	p.mu.Lock()
	p.start = time.Now()
	p.mu.Unlock()
}

// SetRenderStartTime restarts the render timer, excluding scene
// synchronization time from render statistics.
func (p *Progress) SetRenderStartTime() {
	p.mu.Lock()
	p.renderStart = time.Now()
	p.pausedTotal = 0
	p.mu.Unlock()
}

// SetPaused toggles pause accounting: wall time keeps accruing while render
// time stands still.
func (p *Progress) SetPaused(paused bool) {
	p.mu.Lock()
	if paused && !p.paused {
		p.paused = true
		p.pausedAt = time.Now()
	} else if !paused && p.paused {
		p.paused = false
		p.pausedTotal += time.Since(p.pausedAt)
	}
	p.mu.Unlock()
}

// Time returns the total wall time and the render time in seconds.
func (p *Progress) Time() (totalTime, renderTime float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.start).Seconds(), p.renderSecondsLocked()
}

func (p *Progress) renderSecondsLocked() float64 {
	elapsed := time.Since(p.renderStart) - p.pausedTotal
	if p.paused {
		elapsed -= time.Since(p.pausedAt)
	}
	return elapsed.Seconds()
}

// AddSamples adds finished per-tile sample units to the session counter.
func (p *Progress) AddSamples(n int) {
	p.mu.Lock()
	p.sample += n
	cb := p.updateCb
	p.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Sample returns the number of finished per-tile sample units.
func (p *Progress) Sample() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sample
}

// AddFinishedTile records a completed tile and its render time.
func (p *Progress) AddFinishedTile(renderTime time.Duration) {
	p.mu.Lock()
	p.finishedTiles++
	p.tileTime = renderTime
	cb := p.updateCb
	p.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Tile returns a point-in-time snapshot of tile progress: finished tile
// count, total wall time, render time and the last tile's render time, all
// in seconds.
func (p *Progress) Tile() (tiles int, totalTime, renderTime, tileTime float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finishedTiles,
		time.Since(p.start).Seconds(),
		p.renderSecondsLocked(),
		p.tileTime.Seconds()
}

// SetStatus updates the human readable status and substatus strings.
func (p *Progress) SetStatus(status, substatus string) {
	p.mu.Lock()
	changed := p.status != status || p.substatus != substatus
	p.status = status
	p.substatus = substatus
	cb := p.updateCb
	p.mu.Unlock()

	if changed && cb != nil {
		cb()
	}
}

// Status returns the current status and substatus strings.
func (p *Progress) Status() (status, substatus string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.substatus
}

// SetError records a sticky error; the first error wins. Setting an error
// does not halt the session, the owning controller must observe it and
// cancel.
func (p *Progress) SetError(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

// Error returns the sticky error, or nil.
func (p *Progress) Error() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ErrorMessage returns the sticky error message, or an empty string.
func (p *Progress) ErrorMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		return ""
	}
	return p.err.Error()
}

// SetCancel requests cooperative cancellation. Idempotent; once set the
// flag stays set until the next Reset. Safe to call from any goroutine.
func (p *Progress) SetCancel(reason string) {
	p.mu.Lock()
	first := !p.cancel
	p.cancel = true
	if first {
		p.cancelReason = reason
	}
	cb := p.cancelCb
	p.mu.Unlock()

	if first && cb != nil {
		cb()
	}
}

// Cancelled reports whether cancellation has been requested.
func (p *Progress) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel
}

// CancelReason returns the reason passed to the first SetCancel call.
func (p *Progress) CancelReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelReason
}
