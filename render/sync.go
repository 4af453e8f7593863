package render

import (
	"sync"

	"github.com/lumenrender/lumen/log"
	"github.com/lumenrender/lumen/scene"
)

// Mutation is a scene edit applied under the scene lock. Mutations must
// not call back into the session or the synchronizer; they only touch the
// scene they are handed.
type Mutation func(*scene.Scene)

// Synchronizer feeds scene edits into a live session without ever
// blocking the caller. The session's dispatch loop holds the scene lock
// for the duration of a tile pass, so an edit arriving mid-pass cannot be
// applied immediately; instead of stalling, the synchronizer queues it
// and retries on a later Apply or Flush call.
type Synchronizer struct {
	mu      sync.Mutex
	session *Session
	scene   *scene.Scene
	pending []Mutation
	logger  log.Logger
}

// NewSynchronizer creates a synchronizer bound to the session's scene.
func NewSynchronizer(s *Session) *Synchronizer {
	return &Synchronizer{
		session: s,
		scene:   s.Scene(),
		logger:  log.New("scene sync"),
	}
}

// Apply runs the mutation under the scene lock if the lock can be taken
// without blocking, draining any previously deferred mutations first. If
// the session is mid-pass the mutation is queued instead and Apply
// returns false.
func (sy *Synchronizer) Apply(mut Mutation) bool {
	sy.mu.Lock()
	defer sy.mu.Unlock()

	if !sy.scene.TryLock() {
		sy.pending = append(sy.pending, mut)
		sy.logger.Debugf("scene busy, deferring update (%d pending)", len(sy.pending))
		return false
	}

	for _, deferred := range sy.pending {
		deferred(sy.scene)
	}
	sy.pending = sy.pending[:0]
	mut(sy.scene)
	sy.scene.Unlock()
	return true
}

// Flush retries deferred mutations. It returns the number of mutations
// still pending afterwards.
func (sy *Synchronizer) Flush() int {
	sy.mu.Lock()
	defer sy.mu.Unlock()

	if len(sy.pending) == 0 {
		return 0
	}
	if !sy.scene.TryLock() {
		return len(sy.pending)
	}

	for _, deferred := range sy.pending {
		deferred(sy.scene)
	}
	sy.pending = sy.pending[:0]
	sy.scene.Unlock()
	return 0
}

// Pending returns the number of deferred mutations.
func (sy *Synchronizer) Pending() int {
	sy.mu.Lock()
	defer sy.mu.Unlock()
	return len(sy.pending)
}

// Commit restarts accumulation when applied mutations invalidated it: if
// the scene is tagged dirty and its lock is free, the dirty flags are
// cleared and the session is reset over its current region and sample
// target. Accumulated samples for the stale scene are discarded. Returns
// true when a reset was issued.
//
// Commit never blocks on the scene lock; callers invoke it at their own
// cadence, typically right after Apply or Flush.
func (sy *Synchronizer) Commit() bool {
	if !sy.scene.TryLock() {
		return false
	}
	needReset := sy.scene.NeedReset()
	if needReset {
		sy.scene.Reset()
	}
	sy.scene.Unlock()

	if !needReset {
		return false
	}

	switch sy.session.State() {
	case StateUninitialized, StateDestroyed:
		return false
	}

	sy.logger.Infof("scene changed, restarting accumulation")
	if err := sy.session.Invalidate(); err != nil {
		sy.logger.Errorf("reset after scene change failed: %s", err)
		return false
	}
	return true
}
