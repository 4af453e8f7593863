package render

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumenrender/lumen/device"
	"github.com/lumenrender/lumen/log"
	"github.com/lumenrender/lumen/scene"
)

// Session lifecycle states.
type State int

const (
	StateUninitialized State = iota
	StateConfigured
	StateRunning
	StatePaused
	StateDraining
	StateCancelled
	StateDestroyed
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateConfigured:    "configured",
	StateRunning:       "running",
	StatePaused:        "paused",
	StateDraining:      "draining",
	StateCancelled:     "cancelled",
	StateDestroyed:     "destroyed",
}

func (s State) String() string {
	if name, exists := stateNames[s]; exists {
		return name
	}
	return "unknown"
}

// TileListener receives tile notifications from the session.
//
// WriteRenderTile is called exactly once each time a tile reaches its
// current sample target. Raising the target on a live session reopens
// completed tiles for a further pass, and the listener observes another
// write when the raised target is reached; a completed tile is never
// written twice at the same target.
// UpdateRenderTile is called zero or more times while a tile
// progresses, including once with zero accumulated samples when a tile is
// first checked out; implementations must be idempotent, must not advance
// accumulation state, and must not extract pass data at sample zero.
type TileListener interface {
	WriteRenderTile(*Tile)
	UpdateRenderTile(*Tile)
}

// StatusListener receives throttled human readable status updates and a
// [0,1] progress fraction. Updates are emitted on change only.
type StatusListener interface {
	UpdateStatus(status, substatus string, fraction float64)
}

// Throttle interval for offline redraw-style status emission.
const statusInterval = time.Second

type resetRequest struct {
	params  BufferParams
	samples int
	zero    bool
	err     error
	done    chan struct{}
}

// Session owns the lifecycle of one rendering job: the tile partition, the
// accumulation buffers, progress state and the dispatch loop feeding the
// attached compute devices. The scene is shared with an external owner and
// is never freed by the session.
type Session struct {
	Params      SessionParams
	SceneParams SceneParams
	Progress    *Progress
	TileManager *TileManager
	Buffers     *RenderBuffers

	id      uuid.UUID
	logger  log.Logger
	scene   *scene.Scene
	devices []device.Device

	tileListener   TileListener
	statusListener StatusListener

	mu    sync.Mutex
	cond  *sync.Cond
	state State
	pause bool

	waitCh   chan struct{}
	resetReq *resetRequest

	inflight map[*device.TileRequest]*Tile
	stats    map[string]*DeviceStat

	lastStatus   string
	lastFraction float64
	lastEmit     time.Time
}

// NewSession creates a session bound to the given devices and shared
// scene. The session starts uninitialized; Reset establishes the tile
// partition and buffers.
func NewSession(devices []device.Device, sc *scene.Scene, params SessionParams, sceneParams SceneParams) (*Session, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	if sc == nil {
		return nil, ErrNoScene
	}

	s := &Session{
		Params:      params,
		SceneParams: sceneParams,
		Progress:    NewProgress(),
		TileManager: NewTileManager(params.TileSize, params.TileOrder, params.ProgressiveRefine),
		id:          uuid.New(),
		scene:       sc,
		devices:     devices,
		state:       StateUninitialized,
		inflight:    make(map[*device.TileRequest]*Tile),
		stats:       make(map[string]*DeviceStat),
	}
	s.logger = log.New(fmt.Sprintf("session %s", s.id.String()[:8]))
	s.Buffers = NewRenderBuffers(devices[0])
	s.cond = sync.NewCond(&s.mu)

	// cancellation must wake a paused dispatch loop
	s.Progress.SetCancelCallback(func() {
		s.cond.Broadcast()
	})

	return s, nil
}

// ID returns the session identity used in log output.
func (s *Session) ID() string {
	return s.id.String()
}

// Scene returns the shared scene.
func (s *Session) Scene() *scene.Scene {
	return s.scene
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetTileListener installs the tile notification listener. Must be called
// before Start.
func (s *Session) SetTileListener(l TileListener) {
	s.mu.Lock()
	s.tileListener = l
	s.mu.Unlock()
}

// SetStatusListener installs the status listener. Must be called before
// Start.
func (s *Session) SetStatusListener(l StatusListener) {
	s.mu.Lock()
	s.statusListener = l
	s.mu.Unlock()
}

// Reset establishes or re-establishes the tile partition and buffers for
// the given region and sample count. When the session is running the reset
// is applied at the next tile-pass boundary, after in-flight device work
// has drained; Reset blocks until it took effect. If the session is
// cancelled before the boundary is reached the reset never applies and
// ErrSessionCancelled is returned.
//
// With persistent buffers and unmodified buffer geometry, accumulated work
// survives the reset and tiles resume from the sample level the whole
// frame had reached.
func (s *Session) Reset(params BufferParams, samples int) error {
	return s.reset(params, samples, false)
}

// Invalidate discards all accumulated samples and restarts accumulation
// over the current region and sample target, regardless of persistent
// buffers. Used after scene edits that made accumulated work stale.
func (s *Session) Invalidate() error {
	s.mu.Lock()
	params := s.TileManager.Params()
	samples := s.TileManager.NumSamples()
	s.mu.Unlock()
	return s.reset(params, samples, true)
}

func (s *Session) reset(params BufferParams, samples int, zero bool) error {
	s.mu.Lock()

	switch s.state {
	case StateDestroyed:
		s.mu.Unlock()
		return ErrSessionDestroyed

	case StateRunning, StatePaused:
		req := &resetRequest{params: params, samples: samples, zero: zero, done: make(chan struct{})}
		s.resetReq = req
		s.cond.Broadcast()
		s.mu.Unlock()
		<-req.done
		return req.err
	}

	err := s.applyResetLocked(params, samples, zero)
	if err == nil {
		s.state = StateConfigured
	}
	s.mu.Unlock()
	return err
}

// applyResetLocked rebuilds buffers, tile partition and progress. Caller
// holds s.mu.
func (s *Session) applyResetLocked(params BufferParams, samples int, zero bool) error {
	preserved := 0
	if !zero && s.Params.PersistentBuffers && !s.Buffers.Params.Modified(params) {
		preserved = s.TileManager.MinSample()
	}

	if err := s.Buffers.Reset(params, s.Params.PersistentBuffers); err != nil {
		return err
	}
	if zero {
		if buf := s.Buffers.Buffer(); buf != nil {
			buf.Zero()
		}
	}
	s.TileManager.Reset(params, samples, preserved, s.Buffers)
	s.Progress.Reset()
	s.lastStatus = ""
	s.lastFraction = 0

	s.logger.Infof("reset: %dx%d+%d+%d, %d tiles, %d samples (resume from %d)",
		params.Width, params.Height, params.FullX, params.FullY,
		s.TileManager.NumTiles(), samples, preserved)
	return nil
}

// Start transitions the session to Running and returns immediately. The
// dispatch loop runs on its own goroutine. Starting an already running
// session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning, StatePaused:
		return nil
	case StateUninitialized:
		return ErrNotConfigured
	case StateDestroyed:
		return ErrSessionDestroyed
	}

	s.waitCh = make(chan struct{})
	if s.pause {
		s.state = StatePaused
	} else {
		s.state = StateRunning
	}
	s.Progress.SetRenderStartTime()
	go s.run()
	return nil
}

// Wait blocks the calling goroutine until the session drains or observes
// cancellation. Multiple callers may wait concurrently; all are released
// together. Waiting on a session that was never started returns an error.
func (s *Session) Wait() error {
	s.mu.Lock()
	ch := s.waitCh
	s.mu.Unlock()

	if ch == nil {
		return ErrNotStarted
	}
	<-ch
	return s.Progress.Error()
}

// SetPause suspends or resumes dispatch. Suspension happens between tiles,
// never mid-tile: in-flight device work completes first. Wall time keeps
// accruing while paused; render time does not.
func (s *Session) SetPause(pause bool) {
	s.mu.Lock()
	if s.pause == pause {
		s.mu.Unlock()
		return
	}
	s.pause = pause
	if s.state == StateRunning && pause {
		s.state = StatePaused
	} else if s.state == StatePaused && !pause {
		s.state = StateRunning
	}
	s.Progress.SetPaused(pause)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// SetSamples adjusts the per-pixel sample target of the in-flight job.
// Consistent with the tile manager's never-retract rule, lowering below
// accumulated work completes those tiles instead of discarding samples.
// Raising the target reopens already completed tiles as a new refinement
// pass; their listeners see a further write at the new target.
func (s *Session) SetSamples(n int) {
	s.mu.Lock()
	s.TileManager.SetSamples(n)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Cancel requests cooperative cancellation. In-flight device work is
// allowed to finish; partial results stay intact and queryable.
func (s *Session) Cancel(reason string) {
	s.Progress.SetCancel(reason)
}

// ReadyToReset reports whether the session sits at a tile-pass boundary
// with no device work in flight, the only point where an external
// synchronizer should apply scene mutations.
func (s *Session) ReadyToReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight) == 0
}

// DeviceFree releases device-resident memory while preserving host-side
// session bookkeeping. The session is not resumable afterwards without a
// Reset.
func (s *Session) DeviceFree() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning || s.state == StatePaused {
		return ErrSessionRunning
	}
	s.Buffers.Free()
	return nil
}

// Close cancels any outstanding work, waits for the dispatch loop to
// drain and releases all session-owned memory. The shared scene is left
// untouched.
func (s *Session) Close() {
	s.mu.Lock()
	running := s.state == StateRunning || s.state == StatePaused
	ch := s.waitCh
	s.mu.Unlock()

	if running {
		s.Cancel("session closed")
		if ch != nil {
			<-ch
		}
	}

	s.mu.Lock()
	s.Buffers.Free()
	s.state = StateDestroyed
	s.mu.Unlock()
}

// Stats returns per-device and aggregate statistics for the session run.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := SessionStats{Samples: s.Progress.Sample()}
	ids := make([]string, 0, len(s.stats))
	for id := range s.stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		stats.Devices = append(stats.Devices, *s.stats[id])
	}

	total, render := s.Progress.Time()
	stats.TotalTime = time.Duration(total * float64(time.Second))
	stats.RenderTime = time.Duration(render * float64(time.Second))
	return stats
}

// Draw copies the latest accumulated combined pass into dst (w*h*4
// floats), normalizing each tile by its own accumulated sample count. It
// returns false when the requested size does not match the session buffers
// or no device data is available yet; callers retry at their own cadence.
func (s *Session) Draw(dst []float32, w, h int, exposure float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := s.Buffers.Params
	if w != params.Width || h != params.Height || len(dst) < w*h*4 {
		return false
	}
	if !s.Buffers.CopyFromDevice() {
		return false
	}

	drew := false
	for _, tile := range s.TileManager.Tiles() {
		if tile.Sample == 0 {
			continue
		}
		region := make([]float32, tile.W*tile.H*4)
		if !s.Buffers.GetPassRegion(PassCombined, exposure, tile.Sample, 4, tile.X, tile.Y, tile.W, tile.H, region) {
			continue
		}
		for row := 0; row < tile.H; row++ {
			copy(dst[((tile.Y+row)*w+tile.X)*4:((tile.Y+row)*w+tile.X+tile.W)*4],
				region[row*tile.W*4:(row+1)*tile.W*4])
		}
		drew = true
	}
	return drew
}

// run is the dispatch loop: it hands tiles to idle devices, collects
// completions, applies pending resets at pass boundaries and honors
// pause/cancel requests between tiles.
func (s *Session) run() {
	s.logger.Noticef("rendering %d tiles at %d samples on %d device(s)",
		s.TileManager.NumTiles(), s.TileManager.NumSamples(), len(s.devices))

	results := make(chan device.TileResult, len(s.devices))
	idle := make([]device.Device, len(s.devices))
	copy(idle, s.devices)

	// The scene lock is held for the duration of a tile pass and released
	// at every pass boundary so a synchronizer can apply deferred updates.
	sceneHeld := false
	gateScene := func(hold bool) {
		if hold && !sceneHeld {
			s.scene.Lock()
			sceneHeld = true
		} else if !hold && sceneHeld {
			s.scene.Unlock()
			sceneHeld = false
		}
	}

	for {
		var tagTiles []*Tile

		s.mu.Lock()
	decide:
		for {
			switch {
			case s.Progress.Cancelled() && len(s.inflight) == 0:
				gateScene(false)
				s.finishLocked(StateCancelled)
				s.mu.Unlock()
				s.emitStatus()
				return

			case s.Progress.Cancelled():
				// drain in-flight work, never abort it
				break decide

			case s.resetReq != nil && len(s.inflight) == 0:
				gateScene(false)
				req := s.resetReq
				s.resetReq = nil
				if err := s.applyResetLocked(req.params, req.samples, req.zero); err != nil {
					req.err = err
					s.Progress.SetError(err)
					s.Progress.SetCancel("reset failed")
				}
				close(req.done)

			case s.resetReq != nil:
				break decide

			case s.TileManager.Done() && len(s.inflight) == 0:
				gateScene(false)
				s.finishLocked(StateDraining)
				s.mu.Unlock()
				s.emitStatus()
				return

			case s.pause && len(s.inflight) == 0:
				gateScene(false)
				s.cond.Wait()

			case s.pause:
				break decide

			default:
				gateScene(true)
				for len(idle) > 0 {
					tile, count, ok := s.TileManager.Next()
					if !ok {
						break
					}
					dev := idle[len(idle)-1]
					idle = idle[:len(idle)-1]
					tile.Device = dev.ID()

					if tile.Sample == 0 {
						// tag as in-progress; no pass data yet
						tagTiles = append(tagTiles, tile)
					}

					req := s.buildRequestLocked(tile, count, results)
					s.inflight[req] = tile
					dev.Enqueue(req)
				}
				break decide
			}
		}
		listener := s.tileListener
		pending := len(s.inflight)
		s.mu.Unlock()

		if listener != nil {
			for _, tile := range tagTiles {
				listener.UpdateRenderTile(tile)
			}
		}

		if pending == 0 {
			continue
		}

		res := <-results
		idle = append(idle, s.handleResult(res))
	}
}

// finishLocked marks the session drained or cancelled and releases all
// waiters. A reset still pending at this point can never apply; its
// caller is unblocked with an error instead of being stranded. Caller
// holds s.mu.
func (s *Session) finishLocked(state State) {
	s.state = state
	if req := s.resetReq; req != nil {
		s.resetReq = nil
		req.err = ErrSessionCancelled
		close(req.done)
	}
	if s.waitCh != nil {
		close(s.waitCh)
	}
	if state == StateCancelled {
		s.logger.Noticef("render cancelled: %s", s.Progress.CancelReason())
	} else {
		s.logger.Noticef("render drained: %d tiles complete", s.TileManager.NumTiles())
	}
}

// buildRequestLocked assembles the device request for a tile sample
// increment. Caller holds s.mu.
func (s *Session) buildRequestLocked(tile *Tile, count int, results chan<- device.TileResult) *device.TileRequest {
	params := s.Buffers.Params
	return &device.TileRequest{
		Scene:       s.scene,
		Buffer:      s.Buffers.Buffer(),
		FrameW:      params.Width,
		FrameH:      params.Height,
		PixelStride: params.PixelStride(),
		Passes:      params.passDescs(),
		X:           tile.X,
		Y:           tile.Y,
		W:           tile.W,
		H:           tile.H,
		FullX:       params.FullX,
		FullY:       params.FullY,
		SampleStart: tile.Sample,
		NumSamples:  count,
		Seed:        uint32(tile.Index)*0x9e3779b1 + 1,
		Result:      results,
	}
}

// handleResult folds one device completion back into session state and
// fires tile listeners. Returns the device that became idle.
func (s *Session) handleResult(res device.TileResult) device.Device {
	s.mu.Lock()
	tile := s.inflight[res.Req]
	delete(s.inflight, res.Req)

	var dev device.Device
	for _, d := range s.devices {
		if d.ID() == tile.Device {
			dev = d
			break
		}
	}

	if res.Err != nil {
		s.TileManager.Release(tile)
		s.Progress.SetError(fmt.Errorf("device %s: %w", tile.Device, res.Err))
		s.Progress.SetCancel("device error")
		s.mu.Unlock()
		s.logger.Errorf("device %s failed on tile %d: %s", tile.Device, tile.Index, res.Err)
		return dev
	}

	tile.Sample += res.Req.NumSamples
	s.TileManager.Release(tile)

	stat := s.stats[tile.Device]
	if stat == nil {
		stat = &DeviceStat{ID: tile.Device}
		s.stats[tile.Device] = stat
	}
	stat.Tiles++
	stat.RenderTime += res.RenderTime

	complete := tile.Done()
	listener := s.tileListener
	s.mu.Unlock()

	s.Progress.AddSamples(res.Req.NumSamples)
	if complete {
		s.Progress.AddFinishedTile(res.RenderTime)
	}

	if listener != nil {
		if complete {
			listener.WriteRenderTile(tile)
		} else {
			listener.UpdateRenderTile(tile)
		}
	}

	s.emitStatus()
	return dev
}

// emitStatus pushes a throttled status/progress update to the status
// listener: only on change, and no more than once per interval for
// repeated offline updates.
func (s *Session) emitStatus() {
	s.mu.Lock()
	listener := s.statusListener
	if listener == nil {
		s.mu.Unlock()
		return
	}

	numTiles := s.TileManager.NumTiles()
	numSamples := s.TileManager.NumSamples()
	background := s.Params.Background
	minSample := s.TileManager.MinSample()
	s.mu.Unlock()

	tiles, _, _, _ := s.Progress.Tile()
	sample := s.Progress.Sample()

	var fraction float64
	if background && numTiles > 0 && numSamples > 0 {
		fraction = float64(sample) / float64(numTiles*numSamples)
	} else if numSamples > 0 {
		fraction = float64(minSample) / float64(numSamples)
	}
	if fraction > 1 {
		fraction = 1
	}

	status := fmt.Sprintf("Rendered %d/%d tiles", tiles, numTiles)
	substatus := fmt.Sprintf("Sample %d/%d", minSample, numSamples)
	if err := s.Progress.Error(); err != nil {
		status = "Error"
		substatus = err.Error()
	} else if s.Progress.Cancelled() {
		status = "Cancelled"
		substatus = s.Progress.CancelReason()
	}

	s.mu.Lock()
	changed := status+"|"+substatus != s.lastStatus || fraction != s.lastFraction
	throttled := background && time.Since(s.lastEmit) < statusInterval &&
		status+"|"+substatus == s.lastStatus
	if !changed || throttled {
		s.mu.Unlock()
		return
	}
	s.lastStatus = status + "|" + substatus
	s.lastFraction = fraction
	s.lastEmit = time.Now()
	s.mu.Unlock()

	listener.UpdateStatus(status, substatus, fraction)
}
