package render

import (
	"fmt"
	"sort"
)

// Tile is a rectangular sub-region of the frame buffer scheduled and
// accumulated independently. Coordinates are buffer-local; the buffer's
// full-frame offset lives in BufferParams.
type Tile struct {
	Index int

	X, Y, W, H int

	// Accumulated and target sample counts.
	Sample int
	Target int

	// Id of the device currently or last rendering this tile.
	Device string

	inFlight bool
	buffers  *RenderBuffers
}

// Buffers returns the accumulator slice this tile renders into.
func (t *Tile) Buffers() *RenderBuffers {
	return t.buffers
}

// Done reports whether the tile reached its sample target.
func (t *Tile) Done() bool {
	return t.Sample >= t.Target
}

// TileManager decomposes a BufferParams rectangle into a totally ordered
// sequence of tiles and tracks per-tile sample progress. It is not safe
// for concurrent use; the owning session serializes access.
type TileManager struct {
	params      BufferParams
	tileSize    int
	order       TileOrder
	progressive bool

	numSamples int

	tiles []*Tile
	sched []int
}

// NewTileManager creates a tile manager with the given tile size and
// traversal order.
func NewTileManager(tileSize int, order TileOrder, progressive bool) *TileManager {
	if tileSize <= 0 {
		tileSize = 64
	}
	return &TileManager{
		tileSize:    tileSize,
		order:       order,
		progressive: progressive,
	}
}

// Reset re-partitions the buffer rectangle and restarts sample tracking.
// Tiles begin with startSample accumulated samples, which is non-zero only
// when persistent buffers carried work across the reset. A zero-area
// rectangle yields zero tiles and an immediately complete manager.
func (tm *TileManager) Reset(params BufferParams, numSamples, startSample int, buffers *RenderBuffers) {
	tm.params = params
	tm.numSamples = numSamples
	tm.tiles = tm.tiles[:0]

	if params.Width > 0 && params.Height > 0 {
		for y := 0; y < params.Height; y += tm.tileSize {
			for x := 0; x < params.Width; x += tm.tileSize {
				w := min(tm.tileSize, params.Width-x)
				h := min(tm.tileSize, params.Height-y)
				tm.tiles = append(tm.tiles, &Tile{
					Index:   len(tm.tiles),
					X:       x,
					Y:       y,
					W:       w,
					H:       h,
					Sample:  min(startSample, numSamples),
					Target:  numSamples,
					buffers: buffers,
				})
			}
		}
	}

	tm.verifyPartition()
	tm.buildSchedule()
}

// Params returns the buffer parameters of the current partition.
func (tm *TileManager) Params() BufferParams {
	return tm.params
}

// NumTiles returns the tile count of the current partition.
func (tm *TileManager) NumTiles() int {
	return len(tm.tiles)
}

// NumSamples returns the current per-pixel sample target.
func (tm *TileManager) NumSamples() int {
	return tm.numSamples
}

// Tiles returns the tiles in partition order.
func (tm *TileManager) Tiles() []*Tile {
	return tm.tiles
}

// SetSamples raises or lowers the sample target for every tile. Raising
// reopens completed tiles as a new refinement pass over the existing
// accumulation. Lowering below a tile's accumulated count never retracts
// completed work: that tile simply becomes complete.
func (tm *TileManager) SetSamples(n int) {
	tm.numSamples = n
	for _, t := range tm.tiles {
		if n < t.Sample {
			t.Target = t.Sample
		} else {
			t.Target = n
		}
	}
}

// SetTileOrder switches the traversal order. Accumulated state is
// untouched; only scheduling preference changes.
func (tm *TileManager) SetTileOrder(order TileOrder) {
	if tm.order == order {
		return
	}
	tm.order = order
	tm.buildSchedule()
}

// Next returns the next tile to advance together with the sample increment
// to request, or ok=false when no dispatchable tile remains. Tiles checked
// out via Next are skipped until Release is called for them.
//
// In progressive-refine mode tiles advance in doubling increments, lowest
// accumulated count first, so the whole frame refines together. Otherwise
// each tile is drained to its target in a single request.
func (tm *TileManager) Next() (tile *Tile, samples int, ok bool) {
	if tm.progressive {
		for _, idx := range tm.sched {
			t := tm.tiles[idx]
			if t.inFlight || t.Done() {
				continue
			}
			if tile == nil || t.Sample < tile.Sample {
				tile = t
			}
		}
		if tile == nil {
			return nil, 0, false
		}
		step := tile.Sample
		if step < 1 {
			step = 1
		}
		if remaining := tile.Target - tile.Sample; step > remaining {
			step = remaining
		}
		tile.inFlight = true
		return tile, step, true
	}

	for _, idx := range tm.sched {
		t := tm.tiles[idx]
		if t.inFlight || t.Done() {
			continue
		}
		t.inFlight = true
		return t, t.Target - t.Sample, true
	}
	return nil, 0, false
}

// Release returns a checked-out tile to the schedulable pool.
func (tm *TileManager) Release(t *Tile) {
	t.inFlight = false
}

// Done reports whether every tile reached its target.
func (tm *TileManager) Done() bool {
	for _, t := range tm.tiles {
		if !t.Done() {
			return false
		}
	}
	return true
}

// MinSample returns the lowest accumulated sample count across tiles, the
// sample level the whole frame is known to have reached.
func (tm *TileManager) MinSample() int {
	if len(tm.tiles) == 0 {
		return 0
	}
	m := tm.tiles[0].Sample
	for _, t := range tm.tiles[1:] {
		if t.Sample < m {
			m = t.Sample
		}
	}
	return m
}

// verifyPartition asserts the tiles exactly cover the buffer rectangle.
// A violation is a partitioning bug, not a runtime condition.
func (tm *TileManager) verifyPartition() {
	area := 0
	for _, t := range tm.tiles {
		if t.W <= 0 || t.H <= 0 ||
			t.X < 0 || t.Y < 0 ||
			t.X+t.W > tm.params.Width || t.Y+t.H > tm.params.Height {
			panic(fmt.Sprintf("render: tile %d (%d,%d %dx%d) escapes buffer %dx%d",
				t.Index, t.X, t.Y, t.W, t.H, tm.params.Width, tm.params.Height))
		}
		area += t.W * t.H
	}
	if area != tm.params.Width*tm.params.Height {
		panic(fmt.Sprintf("render: tile partition covers %d pixels, buffer has %d",
			area, tm.params.Width*tm.params.Height))
	}
}

// buildSchedule computes the traversal permutation for the current order.
func (tm *TileManager) buildSchedule() {
	tm.sched = make([]int, len(tm.tiles))
	for i := range tm.sched {
		tm.sched[i] = i
	}

	switch tm.order {
	case OrderCenter:
		cx := float64(tm.params.Width) / 2
		cy := float64(tm.params.Height) / 2
		dist := func(i int) float64 {
			t := tm.tiles[i]
			dx := float64(t.X) + float64(t.W)/2 - cx
			dy := float64(t.Y) + float64(t.H)/2 - cy
			return dx*dx + dy*dy
		}
		sort.SliceStable(tm.sched, func(a, b int) bool {
			return dist(tm.sched[a]) < dist(tm.sched[b])
		})

	case OrderBottomToTop:
		sort.SliceStable(tm.sched, func(a, b int) bool {
			ta, tb := tm.tiles[tm.sched[a]], tm.tiles[tm.sched[b]]
			if ta.Y != tb.Y {
				return ta.Y > tb.Y
			}
			return ta.X < tb.X
		})

	case OrderHilbert:
		key := func(i int) uint64 {
			t := tm.tiles[i]
			return hilbertIndex(uint32(t.X/tm.tileSize), uint32(t.Y/tm.tileSize))
		}
		sort.SliceStable(tm.sched, func(a, b int) bool {
			return key(tm.sched[a]) < key(tm.sched[b])
		})
	}
}

// hilbertIndex maps tile grid coordinates onto a 16-bit-per-axis Hilbert
// curve.
func hilbertIndex(x, y uint32) uint64 {
	var rx, ry uint32
	var d uint64
	for s := uint32(1) << 15; s > 0; s /= 2 {
		if x&s > 0 {
			rx = 1
		} else {
			rx = 0
		}
		if y&s > 0 {
			ry = 1
		} else {
			ry = 0
		}
		d += uint64(s) * uint64(s) * uint64((3*rx)^ry)

		// rotate quadrant
		if ry == 0 {
			if rx == 1 {
				x = s - 1 - x
				y = s - 1 - y
			}
			x, y = y, x
		}
	}
	return d
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
