package render

import (
	"testing"
)

func TestTilePartitionCoversBuffer(t *testing.T) {
	type spec struct {
		width    int
		height   int
		tileSize int
		expTiles int
	}
	specs := []spec{
		spec{64, 64, 64, 1},
		spec{64, 64, 16, 16},
		spec{100, 60, 32, 8},
		spec{1, 1, 64, 1},
		spec{65, 65, 64, 4},
		spec{640, 480, 48, 140},
	}

	for index, s := range specs {
		for _, order := range []TileOrder{OrderDefault, OrderCenter, OrderBottomToTop, OrderHilbert} {
			tm := NewTileManager(s.tileSize, order, false)
			tm.Reset(NewBufferParams(0, 0, s.width, s.height, PassCombined), 4, 0, nil)

			if got := tm.NumTiles(); got != s.expTiles {
				t.Fatalf("[spec %d] order %s: expected %d tiles; got %d", index, order, s.expTiles, got)
			}

			// Each pixel must belong to exactly one tile.
			covered := make([]int, s.width*s.height)
			for _, tile := range tm.Tiles() {
				for y := tile.Y; y < tile.Y+tile.H; y++ {
					for x := tile.X; x < tile.X+tile.W; x++ {
						covered[y*s.width+x]++
					}
				}
			}
			for i, c := range covered {
				if c != 1 {
					t.Fatalf("[spec %d] order %s: pixel %d covered %d times", index, order, i, c)
				}
			}
		}
	}
}

func TestTilePartitionZeroArea(t *testing.T) {
	type spec struct {
		width  int
		height int
	}
	specs := []spec{
		spec{0, 0},
		spec{0, 100},
		spec{100, 0},
	}

	for index, s := range specs {
		tm := NewTileManager(32, OrderDefault, false)
		tm.Reset(NewBufferParams(0, 0, s.width, s.height, PassCombined), 8, 0, nil)

		if tm.NumTiles() != 0 {
			t.Fatalf("[spec %d] expected zero tiles; got %d", index, tm.NumTiles())
		}
		if !tm.Done() {
			t.Fatalf("[spec %d] expected zero-area partition to be immediately complete", index)
		}
		if _, _, ok := tm.Next(); ok {
			t.Fatalf("[spec %d] expected no dispatchable tile", index)
		}
	}
}

func TestScheduleIsPermutation(t *testing.T) {
	for _, order := range []TileOrder{OrderDefault, OrderCenter, OrderBottomToTop, OrderHilbert} {
		tm := NewTileManager(16, order, false)
		tm.Reset(NewBufferParams(0, 0, 100, 70, PassCombined), 4, 0, nil)

		seen := make(map[int]bool)
		for _, idx := range tm.sched {
			if idx < 0 || idx >= tm.NumTiles() {
				t.Fatalf("order %s: schedule entry %d out of range", order, idx)
			}
			if seen[idx] {
				t.Fatalf("order %s: tile %d scheduled twice", order, idx)
			}
			seen[idx] = true
		}
		if len(seen) != tm.NumTiles() {
			t.Fatalf("order %s: schedule visits %d of %d tiles", order, len(seen), tm.NumTiles())
		}
	}
}

func TestBottomToTopOrder(t *testing.T) {
	tm := NewTileManager(16, OrderBottomToTop, false)
	tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 4, 0, nil)

	lastY := 1 << 30
	for _, idx := range tm.sched {
		tile := tm.Tiles()[idx]
		if tile.Y > lastY {
			t.Fatalf("tile %d at row %d scheduled after row %d", idx, tile.Y, lastY)
		}
		lastY = tile.Y
	}
}

func TestCenterOrderStartsAtCenter(t *testing.T) {
	tm := NewTileManager(16, OrderCenter, false)
	tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 4, 0, nil)

	first := tm.Tiles()[tm.sched[0]]
	// 64x64 with 16px tiles: the four center tiles touch (32,32).
	if first.X+first.W != 32 && first.X != 32 {
		t.Fatalf("expected first scheduled tile adjacent to center column; got x=%d", first.X)
	}
	if first.Y+first.H != 32 && first.Y != 32 {
		t.Fatalf("expected first scheduled tile adjacent to center row; got y=%d", first.Y)
	}
}

func TestSetSamplesNeverRetracts(t *testing.T) {
	type spec struct {
		accumulated int
		newTarget   int
		expTarget   int
		expDone     bool
	}
	specs := []spec{
		spec{0, 8, 8, false},
		spec{4, 8, 8, false},
		spec{4, 2, 4, true},
		spec{16, 16, 16, true},
		spec{16, 32, 32, false},
	}

	for index, s := range specs {
		tm := NewTileManager(64, OrderDefault, false)
		tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 16, 0, nil)
		tile := tm.Tiles()[0]
		tile.Sample = s.accumulated

		tm.SetSamples(s.newTarget)

		if tile.Target != s.expTarget {
			t.Fatalf("[spec %d] expected target %d; got %d", index, s.expTarget, tile.Target)
		}
		if tile.Sample != s.accumulated {
			t.Fatalf("[spec %d] accumulated samples changed from %d to %d", index, s.accumulated, tile.Sample)
		}
		if tile.Done() != s.expDone {
			t.Fatalf("[spec %d] expected done=%v; got %v", index, s.expDone, tile.Done())
		}
	}
}

func TestNextDrainsTileWithoutProgressive(t *testing.T) {
	tm := NewTileManager(32, OrderDefault, false)
	tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 16, 0, nil)

	dispatched := 0
	for {
		tile, count, ok := tm.Next()
		if !ok {
			break
		}
		if count != 16 {
			t.Fatalf("expected full drain of 16 samples; got %d", count)
		}
		tile.Sample += count
		tm.Release(tile)
		dispatched++
	}

	if dispatched != tm.NumTiles() {
		t.Fatalf("expected %d dispatches; got %d", tm.NumTiles(), dispatched)
	}
	if !tm.Done() {
		t.Fatal("expected manager to be done after draining all tiles")
	}
}

func TestNextProgressiveDoublesIncrements(t *testing.T) {
	tm := NewTileManager(64, OrderDefault, true)
	tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 16, 0, nil)

	var increments []int
	for {
		tile, count, ok := tm.Next()
		if !ok {
			break
		}
		increments = append(increments, count)
		tile.Sample += count
		tm.Release(tile)
	}

	exp := []int{1, 1, 2, 4, 8}
	if len(increments) != len(exp) {
		t.Fatalf("expected %d increments; got %v", len(exp), increments)
	}
	for i := range exp {
		if increments[i] != exp[i] {
			t.Fatalf("expected increments %v; got %v", exp, increments)
		}
	}
}

func TestNextProgressivePrefersLowestSample(t *testing.T) {
	tm := NewTileManager(32, OrderDefault, true)
	tm.Reset(NewBufferParams(0, 0, 64, 32, PassCombined), 16, 0, nil)

	tiles := tm.Tiles()
	tiles[0].Sample = 8
	tiles[1].Sample = 2

	tile, _, ok := tm.Next()
	if !ok {
		t.Fatal("expected a dispatchable tile")
	}
	if tile != tiles[1] {
		t.Fatalf("expected tile with lowest sample count; got tile %d", tile.Index)
	}
}

func TestNextSkipsInflightTiles(t *testing.T) {
	tm := NewTileManager(32, OrderDefault, false)
	tm.Reset(NewBufferParams(0, 0, 64, 32, PassCombined), 4, 0, nil)

	first, _, ok := tm.Next()
	if !ok {
		t.Fatal("expected first tile")
	}
	second, _, ok := tm.Next()
	if !ok {
		t.Fatal("expected second tile")
	}
	if first == second {
		t.Fatal("checked-out tile handed out twice")
	}
	if _, _, ok = tm.Next(); ok {
		t.Fatal("expected no third tile while both are in flight")
	}

	tm.Release(first)
	again, _, ok := tm.Next()
	if !ok || again != first {
		t.Fatal("expected released tile to become schedulable again")
	}
}

func TestResetStartSampleResume(t *testing.T) {
	tm := NewTileManager(32, OrderDefault, false)
	tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 16, 8, nil)

	for _, tile := range tm.Tiles() {
		if tile.Sample != 8 {
			t.Fatalf("expected tile %d to resume at sample 8; got %d", tile.Index, tile.Sample)
		}
	}
	if tm.MinSample() != 8 {
		t.Fatalf("expected min sample 8; got %d", tm.MinSample())
	}

	// Resume level is clamped to the target.
	tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 4, 8, nil)
	if !tm.Done() {
		t.Fatal("expected manager resumed past its target to be complete")
	}
}

func TestSetTileOrderKeepsAccumulation(t *testing.T) {
	tm := NewTileManager(16, OrderDefault, false)
	tm.Reset(NewBufferParams(0, 0, 64, 64, PassCombined), 8, 0, nil)

	tm.Tiles()[3].Sample = 5
	tm.SetTileOrder(OrderHilbert)

	if tm.Tiles()[3].Sample != 5 {
		t.Fatalf("expected accumulation to survive order change; got %d", tm.Tiles()[3].Sample)
	}
	if len(tm.sched) != tm.NumTiles() {
		t.Fatalf("expected rebuilt schedule over %d tiles; got %d", tm.NumTiles(), len(tm.sched))
	}
}

func TestHilbertIndexIsInjectiveOnGrid(t *testing.T) {
	seen := make(map[uint64]bool)
	for y := uint32(0); y < 16; y++ {
		for x := uint32(0); x < 16; x++ {
			d := hilbertIndex(x, y)
			if seen[d] {
				t.Fatalf("hilbert index collision at (%d,%d)", x, y)
			}
			seen[d] = true
		}
	}
}
