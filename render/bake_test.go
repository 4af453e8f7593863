package render

import (
	"testing"

	"github.com/lumenrender/lumen/device"
)

func TestBakeDiffuseColorAveragesToObjectColor(t *testing.T) {
	dev := newTestDevice()
	defer dev.Close()

	sc := newTestScene()
	session, err := NewSession([]device.Device{dev}, sc, DefaultSessionParams(), SceneParams{})
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	const size = 8
	data := NewBakeData(1, 0, size*size)
	for i := 0; i < size*size; i++ {
		u := (float32(i%size) + 0.5) / size
		v := (float32(i/size) + 0.5) / size
		data.Set(i, i, u, v, 0, 0, 0, 0)
	}

	result := make([]float32, size*size*4)
	if err = session.Bake(EvalDiffuseColor, data, 7, result); err != nil {
		t.Fatal(err)
	}

	// Diffuse color ignores the sample jitter, so averaging any number of
	// samples must reproduce the object color up to rounding.
	const eps = 1e-5
	ball := sc.Objects[1].Color
	for i := 0; i < size*size; i++ {
		r, g, b, a := result[i*4], result[i*4+1], result[i*4+2], result[i*4+3]
		if absf(r-ball[0]) > eps || absf(g-ball[1]) > eps || absf(b-ball[2]) > eps {
			t.Fatalf("pixel %d: got (%v,%v,%v), want object color %v", i, r, g, b, ball)
		}
		if absf(a-1) > eps {
			t.Fatalf("pixel %d: expected alpha 1; got %v", i, a)
		}
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestBakeNullPointsStayZero(t *testing.T) {
	dev := newTestDevice()
	defer dev.Close()

	session, err := NewSession([]device.Device{dev}, newTestScene(), DefaultSessionParams(), SceneParams{})
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	data := NewBakeData(1, 0, 4)
	data.Set(0, 0, 0.5, 0.5, 0, 0, 0, 0)
	data.Set(2, 2, 0.25, 0.75, 0, 0, 0, 0)
	// Points 1 and 3 stay null.

	result := make([]float32, 4*4)
	if err = session.Bake(EvalDiffuseColor, data, 4, result); err != nil {
		t.Fatal(err)
	}

	for _, i := range []int{1, 3} {
		for c := 0; c < 4; c++ {
			if result[i*4+c] != 0 {
				t.Fatalf("null point %d channel %d: expected 0; got %v", i, c, result[i*4+c])
			}
		}
	}
	for _, i := range []int{0, 2} {
		if result[i*4+3] != 1 {
			t.Fatalf("shaded point %d: expected alpha 1; got %v", i, result[i*4+3])
		}
	}
}

func TestBakeLeavesTileManagerUntouched(t *testing.T) {
	dev := newTestDevice()
	defer dev.Close()

	params := DefaultSessionParams()
	params.TileSize = 16
	params.Samples = 4

	session, err := NewSession([]device.Device{dev}, newTestScene(), params, SceneParams{})
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	if err = session.Reset(NewBufferParams(0, 0, 32, 32, PassCombined), 4); err != nil {
		t.Fatal(err)
	}

	numTiles := session.TileManager.NumTiles()
	samplesBefore := make([]int, numTiles)
	for i, tile := range session.TileManager.Tiles() {
		samplesBefore[i] = tile.Sample
	}

	data := NewBakeData(0, 0, 64)
	for i := 0; i < 64; i++ {
		data.Set(i, i, 0.5, 0.5, 0, 0, 0, 0)
	}
	result := make([]float32, 64*4)
	if err = session.Bake(EvalCombined, data, 8, result); err != nil {
		t.Fatal(err)
	}

	// The bake is object-space; the screen-space partition is not part of
	// its lifecycle.
	if got := session.TileManager.NumTiles(); got != numTiles {
		t.Fatalf("bake changed tile count from %d to %d", numTiles, got)
	}
	for i, tile := range session.TileManager.Tiles() {
		if tile.Sample != samplesBefore[i] {
			t.Fatalf("bake advanced tile %d from sample %d to %d", i, samplesBefore[i], tile.Sample)
		}
	}
}

func TestBakeResultSizeMismatch(t *testing.T) {
	dev := newTestDevice()
	defer dev.Close()

	session, err := NewSession([]device.Device{dev}, newTestScene(), DefaultSessionParams(), SceneParams{})
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	data := NewBakeData(0, 0, 16)
	if err = session.Bake(EvalCombined, data, 4, make([]float32, 16)); err != ErrResultSize {
		t.Fatalf("expected ErrResultSize; got %v", err)
	}
}

func TestBakeCancelBetweenChunksLeavesPartialResult(t *testing.T) {
	dev := newTestDevice()
	defer dev.Close()

	sc := newTestScene()
	session, err := NewSession([]device.Device{dev}, sc, DefaultSessionParams(), SceneParams{})
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	// Two chunks of work; the status callback after the first chunk
	// requests cancellation, so the second chunk never runs.
	session.SetStatusListener(cancelAfterFirstPart{session})

	const numPixels = bakeChunkSize + 100
	const samples = 4
	data := NewBakeData(1, 0, numPixels)
	for i := 0; i < numPixels; i++ {
		data.Set(i, i, 0.5, 0.5, 0, 0, 0, 0)
	}

	result := make([]float32, numPixels*4)
	if err = session.Bake(EvalDiffuseColor, data, samples, result); err != nil {
		t.Fatalf("expected nil error on cancelled bake; got %v", err)
	}
	if !session.Progress.Cancelled() {
		t.Fatal("expected cancel flag to be set")
	}

	// The completed chunk is averaged exactly like a full bake; the second
	// chunk was never shaded and stays zero.
	const eps = 1e-5
	ball := sc.Objects[1].Color
	for _, i := range []int{0, bakeChunkSize / 2, bakeChunkSize - 1} {
		if got := result[i*4+3]; got != 1 {
			t.Fatalf("pixel %d: expected averaged alpha 1; got %v", i, got)
		}
		if got := result[i*4]; absf(got-ball[0]) > eps {
			t.Fatalf("pixel %d: expected averaged color %v; got %v", i, ball[0], got)
		}
	}
	for c := 0; c < 4; c++ {
		if got := result[bakeChunkSize*4+c]; got != 0 {
			t.Fatalf("second chunk channel %d touched: %v", c, got)
		}
	}
}

type cancelAfterFirstPart struct {
	session *Session
}

func (c cancelAfterFirstPart) UpdateStatus(status, substatus string, fraction float64) {
	c.session.Cancel("host shutdown")
}

func TestParseShaderEvalType(t *testing.T) {
	type spec struct {
		name string
		exp  ShaderEvalType
	}
	specs := []spec{
		spec{"normal", EvalNormal},
		spec{"uv", EvalUV},
		spec{"diffuse-color", EvalDiffuseColor},
		spec{"AO", EvalAO},
		spec{"combined", EvalCombined},
		spec{"subsurface", EvalCombined},
	}

	for index, s := range specs {
		if got := ParseShaderEvalType(s.name); got != s.exp {
			t.Fatalf("[spec %d] expected %s; got %s", index, s.exp, got)
		}
	}
}
