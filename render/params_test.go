package render

import "testing"

func TestSessionParamsModified(t *testing.T) {
	base := DefaultSessionParams()

	type spec struct {
		mutate      func(*SessionParams)
		expModified bool
	}
	specs := []spec{
		spec{func(p *SessionParams) {}, false},
		spec{func(p *SessionParams) { p.Samples = 32 }, true},
		spec{func(p *SessionParams) { p.TileSize = 128 }, true},
		spec{func(p *SessionParams) { p.DeviceID = "cpu-1" }, true},
		spec{func(p *SessionParams) { p.ProgressiveRefine = true }, true},
		spec{func(p *SessionParams) { p.Background = false }, true},
		spec{func(p *SessionParams) { p.PersistentBuffers = true }, true},
		// Tile order can change on a live session; not structural.
		spec{func(p *SessionParams) { p.TileOrder = OrderHilbert }, false},
	}

	for index, s := range specs {
		other := base
		s.mutate(&other)
		if got := base.Modified(other); got != s.expModified {
			t.Fatalf("[spec %d] expected modified=%v; got %v", index, s.expModified, got)
		}
	}
}

func TestSceneParamsModified(t *testing.T) {
	a := SceneParams{Quality: ShadingStandard}
	b := SceneParams{Quality: ShadingStandard}
	if a.Modified(b) {
		t.Fatal("expected identical scene params to compare unmodified")
	}
	b.Quality = ShadingHigh
	if !a.Modified(b) {
		t.Fatal("expected quality change to be structural")
	}
}

func TestParseTileOrder(t *testing.T) {
	type spec struct {
		name string
		exp  TileOrder
	}
	specs := []spec{
		spec{"default", OrderDefault},
		spec{"center", OrderCenter},
		spec{"bottom-to-top", OrderBottomToTop},
		spec{"HILBERT", OrderHilbert},
		spec{" hilbert ", OrderHilbert},
		spec{"spiral", OrderDefault},
		spec{"", OrderDefault},
	}

	for index, s := range specs {
		if got := ParseTileOrder(s.name); got != s.exp {
			t.Fatalf("[spec %d] expected %s; got %s", index, s.exp, got)
		}
	}
}

func TestParsePassType(t *testing.T) {
	type spec struct {
		name string
		exp  PassType
	}
	specs := []spec{
		spec{"combined", PassCombined},
		spec{"depth", PassDepth},
		spec{"object-id", PassObjectID},
		spec{"Normal", PassNormal},
		// Unknown pass names degrade to PassNone instead of erroring.
		spec{"cryptomatte", PassNone},
		spec{"", PassNone},
	}

	for index, s := range specs {
		if got := ParsePassType(s.name); got != s.exp {
			t.Fatalf("[spec %d] expected %s; got %s", index, s.exp, got)
		}
	}
}

func TestPassChannels(t *testing.T) {
	type spec struct {
		pass PassType
		exp  int
	}
	specs := []spec{
		spec{PassNone, 0},
		spec{PassCombined, 4},
		spec{PassDepth, 1},
		spec{PassMist, 1},
		spec{PassObjectID, 1},
		spec{PassMaterialID, 1},
		spec{PassNormal, 4},
		spec{PassUV, 4},
		spec{PassDiffuseColor, 4},
	}

	for index, s := range specs {
		if got := s.pass.Channels(); got != s.exp {
			t.Fatalf("[spec %d] expected %d channels for %s; got %d", index, s.exp, s.pass, got)
		}
	}
}

func TestAddPassDeduplicates(t *testing.T) {
	var passes []Pass
	passes = AddPass(passes, PassCombined)
	passes = AddPass(passes, PassDepth)
	passes = AddPass(passes, PassCombined)
	passes = AddPass(passes, PassNone)

	if len(passes) != 2 {
		t.Fatalf("expected 2 passes; got %d", len(passes))
	}
	if passes[0].Type != PassCombined || passes[1].Type != PassDepth {
		t.Fatalf("unexpected pass order: %v", passes)
	}
}

func TestBufferParamsLayout(t *testing.T) {
	p := NewBufferParams(0, 0, 8, 8, PassCombined, PassDepth, PassNormal)

	if got := p.PixelStride(); got != 9 {
		t.Fatalf("expected pixel stride 9; got %d", got)
	}

	type spec struct {
		pass      PassType
		expOffset int
		expOK     bool
	}
	specs := []spec{
		spec{PassCombined, 0, true},
		spec{PassDepth, 4, true},
		spec{PassNormal, 5, true},
		spec{PassUV, 0, false},
	}

	for index, s := range specs {
		offset, ok := p.PassOffset(s.pass)
		if ok != s.expOK || offset != s.expOffset {
			t.Fatalf("[spec %d] expected offset %d ok=%v; got %d ok=%v", index, s.expOffset, s.expOK, offset, ok)
		}
	}
}

func TestBufferParamsModified(t *testing.T) {
	base := NewBufferParams(0, 0, 64, 64, PassCombined)

	type spec struct {
		other       BufferParams
		expModified bool
	}
	specs := []spec{
		spec{NewBufferParams(0, 0, 64, 64, PassCombined), false},
		spec{NewBufferParams(0, 0, 128, 64, PassCombined), true},
		spec{NewBufferParams(8, 0, 64, 64, PassCombined), true},
		spec{NewBufferParams(0, 0, 64, 64, PassCombined, PassDepth), true},
		spec{NewBufferParams(0, 0, 64, 64, PassDepth), true},
	}

	for index, s := range specs {
		if got := base.Modified(s.other); got != s.expModified {
			t.Fatalf("[spec %d] expected modified=%v; got %v", index, s.expModified, got)
		}
	}
}
