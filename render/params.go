package render

import "strings"

// Tile traversal order. A pure scheduling preference; it never affects
// final pixel values.
type TileOrder int

const (
	OrderDefault TileOrder = iota
	OrderCenter
	OrderBottomToTop
	OrderHilbert
)

var orderNames = map[TileOrder]string{
	OrderDefault:     "default",
	OrderCenter:      "center",
	OrderBottomToTop: "bottom-to-top",
	OrderHilbert:     "hilbert",
}

func (o TileOrder) String() string {
	if name, exists := orderNames[o]; exists {
		return name
	}
	return "unknown"
}

// ParseTileOrder maps an order name to a TileOrder; unrecognized names fall
// back to the default order.
func ParseTileOrder(name string) TileOrder {
	name = strings.ToLower(strings.TrimSpace(name))
	for o, n := range orderNames {
		if n == name {
			return o
		}
	}
	return OrderDefault
}

// Shading quality tier.
type ShadingQuality int

const (
	ShadingDraft ShadingQuality = iota
	ShadingStandard
	ShadingHigh
)

// SessionParams is the immutable-until-reset session configuration. A
// structural change between resets forces full session recreation on the
// host side.
type SessionParams struct {
	// Target device id as reported by device.Enumerate.
	DeviceID string

	// Total sample budget per pixel.
	Samples int

	// Tile edge length in pixels.
	TileSize int

	// Tile traversal order.
	TileOrder TileOrder

	// Progressive refinement: advance all tiles in small sample
	// increments for early previews instead of draining tiles one by
	// one.
	ProgressiveRefine bool

	// Offline (non-interactive) run.
	Background bool

	// Keep accumulated buffers across compatible resets.
	PersistentBuffers bool
}

// DefaultSessionParams returns the parameters used when the host supplies
// none.
func DefaultSessionParams() SessionParams {
	return SessionParams{
		Samples:    16,
		TileSize:   64,
		TileOrder:  OrderDefault,
		Background: true,
	}
}

// Modified reports whether a structural difference exists between the two
// parameter sets. The tile order is excluded: it can be applied to a live
// session without recreating it.
func (p SessionParams) Modified(other SessionParams) bool {
	return p.DeviceID != other.DeviceID ||
		p.Samples != other.Samples ||
		p.TileSize != other.TileSize ||
		p.ProgressiveRefine != other.ProgressiveRefine ||
		p.Background != other.Background ||
		p.PersistentBuffers != other.PersistentBuffers
}

// SceneParams is the immutable-until-reset scene-level configuration.
type SceneParams struct {
	Quality ShadingQuality
}

// Modified reports whether the two scene parameter sets differ.
func (p SceneParams) Modified(other SceneParams) bool {
	return p.Quality != other.Quality
}
