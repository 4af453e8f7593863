package render

import (
	"strings"

	"github.com/lumenrender/lumen/device"
)

// PassType identifies a semantic output channel of the render.
type PassType int

const (
	PassNone PassType = iota
	PassCombined
	PassDepth
	PassMist
	PassNormal
	PassUV
	PassObjectID
	PassMaterialID
	PassEmission
	PassBackground
	PassAO
	PassShadow
	PassDiffuseDirect
	PassDiffuseIndirect
	PassDiffuseColor
	PassGlossyDirect
	PassGlossyIndirect
	PassGlossyColor
	PassTransmissionDirect
	PassTransmissionIndirect
	PassTransmissionColor
)

var passNames = map[PassType]string{
	PassNone:                 "none",
	PassCombined:             "combined",
	PassDepth:                "depth",
	PassMist:                 "mist",
	PassNormal:               "normal",
	PassUV:                   "uv",
	PassObjectID:             "object-id",
	PassMaterialID:           "material-id",
	PassEmission:             "emission",
	PassBackground:           "background",
	PassAO:                   "ao",
	PassShadow:               "shadow",
	PassDiffuseDirect:        "diffuse-direct",
	PassDiffuseIndirect:      "diffuse-indirect",
	PassDiffuseColor:         "diffuse-color",
	PassGlossyDirect:         "glossy-direct",
	PassGlossyIndirect:       "glossy-indirect",
	PassGlossyColor:          "glossy-color",
	PassTransmissionDirect:   "transmission-direct",
	PassTransmissionIndirect: "transmission-indirect",
	PassTransmissionColor:    "transmission-color",
}

func (t PassType) String() string {
	if name, exists := passNames[t]; exists {
		return name
	}
	return "unknown"
}

// ParsePassType maps a pass name to a PassType. Unrecognized names map to
// PassNone rather than erroring; extraction for PassNone always fails and
// the caller zero-fills.
func ParsePassType(name string) PassType {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range passNames {
		if n == name {
			return t
		}
	}
	return PassNone
}

// Channels returns the fixed channel count for a pass type (1 or 4).
func (t PassType) Channels() int {
	switch t {
	case PassNone:
		return 0
	case PassDepth, PassMist, PassObjectID, PassMaterialID:
		return 1
	}
	return 4
}

// Extraction mode per pass type.
type passMode int

const (
	// divide by sample count, then apply exposure
	modeColor passMode = iota
	// divide by sample count only
	modeData
	// copy as-is
	modeRaw
)

func (t PassType) mode() passMode {
	switch t {
	case PassObjectID, PassMaterialID:
		return modeRaw
	case PassDepth, PassMist, PassNormal, PassUV,
		PassDiffuseColor, PassGlossyColor, PassTransmissionColor,
		PassAO, PassShadow:
		return modeData
	}
	return modeColor
}

func (t PassType) kind() device.PassKind {
	switch t {
	case PassCombined:
		return device.KindCombined
	case PassDepth:
		return device.KindDepth
	case PassMist:
		return device.KindValue
	case PassNormal:
		return device.KindNormal
	case PassUV:
		return device.KindUV
	case PassObjectID:
		return device.KindObjectID
	case PassMaterialID:
		return device.KindMaterialID
	}
	return device.KindLight
}

// Pass describes one requested output channel.
type Pass struct {
	Type       PassType
	Components int
}

// AddPass appends a pass to the list, deduplicating by type. PassNone is
// ignored.
func AddPass(passes []Pass, t PassType) []Pass {
	if t == PassNone {
		return passes
	}
	for _, p := range passes {
		if p.Type == t {
			return passes
		}
	}
	return append(passes, Pass{Type: t, Components: t.Channels()})
}
