// Package device abstracts the compute backends that advance tile sample
// accumulation. A device owns its resident buffers and a worker loop that
// consumes tile requests; the render session talks to it exclusively
// through Enqueue/Shade and never blocks inside the device.
package device

import (
	"fmt"
	"runtime"
	"time"

	"github.com/lumenrender/lumen/scene"
)

// Device type.
type Type int

const (
	TypeCPU Type = iota
)

func (t Type) String() string {
	switch t {
	case TypeCPU:
		return "cpu"
	}
	return "unknown"
}

// The content a pass slot expects the kernel to produce. Extraction
// semantics (sample normalization, exposure) are decided by the caller; the
// kind only selects what gets written during accumulation.
type PassKind uint8

const (
	KindCombined PassKind = iota
	KindDepth
	KindNormal
	KindUV
	KindObjectID
	KindMaterialID
	KindValue
	KindLight
)

// A slot inside the accumulation buffer's per-pixel stride.
type PassDesc struct {
	Kind       PassKind
	Offset     int
	Components int
}

// A unit of work advancing one tile by a number of samples. Completion is
// reported on the Result channel; the request is never mutated by the
// device.
type TileRequest struct {
	Scene  *scene.Scene
	Buffer *Buffer

	// Buffer geometry: FrameW x FrameH pixels, PixelStride floats each.
	FrameW, FrameH int
	PixelStride    int
	Passes         []PassDesc

	// Tile rectangle in buffer coordinates and the buffer's full-frame
	// offset, which keeps sampling stable when a render border moves.
	X, Y, W, H   int
	FullX, FullY int

	// Samples [SampleStart, SampleStart+NumSamples) are accumulated.
	SampleStart int
	NumSamples  int

	Seed uint32

	// Completion channel. Exactly one TileResult is sent per request.
	Result chan<- TileResult
}

// Result of a tile request.
type TileResult struct {
	Req        *TileRequest
	RenderTime time.Duration
	Err        error
}

// One object-surface pixel of a bake task.
type BakePoint struct {
	Object int
	Prim   int
	U, V   float32

	DuDx, DuDy float32
	DvDx, DvDy float32
}

// Shader evaluation selector for bake tasks.
type ShaderEval int

const (
	EvalNormal ShaderEval = iota
	EvalUV
	EvalDiffuseColor
	EvalEmission
	EvalAO
	EvalShadow
	EvalCombined
)

// A synchronous object-space shading task. Output holds 4 floats per point
// and is accumulated in place across sample batches.
type ShadeRequest struct {
	Scene  *scene.Scene
	Eval   ShaderEval
	Points []BakePoint

	// Index of the first point within the overall bake task, used for
	// deterministic sampling.
	Offset int

	SampleStart int
	NumSamples  int
	Seed        uint32

	Output []float32
}

// Device is implemented by all compute backends.
type Device interface {
	// Get device id.
	ID() string

	// Get human readable device name.
	Name() string

	// Get device type.
	Type() Type

	// Allocate a device-resident buffer of the given element count.
	Alloc(name string, elements int) (*Buffer, error)

	// Enqueue tile request. The device sends exactly one TileResult on
	// the request's Result channel.
	Enqueue(*TileRequest)

	// Shade evaluates a bake chunk synchronously.
	Shade(*ShadeRequest) error

	// Shutdown and cleanup device. In-flight requests are allowed to
	// complete.
	Close()
}

// Info describes an enumerable device.
type Info struct {
	ID      string
	Name    string
	Type    Type
	Threads int
}

// Enumerate the available compute devices.
func Enumerate() []Info {
	return []Info{
		{
			ID:      "cpu-0",
			Name:    fmt.Sprintf("CPU (%d threads)", runtime.NumCPU()),
			Type:    TypeCPU,
			Threads: runtime.NumCPU(),
		},
	}
}

// Open a device from its enumeration entry.
func Open(info Info) (Device, error) {
	switch info.Type {
	case TypeCPU:
		return newCPUDevice(info), nil
	}
	return nil, fmt.Errorf("device: unsupported device type %q", info.Type)
}

// FindInfo returns the enumeration entry matching id, or the first device
// when id is empty.
func FindInfo(id string) (Info, error) {
	infos := Enumerate()
	if id == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.ID == id {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("device: no device with id %q", id)
}
