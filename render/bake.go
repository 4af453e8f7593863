package render

import (
	"fmt"
	"strings"

	"github.com/lumenrender/lumen/device"
)

// Shader evaluation selector for the bake workflow.
type ShaderEvalType int

const (
	EvalNormal ShaderEvalType = iota
	EvalUV
	EvalDiffuseColor
	EvalEmission
	EvalAO
	EvalShadow
	EvalCombined
)

var evalNames = map[ShaderEvalType]string{
	EvalNormal:       "normal",
	EvalUV:           "uv",
	EvalDiffuseColor: "diffuse-color",
	EvalEmission:     "emission",
	EvalAO:           "ao",
	EvalShadow:       "shadow",
	EvalCombined:     "combined",
}

func (t ShaderEvalType) String() string {
	if name, exists := evalNames[t]; exists {
		return name
	}
	return "unknown"
}

// ParseShaderEvalType maps a name to an eval type; unrecognized names fall
// back to combined baking.
func ParseShaderEvalType(name string) ShaderEvalType {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range evalNames {
		if n == name {
			return t
		}
	}
	return EvalCombined
}

func (t ShaderEvalType) deviceEval() device.ShaderEval {
	switch t {
	case EvalNormal:
		return device.EvalNormal
	case EvalUV:
		return device.EvalUV
	case EvalDiffuseColor:
		return device.EvalDiffuseColor
	case EvalEmission:
		return device.EvalEmission
	case EvalAO:
		return device.EvalAO
	case EvalShadow:
		return device.EvalShadow
	}
	return device.EvalCombined
}

// Chunk size for object-space bake dispatch.
const bakeChunkSize = 4096

// BakeData maps object-surface pixels to shading sample inputs for one
// bake task.
type BakeData struct {
	object    int
	triOffset int
	points    []device.BakePoint
}

// NewBakeData allocates a bake task for numPixels object-surface pixels,
// all initially null.
func NewBakeData(object, triOffset, numPixels int) *BakeData {
	data := &BakeData{
		object:    object,
		triOffset: triOffset,
		points:    make([]device.BakePoint, numPixels),
	}
	for i := range data.points {
		data.points[i].Object = -1
	}
	return data
}

// Set fills pixel i with its primitive and surface parameterization.
func (b *BakeData) Set(i, prim int, u, v, dudx, dudy, dvdx, dvdy float32) {
	b.points[i] = device.BakePoint{
		Object: b.object,
		Prim:   b.triOffset + prim,
		U:      u,
		V:      v,
		DuDx:   dudx,
		DuDy:   dudy,
		DvDx:   dvdx,
		DvDy:   dvdy,
	}
}

// SetNull marks pixel i as not belonging to the baked object; its result
// stays zero-filled.
func (b *BakeData) SetNull(i int) {
	b.points[i] = device.BakePoint{Object: -1}
}

// Len returns the pixel count of the bake task.
func (b *BakeData) Len() int {
	return len(b.points)
}

// Object returns the baked object index.
func (b *BakeData) Object() int {
	return b.object
}

// Bake runs the one-shot object-space workflow: pixels are shaded in flat
// chunks through the device backend, bypassing the screen-space tile
// manager entirely, and averaged results are written into the
// caller-provided buffer (4 floats per pixel). The call is synchronous;
// cancellation via Progress stops between chunks, leaving the completed
// chunks averaged in place and the rest zero-filled.
func (s *Session) Bake(eval ShaderEvalType, data *BakeData, samples int, result []float32) error {
	if len(result) != data.Len()*4 {
		return ErrResultSize
	}

	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return ErrSessionDestroyed
	}
	if s.state == StateRunning || s.state == StatePaused {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	dev := s.devices[0]
	s.mu.Unlock()

	if samples <= 0 {
		samples = 1
	}

	parts := (data.Len() + bakeChunkSize - 1) / bakeChunkSize
	s.logger.Noticef("baking %s for object %d: %d pixels in %d part(s), %d samples",
		eval, data.object, data.Len(), parts, samples)

	s.Progress.Reset()
	for part := 0; part < parts; part++ {
		if s.Progress.Cancelled() {
			s.logger.Noticef("bake cancelled: %s", s.Progress.CancelReason())
			averageBakeResult(result[:min(part*bakeChunkSize, data.Len())*4], samples)
			return nil
		}

		lo := part * bakeChunkSize
		hi := min(lo+bakeChunkSize, data.Len())

		req := &device.ShadeRequest{
			Scene:       s.scene,
			Eval:        eval.deviceEval(),
			Points:      data.points[lo:hi],
			Offset:      lo,
			SampleStart: 0,
			NumSamples:  samples,
			Seed:        uint32(data.object)*0x85ebca6b + 1,
			Output:      result[lo*4 : hi*4],
		}
		if err := dev.Shade(req); err != nil {
			s.Progress.SetError(fmt.Errorf("bake part %d: %w", part, err))
			s.Progress.SetCancel("device error")
			return err
		}

		s.Progress.AddSamples(samples)
		s.emitBakeStatus(part+1, parts, samples)
	}

	averageBakeResult(result, samples)
	return nil
}

// averageBakeResult divides accumulated sample sums by the sample count.
// On cancellation only the completed prefix is passed in, so partial
// results carry the same normalization as a full bake.
func averageBakeResult(result []float32, samples int) {
	inv := 1 / float32(samples)
	for i := range result {
		result[i] *= inv
	}
}

func (s *Session) emitBakeStatus(part, parts, samples int) {
	s.mu.Lock()
	listener := s.statusListener
	s.mu.Unlock()
	if listener == nil {
		return
	}

	fraction := float64(s.Progress.Sample()) / float64(parts*samples)
	if fraction > 1 {
		fraction = 1
	}
	listener.UpdateStatus("Baking", fmt.Sprintf("Part %d/%d", part, parts), fraction)
}
