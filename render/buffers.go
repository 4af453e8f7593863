package render

import (
	"github.com/lumenrender/lumen/device"
)

// BufferParams describes the rectangular region being rendered and the
// requested output passes.
type BufferParams struct {
	// Offset of the region within the full frame.
	FullX, FullY int

	// Region dimensions.
	Width, Height int

	// Requested output passes, deduplicated by type.
	Passes []Pass
}

// NewBufferParams builds buffer parameters for the given region and pass
// types. Duplicate and PassNone entries are dropped.
func NewBufferParams(fullX, fullY, width, height int, passTypes ...PassType) BufferParams {
	p := BufferParams{
		FullX:  fullX,
		FullY:  fullY,
		Width:  width,
		Height: height,
	}
	for _, t := range passTypes {
		p.Passes = AddPass(p.Passes, t)
	}
	return p
}

// PixelStride returns the number of floats stored per pixel.
func (p BufferParams) PixelStride() int {
	stride := 0
	for _, pass := range p.Passes {
		stride += pass.Components
	}
	return stride
}

// PassOffset returns the float offset of the pass within the pixel stride.
func (p BufferParams) PassOffset(t PassType) (offset int, ok bool) {
	for _, pass := range p.Passes {
		if pass.Type == t {
			return offset, true
		}
		offset += pass.Components
	}
	return 0, false
}

// Modified reports whether the two parameter sets describe structurally
// different buffers.
func (p BufferParams) Modified(other BufferParams) bool {
	if p.FullX != other.FullX || p.FullY != other.FullY ||
		p.Width != other.Width || p.Height != other.Height ||
		len(p.Passes) != len(other.Passes) {
		return true
	}
	for i := range p.Passes {
		if p.Passes[i] != other.Passes[i] {
			return true
		}
	}
	return false
}

// passDescs maps the pass list to the device-level slot descriptors.
func (p BufferParams) passDescs() []device.PassDesc {
	descs := make([]device.PassDesc, 0, len(p.Passes))
	offset := 0
	for _, pass := range p.Passes {
		descs = append(descs, device.PassDesc{
			Kind:       pass.Type.kind(),
			Offset:     offset,
			Components: pass.Components,
		})
		offset += pass.Components
	}
	return descs
}

// RenderBuffers owns the accumulated sample data for one frame region: a
// device-resident accumulation buffer plus a host-side mirror filled by
// CopyFromDevice. Extraction never mutates accumulated state.
type RenderBuffers struct {
	Params BufferParams

	dev      device.Device
	buf      *device.Buffer
	host     []float32
	haveData bool
}

// NewRenderBuffers creates an empty accumulator owned by the given device.
func NewRenderBuffers(dev device.Device) *RenderBuffers {
	return &RenderBuffers{dev: dev}
}

// Reset sizes the accumulator from params. With persistent=true and an
// unmodified geometry the device buffer and its contents are kept so a
// raised sample budget can continue from existing work; otherwise a fresh
// zeroed buffer is allocated.
func (b *RenderBuffers) Reset(params BufferParams, persistent bool) error {
	elements := params.Width * params.Height * params.PixelStride()

	if persistent && b.buf != nil && !b.buf.Freed() && !b.Params.Modified(params) {
		b.Params = params
		return nil
	}

	if b.buf != nil {
		b.buf.Free()
		b.buf = nil
	}

	b.Params = params
	b.haveData = false
	b.host = make([]float32, elements)

	if elements == 0 {
		return nil
	}

	buf, err := b.dev.Alloc("render buffers", elements)
	if err != nil {
		return err
	}
	b.buf = buf
	return nil
}

// Buffer returns the device-resident accumulation buffer.
func (b *RenderBuffers) Buffer() *device.Buffer {
	return b.buf
}

// CopyFromDevice refreshes the host mirror. It returns false when the
// device allocation is gone or the copy cannot complete; the caller
// retries on a later cycle instead of treating this as fatal.
func (b *RenderBuffers) CopyFromDevice() bool {
	if b.buf == nil {
		return false
	}
	if !b.buf.Read(b.host) {
		return false
	}
	b.haveData = true
	return true
}

// GetPassRect extracts a pass over the whole buffer rectangle into dst,
// normalizing by the accumulated sample count. Exposure is applied to HDR
// color passes only; data passes are divided by sample count and ID passes
// are copied raw. Returns false if the pass was never requested, the
// components mismatch, or no device data has been read back yet — the
// caller zero-fills in that case.
func (b *RenderBuffers) GetPassRect(t PassType, exposure float32, sample, components int, dst []float32) bool {
	return b.GetPassRegion(t, exposure, sample, components, 0, 0, b.Params.Width, b.Params.Height, dst)
}

// GetPassRegion extracts a pass over a sub-rectangle of the buffer. dst
// holds w*h*components floats.
func (b *RenderBuffers) GetPassRegion(t PassType, exposure float32, sample, components, x, y, w, h int, dst []float32) bool {
	offset, ok := b.Params.PassOffset(t)
	if !ok || !b.haveData {
		return false
	}
	if components != t.Channels() || len(dst) < w*h*components {
		return false
	}

	mode := t.mode()
	if mode != modeRaw && sample <= 0 {
		return false
	}

	var scale, alphaScale float32
	switch mode {
	case modeRaw:
		scale = 1
		alphaScale = 1
	case modeData:
		scale = 1 / float32(sample)
		alphaScale = scale
	case modeColor:
		scale = exposure / float32(sample)
		alphaScale = 1 / float32(sample)
	}

	stride := b.Params.PixelStride()
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			src := ((y+row)*b.Params.Width + (x + col)) * stride
			dstIdx := (row*w + col) * components
			for c := 0; c < components; c++ {
				v := b.host[src+offset+c]
				if c == 3 {
					dst[dstIdx+c] = v * alphaScale
				} else {
					dst[dstIdx+c] = v * scale
				}
			}
		}
	}
	return true
}

// Free releases the device-resident allocation while keeping host-side
// bookkeeping. Readback fails afterwards until the next Reset.
func (b *RenderBuffers) Free() {
	if b.buf != nil {
		b.buf.Free()
	}
}
