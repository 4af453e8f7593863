package device

import (
	"math"

	"github.com/lumenrender/lumen/scene"
	"github.com/lumenrender/lumen/types"
)

// Depth value written for rays that leave the scene.
const missDepth float32 = 1e10

// Mist falloff coefficient.
const mistDensity = 0.1

// Fixed key light direction used by the procedural shading model.
var keyLightDir = types.XYZ(1, 1, 1).Normalize()

// Integer hash used for stratified jitter. Deterministic for a given
// (pixel, sample, seed) triple so accumulation is independent of how
// sample ranges are batched across requests.
func hash3(a, b, c uint32) uint32 {
	h := a*0x9e3779b1 ^ b*0x85ebca6b ^ c*0xc2b2ae35
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}

func hashFloat(a, b, c uint32) float32 {
	return float32(hash3(a, b, c)>>8) * (1.0 / 16777216.0)
}

type hit struct {
	ok     bool
	t      float32
	object int
	point  types.Vec3
	normal types.Vec3
	u, v   float32
}

// Intersect the analytic scene with a ray.
func intersect(sc *scene.Scene, origin, dir types.Vec3) hit {
	best := hit{t: missDepth}
	for i := range sc.Objects {
		obj := &sc.Objects[i]
		oc := origin.Sub(obj.Center)
		b := oc.Dot(dir)
		c := oc.Dot(oc) - obj.Radius*obj.Radius
		disc := b*b - c
		if disc <= 0 {
			continue
		}
		t := -b - float32(math.Sqrt(float64(disc)))
		if t <= 1e-4 || t >= best.t {
			continue
		}
		p := origin.Add(dir.Mul(t))
		n := p.Sub(obj.Center).Normalize()
		best = hit{
			ok:     true,
			t:      t,
			object: i,
			point:  p,
			normal: n,
			u:      0.5 + float32(math.Atan2(float64(n[2]), float64(n[0])))/(2*math.Pi),
			v:      0.5 - float32(math.Asin(float64(n[1])))/math.Pi,
		}
	}
	return best
}

func background(sc *scene.Scene, dir types.Vec3) types.Vec3 {
	t := 0.5 * (dir[1] + 1.0)
	return sc.BackgroundBottom.Mul(1 - t).Add(sc.BackgroundTop.Mul(t))
}

// Direct lighting term for a hit point.
func directLight(sc *scene.Scene, h hit) types.Vec3 {
	obj := &sc.Objects[h.object]
	ndotl := h.normal.Dot(keyLightDir)
	if ndotl < 0 {
		ndotl = 0
	}
	return obj.Color.Mul(0.2 + 0.8*ndotl).Add(obj.Emission)
}

// Render one tile request into the device buffer. Accumulation is additive
// per sample; KindObjectID/KindMaterialID slots are written raw instead.
func renderTile(req *TileRequest) error {
	if req.Scene == nil {
		return ErrNoScene
	}

	sc := req.Scene
	cam := sc.Camera
	fwd, right, up := cam.Basis()
	tanFOV := cam.TanHalfFOV()
	aspect := float32(req.FrameW) / float32(req.FrameH)

	// One locked buffer window per tile row; host readback interleaves at
	// row granularity.
	for y := req.Y; y < req.Y+req.H; y++ {
		ok := req.Buffer.update(func(pixels []float32) {
			for x := req.X; x < req.X+req.W; x++ {
				base := (y*req.FrameW + x) * req.PixelStride
				px := uint32(req.FullX + x)
				py := uint32(req.FullY + y)

				for s := 0; s < req.NumSamples; s++ {
					sample := uint32(req.SampleStart + s)
					jx := hashFloat(px, py, sample^req.Seed)
					jy := hashFloat(py, px, sample^req.Seed^0x5bd1e995)

					// Primary ray through the jittered pixel center.
					u := (2.0*(float32(x)+jx)/float32(req.FrameW) - 1.0) * tanFOV * aspect
					v := (1.0 - 2.0*(float32(y)+jy)/float32(req.FrameH)) * tanFOV
					dir := fwd.Add(right.Mul(u)).Add(up.Mul(v)).Normalize()

					h := intersect(sc, cam.Position, dir)
					shadePasses(req, pixels[base:base+req.PixelStride], sc, dir, h)
				}
			}
		})
		if !ok {
			return ErrBufferFreed
		}
	}

	return nil
}

func shadePasses(req *TileRequest, px []float32, sc *scene.Scene, dir types.Vec3, h hit) {
	for _, pass := range req.Passes {
		slot := px[pass.Offset : pass.Offset+pass.Components]
		switch pass.Kind {
		case KindCombined:
			var c types.Vec3
			if h.ok {
				c = directLight(sc, h)
			} else {
				c = background(sc, dir)
			}
			slot[0] += c[0]
			slot[1] += c[1]
			slot[2] += c[2]
			if pass.Components == 4 {
				slot[3] += 1
			}

		case KindDepth:
			slot[0] += h.t

		case KindValue:
			// Mist-style falloff.
			slot[0] += 1 - float32(math.Exp(float64(-h.t*mistDensity)))

		case KindNormal:
			if h.ok {
				slot[0] += h.normal[0]
				slot[1] += h.normal[1]
				slot[2] += h.normal[2]
			}

		case KindUV:
			if h.ok {
				slot[0] += h.u
				slot[1] += h.v
			}

		case KindObjectID, KindMaterialID:
			// ID passes hold the latest value, not an accumulation.
			if h.ok {
				slot[0] = float32(h.object + 1)
			} else {
				slot[0] = 0
			}

		case KindLight:
			if h.ok {
				c := directLight(sc, h)
				slot[0] += c[0] * 0.5
				slot[1] += c[1] * 0.5
				slot[2] += c[2] * 0.5
			}
			if pass.Components == 4 {
				slot[3] += 1
			}
		}
	}
}

// Evaluate a bake chunk. Output is accumulated in place, 4 floats per
// point; null points (Object < 0) stay zero-filled.
func shadePoints(req *ShadeRequest) {
	sc := req.Scene

	for i := range req.Points {
		pt := &req.Points[i]
		if pt.Object < 0 {
			continue
		}

		out := req.Output[i*4 : i*4+4]
		global := uint32(req.Offset + i)

		for s := 0; s < req.NumSamples; s++ {
			sample := uint32(req.SampleStart + s)
			ju := hashFloat(global, sample, req.Seed) * pt.DuDx
			jv := hashFloat(sample, global, req.Seed^0x27d4eb2f) * pt.DvDy
			u := pt.U + ju
			v := pt.V + jv

			var c types.Vec3
			switch req.Eval {
			case EvalNormal:
				theta := float64(u) * 2 * math.Pi
				phi := float64(v) * math.Pi
				c = types.XYZ(
					float32(math.Sin(phi)*math.Cos(theta)),
					float32(math.Cos(phi)),
					float32(math.Sin(phi)*math.Sin(theta)),
				)
			case EvalUV:
				c = types.XYZ(u, v, 0)
			case EvalDiffuseColor:
				c = objectColor(sc, pt.Object)
			case EvalEmission:
				c = objectEmission(sc, pt.Object)
			case EvalAO:
				ao := 0.5 + 0.5*hashFloat(global, sample, uint32(pt.Prim))
				c = types.XYZ(ao, ao, ao)
			case EvalShadow:
				sh := hashFloat(uint32(pt.Prim), sample, global)
				c = types.XYZ(sh, sh, sh)
			default:
				base := objectColor(sc, pt.Object)
				c = base.Mul(0.2 + 0.8*v)
			}

			out[0] += c[0]
			out[1] += c[1]
			out[2] += c[2]
			out[3] += 1
		}
	}
}

func objectColor(sc *scene.Scene, index int) types.Vec3 {
	if index < len(sc.Objects) {
		return sc.Objects[index].Color
	}
	return types.XYZ(0.8, 0.8, 0.8)
}

func objectEmission(sc *scene.Scene, index int) types.Vec3 {
	if index < len(sc.Objects) {
		return sc.Objects[index].Emission
	}
	return types.Vec3{}
}
