// Package scene defines the scene description shared between a render
// session and an external synchronization actor. The session never owns the
// scene; it reads it between tile-pass boundaries while the synchronizer
// mutates it under the scene lock.
package scene

import (
	"sync"

	"github.com/lumenrender/lumen/types"
)

// An object inside the scene. Objects are analytic spheres; the session
// only cares that the device kernel can intersect them deterministically.
type Object struct {
	Name     string
	Center   types.Vec3
	Radius   float32
	Color    types.Vec3
	Emission types.Vec3
}

// Scene aggregates everything the device kernels read while tracing. All
// mutation must happen while holding the scene lock; readers acquire it for
// the duration of a tile pass.
//
// The lock intentionally exposes TryLock so that an interactive
// synchronizer can defer its update instead of blocking the UI thread when
// the session is mid-pass.
type Scene struct {
	sync.Mutex

	Name    string
	Camera  *Camera
	Objects []Object

	// Background gradient colors (top, bottom).
	BackgroundTop    types.Vec3
	BackgroundBottom types.Vec3

	needReset bool
}

// Create an empty scene with a default camera.
func New(name string) *Scene {
	return &Scene{
		Name:             name,
		Camera:           NewCamera(45.0),
		BackgroundTop:    types.XYZ(0.5, 0.7, 1.0),
		BackgroundBottom: types.XYZ(1.0, 1.0, 1.0),
	}
}

// AddObject appends an object. Callers must hold the scene lock if a
// session is attached.
func (sc *Scene) AddObject(obj Object) {
	sc.Objects = append(sc.Objects, obj)
	sc.needReset = true
}

// TagReset marks the scene as requiring a session reset. Callers must hold
// the scene lock.
func (sc *Scene) TagReset() {
	sc.needReset = true
}

// NeedReset reports whether the scene changed in a way that invalidates
// accumulated samples. Checked by the host at tile-pass boundaries, never
// mid-tile.
func (sc *Scene) NeedReset() bool {
	return sc.needReset || (sc.Camera != nil && sc.Camera.NeedUpdate())
}

// Reset clears the scene dirty flags after the session re-established its
// buffers. Callers must hold the scene lock.
func (sc *Scene) Reset() {
	sc.needReset = false
	if sc.Camera != nil {
		sc.Camera.Update()
	}
}

// ObjectIndex returns the index of the named object, or -1.
func (sc *Scene) ObjectIndex(name string) int {
	for i := range sc.Objects {
		if sc.Objects[i].Name == name {
			return i
		}
	}
	return -1
}
