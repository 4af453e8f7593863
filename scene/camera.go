package scene

import (
	"math"

	"github.com/lumenrender/lumen/types"
)

// Camera movement directions.
type CameraDirection int

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
)

// The camera model used by the render session. The session treats the
// camera as read-only; mutation happens on the host side while holding the
// scene lock.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Vertical field of view in degrees.
	FOV float32

	// Set after any mutation so the next synchronization point can
	// trigger a session reset.
	needUpdate bool
}

// Create a camera with a sensible default orientation.
func NewCamera(fov float32) *Camera {
	return &Camera{
		Position: types.XYZ(0, 1, 3),
		LookAt:   types.XYZ(0, 0, 0),
		Up:       types.XYZ(0, 1, 0),
		FOV:      fov,
	}
}

// Move camera towards direction.
func (c *Camera) Move(dir CameraDirection, speed float32) {
	fwd := c.LookAt.Sub(c.Position).Normalize()
	right := fwd.Cross(c.Up).Normalize()

	var delta types.Vec3
	switch dir {
	case Forward:
		delta = fwd.Mul(speed)
	case Backward:
		delta = fwd.Mul(-speed)
	case Left:
		delta = right.Mul(-speed)
	case Right:
		delta = right.Mul(speed)
	}

	c.Position = c.Position.Add(delta)
	c.LookAt = c.LookAt.Add(delta)
	c.needUpdate = true
}

// NeedUpdate returns true if the camera was mutated since the last Update.
func (c *Camera) NeedUpdate() bool {
	return c.needUpdate
}

// Update clears the camera dirty flag.
func (c *Camera) Update() {
	c.needUpdate = false
}

// Basis returns the orthonormal camera basis vectors.
func (c *Camera) Basis() (fwd, right, up types.Vec3) {
	fwd = c.LookAt.Sub(c.Position).Normalize()
	right = fwd.Cross(c.Up).Normalize()
	up = right.Cross(fwd)
	return fwd, right, up
}

// TanHalfFOV returns tan(fov/2) used to scale image-plane coordinates.
func (c *Camera) TanHalfFOV() float32 {
	return float32(math.Tan(float64(c.FOV) * math.Pi / 360.0))
}
