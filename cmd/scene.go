package cmd

import (
	"github.com/lumenrender/lumen/scene"
	"github.com/lumenrender/lumen/types"
)

// Build the built-in demo scene used by the render and bake commands.
// Scene construction from host documents is a collaborator concern; the
// CLI only needs something deterministic to drive the session with.
func demoScene() *scene.Scene {
	sc := scene.New("demo")
	sc.AddObject(scene.Object{
		Name:   "floor",
		Center: types.XYZ(0, -100.5, 0),
		Radius: 100,
		Color:  types.XYZ(0.7, 0.7, 0.7),
	})
	sc.AddObject(scene.Object{
		Name:   "ball",
		Center: types.XYZ(0, 0, 0),
		Radius: 0.5,
		Color:  types.XYZ(0.8, 0.3, 0.2),
	})
	sc.AddObject(scene.Object{
		Name:     "lamp",
		Center:   types.XYZ(-1.2, 0.2, -0.5),
		Radius:   0.4,
		Color:    types.XYZ(0.2, 0.2, 0.2),
		Emission: types.XYZ(2, 2, 1.8),
	})
	sc.Reset()
	return sc
}
