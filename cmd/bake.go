package cmd

import (
	"errors"
	"fmt"

	"github.com/lumenrender/lumen/device"
	"github.com/lumenrender/lumen/render"
	"github.com/urfave/cli"
)

// Bake an object-space pass of the demo scene into a square texture.
func BakeObject(ctx *cli.Context) error {
	setupLogging(ctx)

	size := ctx.Int("size")
	samples := ctx.Int("spp")
	evalType := render.ParseShaderEvalType(ctx.String("type"))
	objectName := ctx.String("object")

	if size <= 0 {
		return errors.New("bake size must be positive")
	}

	info, err := device.FindInfo(ctx.String("device"))
	if err != nil {
		return err
	}
	dev, err := device.Open(info)
	if err != nil {
		return err
	}
	defer dev.Close()

	sc := demoScene()
	objectIndex := sc.ObjectIndex(objectName)
	if objectIndex < 0 {
		return fmt.Errorf("object %q not found in scene", objectName)
	}

	session, err := render.NewSession([]device.Device{dev}, sc, render.SessionParams{Background: true}, render.SceneParams{})
	if err != nil {
		return err
	}
	defer session.Close()
	session.SetStatusListener(statusLogger{})

	// Flat pixel mapping over the object's UV unit square.
	numPixels := size * size
	data := render.NewBakeData(objectIndex, 0, numPixels)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*size + x
			u := (float32(x) + 0.5) / float32(size)
			v := (float32(y) + 0.5) / float32(size)
			data.Set(i, i%64, u, v, 1/float32(size), 0, 0, 1/float32(size))
		}
	}

	result := make([]float32, numPixels*4)
	if err = session.Bake(evalType, data, samples, result); err != nil {
		return err
	}

	if err = writePNG(ctx.String("out"), result, size, size); err != nil {
		return err
	}
	logger.Noticef("wrote %s bake for %q to %s", evalType, objectName, ctx.String("out"))
	return nil
}
