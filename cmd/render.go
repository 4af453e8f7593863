package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/lumenrender/lumen/device"
	"github.com/lumenrender/lumen/render"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Status listener bridging session progress to the CLI logger. The
// session already rate-limits updates, so every call is worth a line.
type statusLogger struct{}

func (statusLogger) UpdateStatus(status, substatus string, fraction float64) {
	logger.Infof("%5.1f%% | %s | %s", fraction*100, status, substatus)
}

// Render a still frame of the demo scene.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	params := render.SessionParams{
		DeviceID:          ctx.String("device"),
		Samples:           ctx.Int("spp"),
		TileSize:          ctx.Int("tile-size"),
		TileOrder:         render.ParseTileOrder(ctx.String("tile-order")),
		ProgressiveRefine: ctx.Bool("progressive"),
		Background:        true,
	}
	width := ctx.Int("width")
	height := ctx.Int("height")
	exposure := float32(ctx.Float64("exposure"))

	if width <= 0 || height <= 0 {
		return errors.New("frame dimensions must be positive")
	}

	passTypes := []render.PassType{render.PassCombined}
	for _, name := range ctx.StringSlice("pass") {
		if t := render.ParsePassType(name); t == render.PassNone {
			logger.Warningf("ignoring unrecognized pass %q", name)
		} else {
			passTypes = append(passTypes, t)
		}
	}

	info, err := device.FindInfo(params.DeviceID)
	if err != nil {
		return err
	}
	dev, err := device.Open(info)
	if err != nil {
		return err
	}
	defer dev.Close()

	sc := demoScene()
	session, err := render.NewSession([]device.Device{dev}, sc, params, render.SceneParams{})
	if err != nil {
		return err
	}
	defer session.Close()
	session.SetStatusListener(statusLogger{})

	bufferParams := render.NewBufferParams(0, 0, width, height, passTypes...)
	if err = session.Reset(bufferParams, params.Samples); err != nil {
		return err
	}

	if err = session.Start(); err != nil {
		return err
	}
	if err = session.Wait(); err != nil {
		return err
	}

	if !session.Buffers.CopyFromDevice() {
		return errors.New("could not read back render buffers")
	}

	pixels := make([]float32, width*height*4)
	if !session.Buffers.GetPassRect(render.PassCombined, exposure, params.Samples, 4, pixels) {
		return errors.New("combined pass missing from render buffers")
	}

	if err = writePNG(ctx.String("out"), pixels, width, height); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", ctx.String("out"))

	displaySessionStats(session.Stats())
	return nil
}

// Tonemap the combined pass and encode it as PNG.
func writePNG(path string, pixels []float32, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := (y*width + x) * 4
			img.SetRGBA(x, y, color.RGBA{
				R: toSRGB(pixels[base]),
				G: toSRGB(pixels[base+1]),
				B: toSRGB(pixels[base+2]),
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func toSRGB(v float32) uint8 {
	if v < 0 {
		v = 0
	}
	s := math.Pow(float64(v), 1/2.2)
	if s > 1 {
		s = 1
	}
	return uint8(s*254.0 + 0.5)
}

func displaySessionStats(stats render.SessionStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Device", "Tile batches", "Render time"})
	for _, stat := range stats.Devices {
		table.Append([]string{
			stat.ID,
			fmt.Sprintf("%d", stat.Tiles),
			fmt.Sprintf("%s", stat.RenderTime),
		})
	}
	table.SetFooter([]string{"", "TOTAL", fmt.Sprintf("%s", stats.TotalTime)})
	table.Render()

	logger.Noticef("session statistics\n%s", buf.String())
}
