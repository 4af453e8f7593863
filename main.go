package main

import (
	"os"

	"github.com/lumenrender/lumen/cmd"
	"github.com/lumenrender/lumen/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "lumen"
	app.Usage = "progressive render sessions over pluggable compute devices"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Render a single frame of the built-in demo scene through a progressive render session.`,
					Flags: []cli.Flag{
						cli.IntFlag{
							Name:  "width",
							Value: 512,
							Usage: "frame width",
						},
						cli.IntFlag{
							Name:  "height",
							Value: 512,
							Usage: "frame height",
						},
						cli.IntFlag{
							Name:  "spp",
							Value: 16,
							Usage: "samples per pixel",
						},
						cli.IntFlag{
							Name:  "tile-size",
							Value: 64,
							Usage: "tile edge length in pixels",
						},
						cli.StringFlag{
							Name:  "tile-order",
							Value: "default",
							Usage: "tile traversal order (default, center, bottom-to-top, hilbert)",
						},
						cli.BoolFlag{
							Name:  "progressive",
							Usage: "refine the whole frame progressively instead of draining tiles",
						},
						cli.StringSliceFlag{
							Name:  "pass",
							Usage: "additional output pass to accumulate (repeatable)",
						},
						cli.Float64Flag{
							Name:  "exposure",
							Value: 1.0,
							Usage: "exposure for HDR to LDR mapping",
						},
						cli.StringFlag{
							Name:  "device",
							Usage: "device id to render on (see list-devices)",
						},
						cli.StringFlag{
							Name:  "out",
							Value: "frame.png",
							Usage: "image output path",
						},
					},
					Action: cmd.RenderFrame,
				},
			},
		},
		{
			Name:        "bake",
			Usage:       "bake an object-space pass to a texture",
			Description: `Run the one-shot bake workflow for a demo scene object, mapping object-surface pixels to shading samples.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "object",
					Value: "ball",
					Usage: "scene object to bake",
				},
				cli.StringFlag{
					Name:  "type",
					Value: "combined",
					Usage: "shader evaluation type (normal, uv, diffuse-color, emission, ao, shadow, combined)",
				},
				cli.IntFlag{
					Name:  "size",
					Value: 256,
					Usage: "bake texture edge length",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 16,
					Usage: "samples per pixel",
				},
				cli.StringFlag{
					Name:  "device",
					Usage: "device id to bake on (see list-devices)",
				},
				cli.StringFlag{
					Name:  "out",
					Value: "bake.png",
					Usage: "image output path",
				},
			},
			Action: cmd.BakeObject,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("lumen").Errorf("%s", err)
		os.Exit(1)
	}
}
