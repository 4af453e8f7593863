package cmd

import (
	"bytes"
	"fmt"

	"github.com/lumenrender/lumen/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List available compute devices.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Id", "Name", "Type", "Threads"})
	for _, info := range device.Enumerate() {
		table.Append([]string{
			info.ID,
			info.Name,
			info.Type.String(),
			fmt.Sprintf("%d", info.Threads),
		})
	}
	table.Render()

	logger.Noticef("available devices\n%s", buf.String())
	return nil
}
