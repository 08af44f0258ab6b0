package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/weatherstation/adapter"
	"github.com/mklimuk/weatherstation/cmd/weather/console"
	"github.com/mklimuk/weatherstation/snsctx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB bridge",
	Subcommands: cli.Commands{
		&mcp2221LsCmd,
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var mcp2221LsCmd = cli.Command{
	Name:  "ls",
	Usage: "list attached adapters",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 8, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "INDEX\tPATH\tSERIAL\tMANUFACTURER\tPRODUCT\n")
		for i, dev := range adapter.Enumerate() {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, dev.Path, dev.Serial, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the I2C engine status",
	Action: func(c *cli.Context) error {
		return mcp2221Report(c, func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
			return a.Status(ctx)
		})
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a pending transfer and free the bus",
	Action: func(c *cli.Context) error {
		return mcp2221Report(c, func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
			return a.ReleaseBus(ctx)
		})
	},
}

func mcp2221Report(c *cli.Context, fn func(context.Context, *adapter.MCP2221) (*adapter.MCP2221Status, error)) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return console.Exit(2, "configuration error: %s", console.Red(err))
	}
	ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
	status, err := fn(ctx, adapter.NewMCP2221(mcp2221Opts(cfg.MCP2221)...))
	if err != nil {
		return console.Exit(1, "adapter communication error: %s", console.Red(err))
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	err = enc.Encode(status)
	if err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}
