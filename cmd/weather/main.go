package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/weatherstation/cmd/weather/console"
	"github.com/mklimuk/weatherstation/config"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := newApp()
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			console.Errorf("%v", err)
			return exerr.ExitCode()
		}
		log.Printf("unexpected error: %v", err)
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "weather"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "weather station sensor readout"
	// exit codes are reported by run
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and bus program dumps",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"WEATHER_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "transport",
			Aliases: []string{"t"},
			Usage:   "bus transport: " + strings.Join(config.Transports, ", "),
		},
		&cli.UintFlag{
			Name:  "sda",
			Usage: "SDA pin of the bit-banged bus",
		},
		&cli.UintFlag{
			Name:  "scl",
			Usage: "SCL pin of the bit-banged bus",
		},
		&cli.StringFlag{
			Name:  "pigpiod",
			Usage: "pigpiod daemon address",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&measureCmd,
		&pressureCmd,
		&altitudeCmd,
		&temperatureCmd,
		&humidityCmd,
		&identifyCmd,
		&probeCmd,
		&mcp2221Cmd,
	}
	return app
}

// loadConfig reads the configuration file and applies global flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("transport") {
		cfg.Transport = c.String("transport")
	}
	if c.IsSet("sda") {
		cfg.Bus.SDA = uint8(c.Uint("sda"))
	}
	if c.IsSet("scl") {
		cfg.Bus.SCL = uint8(c.Uint("scl"))
	}
	if c.IsSet("pigpiod") {
		cfg.Pigpiod.Address = c.String("pigpiod")
	}
	return cfg, cfg.Validate()
}
