package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/cmd/weather/console"
	"github.com/mklimuk/weatherstation/config"
	"github.com/mklimuk/weatherstation/environment"
	"github.com/mklimuk/weatherstation/measure"
	"github.com/mklimuk/weatherstation/snsctx"
)

// withTransport opens the configured transport, runs fn and releases it.
func withTransport(c *cli.Context, fn func(ctx context.Context, cfg config.Config, tr weatherstation.Transport) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return console.Exit(2, "configuration error: %s", console.Red(err))
	}
	tr, release, err := openTransport(cfg)
	if err != nil {
		return console.Exit(1, "transport initialization error: %s", console.Red(err))
	}
	defer func() {
		if err := release(); err != nil {
			slog.Warn("could not release transport", "transport", cfg.Transport, "error", err)
		}
	}()
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	ctx = snsctx.SetVerbose(ctx, c.Bool("verbose"))
	return fn(ctx, cfg, tr)
}

// withStation prepares a station on the configured transport and runs fn.
func withStation(c *cli.Context, fn func(ctx context.Context, st *measure.Station) error) error {
	return withTransport(c, func(ctx context.Context, cfg config.Config, tr weatherstation.Transport) error {
		st := measure.NewStation(tr,
			measure.WithRetryPolicy(cfg.Retry),
			measure.WithChannel(cfg.ChannelOpts()...),
		)
		return fn(ctx, st)
	})
}

func formatReading(q environment.Quantity, v float64) string {
	return fmt.Sprintf("%.1f %s", v, q.Unit())
}

func printReading(picto string, q environment.Quantity, v float64) {
	console.PInfof(picto, "%s: %s", q, console.White(formatReading(q, v)))
}

func readingCmd(name string, q environment.Quantity, picto string, read func(*measure.Station, context.Context) (float64, error)) cli.Command {
	return cli.Command{
		Name:  name,
		Usage: fmt.Sprintf("read %s in %s", q, q.Unit()),
		Action: func(c *cli.Context) error {
			return withStation(c, func(ctx context.Context, st *measure.Station) error {
				v, err := read(st, ctx)
				if err != nil {
					return console.Exit(1, "error getting %s read: %s", q, console.Red(err))
				}
				printReading(picto, q, v)
				return nil
			})
		},
	}
}

var pressureCmd = readingCmd("pressure", environment.Pressure, console.PictoPressure, (*measure.Station).Pressure)

var altitudeCmd = readingCmd("altitude", environment.Altitude, console.PictoMountain, (*measure.Station).Altitude)

var humidityCmd = readingCmd("humidity", environment.Humidity, console.PictoHumidity, (*measure.Station).Humidity)

var temperatureCmd = cli.Command{
	Name:    "temperature",
	Aliases: []string{"temp"},
	Usage:   "read temperature in degC from one of the sensors",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "sensor",
			Aliases: []string{"s"},
			Value:   environment.HDC1050Device.String(),
			Usage:   "mpl3115a2 or hdc1050",
		},
	},
	Action: func(c *cli.Context) error {
		device, err := environment.ParseDevice(c.String("sensor"))
		if err != nil {
			return console.Exit(2, "%s", console.Red(err))
		}
		return withStation(c, func(ctx context.Context, st *measure.Station) error {
			v, err := st.Measure(ctx, device, environment.Temperature)
			if err != nil {
				return console.Exit(1, "error getting temperature read: %s", console.Red(err))
			}
			printReading(console.PictoThermometer, environment.Temperature, v)
			return nil
		})
	},
}

var measureCmd = cli.Command{
	Name:  "measure",
	Usage: "read a sensor family or take a full snapshot",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "measure",
			Aliases: []string{"m"},
			Value:   "all",
			Usage:   "alt (pressure sensor), hum (humidity sensor) or all",
		},
		&cli.BoolFlag{
			Name:  "yaml",
			Usage: "print the snapshot as YAML",
		},
	},
	Action: func(c *cli.Context) error {
		family := c.String("measure")
		switch family {
		case "alt", "hum", "all":
		default:
			return console.Exit(2, "unknown measurement %q, use alt, hum or all", family)
		}
		return withStation(c, func(ctx context.Context, st *measure.Station) error {
			snap, err := takeFamily(ctx, st, family)
			if err != nil {
				return console.Exit(1, "measurement error: %s", console.Red(err))
			}
			if c.Bool("yaml") {
				enc := yaml.NewEncoder(os.Stdout)
				defer enc.Close()
				err = enc.Encode(snap)
				if err != nil {
					return console.Exit(1, "encoding error: %s", console.Red(err))
				}
				return nil
			}
			printFamily(snap, family)
			return nil
		})
	},
}

func takeFamily(ctx context.Context, st *measure.Station, family string) (measure.Snapshot, error) {
	var (
		snap measure.Snapshot
		err  error
	)
	switch family {
	case "alt":
		snap.Pressure, err = st.Pressure(ctx)
		if err != nil {
			return snap, err
		}
		snap.PressureTemperature, err = st.PressureTemperature(ctx)
		return snap, err
	case "hum":
		snap.HumidityTemperature, err = st.HumidityTemperature(ctx)
		if err != nil {
			return snap, err
		}
		snap.Humidity, err = st.Humidity(ctx)
		return snap, err
	default:
		return st.Snapshot(ctx)
	}
}

func printFamily(snap measure.Snapshot, family string) {
	if family != "hum" {
		printReading(console.PictoPressure, environment.Pressure, snap.Pressure)
		if family == "all" {
			printReading(console.PictoMountain, environment.Altitude, snap.Altitude)
		}
		printReading(console.PictoThermometer, environment.Temperature, snap.PressureTemperature)
	}
	if family != "alt" {
		printReading(console.PictoThermometer, environment.Temperature, snap.HumidityTemperature)
		printReading(console.PictoHumidity, environment.Humidity, snap.Humidity)
	}
}
