package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/bitbang"
	"github.com/mklimuk/weatherstation/cmd/weather/console"
	"github.com/mklimuk/weatherstation/config"
	"github.com/mklimuk/weatherstation/environment"
)

var probeCmd = cli.Command{
	Name:      "probe",
	Usage:     "read raw registers of a sensor",
	ArgsUsage: "[register]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "sensor",
			Aliases: []string{"s"},
			Usage:   "mpl3115a2 or hdc1050; prompted when missing",
		},
		&cli.IntFlag{
			Name:    "length",
			Aliases: []string{"n"},
			Value:   1,
			Usage:   "number of bytes to read",
		},
	},
	Action: func(c *cli.Context) error {
		name := c.String("sensor")
		if name == "" {
			var err error
			name, err = console.Prompt("sensor", environment.MPL3115A2Device.String(), environment.HDC1050Device.String())
			if err != nil {
				return console.Exit(2, "prompt error: %s", console.Red(err))
			}
		}
		device, err := environment.ParseDevice(name)
		if err != nil {
			return console.Exit(2, "%s", console.Red(err))
		}
		regArg := c.Args().First()
		if regArg == "" {
			regArg, err = console.Prompt("register (hex)")
			if err != nil {
				return console.Exit(2, "prompt error: %s", console.Red(err))
			}
		}
		reg, err := parseRegister(regArg)
		if err != nil {
			return console.Exit(2, "%s", console.Red(err))
		}
		length := c.Int("length")
		if length < 1 || length > 32 {
			return console.Exit(2, "length must be between 1 and 32")
		}
		return withTransport(c, func(ctx context.Context, cfg config.Config, tr weatherstation.Transport) error {
			data, err := probe(ctx, tr, cfg.ChannelOpts(), device, reg, length)
			if err != nil {
				return console.Exit(1, "probe error: %s", console.Red(err))
			}
			console.PInfof(console.PictoPin, "%s register %#02x: %s", device, reg, console.White(hex.EncodeToString(data)))
			return nil
		})
	},
}

func parseRegister(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		v, err = strconv.ParseUint(s, 16, 8)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid register %q", s)
	}
	return byte(v), nil
}

// probe reads length bytes starting at reg. The MPL3115A2 is read with a
// combined transaction, the HDC1050 through its pointer register.
func probe(ctx context.Context, tr weatherstation.Transport, opts []bitbang.ChannelOpt, device environment.Device, reg byte, length int) ([]byte, error) {
	var res bitbang.Result
	switch device {
	case environment.MPL3115A2Device:
		ch := bitbang.NewChannel(tr, opts...)
		if err := ch.Open(ctx); err != nil {
			return nil, err
		}
		defer ch.Close(ctx)
		res = ch.Read(ctx, environment.MPL3115A2Address, reg, length-1)
	case environment.HDC1050Device:
		ch := bitbang.NewPointerChannel(tr, opts...)
		if err := ch.Open(ctx); err != nil {
			return nil, err
		}
		defer ch.Close(ctx)
		if err := ch.SetPointer(ctx, environment.HDC1050Address, reg).Err(); err != nil {
			return nil, err
		}
		res = ch.ReadAfterPointer(ctx, environment.HDC1050Address, length)
	default:
		return nil, fmt.Errorf("unknown device %s", device)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Data, nil
}
