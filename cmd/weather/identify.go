package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/cmd/weather/console"
	"github.com/mklimuk/weatherstation/config"
	"github.com/mklimuk/weatherstation/environment"
	"github.com/mklimuk/weatherstation/snsctx"
)

var identifyCmd = cli.Command{
	Name:  "identify",
	Usage: "check the identity registers of both sensors",
	Action: func(c *cli.Context) error {
		return withTransport(c, func(ctx context.Context, cfg config.Config, tr weatherstation.Transport) error {
			failed := 0
			opt := environment.WithChannel(cfg.ChannelOpts()...)
			if err := identifyMPL(ctx, tr, opt); err != nil {
				console.Errorf("%s: %s", environment.MPL3115A2Device, err)
				failed++
			}
			if err := identifyHDC(ctx, tr, opt); err != nil {
				console.Errorf("%s: %s", environment.HDC1050Device, err)
				failed++
			}
			if failed > 0 {
				return console.Exit(1, "%d sensor(s) not identified", failed)
			}
			return nil
		})
	},
}

func identifyMPL(ctx context.Context, tr weatherstation.Transport, opts ...environment.Opt) (err error) {
	ctx = snsctx.WithSensor(ctx, environment.MPL3115A2Device.String())
	s, err := environment.NewMPL3115A2(ctx, tr, opts...)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close(ctx)) }()
	id, err := s.Identify(ctx)
	if err != nil {
		return err
	}
	return reportIdentity(environment.MPL3115A2Device, environment.MPL3115A2Address, uint16(id), uint16(environment.MPL3115A2WhoAmI))
}

func identifyHDC(ctx context.Context, tr weatherstation.Transport, opts ...environment.Opt) (err error) {
	ctx = snsctx.WithSensor(ctx, environment.HDC1050Device.String())
	s, err := environment.NewHDC1050(ctx, tr, opts...)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close(ctx)) }()
	id, err := s.Identify(ctx)
	if err != nil {
		return err
	}
	return reportIdentity(environment.HDC1050Device, environment.HDC1050Address, id, environment.HDC1050DeviceID)
}

func reportIdentity(device environment.Device, address byte, id, expected uint16) error {
	if id != expected {
		return fmt.Errorf("unexpected identity %#04x at %#x, expected %#04x", id, address, expected)
	}
	console.PInfof(console.PictoPin, "%s at %#x: identity %s", device, address, console.Green(fmt.Sprintf("%#04x", id)))
	return nil
}
