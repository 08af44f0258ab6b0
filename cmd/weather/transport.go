package main

import (
	"fmt"
	"log/slog"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/adapter"
	"github.com/mklimuk/weatherstation/bitbang"
	"github.com/mklimuk/weatherstation/config"
	"github.com/mklimuk/weatherstation/gobot"
	"github.com/mklimuk/weatherstation/i2c"
	"github.com/mklimuk/weatherstation/pigpio"
	"github.com/mklimuk/weatherstation/simulator"
)

// openTransport builds the configured transport and the function releasing
// its host resources.
func openTransport(cfg config.Config) (weatherstation.Transport, func() error, error) {
	switch cfg.Transport {
	case config.TransportPigpiod:
		c := pigpio.NewClient(cfg.Pigpiod.Address, pigpio.WithTimeout(cfg.Pigpiod.Timeout))
		return c, c.Disconnect, nil
	case config.TransportPeriph:
		bus, err := i2c.NewGenericBus(cfg.Periph.Bus)
		if err != nil {
			return nil, nil, err
		}
		err = bus.SetSpeed(cfg.Bus.Baud)
		if err != nil {
			slog.Warn("keeping default bus speed", "error", err)
		}
		return bitbang.NewBusTransport(bus), bus.Close, nil
	case config.TransportGobot:
		var opts []gobot.BusOpt
		if cfg.Gobot.Bus >= 0 {
			opts = append(opts, gobot.WithBus(cfg.Gobot.Bus))
		}
		bus, finalize, err := gobot.Open(cfg.Gobot.Board, opts...)
		if err != nil {
			return nil, nil, err
		}
		return bitbang.NewBusTransport(bus), finalize, nil
	case config.TransportMCP2221:
		a := adapter.NewMCP2221(mcp2221Opts(cfg.MCP2221)...)
		return bitbang.NewBusTransport(a), func() error { return nil }, nil
	case config.TransportSim:
		return bitbang.NewBusTransport(simulatedBus(cfg.Simulator)), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func simulatedBus(cfg config.Simulator) *simulator.Bus {
	mpl := simulator.NewMPL3115A2(cfg.Pressure, cfg.Altitude, cfg.Temperature)
	mpl.ConversionPolls = cfg.ConversionPolls
	hdc := simulator.NewHDC1050(cfg.Temperature, cfg.Humidity)
	hdc.ConversionPolls = cfg.ConversionPolls
	return simulator.NewBus(mpl, hdc)
}

func mcp2221Opts(cfg config.MCP2221) []adapter.MCP2221Opt {
	opts := []adapter.MCP2221Opt{adapter.WithResponseWait(cfg.ResponseWait)}
	if cfg.Device >= 0 {
		opts = append(opts, adapter.WithDeviceIndex(cfg.Device))
	}
	return opts
}
