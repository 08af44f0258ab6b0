// Package config holds the station configuration: which host transport
// drives the bus, where the bus is wired, and how long measurements poll.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/weatherstation/bitbang"
	"github.com/mklimuk/weatherstation/measure"
	"github.com/mklimuk/weatherstation/pigpio"
)

const (
	TransportPigpiod = "pigpiod"
	TransportPeriph  = "periph"
	TransportGobot   = "gobot"
	TransportMCP2221 = "mcp2221"
	TransportSim     = "sim"
)

var Transports = []string{TransportPigpiod, TransportPeriph, TransportGobot, TransportMCP2221, TransportSim}

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Transport string              `yaml:"transport"`
	Bus       Bus                 `yaml:"bus"`
	Pigpiod   Pigpiod             `yaml:"pigpiod"`
	Periph    Periph              `yaml:"periph"`
	Gobot     Gobot               `yaml:"gobot"`
	MCP2221   MCP2221             `yaml:"mcp2221"`
	Simulator Simulator           `yaml:"simulator"`
	Retry     measure.RetryPolicy `yaml:"retry"`
}

// Bus is the bit-banged pin pair.
type Bus struct {
	SDA  uint8  `yaml:"sda"`
	SCL  uint8  `yaml:"scl"`
	Baud uint32 `yaml:"baud"`
}

type Pigpiod struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type Periph struct {
	// Bus is the i2creg name; empty selects the first bus.
	Bus string `yaml:"bus"`
}

type Gobot struct {
	Board string `yaml:"board"`
	// Bus of -1 selects the adaptor default.
	Bus int `yaml:"bus"`
}

type MCP2221 struct {
	// Device of -1 requires exactly one adapter to be plugged in.
	Device       int           `yaml:"device"`
	ResponseWait time.Duration `yaml:"response_wait"`
}

// Simulator sets the environment reported by the sim transport.
type Simulator struct {
	Pressure        float64 `yaml:"pressure"`
	Altitude        float64 `yaml:"altitude"`
	Temperature     float64 `yaml:"temperature"`
	Humidity        float64 `yaml:"humidity"`
	ConversionPolls int     `yaml:"conversion_polls"`
}

func Default() Config {
	return Config{
		Transport: TransportPigpiod,
		Bus: Bus{
			SDA:  bitbang.DefaultSDA,
			SCL:  bitbang.DefaultSCL,
			Baud: bitbang.DefaultBaud,
		},
		Pigpiod: Pigpiod{
			Address: pigpio.DefaultAddress,
			Timeout: 5 * time.Second,
		},
		Gobot: Gobot{
			Board: "raspi",
			Bus:   -1,
		},
		MCP2221: MCP2221{
			Device:       -1,
			ResponseWait: 50 * time.Millisecond,
		},
		Simulator: Simulator{
			Pressure:        101325,
			Altitude:        100,
			Temperature:     21.5,
			Humidity:        45,
			ConversionPolls: 1,
		},
		Retry: measure.DefaultRetryPolicy(),
	}
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	known := false
	for _, t := range Transports {
		known = known || t == c.Transport
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if c.Bus.SDA == c.Bus.SCL {
		errs = append(errs, fmt.Errorf("sda and scl share pin %d", c.Bus.SDA))
	}
	if c.Bus.Baud == 0 {
		errs = append(errs, errors.New("baud must be positive"))
	}
	if c.Transport == TransportPigpiod && c.Pigpiod.Address == "" {
		errs = append(errs, errors.New("pigpiod address is empty"))
	}
	if c.Retry.Interval < 0 || c.Retry.MaxInterval < 0 || c.Retry.Backoff < 0 {
		errs = append(errs, errors.New("retry durations and backoff must not be negative"))
	}
	if c.Simulator.ConversionPolls < 0 {
		errs = append(errs, errors.New("simulator conversion polls must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ChannelOpts returns the bus wiring as channel options.
func (c Config) ChannelOpts() []bitbang.ChannelOpt {
	return []bitbang.ChannelOpt{
		bitbang.WithPins(c.Bus.SDA, c.Bus.SCL),
		bitbang.WithBaud(c.Bus.Baud),
	}
}
