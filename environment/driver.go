package environment

import (
	"context"
	"fmt"
	"strings"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/bitbang"
)

// Device enumerates the sensors the station knows how to drive.
type Device int

const (
	MPL3115A2Device Device = iota + 1
	HDC1050Device
)

func (d Device) String() string {
	switch d {
	case MPL3115A2Device:
		return "mpl3115a2"
	case HDC1050Device:
		return "hdc1050"
	}
	return fmt.Sprintf("Device(%d)", int(d))
}

func ParseDevice(name string) (Device, error) {
	switch strings.ToLower(name) {
	case "mpl3115a2", "mpl", "alt":
		return MPL3115A2Device, nil
	case "hdc1050", "hdc", "hum":
		return HDC1050Device, nil
	}
	return 0, fmt.Errorf("unknown device %q", name)
}

// Supports reports whether the device can measure q.
func (d Device) Supports(q Quantity) bool {
	switch d {
	case MPL3115A2Device:
		return q == Pressure || q == Altitude || q == Temperature
	case HDC1050Device:
		return q == Humidity || q == Temperature
	}
	return false
}

// Quantity is a physical value a driver can decode.
type Quantity int

const (
	Pressure Quantity = iota + 1
	Altitude
	Temperature
	Humidity
)

func (q Quantity) String() string {
	switch q {
	case Pressure:
		return "pressure"
	case Altitude:
		return "altitude"
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	}
	return fmt.Sprintf("Quantity(%d)", int(q))
}

// Unit returns the unit label printed next to decoded values.
func (q Quantity) Unit() string {
	switch q {
	case Pressure:
		return "Pa"
	case Altitude:
		return "Meters"
	case Temperature:
		return "degC"
	case Humidity:
		return "%"
	}
	return ""
}

// State of a driver's lifecycle.
type State int

const (
	Unconfigured State = iota
	Configured
	Closed
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Closed:
		return "closed"
	default:
		return "unconfigured"
	}
}

// Driver is the capability set shared by all station sensors. Each driver owns
// one bus channel, opened on construction and released by Close.
type Driver interface {
	Device() Device
	State() State
	Configure(ctx context.Context, q Quantity) error
	// IsReady polls the device. Transport failures read as not ready.
	IsReady(ctx context.Context) (bool, error)
	// FetchRaw returns NotReady unless the device reports data available.
	FetchRaw(ctx context.Context) (bitbang.Result, error)
	// Decode converts a raw block; false means the block is unusable.
	Decode(raw []byte, q Quantity) (float64, bool)
	Close(ctx context.Context) error
}

var (
	_ Driver = &MPL3115A2{}
	_ Driver = &HDC1050{}
)

type Opts struct {
	Channel []bitbang.ChannelOpt
	Mode    Quantity
}

type Opt func(*Opts)

// WithChannel passes bus options (pins, baud) to the driver's channel.
func WithChannel(opts ...bitbang.ChannelOpt) Opt {
	return func(o *Opts) {
		o.Channel = append(o.Channel, opts...)
	}
}

// WithMode selects the quantity the driver is configured for on construction.
func WithMode(q Quantity) Opt {
	return func(o *Opts) {
		o.Mode = q
	}
}

// Open constructs the driver for device on transport.
func Open(ctx context.Context, device Device, transport weatherstation.Transport, opts ...Opt) (Driver, error) {
	switch device {
	case MPL3115A2Device:
		return NewMPL3115A2(ctx, transport, opts...)
	case HDC1050Device:
		return NewHDC1050(ctx, transport, opts...)
	}
	return nil, fmt.Errorf("open %s: unknown device", device)
}

func buildOpts(def Quantity, opts []Opt) Opts {
	o := Opts{Mode: def}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
