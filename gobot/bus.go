// Package gobot runs transaction programs on the hardware I²C bus of a
// single board computer through a gobot adaptor.
package gobot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mklimuk/weatherstation"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

var _ weatherstation.I2CBus = &Bus{}

// Adaptor is a gobot platform adaptor exposing I²C connections.
type Adaptor interface {
	i2c.Connector
	Connect() error
	Finalize() error
}

// NewAdaptor returns the adaptor of a supported board.
func NewAdaptor(board string) (Adaptor, error) {
	switch strings.ToLower(board) {
	case "", "raspi", "raspberrypi":
		return raspi.NewAdaptor(), nil
	case "nanopi", "neo":
		return nanopi.NewNeoAdaptor(), nil
	default:
		return nil, fmt.Errorf("unsupported board %q", board)
	}
}

type connection interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
}

type Bus struct {
	mx    sync.Mutex
	dial  func(address byte) (connection, error)
	conns map[byte]connection
}

type BusOpt func(*busConfig)

type busConfig struct {
	bus int
}

// WithBus selects the bus number; the adaptor default is used otherwise.
func WithBus(bus int) BusOpt {
	return func(c *busConfig) {
		c.bus = bus
	}
}

func NewBus(connector i2c.Connector, opts ...BusOpt) *Bus {
	cfg := busConfig{bus: connector.DefaultI2cBus()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return newBus(func(address byte) (connection, error) {
		return connector.GetI2cConnection(int(address), cfg.bus)
	})
}

func newBus(dial func(address byte) (connection, error)) *Bus {
	return &Bus{dial: dial, conns: make(map[byte]connection)}
}

// Open connects the adaptor of board and returns a bus on it together with
// the adaptor finalizer.
func Open(board string, opts ...BusOpt) (*Bus, func() error, error) {
	adaptor, err := NewAdaptor(board)
	if err != nil {
		return nil, nil, err
	}
	err = adaptor.Connect()
	if err != nil {
		return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	return NewBus(adaptor, opts...), adaptor.Finalize, nil
}

func (b *Bus) connection(address byte) (connection, error) {
	if c, ok := b.conns[address]; ok {
		return c, nil
	}
	c, err := b.dial(address)
	if err != nil {
		return nil, fmt.Errorf("could not get i2c connection for %#x: %w", address, err)
	}
	b.conns[address] = c
	return c, nil
}

func (b *Bus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := c.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to %#x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %#x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

func (b *Bus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := c.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from %#x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %#x: %d of %d bytes", address, n, len(buffer))
	}
	return nil
}

// Release forgets cached connections. The adaptor keeps the bus device open
// until it is finalized.
func (b *Bus) Release(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	clear(b.conns)
	return nil
}
