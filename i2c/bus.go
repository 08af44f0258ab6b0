// Package i2c exposes a Linux I²C bus through periph as a register-level bus
// for the transaction interpreter.
package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/weatherstation"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	_ weatherstation.I2CBus     = &GenericBus{}
	_ weatherstation.Transactor = &GenericBus{}
)

var initHost = sync.OnceValues(host.Init)

type GenericBus struct {
	name string
	bus  i2c.BusCloser
}

// NewGenericBus initializes the host drivers and opens the named bus. An
// empty name selects the first bus found.
func NewGenericBus(name string) (*GenericBus, error) {
	state, err := initHost()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	for _, failure := range state.Failed {
		slog.Debug("host driver failed", "driver", failure.D.String(), "error", failure.Err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus %q: %w", name, err)
	}
	return NewBus(name, bus), nil
}

// NewBus wraps an already opened periph bus.
func NewBus(name string, bus i2c.BusCloser) *GenericBus {
	return &GenericBus{name: name, bus: bus}
}

// SetSpeed applies the requested clock when the host driver supports it.
func (b *GenericBus) SetSpeed(baud uint32) error {
	err := b.bus.SetSpeed(physic.Frequency(baud) * physic.Hertz)
	if err != nil {
		return fmt.Errorf("could not set speed of i2c bus %q to %d Hz: %w", b.name, baud, err)
	}
	return nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

// Tx writes w and reads r in one transfer joined by a repeated start.
func (b *GenericBus) Tx(ctx context.Context, address byte, w, r []byte) error {
	err := b.bus.Tx(uint16(address), w, r)
	if err != nil {
		return fmt.Errorf("could not transfer on i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) String() string {
	return b.name
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
