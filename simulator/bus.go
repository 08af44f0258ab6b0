// Package simulator models the station's sensors at register level so the
// full transaction path can run without hardware.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/weatherstation"
)

var ErrNack = errors.New("device did not acknowledge")

var _ weatherstation.I2CBus = &Bus{}

// Peripheral is a device attached to the simulated bus.
type Peripheral interface {
	Address() byte
	// Write receives a complete write transfer, register pointer first.
	Write(data []byte) error
	// Read fills buf from the device's current pointer.
	Read(buf []byte) error
}

type Bus struct {
	mx       sync.Mutex
	devices  map[byte]Peripheral
	failNext int
	released int
}

func NewBus(devices ...Peripheral) *Bus {
	b := &Bus{devices: make(map[byte]Peripheral)}
	for _, d := range devices {
		b.devices[d.Address()] = d
	}
	return b
}

// FailNext makes the next n transfers fail as if the device NACKed.
func (b *Bus) FailNext(n int) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.failNext = n
}

// Released returns how many times the bus was released.
func (b *Bus) Released() int {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.released
}

func (b *Bus) device(address byte) (Peripheral, error) {
	if b.failNext > 0 {
		b.failNext--
		return nil, fmt.Errorf("address %#x: %w", address, ErrNack)
	}
	d, ok := b.devices[address]
	if !ok {
		return nil, fmt.Errorf("no device at %#x: %w", address, ErrNack)
	}
	return d, nil
}

func (b *Bus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.device(address)
	if err != nil {
		return err
	}
	return d.Write(buffer)
}

func (b *Bus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.device(address)
	if err != nil {
		return err
	}
	return d.Read(buffer)
}

func (b *Bus) Release(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.released++
	return nil
}
