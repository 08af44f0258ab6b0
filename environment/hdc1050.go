package environment

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/bitbang"
)

const HDC1050Address = 0x40

const (
	hdcRegTemperature byte = 0x00
	hdcRegConfig      byte = 0x02
	hdcRegDeviceID    byte = 0xFF

	// temperature word followed by humidity word
	hdcDataLength = 4

	HDC1050DeviceID uint16 = 0x1050
)

// acquisition of temperature and humidity in sequence, 14 bit resolution
var hdcSetup = []byte{0x10, 0x00}

// HDC1050 represents TI HDC1050 humidity/temperature sensor.
//
// Writing the temperature pointer starts a conversion; the device NACKs reads
// until it is done. Readiness is therefore only visible as a successful
// transaction and "still converting" cannot be told apart from "no data".
type HDC1050 struct {
	ch    *bitbang.PointerChannel
	state State
	ready bool
}

// NewHDC1050 opens the bus, writes the setup word and latches the
// temperature pointer, which triggers the first conversion.
func NewHDC1050(ctx context.Context, transport weatherstation.Transport, opts ...Opt) (*HDC1050, error) {
	o := buildOpts(Humidity, opts)
	if !HDC1050Device.Supports(o.Mode) {
		return nil, fmt.Errorf("hdc1050: %s: %w", o.Mode, weatherstation.ErrUnsupportedQuantity)
	}
	s := &HDC1050{ch: bitbang.NewPointerChannel(transport, o.Channel...)}
	if err := s.ch.Open(ctx); err != nil {
		return nil, fmt.Errorf("hdc1050: %w", err)
	}
	if err := s.Configure(ctx, o.Mode); err != nil {
		closeErr := s.Close(ctx)
		return nil, errors.Join(err, closeErr)
	}
	return s, nil
}

func (s *HDC1050) Device() Device {
	return HDC1050Device
}

func (s *HDC1050) State() State {
	return s.state
}

// Configure rewrites the setup word and restarts a conversion. Both
// quantities come from the same conversion.
func (s *HDC1050) Configure(ctx context.Context, q Quantity) error {
	if s.state == Closed {
		return fmt.Errorf("hdc1050: %w", weatherstation.ErrClosed)
	}
	if !HDC1050Device.Supports(q) {
		return fmt.Errorf("hdc1050: %s: %w", q, weatherstation.ErrUnsupportedQuantity)
	}
	res := s.ch.Write(ctx, HDC1050Address, hdcRegConfig, hdcSetup)
	if err := res.Err(); err != nil {
		return fmt.Errorf("hdc1050: could not write configuration: %w", err)
	}
	res = s.ch.SetPointer(ctx, HDC1050Address, hdcRegTemperature)
	if err := res.Err(); err != nil {
		return fmt.Errorf("hdc1050: could not trigger measurement: %w", err)
	}
	s.ready = false
	s.state = Configured
	return nil
}

// IsReady reports whether a read from the latched pointer succeeds.
func (s *HDC1050) IsReady(ctx context.Context) (bool, error) {
	if s.state == Closed {
		return false, fmt.Errorf("hdc1050: %w", weatherstation.ErrClosed)
	}
	res := s.ch.ReadAfterPointer(ctx, HDC1050Address, hdcDataLength)
	s.ready = res.Status != bitbang.Failed
	return s.ready, nil
}

// FetchRaw reads the temperature and humidity words. Each successful IsReady
// allows one fetch.
func (s *HDC1050) FetchRaw(ctx context.Context) (bitbang.Result, error) {
	if s.state == Closed {
		return bitbang.Result{}, fmt.Errorf("hdc1050: %w", weatherstation.ErrClosed)
	}
	if !s.ready {
		return bitbang.NotReadyResult(), nil
	}
	s.ready = false
	return s.ch.ReadAfterPointer(ctx, HDC1050Address, hdcDataLength), nil
}

func (s *HDC1050) Decode(raw []byte, q Quantity) (float64, bool) {
	if len(raw) != hdcDataLength {
		return 0, false
	}
	switch q {
	case Temperature:
		return DecodeHDCTemperature(binary.BigEndian.Uint16(raw[0:2])), true
	case Humidity:
		return DecodeHDCHumidity(binary.BigEndian.Uint16(raw[2:4])), true
	}
	return 0, false
}

// Identify reads the device ID register, HDC1050DeviceID on a genuine part.
// The temperature pointer is latched again afterwards.
func (s *HDC1050) Identify(ctx context.Context) (uint16, error) {
	if s.state == Closed {
		return 0, fmt.Errorf("hdc1050: %w", weatherstation.ErrClosed)
	}
	res := s.ch.SetPointer(ctx, HDC1050Address, hdcRegDeviceID)
	if err := res.Err(); err != nil {
		return 0, fmt.Errorf("hdc1050: could not select device ID: %w", err)
	}
	res = s.ch.ReadAfterPointer(ctx, HDC1050Address, 2)
	if err := res.Err(); err != nil {
		return 0, fmt.Errorf("hdc1050: could not read device ID: %w", err)
	}
	if len(res.Data) != 2 {
		return 0, fmt.Errorf("hdc1050: device ID is %d bytes: %w", len(res.Data), weatherstation.ErrMalformedReading)
	}
	id := binary.BigEndian.Uint16(res.Data)
	if err := s.ch.SetPointer(ctx, HDC1050Address, hdcRegTemperature).Err(); err != nil {
		return id, fmt.Errorf("hdc1050: could not restore pointer: %w", err)
	}
	s.ready = false
	return id, nil
}

func (s *HDC1050) Close(ctx context.Context) error {
	if s.state == Closed {
		return fmt.Errorf("hdc1050: %w", weatherstation.ErrClosed)
	}
	s.state = Closed
	if err := s.ch.Close(ctx); err != nil {
		return fmt.Errorf("hdc1050: %w", err)
	}
	return nil
}
