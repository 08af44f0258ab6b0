package environment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/bitbang"
)

const MPL3115A2Address = 0x60

const (
	mplRegStatus    byte = 0x00
	mplRegOutPMSB   byte = 0x01
	mplRegWhoAmI    byte = 0x0C
	mplRegPTDataCfg byte = 0x13
	mplRegCtrl1     byte = 0x26
)

// CTRL_REG1 values: ALT bit 7, OSR=128 bits 5:3, SBYB bit 0
const (
	mplAltitudeStandby  byte = 0xB8
	mplAltitudeActive   byte = 0xB9
	mplBarometerStandby byte = 0x28
	mplBarometerActive  byte = 0x29
)

const (
	mplDataFlagsEnable byte = 0x07
	// PTDR: new pressure/altitude or temperature data available
	mplStatusReady = 3
	// OUT_P (3) + OUT_T (2) bytes
	mplDataLength = 5
	// the combined read returns one register past the requested block
	mplRawLength = mplDataLength + 1

	MPL3115A2WhoAmI byte = 0xC4
)

// MPL3115A2 represents NXP MPL3115A2 pressure/altitude/temperature sensor.
// Typical usage:
//
//	s, err := NewMPL3115A2(ctx, transport, WithMode(Altitude))
//	defer s.Close(ctx)
//	for ready, _ := s.IsReady(ctx); !ready; ready, _ = s.IsReady(ctx) {
//		time.Sleep(time.Second)
//	}
//	raw, _ := s.FetchRaw(ctx)
//	meters, ok := s.Decode(raw.Data, Altitude)
type MPL3115A2 struct {
	ch    *bitbang.Channel
	state State
	mode  Quantity
}

// NewMPL3115A2 opens the bus, enables the data ready flags and starts
// continuous conversion in barometric mode unless WithMode(Altitude) is given.
func NewMPL3115A2(ctx context.Context, transport weatherstation.Transport, opts ...Opt) (*MPL3115A2, error) {
	o := buildOpts(Pressure, opts)
	if !MPL3115A2Device.Supports(o.Mode) {
		return nil, fmt.Errorf("mpl3115a2: %s: %w", o.Mode, weatherstation.ErrUnsupportedQuantity)
	}
	s := &MPL3115A2{ch: bitbang.NewChannel(transport, o.Channel...), mode: Pressure}
	if err := s.ch.Open(ctx); err != nil {
		return nil, fmt.Errorf("mpl3115a2: %w", err)
	}
	err := s.setup(ctx, o.Mode)
	if err != nil {
		closeErr := s.Close(ctx)
		return nil, errors.Join(err, closeErr)
	}
	return s, nil
}

func (s *MPL3115A2) setup(ctx context.Context, mode Quantity) error {
	standby, active := mplBarometerStandby, mplBarometerActive
	if mode == Altitude {
		standby, active = mplAltitudeStandby, mplAltitudeActive
	}
	if err := s.write(ctx, mplRegCtrl1, standby); err != nil {
		return err
	}
	if err := s.write(ctx, mplRegPTDataCfg, mplDataFlagsEnable); err != nil {
		return err
	}
	if err := s.write(ctx, mplRegCtrl1, active); err != nil {
		return err
	}
	s.state = Configured
	if mode == Altitude {
		s.mode = Altitude
	} else {
		s.mode = Pressure
	}
	return nil
}

func (s *MPL3115A2) Device() Device {
	return MPL3115A2Device
}

func (s *MPL3115A2) State() State {
	return s.state
}

// Mode returns Altitude or Pressure depending on the active measurement mode.
func (s *MPL3115A2) Mode() Quantity {
	return s.mode
}

// Configure switches to the mode able to deliver q. Temperature is available
// in both modes and keeps the current one.
func (s *MPL3115A2) Configure(ctx context.Context, q Quantity) error {
	if s.state == Closed {
		return fmt.Errorf("mpl3115a2: %w", weatherstation.ErrClosed)
	}
	switch q {
	case Altitude:
		return s.SelectAltitudeMode(ctx)
	case Pressure:
		return s.SelectBarometricMode(ctx)
	case Temperature:
		if s.mode == Altitude {
			return s.SelectAltitudeMode(ctx)
		}
		return s.SelectBarometricMode(ctx)
	}
	return fmt.Errorf("mpl3115a2: %s: %w", q, weatherstation.ErrUnsupportedQuantity)
}

// SelectAltitudeMode writes the altitude/oversampling setting and then
// enables continuous conversion.
func (s *MPL3115A2) SelectAltitudeMode(ctx context.Context) error {
	return s.selectMode(ctx, Altitude, mplAltitudeStandby, mplAltitudeActive)
}

// SelectBarometricMode writes the barometer/oversampling setting and then
// enables continuous conversion.
func (s *MPL3115A2) SelectBarometricMode(ctx context.Context) error {
	return s.selectMode(ctx, Pressure, mplBarometerStandby, mplBarometerActive)
}

func (s *MPL3115A2) selectMode(ctx context.Context, mode Quantity, standby, active byte) error {
	if s.state == Closed {
		return fmt.Errorf("mpl3115a2: %w", weatherstation.ErrClosed)
	}
	if err := s.write(ctx, mplRegCtrl1, standby); err != nil {
		return err
	}
	if err := s.write(ctx, mplRegCtrl1, active); err != nil {
		return err
	}
	s.mode = mode
	s.state = Configured
	slog.Debug("mpl3115a2 mode selected", "mode", mode)
	return nil
}

func (s *MPL3115A2) IsReady(ctx context.Context) (bool, error) {
	res, err := s.status(ctx)
	if err != nil {
		return false, err
	}
	return isDataReady(res), nil
}

func (s *MPL3115A2) status(ctx context.Context) (bitbang.Result, error) {
	if s.state == Closed {
		return bitbang.Result{}, fmt.Errorf("mpl3115a2: %w", weatherstation.ErrClosed)
	}
	return s.ch.Read(ctx, MPL3115A2Address, mplRegStatus, 1), nil
}

func isDataReady(res bitbang.Result) bool {
	if !res.Ready() || len(res.Data) == 0 {
		return false
	}
	return res.Data[0]&(1<<mplStatusReady) != 0
}

// FetchRaw reads OUT_P and OUT_T once the status register reports new data.
func (s *MPL3115A2) FetchRaw(ctx context.Context) (bitbang.Result, error) {
	res, err := s.status(ctx)
	if err != nil {
		return bitbang.Result{}, err
	}
	if res.Status == bitbang.Failed {
		return res, nil
	}
	if !isDataReady(res) {
		return bitbang.NotReadyResult(), nil
	}
	return s.ch.Read(ctx, MPL3115A2Address, mplRegOutPMSB, mplDataLength), nil
}

// Decode expects the six byte block returned by FetchRaw.
func (s *MPL3115A2) Decode(raw []byte, q Quantity) (float64, bool) {
	if len(raw) != mplRawLength {
		return 0, false
	}
	switch q {
	case Altitude:
		return DecodeAltitude(raw), true
	case Pressure:
		return DecodePressure(raw), true
	case Temperature:
		return DecodeMPLTemperature(raw), true
	}
	return 0, false
}

// Identify returns the WHO_AM_I register, MPL3115A2WhoAmI on a genuine part.
func (s *MPL3115A2) Identify(ctx context.Context) (byte, error) {
	if s.state == Closed {
		return 0, fmt.Errorf("mpl3115a2: %w", weatherstation.ErrClosed)
	}
	res := s.ch.Read(ctx, MPL3115A2Address, mplRegWhoAmI, 1)
	if err := res.Err(); err != nil {
		return 0, fmt.Errorf("mpl3115a2: could not read WHO_AM_I: %w", err)
	}
	if len(res.Data) == 0 {
		return 0, fmt.Errorf("mpl3115a2: empty WHO_AM_I read: %w", weatherstation.ErrMalformedReading)
	}
	return res.Data[0], nil
}

func (s *MPL3115A2) Close(ctx context.Context) error {
	if s.state == Closed {
		return fmt.Errorf("mpl3115a2: %w", weatherstation.ErrClosed)
	}
	s.state = Closed
	if err := s.ch.Close(ctx); err != nil {
		return fmt.Errorf("mpl3115a2: %w", err)
	}
	return nil
}

func (s *MPL3115A2) write(ctx context.Context, register, value byte) error {
	res := s.ch.WriteValue(ctx, MPL3115A2Address, register, value)
	if err := res.Err(); err != nil {
		return fmt.Errorf("mpl3115a2: could not write register %#x: %w", register, err)
	}
	return nil
}
