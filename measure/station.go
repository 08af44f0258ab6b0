// Package measure takes single physical readings from the station sensors.
//
// Every call opens its own driver, polls until data is ready, decodes it and
// closes the driver again, so no bus handle outlives a call. Calls must be
// serialized by the caller: the bus is a single exclusive resource.
package measure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/bitbang"
	"github.com/mklimuk/weatherstation/environment"
	"github.com/mklimuk/weatherstation/snsctx"
)

type Station struct {
	transport weatherstation.Transport
	policy    RetryPolicy
	channel   []bitbang.ChannelOpt
	logger    *slog.Logger
}

type StationOpt func(*Station)

func WithRetryPolicy(p RetryPolicy) StationOpt {
	return func(s *Station) {
		s.policy = p
	}
}

func WithChannel(opts ...bitbang.ChannelOpt) StationOpt {
	return func(s *Station) {
		s.channel = append(s.channel, opts...)
	}
}

func WithLogger(l *slog.Logger) StationOpt {
	return func(s *Station) {
		s.logger = l
	}
}

func NewStation(transport weatherstation.Transport, opts ...StationOpt) *Station {
	s := &Station{
		transport: transport,
		policy:    DefaultRetryPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Station) Pressure(ctx context.Context) (float64, error) {
	return s.Measure(ctx, environment.MPL3115A2Device, environment.Pressure)
}

func (s *Station) Altitude(ctx context.Context) (float64, error) {
	return s.Measure(ctx, environment.MPL3115A2Device, environment.Altitude)
}

// PressureTemperature reads the temperature of the pressure sensor.
func (s *Station) PressureTemperature(ctx context.Context) (float64, error) {
	return s.Measure(ctx, environment.MPL3115A2Device, environment.Temperature)
}

func (s *Station) Humidity(ctx context.Context) (float64, error) {
	return s.Measure(ctx, environment.HDC1050Device, environment.Humidity)
}

// HumidityTemperature reads the temperature of the humidity sensor.
func (s *Station) HumidityTemperature(ctx context.Context) (float64, error) {
	return s.Measure(ctx, environment.HDC1050Device, environment.Temperature)
}

// Measure takes one reading of q from device. The driver is closed on every
// return path; a close failure is joined to the returned error.
func (s *Station) Measure(ctx context.Context, device environment.Device, q environment.Quantity) (value float64, err error) {
	if !device.Supports(q) {
		return 0, fmt.Errorf("%s %s: %w", device, q, weatherstation.ErrUnsupportedQuantity)
	}
	ctx = snsctx.WithSensor(ctx, device.String())
	d, err := environment.Open(ctx, device, s.transport, environment.WithChannel(s.channel...), environment.WithMode(q))
	if err != nil {
		return 0, fmt.Errorf("%s %s: could not open driver: %w", device, q, err)
	}
	defer func() {
		closeErr := d.Close(context.WithoutCancel(ctx))
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("%s %s: could not close driver: %w", device, q, closeErr))
		}
	}()
	value, err = s.poll(ctx, d, q)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", device, q, err)
	}
	return value, nil
}

func (s *Station) poll(ctx context.Context, d environment.Driver, q environment.Quantity) (float64, error) {
	log := s.logger.With("device", d.Device().String(), "quantity", q.String())
	for attempt := 1; ; attempt++ {
		ready, err := d.IsReady(ctx)
		if err != nil {
			return 0, err
		}
		if ready {
			raw, err := d.FetchRaw(ctx)
			if err != nil {
				return 0, err
			}
			switch raw.Status {
			case bitbang.Ready:
				v, ok := d.Decode(raw.Data, q)
				if ok {
					log.Debug("measurement decoded", "attempt", attempt, "value", v)
					return v, nil
				}
				log.Debug("malformed reading", "attempt", attempt, "length", len(raw.Data))
			case bitbang.Failed:
				log.Debug("data read failed", "attempt", attempt, "code", raw.Code)
			default:
				log.Debug("data not ready", "attempt", attempt)
			}
		} else {
			log.Debug("sensor not ready", "attempt", attempt)
		}
		if s.policy.exhausted(attempt) {
			return 0, fmt.Errorf("gave up after %d attempts: %w", attempt, weatherstation.ErrTimeout)
		}
		if err := wait(ctx, s.policy.Delay(attempt)); err != nil {
			return 0, err
		}
	}
}

// Pressure opens a station on transport and reads the pressure in Pascals.
func Pressure(ctx context.Context, transport weatherstation.Transport, opts ...StationOpt) (float64, error) {
	return NewStation(transport, opts...).Pressure(ctx)
}

// Altitude reads the altitude in meters.
func Altitude(ctx context.Context, transport weatherstation.Transport, opts ...StationOpt) (float64, error) {
	return NewStation(transport, opts...).Altitude(ctx)
}

// PressureTemperature reads the pressure sensor temperature in degrees Celsius.
func PressureTemperature(ctx context.Context, transport weatherstation.Transport, opts ...StationOpt) (float64, error) {
	return NewStation(transport, opts...).PressureTemperature(ctx)
}

// Humidity reads the relative humidity in percent.
func Humidity(ctx context.Context, transport weatherstation.Transport, opts ...StationOpt) (float64, error) {
	return NewStation(transport, opts...).Humidity(ctx)
}

// HumidityTemperature reads the humidity sensor temperature in degrees Celsius.
func HumidityTemperature(ctx context.Context, transport weatherstation.Transport, opts ...StationOpt) (float64, error) {
	return NewStation(transport, opts...).HumidityTemperature(ctx)
}
