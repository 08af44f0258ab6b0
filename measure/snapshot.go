package measure

import (
	"context"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Snapshot holds one reading of every quantity the station measures.
type Snapshot struct {
	Pressure            float64 `json:"pressure_pa" yaml:"pressure_pa"`
	Altitude            float64 `json:"altitude_m" yaml:"altitude_m"`
	PressureTemperature float64 `json:"pressure_temperature_c" yaml:"pressure_temperature_c"`
	Humidity            float64 `json:"humidity_rh" yaml:"humidity_rh"`
	HumidityTemperature float64 `json:"humidity_temperature_c" yaml:"humidity_temperature_c"`
}

// Snapshot takes all readings one after the other and stops at the first failure.
func (s *Station) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	readings := []struct {
		dst  *float64
		read func(context.Context) (float64, error)
	}{
		{&snap.Pressure, s.Pressure},
		{&snap.Altitude, s.Altitude},
		{&snap.PressureTemperature, s.PressureTemperature},
		{&snap.Humidity, s.Humidity},
		{&snap.HumidityTemperature, s.HumidityTemperature},
	}
	for _, r := range readings {
		v, err := r.read(ctx)
		if err != nil {
			return snap, err
		}
		*r.dst = v
	}
	return snap, nil
}

// Env converts the snapshot to periph units. Temperature is taken from the
// humidity sensor.
func (s Snapshot) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(math.Round(s.HumidityTemperature*float64(physic.Celsius))),
		Pressure:    physic.Pressure(math.Round(s.Pressure * float64(physic.Pascal))),
		Humidity:    physic.RelativeHumidity(math.Round(s.Humidity * float64(physic.PercentRH))),
	}
}

func (s Snapshot) Elevation() physic.Distance {
	return physic.Distance(math.Round(s.Altitude * float64(physic.Metre)))
}
