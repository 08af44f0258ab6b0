package simulator

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

const (
	hdcAddress        = 0x40
	hdcTemperature    = 0x00
	hdcHumidity       = 0x01
	hdcConfig         = 0x02
	hdcManufacturerID = 0xFE
	hdcDeviceID       = 0xFF
)

// HDC1050 simulates a TI HDC1050. Reads NACK for ConversionPolls attempts
// after the temperature pointer is written.
type HDC1050 struct {
	mx              sync.Mutex
	ptr             byte
	config          uint16
	pending         int
	Temperature     float64
	Humidity        float64
	ConversionPolls int
}

func NewHDC1050(temperature, humidity float64) *HDC1050 {
	return &HDC1050{Temperature: temperature, Humidity: humidity, config: 0x1000}
}

func (s *HDC1050) Address() byte {
	return hdcAddress
}

// Config returns the configuration register.
func (s *HDC1050) Config() uint16 {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.config
}

func (s *HDC1050) Write(data []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if len(data) == 0 {
		return nil
	}
	s.ptr = data[0]
	switch {
	case len(data) == 1 && s.ptr == hdcTemperature:
		s.pending = s.ConversionPolls
	case len(data) == 3 && s.ptr == hdcConfig:
		s.config = binary.BigEndian.Uint16(data[1:3])
	case len(data) > 1:
		return fmt.Errorf("register %#x is read only: %w", s.ptr, ErrNack)
	}
	return nil
}

func (s *HDC1050) Read(buf []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	var data []byte
	switch s.ptr {
	case hdcTemperature:
		if s.pending > 0 {
			s.pending--
			return fmt.Errorf("conversion in progress: %w", ErrNack)
		}
		data = binary.BigEndian.AppendUint16(data, word(s.Temperature+40, 165))
		data = binary.BigEndian.AppendUint16(data, word(s.Humidity, 100))
	case hdcHumidity:
		data = binary.BigEndian.AppendUint16(data, word(s.Humidity, 100))
	case hdcConfig:
		data = binary.BigEndian.AppendUint16(data, s.config)
	case hdcManufacturerID:
		data = binary.BigEndian.AppendUint16(data, 0x5449)
	case hdcDeviceID:
		data = binary.BigEndian.AppendUint16(data, 0x1050)
	default:
		return fmt.Errorf("register %#x: %w", s.ptr, ErrNack)
	}
	copy(buf, data)
	return nil
}

func word(value, scale float64) uint16 {
	raw := math.Round(value / scale * (1 << 16))
	return uint16(math.Max(0, math.Min(raw, math.MaxUint16)))
}
