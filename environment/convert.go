package environment

import (
	"encoding/binary"
	"math"
)

// TwosComplement interprets the low bits of value as a signed integer.
func TwosComplement(value uint64, bits uint) int64 {
	if bits == 0 || bits >= 64 {
		return int64(value)
	}
	value &= 1<<bits - 1
	if value&(1<<(bits-1)) != 0 {
		return int64(value) - 1<<bits
	}
	return int64(value)
}

func uint24(b []byte) uint64 {
	return uint64(b[0])<<16 | uint64(b[1])<<8 | uint64(b[2])
}

// DecodeAltitude reads the signed Q16.8 altitude in meters from OUT_P.
func DecodeAltitude(raw []byte) float64 {
	return float64(TwosComplement(uint24(raw[0:3]), 24)) / 256
}

// DecodePressure reads the unsigned Q18.2 pressure in Pascals from OUT_P.
// The register sits in the top 20 bits of the 24 read.
func DecodePressure(raw []byte) float64 {
	return float64(uint24(raw[0:3])) / 64
}

// DecodeMPLTemperature reads OUT_T as degrees Celsius with 8 fractional bits.
func DecodeMPLTemperature(raw []byte) float64 {
	return float64(binary.BigEndian.Uint16(raw[3:5])) / 256
}

// DecodeHDCTemperature converts a raw HDC1050 temperature word to degrees
// Celsius rounded to one decimal.
func DecodeHDCTemperature(raw uint16) float64 {
	return roundTenth(float64(raw)/(1<<16)*165 - 40)
}

// DecodeHDCHumidity converts a raw HDC1050 humidity word to %RH rounded to
// one decimal.
func DecodeHDCHumidity(raw uint16) float64 {
	return roundTenth(float64(raw) / (1 << 16) * 100)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
