package simulator

import (
	"math"
	"sync"
)

const (
	mplAddress   = 0x60
	mplStatus    = 0x00
	mplOutPMSB   = 0x01
	mplDRStatus  = 0x06
	mplWhoAmI    = 0x0C
	mplCtrl1     = 0x26
	mplCtrlSBYB  = 0x01
	mplCtrlALT   = 0x80
	mplStatusAll = 0x0E
)

// MPL3115A2 simulates an NXP MPL3115A2. Conversion completes after
// ConversionPolls status reads following activation or a data read.
type MPL3115A2 struct {
	mx              sync.Mutex
	regs            [256]byte
	ptr             byte
	pending         int
	Pressure        float64
	Altitude        float64
	Temperature     float64
	ConversionPolls int
}

func NewMPL3115A2(pressure, altitude, temperature float64) *MPL3115A2 {
	s := &MPL3115A2{
		Pressure:    pressure,
		Altitude:    altitude,
		Temperature: temperature,
	}
	s.regs[mplWhoAmI] = 0xC4
	return s
}

func (s *MPL3115A2) Address() byte {
	return mplAddress
}

// Register returns the current content of a register.
func (s *MPL3115A2) Register(reg byte) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.regs[reg]
}

func (s *MPL3115A2) Write(data []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if len(data) == 0 {
		return nil
	}
	s.ptr = data[0]
	for _, b := range data[1:] {
		s.regs[s.ptr] = b
		if s.ptr == mplCtrl1 && b&mplCtrlSBYB != 0 {
			s.startConversion()
		}
		s.ptr++
	}
	return nil
}

func (s *MPL3115A2) Read(buf []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.ptr == mplStatus && s.regs[mplCtrl1]&mplCtrlSBYB != 0 {
		if s.pending > 0 {
			s.pending--
		} else {
			s.latch()
		}
	}
	start := s.ptr
	for i := range buf {
		buf[i] = s.regs[s.ptr]
		s.ptr++
	}
	if start >= mplOutPMSB && start <= mplOutPMSB+4 {
		s.regs[mplStatus] = 0
		s.regs[mplDRStatus] = 0
		s.startConversion()
	}
	return nil
}

func (s *MPL3115A2) startConversion() {
	s.pending = s.ConversionPolls
	s.regs[mplStatus] = 0
}

func (s *MPL3115A2) latch() {
	var p uint32
	if s.regs[mplCtrl1]&mplCtrlALT != 0 {
		p = uint32(int32(math.Round(s.Altitude*256))) & 0xFFFFF0
	} else {
		p = uint32(math.Round(s.Pressure*64)) & 0xFFFFF0
	}
	t := uint16(int16(math.Round(s.Temperature * 256)))
	s.regs[mplOutPMSB] = byte(p >> 16)
	s.regs[mplOutPMSB+1] = byte(p >> 8)
	s.regs[mplOutPMSB+2] = byte(p)
	s.regs[mplOutPMSB+3] = byte(t >> 8)
	s.regs[mplOutPMSB+4] = byte(t)
	s.regs[mplStatus] = mplStatusAll
	s.regs[mplDRStatus] = mplStatusAll
}
