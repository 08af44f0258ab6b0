// Package bitbang builds and interprets transaction programs for a software
// emulated I2C bus and provides the channels sensor drivers talk through.
//
// A program is a flat byte sequence of command tokens and their operands:
//
//	ADDRESS 0x60 START WRITE 1 0x00 START READ 2 STOP END
//
// selects device 0x60, writes the one byte pointer 0x00 and reads two bytes
// back after a repeated start.
package bitbang

import "fmt"

// Token is a command opcode in a transaction program.
type Token byte

const (
	End Token = iota
	Escape
	Start
	Stop
	Address
	Flags
	Read
	Write
)

func (t Token) String() string {
	switch t {
	case End:
		return "END"
	case Escape:
		return "ESCAPE"
	case Start:
		return "START"
	case Stop:
		return "STOP"
	case Address:
		return "ADDRESS"
	case Flags:
		return "FLAGS"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	}
	return fmt.Sprintf("Token(%d)", byte(t))
}

// pointerLen is the write count used for a bare register pointer. Its value
// equals Escape, which is why pointer writes look escaped on the wire.
const pointerLen byte = 1

// Program is one bus transaction. It is handed to a transport once and dropped.
type Program []byte

func (p Program) address(addr byte) Program {
	return append(p, byte(Address), addr, byte(Start))
}

// count appends a READ/WRITE opcode with its length. Lengths over 255 are
// sent as escaped 16-bit little-endian values.
func (p Program) count(op Token, n int) Program {
	if n > 0xFF {
		return append(p, byte(Escape), byte(op), byte(n), byte(n>>8))
	}
	return append(p, byte(op), byte(n))
}

func (p Program) end() Program {
	return append(p, byte(Stop), byte(End))
}

// EncodeWrite writes register followed by payload to the device at address.
func EncodeWrite(address, register byte, payload []byte) Program {
	p := make(Program, 0, len(payload)+10)
	p = p.address(address).count(Write, len(payload)+1)
	p = append(p, register)
	p = append(p, payload...)
	return p.end()
}

// EncodeRead sets the register pointer and reads length+1 bytes in a single
// transaction using a repeated start.
func EncodeRead(address, register byte, length int) Program {
	p := make(Program, 0, 14)
	p = p.address(address)
	p = append(p, byte(Write), pointerLen, register, byte(Start))
	p = p.count(Read, length+1)
	return p.end()
}

// EncodeSetPointer only latches the register pointer of the device.
func EncodeSetPointer(address, register byte) Program {
	p := make(Program, 0, 8)
	p = p.address(address)
	p = append(p, byte(Write), pointerLen, register)
	return p.end()
}

// EncodeReadAfterPointer reads length bytes from the previously latched pointer.
func EncodeReadAfterPointer(address byte, length int) Program {
	p := make(Program, 0, 9)
	return p.address(address).count(Read, length).end()
}
