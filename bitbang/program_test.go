package bitbang

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeWrite(t *testing.T) {
	tests := []struct {
		name     string
		address  byte
		register byte
		payload  []byte
		expected []byte
	}{
		{"single byte", 0x60, 0x26, []byte{0x28}, []byte{4, 0x60, 2, 7, 2, 0x26, 0x28, 3, 0}},
		{"setup word", 0x40, 0x02, []byte{0x10, 0x00}, []byte{4, 0x40, 2, 7, 3, 0x02, 0x10, 0x00, 3, 0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, Program(test.expected), EncodeWrite(test.address, test.register, test.payload))
		})
	}
}

func TestEncodeWrite_LongPayloadIsEscaped(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAA}, 300)
	p := EncodeWrite(0x60, 0x10, payload)
	// 301 bytes on the wire: 0x012D little-endian
	assert.Equal(t, []byte{4, 0x60, 2, 1, 7, 0x2D, 0x01, 0x10}, []byte(p[:8]))
	assert.Equal(t, []byte{3, 0}, []byte(p[len(p)-2:]))
	assert.Len(t, p, 8+300+2)
}

func TestEncodeRead(t *testing.T) {
	assert.Equal(t, Program{4, 0x60, 2, 7, 1, 0x00, 2, 6, 2, 3, 0}, EncodeRead(0x60, 0x00, 1))
	assert.Equal(t, Program{4, 0x60, 2, 7, 1, 0x01, 2, 6, 6, 3, 0}, EncodeRead(0x60, 0x01, 5))
}

func TestEncodeSplitRead(t *testing.T) {
	assert.Equal(t, Program{4, 0x40, 2, 7, 1, 0x00, 3, 0}, EncodeSetPointer(0x40, 0x00))
	assert.Equal(t, Program{4, 0x40, 2, 6, 4, 3, 0}, EncodeReadAfterPointer(0x40, 4))
}

func TestPointerWriteLooksEscaped(t *testing.T) {
	p := EncodeSetPointer(0x40, 0xFF)
	assert.Equal(t, Write, Token(p[3]))
	assert.Equal(t, Escape, Token(p[4]))
}

func TestToken_String(t *testing.T) {
	assert.Equal(t, "START", Start.String())
	assert.Equal(t, "WRITE", Write.String())
	assert.Equal(t, "Token(9)", Token(9).String())
}
