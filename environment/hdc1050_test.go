package environment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/bitbang"
	"github.com/mklimuk/weatherstation/simulator"
)

func expectHDCSetup(tr *MockTransport) {
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x40, 0x02, 0x10, 0x00)).Return(0, nil).Once()
	tr.On("Zip", mock.Anything, uint8(6), setPointerProgram(0x40, 0x00)).Return(0, nil).Once()
}

func TestHDC1050_SetupSequence(t *testing.T) {
	tr := newMockTransport()
	expectHDCSetup(tr)
	s, err := NewHDC1050(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, Configured, s.State())
	assert.Equal(t, HDC1050Device, s.Device())
	tr.AssertExpectations(t)
}

func TestHDC1050_Readiness(t *testing.T) {
	tr := newMockTransport()
	expectHDCSetup(tr)
	read := readAfterPointerProgram(0x40, 4)
	tr.On("Zip", mock.Anything, uint8(6), read).Return(-83, nil).Once()
	tr.On("Zip", mock.Anything, uint8(6), read).Return(4, []byte{0x60, 0x00, 0x80, 0x00}).Twice()
	ctx := context.Background()
	s, err := NewHDC1050(ctx, tr)
	require.NoError(t, err)

	raw, err := s.FetchRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, bitbang.NotReady, raw.Status)
	tr.AssertNotCalled(t, "Zip", mock.Anything, uint8(6), read)

	ready, err := s.IsReady(ctx)
	require.NoError(t, err)
	assert.False(t, ready)
	raw, err = s.FetchRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, bitbang.NotReady, raw.Status)

	ready, err = s.IsReady(ctx)
	require.NoError(t, err)
	assert.True(t, ready)
	raw, err = s.FetchRaw(ctx)
	require.NoError(t, err)
	require.True(t, raw.Ready())

	temp, ok := s.Decode(raw.Data, Temperature)
	require.True(t, ok)
	assert.Equal(t, 21.9, temp)
	hum, ok := s.Decode(raw.Data, Humidity)
	require.True(t, ok)
	assert.Equal(t, 50.0, hum)

	// one fetch per readiness check
	raw, err = s.FetchRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, bitbang.NotReady, raw.Status)
	tr.AssertExpectations(t)
}

func TestHDC1050_DecodeMalformed(t *testing.T) {
	s := &HDC1050{}
	for _, raw := range [][]byte{nil, {0x60}, {0x60, 0x00, 0x80}, make([]byte, 6)} {
		_, ok := s.Decode(raw, Humidity)
		assert.False(t, ok, "len %d", len(raw))
		_, ok = s.Decode(raw, Temperature)
		assert.False(t, ok, "len %d", len(raw))
	}
	_, ok := s.Decode(make([]byte, 4), Pressure)
	assert.False(t, ok)
}

func TestHDC1050_Unsupported(t *testing.T) {
	tr := newMockTransport()
	_, err := NewHDC1050(context.Background(), tr, WithMode(Altitude))
	assert.ErrorIs(t, err, weatherstation.ErrUnsupportedQuantity)

	expectHDCSetup(tr)
	s, err := NewHDC1050(context.Background(), tr)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Configure(context.Background(), Pressure), weatherstation.ErrUnsupportedQuantity)
}

func TestHDC1050_SetupFailure(t *testing.T) {
	tr := newMockTransport()
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x40, 0x02, 0x10, 0x00)).Return(0, nil)
	tr.On("Zip", mock.Anything, uint8(6), setPointerProgram(0x40, 0x00)).Return(-82, nil)
	_, err := NewHDC1050(context.Background(), tr)
	var terr weatherstation.TransportError
	require.ErrorAs(t, err, &terr)
	tr.AssertCalled(t, "Close", mock.Anything, uint8(6))
}

func TestHDC1050_Simulated(t *testing.T) {
	dev := simulator.NewHDC1050(21.5, 45.3)
	dev.ConversionPolls = 3
	bus := simulator.NewBus(dev)
	tr := bitbang.NewBusTransport(bus)
	ctx := context.Background()
	s, err := NewHDC1050(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1000), dev.Config())

	polls := 0
	for {
		ready, err := s.IsReady(ctx)
		require.NoError(t, err)
		if ready {
			break
		}
		polls++
		require.Less(t, polls, 10)
	}
	assert.Equal(t, 3, polls)
	raw, err := s.FetchRaw(ctx)
	require.NoError(t, err)
	temp, ok := s.Decode(raw.Data, Temperature)
	require.True(t, ok)
	assert.Equal(t, 21.5, temp)
	hum, ok := s.Decode(raw.Data, Humidity)
	require.True(t, ok)
	assert.Equal(t, 45.3, hum)

	id, err := s.Identify(ctx)
	require.NoError(t, err)
	assert.Equal(t, HDC1050DeviceID, id)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, bus.Released())
}

func TestOpen(t *testing.T) {
	bus := simulator.NewBus(simulator.NewMPL3115A2(101325, 0, 20), simulator.NewHDC1050(20, 40))
	tr := bitbang.NewBusTransport(bus)
	ctx := context.Background()
	for _, device := range []Device{MPL3115A2Device, HDC1050Device} {
		t.Run(device.String(), func(t *testing.T) {
			d, err := Open(ctx, device, tr)
			require.NoError(t, err)
			assert.Equal(t, device, d.Device())
			require.NoError(t, d.Close(ctx))
		})
	}
	_, err := Open(ctx, Device(42), tr)
	assert.Error(t, err)
}

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice("HDC1050")
	require.NoError(t, err)
	assert.Equal(t, HDC1050Device, d)
	d, err = ParseDevice("alt")
	require.NoError(t, err)
	assert.Equal(t, MPL3115A2Device, d)
	_, err = ParseDevice("bme280")
	assert.Error(t, err)
}
