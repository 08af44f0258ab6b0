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

func expectMPLSetup(tr *MockTransport, standby, active byte) {
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x26, standby)).Return(0, nil).Once()
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x13, 0x07)).Return(0, nil).Once()
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x26, active)).Return(0, nil).Once()
}

func TestMPL3115A2_SetupSequence(t *testing.T) {
	tests := []struct {
		name    string
		mode    Quantity
		standby byte
		active  byte
	}{
		{"barometric", Pressure, 0x28, 0x29},
		{"altitude", Altitude, 0xB8, 0xB9},
		{"temperature", Temperature, 0x28, 0x29},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr := newMockTransport()
			expectMPLSetup(tr, test.standby, test.active)
			s, err := NewMPL3115A2(context.Background(), tr, WithMode(test.mode))
			require.NoError(t, err)
			assert.Equal(t, Configured, s.State())
			tr.AssertExpectations(t)
		})
	}
}

func TestMPL3115A2_UnsupportedMode(t *testing.T) {
	tr := newMockTransport()
	_, err := NewMPL3115A2(context.Background(), tr, WithMode(Humidity))
	assert.ErrorIs(t, err, weatherstation.ErrUnsupportedQuantity)
	tr.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMPL3115A2_SetupFailureClosesChannel(t *testing.T) {
	tr := newMockTransport()
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x26, 0x28)).Return(-82, nil)
	_, err := NewMPL3115A2(context.Background(), tr)
	var terr weatherstation.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, -82, terr.Code)
	tr.AssertCalled(t, "Close", mock.Anything, uint8(6))
}

func TestMPL3115A2_OpenFailure(t *testing.T) {
	tr := &MockTransport{}
	tr.On("Open", mock.Anything, uint8(6), uint8(13), uint32(100_000)).Return(weatherstation.ErrBusUnavailable)
	_, err := NewMPL3115A2(context.Background(), tr)
	assert.ErrorIs(t, err, weatherstation.ErrBusUnavailable)
	tr.AssertNotCalled(t, "Close", mock.Anything, mock.Anything)
}

func TestMPL3115A2_PressureFixture(t *testing.T) {
	tr := newMockTransport()
	expectMPLSetup(tr, 0x28, 0x29)
	tr.On("Zip", mock.Anything, uint8(6), readProgram(0x60, 0x00, 1)).Return(2, []byte{0x08, 0x01})
	tr.On("Zip", mock.Anything, uint8(6), readProgram(0x60, 0x01, 5)).Return(6, []byte{0x01, 0x86, 0xA0, 0x00, 0x00, 0x00})
	ctx := context.Background()
	s, err := NewMPL3115A2(ctx, tr)
	require.NoError(t, err)

	ready, err := s.IsReady(ctx)
	require.NoError(t, err)
	assert.True(t, ready)

	raw, err := s.FetchRaw(ctx)
	require.NoError(t, err)
	require.True(t, raw.Ready())
	p, ok := s.Decode(raw.Data, Pressure)
	require.True(t, ok)
	assert.Equal(t, 1562.5, p)
	temp, ok := s.Decode(raw.Data, Temperature)
	require.True(t, ok)
	assert.Equal(t, 0.0, temp)

	require.NoError(t, s.Close(ctx))
	tr.AssertExpectations(t)
}

func TestMPL3115A2_FetchBeforeReady(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		data   []byte
		status bitbang.Status
	}{
		{"flag clear", 2, []byte{0x06, 0x00}, bitbang.NotReady},
		{"empty read", 0, nil, bitbang.NotReady},
		{"transport error", -83, nil, bitbang.Failed},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr := newMockTransport()
			expectMPLSetup(tr, 0x28, 0x29)
			tr.On("Zip", mock.Anything, uint8(6), readProgram(0x60, 0x00, 1)).Return(test.code, test.data)
			ctx := context.Background()
			s, err := NewMPL3115A2(ctx, tr)
			require.NoError(t, err)

			ready, err := s.IsReady(ctx)
			require.NoError(t, err)
			assert.False(t, ready)
			raw, err := s.FetchRaw(ctx)
			require.NoError(t, err)
			assert.Equal(t, test.status, raw.Status)
			assert.Nil(t, raw.Data)
			tr.AssertNotCalled(t, "Zip", mock.Anything, uint8(6), readProgram(0x60, 0x01, 5))
		})
	}
}

func TestMPL3115A2_DecodeMalformed(t *testing.T) {
	s := &MPL3115A2{}
	for _, raw := range [][]byte{nil, {0x01}, {0x01, 0x86, 0xA0, 0x00, 0x00}, make([]byte, 7)} {
		for _, q := range []Quantity{Pressure, Altitude, Temperature} {
			_, ok := s.Decode(raw, q)
			assert.False(t, ok, "len %d %s", len(raw), q)
		}
	}
	_, ok := s.Decode(make([]byte, 6), Humidity)
	assert.False(t, ok)
}

func TestMPL3115A2_ModeSwitchRewritesBoth(t *testing.T) {
	tr := newMockTransport()
	expectMPLSetup(tr, 0x28, 0x29)
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x26, 0xB8)).Return(0, nil).Once()
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x26, 0xB9)).Return(0, nil).Once()
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x26, 0xB8)).Return(0, nil).Once()
	tr.On("Zip", mock.Anything, uint8(6), writeProgram(0x60, 0x26, 0xB9)).Return(0, nil).Once()
	ctx := context.Background()
	s, err := NewMPL3115A2(ctx, tr)
	require.NoError(t, err)

	require.NoError(t, s.Configure(ctx, Altitude))
	assert.Equal(t, Altitude, s.Mode())
	// temperature keeps altitude mode
	require.NoError(t, s.Configure(ctx, Temperature))
	assert.Equal(t, Altitude, s.Mode())
	assert.ErrorIs(t, s.Configure(ctx, Humidity), weatherstation.ErrUnsupportedQuantity)
	tr.AssertExpectations(t)
}

func TestMPL3115A2_Closed(t *testing.T) {
	tr := newMockTransport()
	expectMPLSetup(tr, 0x28, 0x29)
	ctx := context.Background()
	s, err := NewMPL3115A2(ctx, tr)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, Closed, s.State())

	_, err = s.IsReady(ctx)
	assert.ErrorIs(t, err, weatherstation.ErrClosed)
	_, err = s.FetchRaw(ctx)
	assert.ErrorIs(t, err, weatherstation.ErrClosed)
	assert.ErrorIs(t, s.Configure(ctx, Pressure), weatherstation.ErrClosed)
	assert.ErrorIs(t, s.Close(ctx), weatherstation.ErrClosed)
	tr.AssertNumberOfCalls(t, "Close", 1)
}

func TestMPL3115A2_Simulated(t *testing.T) {
	dev := simulator.NewMPL3115A2(101325, -12.25, 21.5)
	dev.ConversionPolls = 2
	tr := bitbang.NewBusTransport(simulator.NewBus(dev))
	ctx := context.Background()
	s, err := NewMPL3115A2(ctx, tr, WithMode(Altitude))
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()
	assert.Equal(t, byte(0xB9), dev.Register(0x26))
	assert.Equal(t, byte(0x07), dev.Register(0x13))

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
	assert.Equal(t, 2, polls)
	raw, err := s.FetchRaw(ctx)
	require.NoError(t, err)
	require.Len(t, raw.Data, 6)
	alt, ok := s.Decode(raw.Data, Altitude)
	require.True(t, ok)
	assert.Equal(t, -12.25, alt)
	temp, _ := s.Decode(raw.Data, Temperature)
	assert.Equal(t, 21.5, temp)

	id, err := s.Identify(ctx)
	require.NoError(t, err)
	assert.Equal(t, MPL3115A2WhoAmI, id)
}
