package measure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Interval: time.Second, Backoff: 2, MaxInterval: 5 * time.Second}
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(400))

	constant := DefaultRetryPolicy()
	assert.Equal(t, time.Second, constant.Delay(1))
	assert.Equal(t, time.Second, constant.Delay(30))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.False(t, p.exhausted(59))
	assert.True(t, p.exhausted(60))
	unbounded := RetryPolicy{}
	assert.False(t, unbounded.exhausted(1_000_000))
}

func TestWait_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, wait(ctx, 0), context.Canceled)
	assert.NoError(t, wait(context.Background(), time.Millisecond))
}

func TestSnapshot_Env(t *testing.T) {
	snap := Snapshot{Pressure: 101325, Altitude: -12.25, Humidity: 45.3, HumidityTemperature: 21.5}
	env := snap.Env()
	assert.Equal(t, 101325*physic.Pascal, env.Pressure)
	assert.Equal(t, physic.ZeroCelsius+21500*physic.MilliCelsius, env.Temperature)
	assert.Equal(t, 453*physic.PercentRH/10, env.Humidity)
	assert.Equal(t, -12250*physic.MilliMetre, snap.Elevation())
}
