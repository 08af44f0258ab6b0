package bitbang

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/snsctx"
)

// Bus wiring of the weather station board.
const (
	DefaultSDA  uint8  = 6
	DefaultSCL  uint8  = 13
	DefaultBaud uint32 = 100_000
)

type ChannelConfig struct {
	SDA  uint8
	SCL  uint8
	Baud uint32
}

type ChannelOpt func(*ChannelConfig)

func WithPins(sda, scl uint8) ChannelOpt {
	return func(c *ChannelConfig) {
		c.SDA = sda
		c.SCL = scl
	}
}

func WithBaud(baud uint32) ChannelOpt {
	return func(c *ChannelConfig) {
		c.Baud = baud
	}
}

// Channel is one emulated I2C bus on a fixed pin pair. It is not safe for
// concurrent use; a bus is owned by exactly one driver.
type Channel struct {
	transport weatherstation.Transport
	config    ChannelConfig
	open      bool
}

func NewChannel(transport weatherstation.Transport, opts ...ChannelOpt) *Channel {
	config := ChannelConfig{
		SDA:  DefaultSDA,
		SCL:  DefaultSCL,
		Baud: DefaultBaud,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Channel{transport: transport, config: config}
}

// Open claims the bus. Calling it on an open channel is a no-op.
func (c *Channel) Open(ctx context.Context) error {
	if c.open {
		return nil
	}
	err := c.transport.Open(ctx, c.config.SDA, c.config.SCL, c.config.Baud)
	if err != nil {
		return fmt.Errorf("could not open bus on sda %d scl %d: %w", c.config.SDA, c.config.SCL, err)
	}
	c.open = true
	return nil
}

// Read reads length+1 bytes starting at register in one combined transaction.
func (c *Channel) Read(ctx context.Context, address, register byte, length int) Result {
	return c.zip(ctx, EncodeRead(address, register, length))
}

// Write writes payload to register. Payload must carry at least one byte.
func (c *Channel) Write(ctx context.Context, address, register byte, payload []byte) Result {
	return c.zip(ctx, EncodeWrite(address, register, payload))
}

// WriteValue writes a single byte to register.
func (c *Channel) WriteValue(ctx context.Context, address, register, value byte) Result {
	return c.Write(ctx, address, register, []byte{value})
}

// Close releases the bus claim. It must be called once per successful Open.
func (c *Channel) Close(ctx context.Context) error {
	c.open = false
	err := c.transport.Close(ctx, c.config.SDA)
	if err != nil {
		return fmt.Errorf("could not close bus on sda %d: %w", c.config.SDA, err)
	}
	return nil
}

func (c *Channel) zip(ctx context.Context, p Program) Result {
	if !c.open {
		return Result{Status: Failed, Code: CodeNotOpen}
	}
	code, data := c.transport.Zip(ctx, c.config.SDA, p)
	if snsctx.IsVerbose(ctx) {
		slog.Debug("bus transaction", "sensor", snsctx.Sensor(ctx), "program", hex.EncodeToString(p), "status", code, "data", hex.EncodeToString(data))
	}
	return FromZip(code, data)
}
