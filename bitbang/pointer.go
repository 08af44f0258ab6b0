package bitbang

import (
	"context"

	"github.com/mklimuk/weatherstation"
)

// PointerChannel splits a register read into two transactions: one that
// latches the pointer and one that reads the result later. Devices with a
// conversion cycle between the two need this, a combined read returns stale
// or truncated data.
type PointerChannel struct {
	ch *Channel
}

func NewPointerChannel(transport weatherstation.Transport, opts ...ChannelOpt) *PointerChannel {
	return &PointerChannel{ch: NewChannel(transport, opts...)}
}

func (p *PointerChannel) Open(ctx context.Context) error {
	return p.ch.Open(ctx)
}

func (p *PointerChannel) Write(ctx context.Context, address, register byte, payload []byte) Result {
	return p.ch.Write(ctx, address, register, payload)
}

// SetPointer latches register. The result carries no sensor data.
func (p *PointerChannel) SetPointer(ctx context.Context, address, register byte) Result {
	res := p.ch.zip(ctx, EncodeSetPointer(address, register))
	res.Data = nil
	return res
}

// ReadAfterPointer reads length bytes from the latched pointer.
func (p *PointerChannel) ReadAfterPointer(ctx context.Context, address byte, length int) Result {
	return p.ch.zip(ctx, EncodeReadAfterPointer(address, length))
}

func (p *PointerChannel) Close(ctx context.Context) error {
	return p.ch.Close(ctx)
}
