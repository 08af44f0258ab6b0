package bitbang

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/weatherstation"
)

var _ weatherstation.Transport = &BusTransport{}

// BusTransport runs transaction programs on a register-level host bus. Writes
// are buffered until STOP, END or a READ so that a pointer write followed by a
// repeated start read reaches a Transactor bus as one exchange.
type BusTransport struct {
	mx      sync.Mutex
	bus     weatherstation.I2CBus
	claimed map[uint8]uint8
}

func NewBusTransport(bus weatherstation.I2CBus) *BusTransport {
	return &BusTransport{
		bus:     bus,
		claimed: make(map[uint8]uint8),
	}
}

func (t *BusTransport) Open(ctx context.Context, sda, scl uint8, baud uint32) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	if sda == scl {
		return fmt.Errorf("sda and scl share pin %d: %w", sda, weatherstation.ErrBusUnavailable)
	}
	for s, c := range t.claimed {
		if s == sda || s == scl || c == sda || c == scl {
			return fmt.Errorf("pins %d/%d already in use: %w", sda, scl, weatherstation.ErrBusUnavailable)
		}
	}
	t.claimed[sda] = scl
	slog.Debug("bus claimed", "sda", sda, "scl", scl, "baud", baud)
	return nil
}

func (t *BusTransport) Close(ctx context.Context, sda uint8) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	if _, ok := t.claimed[sda]; !ok {
		return fmt.Errorf("bus on sda %d is not open", sda)
	}
	delete(t.claimed, sda)
	err := t.bus.Release(ctx)
	if err != nil {
		return fmt.Errorf("could not release bus: %w", err)
	}
	return nil
}

func (t *BusTransport) Zip(ctx context.Context, sda uint8, program []byte) (int, []byte) {
	t.mx.Lock()
	defer t.mx.Unlock()
	if _, ok := t.claimed[sda]; !ok {
		return CodeNotOpen, nil
	}
	if ctx.Err() != nil {
		return CodeCanceled, nil
	}
	return t.run(ctx, program)
}

func (t *BusTransport) run(ctx context.Context, program []byte) (int, []byte) {
	var (
		addr    byte
		pending []byte
		out     []byte
		esc     bool
	)
	flush := func() bool {
		if pending == nil {
			return true
		}
		err := t.bus.WriteToAddr(ctx, addr, pending)
		pending = nil
		if err != nil {
			slog.Debug("bus write failed", "addr", addr, "error", err)
			return false
		}
		return true
	}
	pos := 0
	for pos < len(program) {
		tok := Token(program[pos])
		pos++
		switch tok {
		case End:
			if !flush() {
				return CodeWriteFailed, nil
			}
			return len(out), out
		case Escape:
			esc = true
		case Start:
			// repeated start keeps a pending write so it can pair with a read
		case Stop:
			if !flush() {
				return CodeWriteFailed, nil
			}
		case Address:
			if pos >= len(program) {
				return CodeBadProgram, nil
			}
			if !flush() {
				return CodeWriteFailed, nil
			}
			addr = program[pos]
			pos++
		case Flags:
			if pos+2 > len(program) {
				return CodeBadProgram, nil
			}
			pos += 2
		case Write:
			n, next, ok := operandCount(program, pos, esc)
			esc = false
			if !ok || next+n > len(program) {
				return CodeBadProgram, nil
			}
			if pending == nil {
				pending = make([]byte, 0, n)
			}
			pending = append(pending, program[next:next+n]...)
			pos = next + n
		case Read:
			n, next, ok := operandCount(program, pos, esc)
			esc = false
			if !ok {
				return CodeBadProgram, nil
			}
			pos = next
			buf := make([]byte, n)
			if !t.read(ctx, addr, pending, buf) {
				return CodeReadFailed, nil
			}
			pending = nil
			out = append(out, buf...)
		default:
			return CodeBadProgram, nil
		}
	}
	if !flush() {
		return CodeWriteFailed, nil
	}
	return len(out), out
}

func (t *BusTransport) read(ctx context.Context, addr byte, w, r []byte) bool {
	if tx, ok := t.bus.(weatherstation.Transactor); ok && w != nil {
		err := tx.Tx(ctx, addr, w, r)
		if err != nil {
			slog.Debug("bus transaction failed", "addr", addr, "error", err)
			return false
		}
		return true
	}
	if w != nil {
		err := t.bus.WriteToAddr(ctx, addr, w)
		if err != nil {
			slog.Debug("bus write failed", "addr", addr, "error", err)
			return false
		}
	}
	err := t.bus.ReadFromAddr(ctx, addr, r)
	if err != nil {
		slog.Debug("bus read failed", "addr", addr, "error", err)
		return false
	}
	return true
}

// operandCount decodes a READ/WRITE length at pos, 16-bit little-endian when escaped.
func operandCount(program []byte, pos int, esc bool) (n int, next int, ok bool) {
	if esc {
		if pos+2 > len(program) {
			return 0, pos, false
		}
		return int(program[pos]) | int(program[pos+1])<<8, pos + 2, true
	}
	if pos >= len(program) {
		return 0, pos, false
	}
	return int(program[pos]), pos + 1, true
}
