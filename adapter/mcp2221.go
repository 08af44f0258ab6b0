package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const (
	cmdStatus          = 0x10
	cmdGetI2CData      = 0x40
	cmdWriteI2C        = 0x90
	cmdReadI2C         = 0x91
	cmdReadI2CRepeated = 0x93
	cmdWriteI2CNoStop  = 0x94

	cancelTransfer = 0x10
	reportLen      = 64
	// maxChunk is the largest transfer a single report can carry.
	maxChunk = 60
)

var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

var (
	_ weatherstation.I2CBus     = &MCP2221{}
	_ weatherstation.Transactor = &MCP2221{}
)

// Device is an open HID report channel.
type Device interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	open         func() (Device, error)
}

type MCP2221Status struct {
	I2CDataBufferCounter   int
	I2CSpeedDivider        int
	I2CTimeout             int
	CurrentAddress         string
	LastWriteRequestedSize uint16
	LastWriteSentSize      uint16
	ReadPending            int
}

type MCP2221Opt func(*MCP2221)

// WithDeviceIndex selects one adapter when several are plugged in.
func WithDeviceIndex(id int) MCP2221Opt {
	return func(d *MCP2221) {
		d.open = func() (Device, error) {
			return openHID(id)
		}
	}
}

func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

// WithOpener replaces HID enumeration with a custom device source.
func WithOpener(open func() (Device, error)) MCP2221Opt {
	return func(d *MCP2221) {
		d.open = open
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, reportLen),
		response:     make([]byte, reportLen),
		responseWait: 50 * time.Millisecond,
		open: func() (Device, error) {
			return openHID(-1)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enumerate lists the attached adapters; the position of an entry is the
// index accepted by WithDeviceIndex.
func Enumerate() []hid.DeviceInfo {
	return hid.Enumerate(VendorID, ProductID)
}

func openHID(id int) (Device, error) {
	devs := Enumerate()
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	if id < 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification: %d adapters found", len(devs))
		}
		id = 0
	}
	if id >= len(devs) {
		return nil, fmt.Errorf("no device with id %d", id)
	}
	dev, err := devs[id].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.write(ctx, cmdWriteI2C, address, buffer)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.read(ctx, cmdReadI2C, address, buffer)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	return nil
}

// Tx writes w without a stop condition and reads r after a repeated start.
func (d *MCP2221) Tx(ctx context.Context, address byte, w, r []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(r) == 0 {
		err := d.write(ctx, cmdWriteI2C, address, w)
		if err != nil {
			return fmt.Errorf("write to %x failed: %w", address, err)
		}
		return nil
	}
	err := d.write(ctx, cmdWriteI2CNoStop, address, w)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	err = d.read(ctx, cmdReadI2CRepeated, address, r)
	if err != nil {
		return fmt.Errorf("repeated start read from %x failed: %w", address, err)
	}
	return nil
}

func (d *MCP2221) write(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	if len(buffer) > maxChunk {
		return fmt.Errorf("transfer of %d bytes exceeds %d", len(buffer), maxChunk)
	}
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return err
	}
	// write could not be performed
	if d.response[1] == 0x01 {
		slog.Debug("adapter busy", "sensor", snsctx.Sensor(ctx))
		return weatherstation.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) read(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	if len(buffer) > maxChunk {
		return fmt.Errorf("transfer of %d bytes exceeds %d", len(buffer), maxChunk)
	}
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return err
	}
	if d.response[1] == 0x01 {
		return weatherstation.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetI2CData
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine: %w", ErrCommandFailed)
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:4+len(buffer)])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// Release cancels any pending transfer so the engine frees the bus.
func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = cancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Debug("could not close adapter", "error", err)
		}
	}()
	verbose := snsctx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "sensor", snsctx.Sensor(ctx), "request", hex.EncodeToString(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportLen {
		return fmt.Errorf("short write: %d", n)
	}
	if err := sleep(ctx, d.responseWait); err != nil {
		return err
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportLen {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "sensor", snsctx.Sensor(ctx), "response", hex.EncodeToString(d.response))
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
