// Package pigpio drives the bit-banged I2C engine of a pigpiod daemon over
// its socket interface.
//
// Every command is a 16 byte little-endian header (command, p1, p2, p3)
// followed by p3 extension bytes. The daemon echoes the header with p3
// replaced by the result; for a zip the result is also the number of data
// bytes that follow.
package pigpio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mklimuk/weatherstation"
	"github.com/mklimuk/weatherstation/bitbang"
	"github.com/mklimuk/weatherstation/snsctx"
)

const DefaultAddress = "localhost:8888"

const (
	cmdBBI2CC uint32 = 89
	cmdBBI2CO uint32 = 90
	cmdBBI2CZ uint32 = 91

	headerLen = 16
	// maxZipReply is the size of the daemon's zip reply buffer.
	maxZipReply = 1 << 16
)

var ErrProtocol = errors.New("unexpected reply from pigpiod")

var _ weatherstation.Transport = &Client{}

type Client struct {
	address string
	timeout time.Duration
	dial    func(ctx context.Context, network, address string) (net.Conn, error)

	mx   sync.Mutex
	conn net.Conn
}

type ClientOpt func(*Client)

// WithTimeout bounds every command that runs without a context deadline.
func WithTimeout(d time.Duration) ClientOpt {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithDialer(dial func(ctx context.Context, network, address string) (net.Conn, error)) ClientOpt {
	return func(c *Client) {
		c.dial = dial
	}
}

// NewClient returns a client for the daemon at address. The connection is
// established on first use and re-established after a link failure.
func NewClient(address string, opts ...ClientOpt) *Client {
	if address == "" {
		address = DefaultAddress
	}
	var d net.Dialer
	c := &Client{
		address: address,
		timeout: 5 * time.Second,
		dial:    d.DialContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Open(ctx context.Context, sda, scl uint8, baud uint32) error {
	ext := binary.LittleEndian.AppendUint32(nil, baud)
	res, _, err := c.command(ctx, cmdBBI2CO, uint32(sda), uint32(scl), ext, false)
	if err != nil {
		return fmt.Errorf("could not open bus on sda %d scl %d: %w", sda, scl, err)
	}
	if res < 0 {
		return fmt.Errorf("pigpiod refused sda %d scl %d: %w: %w", sda, scl, weatherstation.ErrBusUnavailable, weatherstation.TransportError{Code: int(res)})
	}
	return nil
}

func (c *Client) Zip(ctx context.Context, sda uint8, program []byte) (int, []byte) {
	res, data, err := c.command(ctx, cmdBBI2CZ, uint32(sda), 0, program, true)
	if err != nil {
		if ctx.Err() != nil {
			return bitbang.CodeCanceled, nil
		}
		slog.Error("pigpiod zip failed", "sensor", snsctx.Sensor(ctx), "address", c.address, "error", err)
		return bitbang.CodeLinkFailed, nil
	}
	return int(res), data
}

func (c *Client) Close(ctx context.Context, sda uint8) error {
	res, _, err := c.command(ctx, cmdBBI2CC, uint32(sda), 0, nil, false)
	if err != nil {
		return fmt.Errorf("could not close bus on sda %d: %w", sda, err)
	}
	if res < 0 {
		return fmt.Errorf("pigpiod could not close sda %d: %w", sda, weatherstation.TransportError{Code: int(res)})
	}
	return nil
}

// Disconnect drops the daemon connection. Claimed buses stay claimed on the
// daemon side.
func (c *Client) Disconnect() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.dial(ctx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("could not connect to pigpiod at %s: %w", c.address, err)
	}
	slog.Debug("connected to pigpiod", "address", c.address)
	c.conn = conn
	return conn, nil
}

func (c *Client) command(ctx context.Context, cmd, p1, p2 uint32, ext []byte, extended bool) (int32, []byte, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	conn, err := c.connect(ctx)
	if err != nil {
		return 0, nil, err
	}
	res, data, err := c.exchange(ctx, conn, cmd, p1, p2, ext, extended)
	if err != nil {
		_ = conn.Close()
		c.conn = nil
	}
	return res, data, err
}

func (c *Client) exchange(ctx context.Context, conn net.Conn, cmd, p1, p2 uint32, ext []byte, extended bool) (int32, []byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok && c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, nil, fmt.Errorf("could not set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	req := make([]byte, headerLen, headerLen+len(ext))
	binary.LittleEndian.PutUint32(req[0:], cmd)
	binary.LittleEndian.PutUint32(req[4:], p1)
	binary.LittleEndian.PutUint32(req[8:], p2)
	binary.LittleEndian.PutUint32(req[12:], uint32(len(ext)))
	req = append(req, ext...)
	if snsctx.IsVerbose(ctx) {
		slog.Debug("pigpiod request", "cmd", cmd, "p1", p1, "p2", p2, "ext", fmt.Sprintf("% x", ext))
	}
	if _, err := conn.Write(req); err != nil {
		return 0, nil, fmt.Errorf("could not send command %d: %w", cmd, err)
	}
	resp := make([]byte, headerLen)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return 0, nil, fmt.Errorf("could not read reply to command %d: %w", cmd, err)
	}
	if echo := binary.LittleEndian.Uint32(resp[0:]); echo != cmd {
		return 0, nil, fmt.Errorf("reply to command %d carries command %d: %w", cmd, echo, ErrProtocol)
	}
	res := int32(binary.LittleEndian.Uint32(resp[12:]))
	if !extended || res <= 0 {
		return res, nil, nil
	}
	if res > maxZipReply {
		return 0, nil, fmt.Errorf("reply length %d: %w", res, ErrProtocol)
	}
	data := make([]byte, res)
	if _, err := io.ReadFull(conn, data); err != nil {
		return 0, nil, fmt.Errorf("could not read %d reply bytes: %w", res, err)
	}
	return res, data, nil
}
