package weatherstation

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrBusBusy             = errors.New("I2C engine is busy (command not completed)")
	ErrBusUnavailable      = errors.New("bus unavailable")
	ErrTimeout             = errors.New("sensor not ready before retry limit")
	ErrMalformedReading    = errors.New("malformed reading")
	ErrClosed              = errors.New("driver closed")
	ErrUnsupportedQuantity = errors.New("quantity not supported by device")
)

// TransportError carries the negative status code returned by a bus transaction.
type TransportError struct {
	Code int
}

func (e TransportError) Error() string {
	return fmt.Sprintf("bus transaction failed with status %d", e.Code)
}

// Transport executes bit-banged I2C transaction programs on a pin pair.
// It owns the electrical side of the bus; callers only provide program content.
type Transport interface {
	// Open claims the bus on the given pins. Claim failures wrap ErrBusUnavailable.
	Open(ctx context.Context, sda, scl uint8, baud uint32) error
	// Zip runs one program. A negative status is a transport failure, otherwise
	// it is the number of bytes read into data.
	Zip(ctx context.Context, sda uint8, program []byte) (int, []byte)
	Close(ctx context.Context, sda uint8) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a register-level host bus: every call is a complete
// start/address/data/stop exchange with one device.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Transactor is implemented by buses able to perform a write followed by a
// repeated-start read in a single exchange.
type Transactor interface {
	Tx(ctx context.Context, address byte, w, r []byte) error
}
