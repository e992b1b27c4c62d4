package mavconn

import (
	"github.com/rs/zerolog"
)

const (
	// DefaultTxQueueDepth bounds the transmit queue when Config.TxQueueDepth
	// is left zero. A full queue fails the enqueue with ErrTxQueueFull.
	DefaultTxQueueDepth = 1000

	// RxBufSize is the size of the fixed receive scratch buffer. Inbound
	// bytes land here before being handed to the frame parser; the buffer is
	// reused across every read.
	RxBufSize = 1024
)

// Config holds the parameters for opening a Transport.
//
// The line framing is a fixed policy: 8 data bits, no parity, 1 stop bit, no
// flow control. Only the baud rate is configurable.
type Config struct {
	// Device is the path to the serial device, e.g. /dev/ttyUSB0.
	Device string `validate:"required"`

	BaudRate BaudRate `validate:"required"`

	// SystemID and ComponentID identify this end of the link. They are
	// stamped into every frame produced by SendMessage.
	SystemID    uint8 `validate:"required"`
	ComponentID uint8 `validate:"required"`

	// TxQueueDepth bounds the transmit queue. Zero selects
	// DefaultTxQueueDepth.
	TxQueueDepth int `validate:"gte=0"`

	// Logger receives informational and error lines from the transport. Nil
	// disables logging.
	Logger *zerolog.Logger `validate:"-"`
}
