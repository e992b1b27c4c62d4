package mavconn

import (
	"errors"
	"fmt"
)

var (
	// ErrTxQueueFull is returned by SendBytes and SendMessage when the
	// transmit queue has reached its configured depth. The queue is left
	// unchanged; the caller decides whether to retry, drop or propagate.
	ErrTxQueueFull = errors.New("mavconn: transmit queue full")
)

// DeviceError reports a failure to open or configure the serial device. No
// Transport is constructed when it is returned.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("mavconn: device %s: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
