package mavconn

import (
	gobug "go.bug.st/serial"
)

// Port abstracts the subset of go.bug.st/serial.Port used by the transport.
// The device handle is touched only by the transport's I/O goroutines; Close
// may additionally be called from Close() to unblock an in-flight Read.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// allow tests to override external dependencies
var openPort = func(name string, mode *gobug.Mode) (Port, error) {
	return gobug.Open(name, mode)
}
