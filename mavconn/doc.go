// Package mavconn implements an asynchronous serial transport for a framed
// binary telemetry/command protocol.
//
// A Transport owns an open serial device and two background goroutines: a
// read loop that hands every inbound chunk to an incremental frame parser in
// arrival order, and a write loop that drains a bounded FIFO transmit queue
// onto the wire one buffer at a time. Any number of goroutines may enqueue
// outbound data concurrently; they never touch the device themselves.
//
// The transport is single-use. Once closed, whether explicitly or because of
// an I/O error, it never reopens; construct a new one for a new session.
package mavconn
