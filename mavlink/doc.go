// Package mavlink implements the version 1 wire codec for the MAVLink
// telemetry/command protocol: frame encoding, an incremental stream parser
// and a small subset of the common message dialect.
//
// The package has no transport opinion. Encoded frames are plain byte slices
// and the Parser accepts inbound bytes in arbitrary chunks, which makes it
// usable on top of any byte stream.
package mavlink
