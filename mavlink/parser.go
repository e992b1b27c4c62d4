package mavlink

import (
	"go.uber.org/atomic"
)

// FrameHandler receives each checksum-valid frame as soon as it completes.
// The frame and its payload are freshly allocated; the handler owns them.
type FrameHandler func(*Frame)

type parseState int

const (
	stateMagic parseState = iota
	stateLen
	stateSeq
	stateSysID
	stateCompID
	stateMsgID
	statePayload
	stateCRCLow
	stateCRCHigh
)

// Parser is an incremental frame decoder. It keeps state across Parse calls,
// so a byte stream may be fed in arbitrary chunks. Bytes that do not form a
// checksum-valid frame are consumed silently while the parser hunts for the
// next magic byte.
//
// A Parser is not safe for concurrent use; feed it from one goroutine.
type Parser struct {
	handler FrameHandler

	state      parseState
	frame      *Frame
	payloadLen int
	got        int
	crc        x25
	crcLow     byte
	seedKnown  bool
	seed       uint8

	frames    atomic.Uint64
	crcErrors atomic.Uint64
}

// NewParser creates a Parser delivering frames to handler.
func NewParser(handler FrameHandler) *Parser {
	return &Parser{handler: handler}
}

// Frames returns the number of valid frames delivered so far.
func (p *Parser) Frames() uint64 { return p.frames.Load() }

// CRCErrors returns the number of completed frames discarded for checksum
// mismatch or unknown message id.
func (p *Parser) CRCErrors() uint64 { return p.crcErrors.Load() }

// Parse consumes a chunk of inbound bytes.
func (p *Parser) Parse(chunk []byte) {
	for _, b := range chunk {
		p.parseByte(b)
	}
}

func (p *Parser) parseByte(b byte) {
	switch p.state {
	case stateMagic:
		if b != magicV1 {
			return
		}
		p.frame = &Frame{}
		p.crc = newX25()
		p.state = stateLen

	case stateLen:
		p.crc.accumulate(b)
		p.payloadLen = int(b)
		p.state = stateSeq

	case stateSeq:
		p.crc.accumulate(b)
		p.frame.SeqID = b
		p.state = stateSysID

	case stateSysID:
		p.crc.accumulate(b)
		p.frame.SysID = b
		p.state = stateCompID

	case stateCompID:
		p.crc.accumulate(b)
		p.frame.CompID = b
		p.state = stateMsgID

	case stateMsgID:
		p.crc.accumulate(b)
		p.frame.MsgID = b
		p.seed, p.seedKnown = crcExtras[b]
		p.got = 0
		if p.payloadLen == 0 {
			p.state = stateCRCLow
			break
		}
		p.frame.Payload = make([]byte, p.payloadLen)
		p.state = statePayload

	case statePayload:
		p.crc.accumulate(b)
		p.frame.Payload[p.got] = b
		p.got++
		if p.got == p.payloadLen {
			p.state = stateCRCLow
		}

	case stateCRCLow:
		p.crcLow = b
		p.state = stateCRCHigh

	case stateCRCHigh:
		p.finishFrame(uint16(b)<<8 | uint16(p.crcLow))
		p.state = stateMagic
	}
}

// finishFrame validates the completed frame and hands it off. Frames whose
// message id has no registered checksum seed cannot be validated and are
// dropped; the full frame has still been consumed, which keeps the parser in
// sync with the stream.
func (p *Parser) finishFrame(received uint16) {
	if !p.seedKnown {
		p.crcErrors.Inc()
		return
	}
	p.crc.accumulate(p.seed)
	if p.crc.sum() != received {
		p.crcErrors.Inc()
		return
	}

	p.frame.Checksum = received
	p.frames.Inc()
	if p.handler != nil {
		p.handler(p.frame)
	}
	p.frame = nil
}
