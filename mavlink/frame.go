package mavlink

import (
	"fmt"
)

const (
	// magicV1 marks the start of a version 1 frame.
	magicV1 = 0xFE

	// MaxPayloadLen is the largest payload a single frame can carry.
	MaxPayloadLen = 255

	headerLen = 6 // magic, length, seq, sysid, compid, msgid
	crcLen    = 2
)

// Message is a typed protocol message that can travel in a frame payload.
type Message interface {
	ID() uint8
	MarshalPayload() ([]byte, error)
	UnmarshalPayload(p []byte) error
}

// Frame is one checksum-valid unit of the wire protocol.
type Frame struct {
	SeqID    uint8
	SysID    uint8
	CompID   uint8
	MsgID    uint8
	Payload  []byte
	Checksum uint16
}

// Decode unmarshals the frame payload into its registered message type.
func (f *Frame) Decode() (Message, error) {
	newMsg, ok := registry[f.MsgID]
	if !ok {
		return nil, fmt.Errorf("mavlink: no decoder registered for message id %d", f.MsgID)
	}
	msg := newMsg()
	if err := msg.UnmarshalPayload(f.Payload); err != nil {
		return nil, err
	}
	return msg, nil
}

// EncodeFrame serializes msg into a complete wire frame stamped with the
// given routing identity and sequence number.
func EncodeFrame(msg Message, sysID, compID, seq uint8) ([]byte, error) {
	payload, err := msg.MarshalPayload()
	if err != nil {
		return nil, fmt.Errorf("mavlink: marshal message %d: %w", msg.ID(), err)
	}
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("mavlink: message %d payload too long: %d", msg.ID(), len(payload))
	}
	extra, ok := crcExtras[msg.ID()]
	if !ok {
		return nil, fmt.Errorf("mavlink: no checksum seed registered for message id %d", msg.ID())
	}

	b := make([]byte, 0, headerLen+len(payload)+crcLen)
	b = append(b, magicV1, byte(len(payload)), seq, sysID, compID, msg.ID())
	b = append(b, payload...)

	// Checksum covers everything after the magic byte, plus the per-message
	// seed.
	crc := newX25()
	crc.accumulateBytes(b[1:])
	crc.accumulate(extra)
	sum := crc.sum()

	b = append(b, byte(sum&0xff), byte(sum>>8))
	return b, nil
}
