package mavlink

import (
	"testing"
)

func mustEncode(t *testing.T, msg Message, sysID, compID, seq uint8) []byte {
	t.Helper()
	b, err := EncodeFrame(msg, sysID, compID, seq)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	return b
}

func collectFrames(frames *[]*Frame) *Parser {
	return NewParser(func(f *Frame) { *frames = append(*frames, f) })
}

func TestEncodeFrameLayout(t *testing.T) {
	hb := &Heartbeat{Type: 6, Autopilot: 8, SystemStatus: 4, MavlinkVersion: 3}
	b := mustEncode(t, hb, 42, 7, 11)

	if len(b) != headerLen+9+crcLen {
		t.Fatalf("frame length = %d, want %d", len(b), headerLen+9+crcLen)
	}
	if b[0] != magicV1 {
		t.Fatalf("magic = %#x, want %#x", b[0], magicV1)
	}
	if b[1] != 9 {
		t.Fatalf("payload length = %d, want 9", b[1])
	}
	if b[2] != 11 || b[3] != 42 || b[4] != 7 || b[5] != MsgIDHeartbeat {
		t.Fatalf("header = % x, want seq=11 sys=42 comp=7 msgid=0", b[2:6])
	}
}

func TestParserRoundTrip(t *testing.T) {
	want := &Heartbeat{
		CustomMode:     0xdeadbeef,
		Type:           2,
		Autopilot:      12,
		BaseMode:       0x81,
		SystemStatus:   4,
		MavlinkVersion: 3,
	}
	raw := mustEncode(t, want, 1, 1, 0)

	var frames []*Frame
	p := collectFrames(&frames)
	p.Parse(raw)

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if p.Frames() != 1 || p.CRCErrors() != 0 {
		t.Fatalf("counters = %d/%d, want 1/0", p.Frames(), p.CRCErrors())
	}

	msg, err := frames[0].Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := msg.(*Heartbeat)
	if !ok {
		t.Fatalf("decoded %T, want *Heartbeat", msg)
	}
	if *got != *want {
		t.Fatalf("decoded heartbeat = %+v, want %+v", got, want)
	}
}

// TestParserChunkedInput feeds two frames one byte at a time; parse state
// must survive across calls.
func TestParserChunkedInput(t *testing.T) {
	raw := append(
		mustEncode(t, &Heartbeat{Type: 1}, 1, 1, 0),
		mustEncode(t, &SystemTime{TimeUnixUsec: 1234, TimeBootMs: 99}, 1, 1, 1)...,
	)

	var frames []*Frame
	p := collectFrames(&frames)
	for _, b := range raw {
		p.Parse([]byte{b})
	}

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].MsgID != MsgIDHeartbeat || frames[1].MsgID != MsgIDSystemTime {
		t.Fatalf("msgids = %d,%d", frames[0].MsgID, frames[1].MsgID)
	}
}

func TestParserSkipsGarbage(t *testing.T) {
	frame := mustEncode(t, &Heartbeat{Type: 1}, 1, 1, 5)

	var stream []byte
	stream = append(stream, 0x00, 0x12, 0x55, 0xfd)
	stream = append(stream, frame...)
	stream = append(stream, 0xaa, 0xbb)
	stream = append(stream, mustEncode(t, &Heartbeat{Type: 2}, 1, 1, 6)...)

	var frames []*Frame
	p := collectFrames(&frames)
	p.Parse(stream)

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].SeqID != 5 || frames[1].SeqID != 6 {
		t.Fatalf("seqs = %d,%d, want 5,6", frames[0].SeqID, frames[1].SeqID)
	}
}

func TestParserRejectsCorruptFrame(t *testing.T) {
	raw := mustEncode(t, &Heartbeat{Type: 1}, 1, 1, 0)
	raw[headerLen] ^= 0xff // first payload byte

	var frames []*Frame
	p := collectFrames(&frames)
	p.Parse(raw)

	if len(frames) != 0 {
		t.Fatalf("corrupt frame delivered")
	}
	if p.CRCErrors() != 1 {
		t.Fatalf("crc errors = %d, want 1", p.CRCErrors())
	}

	// Parser must recover for the next valid frame.
	p.Parse(mustEncode(t, &Heartbeat{Type: 2}, 1, 1, 1))
	if len(frames) != 1 {
		t.Fatalf("parser did not recover after corrupt frame")
	}
}

// TestParserConsumesUnknownMessage crafts a frame with an unregistered
// message id. It cannot be validated, so it is dropped, but the parser must
// consume its full length and stay in sync with the following frame.
func TestParserConsumesUnknownMessage(t *testing.T) {
	raw := mustEncode(t, &Heartbeat{Type: 1}, 1, 1, 0)
	raw[5] = 200 // no checksum seed registered for this id

	var frames []*Frame
	p := collectFrames(&frames)
	p.Parse(raw)
	p.Parse(mustEncode(t, &Heartbeat{Type: 2}, 1, 1, 1))

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if p.CRCErrors() != 1 {
		t.Fatalf("dropped-frame counter = %d, want 1", p.CRCErrors())
	}
	if frames[0].SeqID != 1 {
		t.Fatalf("surviving frame seq = %d, want 1", frames[0].SeqID)
	}
}

func TestStatusTextTruncationAndTrim(t *testing.T) {
	long := &StatusText{Severity: SeverityWarning}
	for i := 0; i < 80; i++ {
		long.Text += "x"
	}
	payload, err := long.MarshalPayload()
	if err != nil {
		t.Fatalf("MarshalPayload: %v", err)
	}
	if len(payload) != 1+statusTextLen {
		t.Fatalf("payload length = %d, want %d", len(payload), 1+statusTextLen)
	}

	var back StatusText
	if err := back.UnmarshalPayload(payload); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if len(back.Text) != statusTextLen {
		t.Fatalf("text truncated to %d bytes, want %d", len(back.Text), statusTextLen)
	}

	short := &StatusText{Severity: SeverityInfo, Text: "armed"}
	payload, _ = short.MarshalPayload()
	if err := back.UnmarshalPayload(payload); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if back.Text != "armed" {
		t.Fatalf("text = %q, want %q (padding not trimmed)", back.Text, "armed")
	}
}

func TestPayloadLengthChecks(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want int
	}{
		{"heartbeat", &Heartbeat{}, 9},
		{"sys_status", &SysStatus{}, 31},
		{"system_time", &SystemTime{}, 12},
		{"statustext", &StatusText{}, 51},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.msg.MarshalPayload()
			if err != nil {
				t.Fatalf("MarshalPayload: %v", err)
			}
			if len(p) != tt.want {
				t.Fatalf("payload length = %d, want %d", len(p), tt.want)
			}
			if err := tt.msg.UnmarshalPayload(p[:len(p)-1]); err == nil {
				t.Fatalf("expected error for short payload")
			}
		})
	}
}

func TestSysStatusRoundTrip(t *testing.T) {
	want := &SysStatus{
		SensorsPresent:   0x0f,
		SensorsEnabled:   0x0e,
		SensorsHealth:    0x0c,
		Load:             512,
		VoltageBattery:   11800,
		CurrentBattery:   -1,
		BatteryRemaining: -1,
		ErrorsComm:       3,
	}
	raw := mustEncode(t, want, 1, 1, 0)

	var frames []*Frame
	collect := collectFrames(&frames)
	collect.Parse(raw)

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	msg, err := frames[0].Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := msg.(*SysStatus); *got != *want {
		t.Fatalf("decoded = %+v, want %+v", got, want)
	}
}
