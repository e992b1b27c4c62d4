package mavlink

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Message IDs of the common-dialect subset carried by this package.
const (
	MsgIDHeartbeat  uint8 = 0
	MsgIDSysStatus  uint8 = 1
	MsgIDSystemTime uint8 = 2
	MsgIDStatusText uint8 = 253
)

// crcExtras seeds the frame checksum per message type. A frame whose id is
// missing here cannot be validated and is dropped by the parser.
var crcExtras = map[uint8]uint8{
	MsgIDHeartbeat:  50,
	MsgIDSysStatus:  124,
	MsgIDSystemTime: 137,
	MsgIDStatusText: 83,
}

var registry = map[uint8]func() Message{
	MsgIDHeartbeat:  func() Message { return &Heartbeat{} },
	MsgIDSysStatus:  func() Message { return &SysStatus{} },
	MsgIDSystemTime: func() Message { return &SystemTime{} },
	MsgIDStatusText: func() Message { return &StatusText{} },
}

// Register adds a constructor and checksum seed for a dialect message not
// built into this package. Call it from init; the registries are not
// synchronized for concurrent mutation.
func Register(id uint8, crcExtra uint8, newMsg func() Message) {
	crcExtras[id] = crcExtra
	registry[id] = newMsg
}

// Heartbeat reports the type and state of the remote system (msg id 0).
type Heartbeat struct {
	CustomMode     uint32
	Type           uint8
	Autopilot      uint8
	BaseMode       uint8
	SystemStatus   uint8
	MavlinkVersion uint8
}

func (m *Heartbeat) ID() uint8 { return MsgIDHeartbeat }

func (m *Heartbeat) MarshalPayload() ([]byte, error) {
	b := make([]byte, 9)
	binary.LittleEndian.PutUint32(b[0:4], m.CustomMode)
	b[4] = m.Type
	b[5] = m.Autopilot
	b[6] = m.BaseMode
	b[7] = m.SystemStatus
	b[8] = m.MavlinkVersion
	return b, nil
}

func (m *Heartbeat) UnmarshalPayload(p []byte) error {
	if len(p) < 9 {
		return fmt.Errorf("mavlink: heartbeat payload too short: %d", len(p))
	}
	m.CustomMode = binary.LittleEndian.Uint32(p[0:4])
	m.Type = p[4]
	m.Autopilot = p[5]
	m.BaseMode = p[6]
	m.SystemStatus = p[7]
	m.MavlinkVersion = p[8]
	return nil
}

// SysStatus carries the onboard health and battery report (msg id 1).
type SysStatus struct {
	SensorsPresent   uint32
	SensorsEnabled   uint32
	SensorsHealth    uint32
	Load             uint16 // 0..1000, in 0.1%
	VoltageBattery   uint16 // mV
	CurrentBattery   int16  // 10 mA units, -1 when not measured
	DropRateComm     uint16
	ErrorsComm       uint16
	ErrorsCount1     uint16
	ErrorsCount2     uint16
	ErrorsCount3     uint16
	ErrorsCount4     uint16
	BatteryRemaining int8 // percent, -1 when not estimated
}

func (m *SysStatus) ID() uint8 { return MsgIDSysStatus }

func (m *SysStatus) MarshalPayload() ([]byte, error) {
	b := make([]byte, 31)
	binary.LittleEndian.PutUint32(b[0:4], m.SensorsPresent)
	binary.LittleEndian.PutUint32(b[4:8], m.SensorsEnabled)
	binary.LittleEndian.PutUint32(b[8:12], m.SensorsHealth)
	binary.LittleEndian.PutUint16(b[12:14], m.Load)
	binary.LittleEndian.PutUint16(b[14:16], m.VoltageBattery)
	binary.LittleEndian.PutUint16(b[16:18], uint16(m.CurrentBattery))
	binary.LittleEndian.PutUint16(b[18:20], m.DropRateComm)
	binary.LittleEndian.PutUint16(b[20:22], m.ErrorsComm)
	binary.LittleEndian.PutUint16(b[22:24], m.ErrorsCount1)
	binary.LittleEndian.PutUint16(b[24:26], m.ErrorsCount2)
	binary.LittleEndian.PutUint16(b[26:28], m.ErrorsCount3)
	binary.LittleEndian.PutUint16(b[28:30], m.ErrorsCount4)
	b[30] = byte(m.BatteryRemaining)
	return b, nil
}

func (m *SysStatus) UnmarshalPayload(p []byte) error {
	if len(p) < 31 {
		return fmt.Errorf("mavlink: sys_status payload too short: %d", len(p))
	}
	m.SensorsPresent = binary.LittleEndian.Uint32(p[0:4])
	m.SensorsEnabled = binary.LittleEndian.Uint32(p[4:8])
	m.SensorsHealth = binary.LittleEndian.Uint32(p[8:12])
	m.Load = binary.LittleEndian.Uint16(p[12:14])
	m.VoltageBattery = binary.LittleEndian.Uint16(p[14:16])
	m.CurrentBattery = int16(binary.LittleEndian.Uint16(p[16:18]))
	m.DropRateComm = binary.LittleEndian.Uint16(p[18:20])
	m.ErrorsComm = binary.LittleEndian.Uint16(p[20:22])
	m.ErrorsCount1 = binary.LittleEndian.Uint16(p[22:24])
	m.ErrorsCount2 = binary.LittleEndian.Uint16(p[24:26])
	m.ErrorsCount3 = binary.LittleEndian.Uint16(p[26:28])
	m.ErrorsCount4 = binary.LittleEndian.Uint16(p[28:30])
	m.BatteryRemaining = int8(p[30])
	return nil
}

// SystemTime synchronizes the onboard and companion clocks (msg id 2).
type SystemTime struct {
	TimeUnixUsec uint64
	TimeBootMs   uint32
}

func (m *SystemTime) ID() uint8 { return MsgIDSystemTime }

func (m *SystemTime) MarshalPayload() ([]byte, error) {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint64(b[0:8], m.TimeUnixUsec)
	binary.LittleEndian.PutUint32(b[8:12], m.TimeBootMs)
	return b, nil
}

func (m *SystemTime) UnmarshalPayload(p []byte) error {
	if len(p) < 12 {
		return fmt.Errorf("mavlink: system_time payload too short: %d", len(p))
	}
	m.TimeUnixUsec = binary.LittleEndian.Uint64(p[0:8])
	m.TimeBootMs = binary.LittleEndian.Uint32(p[8:12])
	return nil
}

// StatusText severity levels, highest first.
const (
	SeverityEmergency uint8 = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

const statusTextLen = 50

// StatusText is a free-text status report from the remote system
// (msg id 253). Text longer than 50 bytes is truncated on the wire.
type StatusText struct {
	Severity uint8
	Text     string
}

func (m *StatusText) ID() uint8 { return MsgIDStatusText }

func (m *StatusText) MarshalPayload() ([]byte, error) {
	b := make([]byte, 1+statusTextLen)
	b[0] = m.Severity
	copy(b[1:], m.Text)
	return b, nil
}

func (m *StatusText) UnmarshalPayload(p []byte) error {
	if len(p) < 1+statusTextLen {
		return fmt.Errorf("mavlink: statustext payload too short: %d", len(p))
	}
	m.Severity = p[0]
	text := p[1 : 1+statusTextLen]
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	m.Text = string(text)
	return nil
}
