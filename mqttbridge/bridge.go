// Package mqttbridge republishes decoded telemetry frames to an MQTT broker
// as JSON messages, one topic per message type under a configurable prefix.
package mqttbridge

import (
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/musyafaarif/mavros/mavlink"
)

// Publisher is the narrow broker surface the bridge needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// pahoPublisher adapts a paho client to Publisher.
type pahoPublisher struct {
	c paho.Client
}

func (p pahoPublisher) Publish(topic string, payload []byte) error {
	tok := p.c.Publish(topic, 0, false, payload)
	tok.Wait()
	return tok.Error()
}

// Connect dials the broker and returns a Publisher backed by it, plus a
// disconnect function.
func Connect(brokerURL, clientID string) (Publisher, func(), error) {
	opts := paho.NewClientOptions().AddBroker(brokerURL).SetClientID(clientID)
	c := paho.NewClient(opts)
	tok := c.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return nil, nil, err
	}
	return pahoPublisher{c: c}, func() { c.Disconnect(250) }, nil
}

// Bridge forwards HEARTBEAT, SYS_STATUS and STATUSTEXT frames to the broker.
// It implements the plugin interface, so it registers on a router like any
// other frame consumer. Publish failures are logged and dropped; the bridge
// never applies backpressure to the transport's read path.
type Bridge struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger
}

// New creates a Bridge publishing under topicPrefix. A nil logger disables
// logging.
func New(pub Publisher, topicPrefix string, log *zerolog.Logger) *Bridge {
	l := zerolog.Nop()
	if log != nil {
		l = *log
	}
	return &Bridge{pub: pub, prefix: topicPrefix, log: l}
}

// Name implements the plugin interface.
func (b *Bridge) Name() string { return "mqtt_bridge" }

// MessageIDs implements the plugin interface.
func (b *Bridge) MessageIDs() []uint8 {
	return []uint8{mavlink.MsgIDHeartbeat, mavlink.MsgIDSysStatus, mavlink.MsgIDStatusText}
}

type heartbeatEvent struct {
	SysID        uint8  `json:"sys_id"`
	CompID       uint8  `json:"comp_id"`
	Type         uint8  `json:"type"`
	Autopilot    uint8  `json:"autopilot"`
	BaseMode     uint8  `json:"base_mode"`
	CustomMode   uint32 `json:"custom_mode"`
	SystemStatus uint8  `json:"system_status"`
}

type sysStatusEvent struct {
	SysID            uint8  `json:"sys_id"`
	Load             uint16 `json:"load"`
	VoltageBattery   uint16 `json:"voltage_battery_mv"`
	CurrentBattery   int16  `json:"current_battery_10ma"`
	BatteryRemaining int8   `json:"battery_remaining_pc"`
	DropRateComm     uint16 `json:"drop_rate_comm"`
	ErrorsComm       uint16 `json:"errors_comm"`
}

type statusTextEvent struct {
	SysID    uint8  `json:"sys_id"`
	Severity uint8  `json:"severity"`
	Text     string `json:"text"`
}

// HandleFrame implements the plugin interface.
func (b *Bridge) HandleFrame(f *mavlink.Frame) {
	msg, err := f.Decode()
	if err != nil {
		b.log.Debug().Err(err).Uint8("msgid", f.MsgID).Msg("undecodable frame")
		return
	}

	var topic string
	var event any
	switch m := msg.(type) {
	case *mavlink.Heartbeat:
		topic = b.prefix + "/heartbeat"
		event = heartbeatEvent{
			SysID:        f.SysID,
			CompID:       f.CompID,
			Type:         m.Type,
			Autopilot:    m.Autopilot,
			BaseMode:     m.BaseMode,
			CustomMode:   m.CustomMode,
			SystemStatus: m.SystemStatus,
		}
	case *mavlink.SysStatus:
		topic = b.prefix + "/sys_status"
		event = sysStatusEvent{
			SysID:            f.SysID,
			Load:             m.Load,
			VoltageBattery:   m.VoltageBattery,
			CurrentBattery:   m.CurrentBattery,
			BatteryRemaining: m.BatteryRemaining,
			DropRateComm:     m.DropRateComm,
			ErrorsComm:       m.ErrorsComm,
		}
	case *mavlink.StatusText:
		topic = b.prefix + "/statustext"
		event = statusTextEvent{
			SysID:    f.SysID,
			Severity: m.Severity,
			Text:     m.Text,
		}
	default:
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("marshaling event")
		return
	}
	if err := b.pub.Publish(topic, payload); err != nil {
		b.log.Warn().Err(err).Str("topic", topic).Msg("publish failed, dropping event")
	}
}
