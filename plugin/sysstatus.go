package plugin

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/musyafaarif/mavros/mavlink"
)

// Heartbeat-rate window parameters. The remote system is expected to beat at
// 1 Hz; anything outside [0.2, 100] Hz with 10% tolerance is flagged.
const (
	hbWindowSize = 10
	hbMinFreq    = 0.2
	hbMaxFreq    = 100.0
	hbTolerance  = 0.1
)

// HeartbeatSummary classifies the observed heartbeat rate.
type HeartbeatSummary string

const (
	HeartbeatNormal   HeartbeatSummary = "normal"
	HeartbeatNoEvents HeartbeatSummary = "no events recorded"
	HeartbeatTooSlow  HeartbeatSummary = "frequency too low"
	HeartbeatTooFast  HeartbeatSummary = "frequency too high"
)

// HeartbeatReport is one diagnostic snapshot of the link's heartbeat health.
type HeartbeatReport struct {
	Summary        HeartbeatSummary
	EventsInWindow int
	EventsTotal    int
	WindowSeconds  float64
	Frequency      float64
	LastHeartbeat  mavlink.Heartbeat
}

// BatteryReport is the last battery state seen in SYS_STATUS.
type BatteryReport struct {
	VoltageMV    uint16
	Current10mA  int16
	RemainingPc  int8
	LoadPermille uint16
}

// SystemStatus aggregates HEARTBEAT, SYS_STATUS and STATUSTEXT traffic into
// health diagnostics: a sliding-window heartbeat frequency monitor, the most
// recent battery state, and remote status text forwarded to the log at the
// severity the sender chose.
type SystemStatus struct {
	log zerolog.Logger
	now func() time.Time

	mu      sync.Mutex
	count   int
	times   []time.Time
	seqNums []int
	histIdx int
	lastHB  mavlink.Heartbeat
	battery BatteryReport
	haveBat bool
}

// NewSystemStatus creates the plugin. A nil logger disables logging.
func NewSystemStatus(log *zerolog.Logger) *SystemStatus {
	l := zerolog.Nop()
	if log != nil {
		l = *log
	}
	s := &SystemStatus{
		log:     l,
		now:     time.Now,
		times:   make([]time.Time, hbWindowSize),
		seqNums: make([]int, hbWindowSize),
	}
	s.reset()
	return s
}

// Name implements Plugin.
func (s *SystemStatus) Name() string { return "sys_status" }

// MessageIDs implements Plugin.
func (s *SystemStatus) MessageIDs() []uint8 {
	return []uint8{mavlink.MsgIDHeartbeat, mavlink.MsgIDSysStatus, mavlink.MsgIDStatusText}
}

// HandleFrame implements Plugin.
func (s *SystemStatus) HandleFrame(f *mavlink.Frame) {
	msg, err := f.Decode()
	if err != nil {
		s.log.Debug().Err(err).Uint8("msgid", f.MsgID).Msg("undecodable frame")
		return
	}

	switch m := msg.(type) {
	case *mavlink.Heartbeat:
		s.tick(*m)
	case *mavlink.SysStatus:
		s.mu.Lock()
		s.battery = BatteryReport{
			VoltageMV:    m.VoltageBattery,
			Current10mA:  m.CurrentBattery,
			RemainingPc:  m.BatteryRemaining,
			LoadPermille: m.Load,
		}
		s.haveBat = true
		s.mu.Unlock()
	case *mavlink.StatusText:
		s.logStatusText(f.SysID, m)
	}
}

func (s *SystemStatus) reset() {
	curtime := s.now()
	s.count = 0
	for i := 0; i < hbWindowSize; i++ {
		s.times[i] = curtime
		s.seqNums[i] = 0
	}
	s.histIdx = 0
}

func (s *SystemStatus) tick(hb mavlink.Heartbeat) {
	s.mu.Lock()
	s.count++
	s.lastHB = hb
	s.mu.Unlock()
}

// Report computes the heartbeat frequency over the sliding window and
// advances the window by one slot, mirroring a periodic diagnostic update.
func (s *SystemStatus) Report() HeartbeatReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	curtime := s.now()
	curseq := s.count
	events := curseq - s.seqNums[s.histIdx]
	window := curtime.Sub(s.times[s.histIdx]).Seconds()
	var freq float64
	if window > 0 {
		freq = float64(events) / window
	}
	s.seqNums[s.histIdx] = curseq
	s.times[s.histIdx] = curtime
	s.histIdx = (s.histIdx + 1) % hbWindowSize

	rep := HeartbeatReport{
		EventsInWindow: events,
		EventsTotal:    curseq,
		WindowSeconds:  window,
		Frequency:      freq,
		LastHeartbeat:  s.lastHB,
	}
	switch {
	case events == 0:
		rep.Summary = HeartbeatNoEvents
	case freq < hbMinFreq*(1-hbTolerance):
		rep.Summary = HeartbeatTooSlow
	case freq > hbMaxFreq*(1+hbTolerance):
		rep.Summary = HeartbeatTooFast
	default:
		rep.Summary = HeartbeatNormal
	}
	return rep
}

// Battery returns the last SYS_STATUS battery state, if one has been seen.
func (s *SystemStatus) Battery() (BatteryReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.battery, s.haveBat
}

func (s *SystemStatus) logStatusText(sysID uint8, m *mavlink.StatusText) {
	var ev *zerolog.Event
	switch {
	case m.Severity <= mavlink.SeverityError:
		ev = s.log.Error()
	case m.Severity == mavlink.SeverityWarning:
		ev = s.log.Warn()
	case m.Severity == mavlink.SeverityDebug:
		ev = s.log.Debug()
	default:
		ev = s.log.Info()
	}
	ev.Uint8("sysid", sysID).Uint8("severity", m.Severity).Msg(m.Text)
}
