package mavconn

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"
	gobug "go.bug.st/serial"
	"go.uber.org/atomic"

	"github.com/musyafaarif/mavros/mavlink"
)

// FrameParser consumes raw inbound bytes, incrementally and statefully
// across calls. The transport invokes it from its read goroutine only, with
// chunks in exact arrival order.
type FrameParser interface {
	Parse(p []byte)
}

// IOStat is a snapshot of the transport's cumulative byte counters.
type IOStat struct {
	TxBytes uint64
	RxBytes uint64
}

// txBuffer is one queued unit of bytes awaiting transmission. pos tracks how
// much has already been flushed to the device; the buffer leaves the queue
// only once pos reaches len(data).
type txBuffer struct {
	data []byte
	pos  int
}

func (b *txBuffer) remaining() []byte { return b.data[b.pos:] }

// Transport carries framed protocol traffic over one serial device.
//
// Producer goroutines call SendBytes/SendMessage concurrently; device I/O is
// confined to the transport's own goroutines. See the package documentation
// for the lifecycle rules.
type Transport struct {
	cfg    Config
	log    zerolog.Logger
	handle Port
	parser FrameParser

	// mu guards txq, the only state shared between producer goroutines and
	// the write loop.
	mu  sync.Mutex
	txq *queue.Queue

	isOpen  atomic.Bool
	txBytes atomic.Uint64
	rxBytes atomic.Uint64
	txSeq   atomic.Uint32

	wakeCh    chan struct{}
	closeCh   chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once

	cbMu     sync.Mutex
	onClosed func()
}

// Open opens and configures the serial device and starts the transport's I/O
// goroutines. Reading begins before Open returns, so no inbound bytes are
// missed after a successful open. Inbound chunks are handed to parser; a nil
// parser discards them.
//
// Any configuration or open failure is reported as a *DeviceError and no
// Transport is constructed.
func Open(cfg Config, parser FrameParser) (*Transport, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, &DeviceError{Device: cfg.Device, Err: err}
	}

	// 8N1, no flow control. Fixed policy.
	mode := &gobug.Mode{
		BaudRate: cfg.BaudRate.Int(),
		DataBits: 8,
		Parity:   gobug.NoParity,
		StopBits: gobug.OneStopBit,
	}

	h, err := openPort(cfg.Device, mode)
	if err != nil {
		return nil, &DeviceError{Device: cfg.Device, Err: err}
	}

	t := newTransport(cfg, h, parser)
	t.log.Info().Str("device", cfg.Device).Int("baud", cfg.BaudRate.Int()).Msg("serial link up")
	return t, nil
}

// newTransport wires a Transport around an already open Port.
func newTransport(cfg Config, h Port, parser FrameParser) *Transport {
	if cfg.TxQueueDepth == 0 {
		cfg.TxQueueDepth = DefaultTxQueueDepth
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	t := &Transport{
		cfg:     cfg,
		log:     log,
		handle:  h,
		parser:  parser,
		txq:     queue.New(),
		wakeCh:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	t.isOpen.Store(true)

	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	go t.readLoop(readerDone)
	go t.writeLoop(writerDone)
	go t.supervise(readerDone, writerDone)

	return t
}

// IsOpen reports whether the transport still owns a live device session.
// A send racing a concurrent close may still observe true; the worst case is
// an enqueue into a queue about to be discarded, which is equivalent to the
// message being dropped.
func (t *Transport) IsOpen() bool {
	return t.isOpen.Load()
}

// OnClosed registers cb to run exactly once after the transport has fully
// shut down, whether by Close or by a fatal I/O error.
func (t *Transport) OnClosed(cb func()) {
	t.cbMu.Lock()
	t.onClosed = cb
	t.cbMu.Unlock()
}

// Stats returns the cumulative transmitted/received byte counters for this
// session.
func (t *Transport) Stats() IOStat {
	return IOStat{
		TxBytes: t.txBytes.Load(),
		RxBytes: t.rxBytes.Load(),
	}
}

// SendBytes queues raw bytes for transmission. The payload is copied at
// enqueue time; the caller may reuse p immediately.
//
// Sending on a closed transport is a silent, logged drop: callers must watch
// IsOpen or the on-closed callback to detect a dead link. A full queue fails
// with ErrTxQueueFull and leaves the queue unchanged.
func (t *Transport) SendBytes(p []byte) error {
	if !t.isOpen.Load() {
		t.log.Warn().Int("len", len(p)).Msg("send: channel closed, dropping payload")
		return nil
	}
	if len(p) == 0 {
		return nil
	}

	data := make([]byte, len(p))
	copy(data, p)
	return t.enqueue(data)
}

// SendMessage encodes msg with the transport's system/component identity and
// a per-transport outgoing sequence number, then queues the framed bytes.
// Raw-byte and message sends share the same queue and FIFO guarantee, and the
// same liveness/overflow contract as SendBytes.
func (t *Transport) SendMessage(msg mavlink.Message) error {
	if !t.isOpen.Load() {
		t.log.Warn().Uint8("msgid", msg.ID()).Msg("send: channel closed, dropping message")
		return nil
	}

	seq := uint8(t.txSeq.Inc() - 1)
	raw, err := mavlink.EncodeFrame(msg, t.cfg.SystemID, t.cfg.ComponentID, seq)
	if err != nil {
		return fmt.Errorf("encoding message %d: %w", msg.ID(), err)
	}
	return t.enqueue(raw)
}

// enqueue appends data as a fresh outbound buffer and nudges the write loop.
// data must not be retained by the caller.
func (t *Transport) enqueue(data []byte) error {
	t.mu.Lock()
	if t.txq.Length() >= t.cfg.TxQueueDepth {
		t.mu.Unlock()
		return ErrTxQueueFull
	}
	t.txq.Add(&txBuffer{data: data})
	t.mu.Unlock()

	t.scheduleWrite()
	return nil
}

// scheduleWrite posts an idempotent wake to the write loop. If a wake is
// already pending or a drain is in flight, the nudge is dropped and the
// running drain picks up the new entry.
func (t *Transport) scheduleWrite() {
	select {
	case t.wakeCh <- struct{}{}:
	default:
	}
}

// Close shuts the transport down: it stops the I/O loops, closes the device,
// discards any unflushed transmit buffers and blocks until both loops have
// terminated and the on-closed callback has run. It is idempotent and safe
// to call from any goroutine; device errors during close are absorbed.
func (t *Transport) Close() error {
	t.initiateShutdown()
	<-t.doneCh
	return nil
}

// initiateShutdown performs the irreversible half of Close: marks the
// transport closed, closes the device handle (unblocking an in-flight read)
// and clears the transmit queue. Safe to call from any goroutine, including
// the I/O loops themselves, which must not block waiting for their own exit.
func (t *Transport) initiateShutdown() {
	t.closeOnce.Do(func() {
		t.isOpen.Store(false)
		close(t.closeCh)

		if err := t.handle.Close(); err != nil {
			t.log.Debug().Err(err).Msg("closing serial device")
		}

		t.mu.Lock()
		dropped := t.txq.Length()
		t.txq = queue.New()
		t.mu.Unlock()

		if dropped > 0 {
			t.log.Warn().Int("buffers", dropped).Msg("discarding unflushed transmit buffers")
		}
	})
}

// supervise joins both I/O loops, then fires the registered on-closed
// callback exactly once and releases Close callers.
func (t *Transport) supervise(readerDone, writerDone <-chan struct{}) {
	<-readerDone
	<-writerDone

	t.cbMu.Lock()
	cb := t.onClosed
	t.cbMu.Unlock()
	if cb != nil {
		cb()
	}

	t.log.Info().Str("device", t.cfg.Device).Msg("serial link down")
	close(t.doneCh)
}

// readLoop issues one read at a time into the fixed scratch buffer and hands
// every filled span to the parser in arrival order. Any read error is fatal
// for the transport; the loop initiates shutdown and stops.
func (t *Transport) readLoop(done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, RxBufSize)
	for {
		n, err := t.handle.Read(buf)
		if err != nil {
			select {
			case <-t.closeCh:
				// Shutdown already in progress; the error came from the
				// handle being closed under us.
			default:
				t.log.Error().Err(err).Msg("serial receive failed")
			}
			t.initiateShutdown()
			return
		}
		if n == 0 {
			continue
		}

		t.rxBytes.Add(uint64(n))
		if t.parser != nil {
			t.parser.Parse(buf[:n])
		}
	}
}

// writeLoop waits for wakes and drains the transmit queue. It is the only
// goroutine that writes to the device, so at most one write is ever in
// flight.
func (t *Transport) writeLoop(done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-t.closeCh:
			return
		case <-t.wakeCh:
		}
		if !t.drainTxQueue() {
			return
		}
	}
}

// drainTxQueue flushes queued buffers in FIFO order until the queue is empty
// or the transport shuts down. The front buffer stays in the queue while its
// bytes go out; a short device write only advances its cursor, so a buffer
// is popped exactly when all of its bytes have been accepted. Returns false
// when the loop must stop.
func (t *Transport) drainTxQueue() bool {
	for {
		select {
		case <-t.closeCh:
			return false
		default:
		}

		t.mu.Lock()
		if t.txq.Length() == 0 {
			t.mu.Unlock()
			return true
		}
		front := t.txq.Peek().(*txBuffer)
		chunk := front.remaining()
		t.mu.Unlock()

		n, err := t.handle.Write(chunk)
		if err == nil && n == 0 && len(chunk) > 0 {
			err = fmt.Errorf("device accepted 0 of %d bytes", len(chunk))
		}
		if err != nil {
			select {
			case <-t.closeCh:
			default:
				t.log.Error().Err(err).Msg("serial write failed")
			}
			t.initiateShutdown()
			return false
		}
		t.txBytes.Add(uint64(n))

		t.mu.Lock()
		// A concurrent shutdown may have cleared the queue while the write
		// was in flight; only advance the cursor if our buffer is still at
		// the front.
		if t.txq.Length() > 0 && t.txq.Peek() == front {
			front.pos += n
			if front.pos >= len(front.data) {
				t.txq.Remove()
			}
		}
		t.mu.Unlock()
	}
}
