// Package session drives one Blofeld over a SysEx transport: identity
// discovery, inbound dispatch, paced bulk dumps and mode switching.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blofeldctl/internal/sysex"
)

var (
	ErrNotConnected = errors.New("session: not connected")
	ErrTimeout      = errors.New("session: timed out")
	ErrBusy         = errors.New("session: another bulk dump or mode switch is running")
	ErrCancelled    = errors.New("session: cancelled")

	errClosed = errors.New("session: closed")
)

// Transport moves raw SysEx frames to and from the device. recv is called
// sequentially, once per complete inbound frame.
type Transport interface {
	Open(recv func(frame []byte)) error
	Send(frame []byte) error
	Close() error
}

type State int

const (
	Disconnected State = iota
	Connected
	BulkDumping
	ModeSwitching
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case BulkDumping:
		return "bulk-dumping"
	case ModeSwitching:
		return "mode-switching"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Option func(*Session)

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func WithTiming(t Timing) Option {
	return func(s *Session) {
		s.timing = t.WithDefaults()
	}
}

// workflow is the single bulk dump or mode switch allowed per session.
type workflow struct {
	task  *Task
	state State

	// bulk dump cursor: the next expected bank/program and the terminal index
	bank, program int
	end           int
	progress      func(int)

	awaitGlobal bool
}

type soundKey struct{ bank, program int }

type Session struct {
	log    *zap.Logger
	codec  *sysex.Codec
	timing Timing
	worker *worker

	mu        sync.Mutex
	closed    bool
	transport Transport
	deviceID  byte
	work      *workflow

	onSound   func(sysex.Sound)
	onMulti   func(sysex.MultiDumpData)
	onGlobal  func(sysex.GlobalParametersData)
	onMessage func(sysex.Message)

	soundWaiters map[soundKey][]chan sysex.Sound
}

func New(opts ...Option) *Session {
	s := &Session{
		log:          zap.NewNop(),
		timing:       DefaultTiming(),
		deviceID:     sysex.Broadcast,
		soundWaiters: make(map[soundKey][]chan sysex.Sound),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codec = sysex.NewCodec(s.log)
	s.worker = newWorker(s.log)
	return s
}

// Connect releases any previous transport, opens t and sends an identity
// request. Connecting the transport already in use is a no-op.
func (s *Session) Connect(t Transport) error {
	if t == nil {
		return errors.New("session: nil transport")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	same := sameTransport(s.transport, t)
	s.mu.Unlock()
	if same {
		return nil
	}

	if err := s.Disconnect(); err != nil {
		s.log.Warn("releasing previous transport", zap.Error(err))
	}

	if err := t.Open(s.receive); err != nil {
		return multierr.Append(fmt.Errorf("open transport: %w", err), t.Close())
	}
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
	s.log.Info("connected")

	if err := s.Send(sysex.DeviceIdentityRequest{}); err != nil {
		s.log.Warn("identity request failed", zap.Error(err))
	}
	return nil
}

// sameTransport compares by identity. Transports of a non-comparable type
// never count as the same, so comparing them cannot panic.
func sameTransport(a, b Transport) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// Disconnect closes the transport and fails any running workflow. It is safe
// to call when already disconnected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	t := s.transport
	w := s.work
	s.transport = nil
	s.deviceID = sysex.Broadcast
	s.mu.Unlock()

	if w != nil {
		w.task.finish(ErrNotConnected)
	}
	if t == nil {
		return nil
	}
	s.log.Info("disconnected")
	return t.Close()
}

// Close disconnects and stops the session worker. The session cannot be
// reconnected afterwards.
func (s *Session) Close() error {
	err := s.Disconnect()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.worker.stop()
	return err
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.transport == nil:
		return Disconnected
	case s.work != nil:
		return s.work.state
	}
	return Connected
}

// DeviceID is the current SysEx device address; sysex.Broadcast until the
// device has been identified.
func (s *Session) DeviceID() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

func (s *Session) SetDeviceID(id byte) {
	s.mu.Lock()
	s.deviceID = id & 0x7F
	s.mu.Unlock()
}

// Send encodes m for the current device ID and transmits it.
func (s *Session) Send(m sysex.Message) error {
	s.mu.Lock()
	t, dev := s.transport, s.deviceID
	s.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}
	frame, err := s.codec.Encode(dev, m)
	if err != nil {
		return err
	}
	return s.transmit(t, m.Kind().String(), frame)
}

// SendRaw transmits a prebuilt frame unchanged.
func (s *Session) SendRaw(frame []byte) error {
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}
	if len(frame) < 2 || frame[0] != sysex.SysExStart || frame[len(frame)-1] != sysex.SysExEnd {
		return fmt.Errorf("send raw: %w", sysex.ErrMalformedMessage)
	}
	return s.transmit(t, "raw", frame)
}

func (s *Session) transmit(t Transport, kind string, frame []byte) error {
	if ce := s.log.Check(zap.DebugLevel, "sysex out"); ce != nil {
		ce.Write(zap.String("kind", kind), zap.Int("len", len(frame)), zap.String("bytes", hex.EncodeToString(frame)))
	}
	if err := t.Send(frame); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

// OnSoundDump registers the sound dump callback, replacing any earlier one.
func (s *Session) OnSoundDump(fn func(sysex.Sound)) {
	s.mu.Lock()
	s.onSound = fn
	s.mu.Unlock()
}

func (s *Session) OnMultiDump(fn func(sysex.MultiDumpData)) {
	s.mu.Lock()
	s.onMulti = fn
	s.mu.Unlock()
}

func (s *Session) OnGlobalDump(fn func(sysex.GlobalParametersData)) {
	s.mu.Lock()
	s.onGlobal = fn
	s.mu.Unlock()
}

// OnMessage receives every decoded message that is not a sound, multi or
// global dump.
func (s *Session) OnMessage(fn func(sysex.Message)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// receive runs on the transport's delivery goroutine. It must not block.
func (s *Session) receive(frame []byte) {
	if ce := s.log.Check(zap.DebugLevel, "sysex in"); ce != nil {
		ce.Write(zap.Int("len", len(frame)), zap.String("bytes", hex.EncodeToString(frame)))
	}
	dev, m, err := s.codec.Decode(frame)
	if err != nil {
		s.log.Warn("dropping inbound frame", zap.Error(err), zap.Int("len", len(frame)))
		return
	}

	switch m := m.(type) {
	case sysex.DeviceIdentityReply:
		s.identify(dev, m)
		s.dispatchGeneric(m)
	case sysex.DeviceIdentityRequest:
		s.dispatchGeneric(m)
	case sysex.SoundDumpData:
		s.sniff(dev)
		s.handleSound(m.Sound)
	case sysex.MultiDumpData:
		s.sniff(dev)
		s.mu.Lock()
		fn := s.onMulti
		s.mu.Unlock()
		if fn != nil {
			fn(m)
		}
	case sysex.GlobalParametersData:
		s.sniff(dev)
		s.handleGlobal(m)
	default:
		s.sniff(dev)
		s.dispatchGeneric(m)
	}
}

func (s *Session) dispatchGeneric(m sysex.Message) {
	s.mu.Lock()
	fn := s.onMessage
	s.mu.Unlock()
	if fn != nil {
		fn(m)
	}
}

func (s *Session) identify(dev byte, m sysex.DeviceIdentityReply) {
	if !m.IsBlofeld() || dev == sysex.Broadcast {
		s.log.Debug("ignoring identity reply", zap.Uint8("manufacturer", m.Manufacturer), zap.Uint8("device", dev))
		return
	}
	s.mu.Lock()
	s.deviceID = dev
	s.mu.Unlock()
	s.log.Info("device identified", zap.Uint8("device", dev), zap.Binary("version", m.Version[:]))
}

// sniff adopts the device ID of Blofeld traffic while still broadcasting.
func (s *Session) sniff(dev byte) {
	if dev == sysex.Broadcast {
		return
	}
	s.mu.Lock()
	adopted := s.deviceID == sysex.Broadcast
	if adopted {
		s.deviceID = dev
	}
	s.mu.Unlock()
	if adopted {
		s.log.Info("device id sniffed", zap.Uint8("device", dev))
	}
}

// begin installs w as the running workflow.
func (s *Session) begin(w *workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport == nil {
		return ErrNotConnected
	}
	if s.work != nil {
		return ErrBusy
	}
	s.work = w
	return nil
}

// release clears the running workflow if it still belongs to t.
func (s *Session) release(t *Task) {
	s.mu.Lock()
	if s.work != nil && s.work.task == t {
		s.work = nil
	}
	s.mu.Unlock()
	if err := t.err; err != nil {
		s.log.Warn("task failed", zap.String("task", t.ID()), zap.String("kind", t.kind), zap.Error(err))
	} else {
		s.log.Info("task finished", zap.String("task", t.ID()), zap.String("kind", t.kind))
	}
}

// current reports whether t is still the running workflow.
func (s *Session) current(t *Task) (*workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.work == nil || s.work.task != t || !t.active() {
		return nil, false
	}
	return s.work, true
}
