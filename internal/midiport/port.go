// Package midiport connects a session to real MIDI ports through gomidi.
package midiport

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// sysExBufferSize covers the largest Blofeld frame (MULD, 425 bytes) with room
// for other devices sharing the port.
const sysExBufferSize = 4096

// Port pairs an input and an output and carries SysEx frames across them.
type Port struct {
	log *zap.Logger
	in  drivers.In
	out drivers.Out

	mu   sync.Mutex
	stop func()
}

func New(in drivers.In, out drivers.Out, log *zap.Logger) *Port {
	if log == nil {
		log = zap.NewNop()
	}
	return &Port{log: log, in: in, out: out}
}

func (p *Port) String() string {
	return fmt.Sprintf("in=%q out=%q", p.in.String(), p.out.String())
}

// Open starts listening and hands every complete inbound SysEx frame to recv.
// Other MIDI messages are ignored.
func (p *Port) Open(recv func(frame []byte)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return nil
	}
	if !p.out.IsOpen() {
		if err := p.out.Open(); err != nil {
			return fmt.Errorf("open output %q: %w", p.out.String(), err)
		}
	}

	stop, err := midi.ListenTo(p.in, func(msg midi.Message, _ int32) {
		if len(msg) > 0 && msg[0] == 0xF0 {
			recv(append([]byte(nil), msg...))
		}
	},
		midi.UseSysEx(),
		midi.SysExBufferSize(sysExBufferSize),
		midi.HandleError(func(err error) {
			p.log.Warn("midi listener error", zap.String("port", p.in.String()), zap.Error(err))
		}),
	)
	if err != nil {
		return multierr.Append(fmt.Errorf("listen on %q: %w", p.in.String(), err), p.out.Close())
	}
	p.stop = stop
	p.log.Info("opened midi ports", zap.String("in", p.in.String()), zap.String("out", p.out.String()))
	return nil
}

// Send writes one raw frame to the output.
func (p *Port) Send(frame []byte) error {
	if !p.out.IsOpen() {
		if err := p.out.Open(); err != nil {
			return err
		}
	}
	return p.out.Send(frame)
}

// SendMessage writes a channel message, e.g. a note for auditioning.
func (p *Port) SendMessage(msg midi.Message) error {
	return p.Send(msg.Bytes())
}

// Close stops listening and closes both ports.
func (p *Port) Close() error {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}

	var err error
	if p.in.IsOpen() {
		err = multierr.Append(err, p.in.Close())
	}
	if p.out.IsOpen() {
		err = multierr.Append(err, p.out.Close())
	}
	return err
}

// ErrNoPort is returned when no port matches the requested name.
var ErrNoPort = errors.New("no matching midi port")

// Selector picks ports: explicit names win, otherwise both directions are
// matched by Hint.
type Selector struct {
	Hint string
	In   string
	Out  string
}

// FindPorts resolves a port pair by case-insensitive substring match.
func FindPorts(sel Selector) (drivers.In, drivers.Out, error) {
	inName, outName := sel.In, sel.Out
	if inName == "" {
		inName = sel.Hint
	}
	if outName == "" {
		outName = sel.Hint
	}

	ins, inErr := drivers.Ins()
	outs, outErr := drivers.Outs()
	if err := multierr.Combine(inErr, outErr); err != nil {
		return nil, nil, fmt.Errorf("enumerate midi ports: %w", err)
	}

	inIdx := match(portNames(ins), inName)
	outIdx := match(portNames(outs), outName)

	var err error
	if inIdx < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: no input contains %q", ErrNoPort, inName))
	}
	if outIdx < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: no output contains %q", ErrNoPort, outName))
	}
	if err != nil {
		return nil, nil, err
	}
	return ins[inIdx], outs[outIdx], nil
}

// OpenPort finds the ports for sel and wraps them in a Port.
func OpenPort(sel Selector, log *zap.Logger) (*Port, error) {
	in, out, err := FindPorts(sel)
	if err != nil {
		return nil, err
	}
	return New(in, out, log), nil
}

// ListPorts returns the names of all inputs and outputs.
func ListPorts() (ins, outs []string) {
	return portNames(midi.GetInPorts()), portNames(midi.GetOutPorts())
}

func portNames[P fmt.Stringer](ports []P) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	return names
}

// match returns the index of the first name containing fragment, preferring
// an exact match.
func match(names []string, fragment string) int {
	if fragment == "" {
		return -1
	}
	for i, n := range names {
		if n == fragment {
			return i
		}
	}
	lower := strings.ToLower(fragment)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			return i
		}
	}
	return -1
}
