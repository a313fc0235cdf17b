package session

import (
	"sync"
	"time"

	"blofeldctl/internal/sysex"
)

// fakeDevice is an in-memory Transport that plays the synthesizer. Replies
// are delivered on a separate goroutine, like a real MIDI driver does.
type fakeDevice struct {
	id byte

	mu     sync.Mutex
	sent   [][]byte
	sentAt []time.Time
	closed bool
	// closeErr is returned by Close after the device has shut down.
	closeErr error
	opens    int
	respond  func(m sysex.Message) []sysex.Message

	inbox chan []byte
	quit  chan struct{}
	wg    sync.WaitGroup
}

func newFakeDevice(id byte) *fakeDevice {
	return &fakeDevice{id: id, inbox: make(chan []byte, 4096), quit: make(chan struct{})}
}

func (d *fakeDevice) Open(recv func([]byte)) error {
	d.mu.Lock()
	d.opens++
	d.mu.Unlock()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case frame := <-d.inbox:
				recv(frame)
			case <-d.quit:
				return
			}
		}
	}()
	return nil
}

func (d *fakeDevice) Send(frame []byte) error {
	d.mu.Lock()
	d.sent = append(d.sent, append([]byte(nil), frame...))
	d.sentAt = append(d.sentAt, time.Now())
	respond := d.respond
	d.mu.Unlock()

	if respond == nil {
		return nil
	}
	_, m, err := sysex.Decode(frame)
	if err != nil {
		return nil
	}
	for _, r := range respond(m) {
		d.inject(d.encode(r))
	}
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.quit)
	}
	err := d.closeErr
	d.mu.Unlock()
	d.wg.Wait()
	return err
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *fakeDevice) setRespond(fn func(m sysex.Message) []sysex.Message) {
	d.mu.Lock()
	d.respond = fn
	d.mu.Unlock()
}

func (d *fakeDevice) encode(m sysex.Message) []byte {
	frame, err := sysex.Encode(d.id, m)
	if err != nil {
		panic(err)
	}
	return frame
}

func (d *fakeDevice) inject(frame []byte) {
	d.inbox <- frame
}

// sentMessages decodes everything the session transmitted so far.
func (d *fakeDevice) sentMessages() []sysex.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sysex.Message, 0, len(d.sent))
	for _, f := range d.sent {
		if _, m, err := sysex.Decode(f); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// sendTimes returns when each frame of kind k was transmitted.
func (d *fakeDevice) sendTimes(k sysex.Kind) []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []time.Time
	for i, f := range d.sent {
		if _, m, err := sysex.Decode(f); err == nil && m.Kind() == k {
			out = append(out, d.sentAt[i])
		}
	}
	return out
}

func (d *fakeDevice) sentFrames() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.sent...)
}

// synth answers the way a Blofeld does: identity, sound dumps and the
// global block.
func synth(globalMode sysex.Mode) func(m sysex.Message) []sysex.Message {
	return func(m sysex.Message) []sysex.Message {
		switch m := m.(type) {
		case sysex.DeviceIdentityRequest:
			return []sysex.Message{sysex.DeviceIdentityReply{
				Manufacturer: sysex.ManufacturerWaldorf,
				Family:       [2]byte{0x13, 0x00},
				Version:      [4]byte{'1', '.', '2', '5'},
			}}
		case sysex.SoundDumpRequest:
			snd := sysex.Sound{Bank: m.Bank, Program: m.Program}
			snd.SetName("Sound " + sysex.BankName(m.Bank))
			return []sysex.Message{sysex.SoundDumpData{Sound: snd}}
		case sysex.GlobalParametersRequest:
			payload := make([]byte, 64)
			payload[1] = byte(globalMode)
			g, _ := sysex.NewGlobalParametersData(payload)
			return []sysex.Message{g}
		}
		return nil
	}
}
