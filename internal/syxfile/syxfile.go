// Package syxfile reads and writes SysEx frames stored in .syx files and
// Standard MIDI Files.
package syxfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/multierr"
)

const (
	sysExStart = 0xF0
	sysExEnd   = 0xF7
)

var smfMagic = []byte("MThd")

// ErrNoFrames is returned when a file holds no complete SysEx frame.
var ErrNoFrames = errors.New("syxfile: no sysex frames found")

// Split cuts a .syx byte stream into complete frames. Bytes outside a frame
// and frames cut short by a new F0 or end of data are dropped.
func Split(data []byte) [][]byte {
	var frames [][]byte
	start := -1
	for i, b := range data {
		switch {
		case b == sysExStart:
			start = i
		case b == sysExEnd && start >= 0:
			frames = append(frames, append([]byte(nil), data[start:i+1]...))
			start = -1
		}
	}
	return frames
}

func ReadSyx(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	frames := Split(data)
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// ReadSMF extracts SysEx events from every track in order, each with its
// F0 and F7 delimiters.
func ReadSMF(r io.Reader) ([][]byte, error) {
	f, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	var frames [][]byte
	for _, track := range f.Tracks {
		for _, ev := range track {
			if frame, ok := sysexFrame([]byte(ev.Message)); ok {
				frames = append(frames, frame)
			}
		}
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// sysexFrame normalises a stored SysEx event to F0 ... F7.
func sysexFrame(b []byte) ([]byte, bool) {
	if len(b) == 0 || b[0] != sysExStart {
		return nil, false
	}
	body := b[1:]
	if n := len(body); n > 0 && body[n-1] == sysExEnd {
		body = body[:n-1]
	}
	out := make([]byte, 0, len(body)+2)
	out = append(out, sysExStart)
	out = append(out, body...)
	return append(out, sysExEnd), true
}

// ReadFile loads frames from a .syx or .mid file, detected by content.
func ReadFile(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, smfMagic) {
		frames, err := ReadSMF(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return frames, nil
	}
	frames, err := ReadSyx(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// WriteSyx writes frames back to back. Every frame must be delimited.
func WriteSyx(w io.Writer, frames [][]byte) error {
	bw := bufio.NewWriter(w)
	for i, f := range frames {
		if len(f) < 2 || f[0] != sysExStart || f[len(f)-1] != sysExEnd {
			return fmt.Errorf("frame %d is not a sysex frame", i)
		}
		if _, err := bw.Write(f); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes frames to path as a .syx file.
func WriteFile(path string, frames [][]byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return WriteSyx(f, frames)
}
