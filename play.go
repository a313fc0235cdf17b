package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gitlab.com/gomidi/midi/v2"
)

type messageSender interface {
	SendMessage(msg midi.Message) error
}

const (
	noteLength = 300 * time.Millisecond
	noteGap    = 60 * time.Millisecond
	restLength = noteLength + noteGap
)

func controlChange(channel uint8, cc, value int) midi.Message {
	return midi.ControlChange(channel, uint8(cc), uint8(value))
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// playNote holds one note for d. The note off is sent even when ctx ends.
func playNote(ctx context.Context, out messageSender, channel, key uint8, d time.Duration) error {
	if err := out.SendMessage(midi.NoteOn(channel, key, 100)); err != nil {
		return fmt.Errorf("note on failed for %d: %w", key, err)
	}
	waitErr := pause(ctx, d)
	if err := out.SendMessage(midi.NoteOff(channel, key)); err != nil {
		return fmt.Errorf("note off failed for %d: %w", key, err)
	}
	return waitErr
}

func playTestNotes(ctx context.Context, out messageSender, channel uint8) error {
	notes := []uint8{midi.C(4), midi.E(4), midi.G(4)}
	for _, n := range notes {
		if err := playNote(ctx, out, channel, n, 200*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func playMinor7Chord(ctx context.Context, out messageSender, channel uint8, hold time.Duration) error {
	root := midi.C(4)
	chord := []uint8{root, root + 3, root + 7, root + 10}

	for _, n := range chord {
		if err := out.SendMessage(midi.NoteOn(channel, n, 100)); err != nil {
			return fmt.Errorf("note on failed for %d: %w", n, err)
		}
	}

	waitErr := pause(ctx, hold)

	for _, n := range chord {
		if err := out.SendMessage(midi.NoteOff(channel, n)); err != nil {
			return fmt.Errorf("note off failed for %d: %w", n, err)
		}
	}
	return waitErr
}

func playNotesFromText(ctx context.Context, out messageSender, channel uint8, notesText string) error {
	tokens := strings.FieldsFunc(notesText, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
	if len(tokens) == 0 {
		return fmt.Errorf("no notes provided")
	}

	for _, tok := range tokens {
		n, isRest, err := parseNoteToken(tok)
		if err != nil {
			return fmt.Errorf("invalid note %q: %w", tok, err)
		}

		if isRest {
			if err := pause(ctx, restLength); err != nil {
				return err
			}
			continue
		}

		if err := playNote(ctx, out, channel, n, noteLength); err != nil {
			return err
		}
		if err := pause(ctx, noteGap); err != nil {
			return err
		}
	}

	return nil
}

var noteSemitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// parseNoteToken reads scientific pitch like "C4", "F#3" or "Bb2"; "r" and
// "rest" are rests.
func parseNoteToken(tok string) (uint8, bool, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, false, fmt.Errorf("empty token")
	}
	if strings.EqualFold(t, "r") || strings.EqualFold(t, "rest") {
		return 0, true, nil
	}
	if len(t) < 2 {
		return 0, false, fmt.Errorf("too short")
	}

	letter := byte(unicode.ToUpper(rune(t[0])))
	semitone, ok := noteSemitones[letter]
	if !ok {
		return 0, false, fmt.Errorf("invalid note letter %q", string(letter))
	}

	rest := t[1:]
	switch rest[0] {
	case '#':
		semitone++
		rest = rest[1:]
	case 'b', 'B':
		semitone--
		rest = rest[1:]
	}
	if rest == "" {
		return 0, false, fmt.Errorf("missing octave")
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false, fmt.Errorf("invalid octave: %w", err)
	}

	n := 12*(octave+1) + semitone
	if n < 0 || n > 127 {
		return 0, false, fmt.Errorf("MIDI note out of range: %d", n)
	}
	return uint8(n), false, nil
}

func (a *app) playTestNotes(ctx context.Context) error {
	return playTestNotes(ctx, a.port, a.cfg.MIDI.Channel)
}

func (a *app) playNotesFromText(ctx context.Context, text string) error {
	return playNotesFromText(ctx, a.port, a.cfg.MIDI.Channel, text)
}
