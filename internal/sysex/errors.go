package sysex

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage is returned for frames with a bad length, missing
	// delimiters or data bytes with the high bit set.
	ErrMalformedMessage = errors.New("malformed sysex message")
	// ErrUnknownManufacturer is returned for frames not addressed to a Waldorf Blofeld.
	ErrUnknownManufacturer = errors.New("unknown manufacturer")
	// ErrUnknownCommand is returned for an unrecognised command byte.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a message field outside its allowed range.
type ValidationError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field string, value int, format string, args ...any) error {
	return &ValidationError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

func checkRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return invalid(field, v, "must be in range %d–%d", lo, hi)
	}
	return nil
}

func checkDataBytes(field string, data []byte) error {
	for i, b := range data {
		if b > 0x7F {
			return invalid(field, int(b), "byte %d has the high bit set", i)
		}
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
}
