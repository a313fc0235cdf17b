package midiport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	names := []string{"Midi Through Port-0", "Blofeld:Blofeld MIDI 1 28:0", "blofeld"}

	tests := []struct {
		fragment string
		want     int
	}{
		{"blofeld", 2},
		{"BLOFELD", 1},
		{"through", 0},
		{"Blofeld:Blofeld MIDI 1 28:0", 1},
		{"korg", -1},
		{"", -1},
	}
	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			assert.Equal(t, tt.want, match(names, tt.fragment))
		})
	}
}

type named string

func (n named) String() string { return string(n) }

func TestPortNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, portNames([]named{"a", "b"}))
	assert.Empty(t, portNames([]named(nil)))
}
