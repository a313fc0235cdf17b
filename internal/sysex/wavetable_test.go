package sysex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantWave(v int32) Wave {
	var w Wave
	for i := range w {
		w[i] = v
	}
	return w
}

func TestWavetableExpandSingleKeyframe(t *testing.T) {
	wt := Wavetable{Slot: 80, Waves: []Wave{constantWave(7)}}
	waves := wt.Expand()
	for i := range waves {
		assert.Equal(t, constantWave(7), waves[i])
	}
}

func TestWavetableExpandInterpolates(t *testing.T) {
	wt := Wavetable{Slot: 80, Waves: []Wave{constantWave(0), constantWave(630000)}}
	waves := wt.Expand()
	assert.Equal(t, constantWave(0), waves[0])
	assert.Equal(t, constantWave(630000), waves[63])
	assert.Equal(t, int32(10000), waves[1][0])
	assert.Equal(t, int32(320000), waves[32][5])
}

func TestWavetableExpandFullTable(t *testing.T) {
	wt := Wavetable{Slot: 80}
	for i := 0; i < WavesPerTable; i++ {
		wt.Waves = append(wt.Waves, constantWave(int32(i)))
	}
	waves := wt.Expand()
	for i := range waves {
		assert.Equal(t, int32(i), waves[i][0])
	}
}

func TestWavetableMessages(t *testing.T) {
	wt := Wavetable{Slot: 100, Name: "Formants", Waves: []Wave{constantWave(-1)}}
	msgs, err := wt.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, WavesPerTable)
	for i, m := range msgs {
		assert.Equal(t, 100, m.Slot)
		assert.Equal(t, i, m.Wave)
		assert.Equal(t, "Formants", m.Name)
	}

	_, err = Wavetable{Waves: []Wave{constantWave(0)}}.Messages()
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Wavetable{Slot: 100}.Messages()
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Wavetable{Slot: 100, Waves: make([]Wave, 65)}.Messages()
	assert.ErrorIs(t, err, ErrValidation)
}
