package sysex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoundNameAndCategory(t *testing.T) {
	s := testSound(t)
	assert.Equal(t, "Glass Bells", s.Name())
	assert.Equal(t, byte(6), s.Category())
	assert.Equal(t, "Keys", s.CategoryName())
	assert.Equal(t, 3*128+42+1, s.Index())

	s.Parameters[soundCategorySlot] = 99
	assert.Equal(t, "Category 99", s.CategoryName())
}

func TestNewSound(t *testing.T) {
	sdata := make([]byte, SoundDataSize)
	sdata[0] = 64
	s, err := NewSound(0, 0, sdata)
	require.NoError(t, err)
	assert.Equal(t, byte(64), s.Parameters[2])
	assert.Equal(t, sdata, s.SDATA())

	_, err = NewSound(0, 0, sdata[:10])
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSound(8, 0, sdata)
	assert.ErrorIs(t, err, ErrValidation)

	sdata[5] = 0x80
	_, err = NewSound(0, 0, sdata)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseBank(t *testing.T) {
	b, err := ParseBank("a")
	require.NoError(t, err)
	assert.Equal(t, 0, b)

	b, err = ParseBank("H")
	require.NoError(t, err)
	assert.Equal(t, 7, b)

	_, err = ParseBank("I")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ParseBank("")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, "C", BankName(2))
	assert.Equal(t, "EDIT", BankName(EditBuffer))
}

func TestMessageValidation(t *testing.T) {
	_, err := NewSoundParameterChange(0, 385, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "parameter", verr.Field)

	_, err = NewSoundParameterChange(0, 10, 128)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "value", verr.Field)

	_, err = NewSoundDumpRequest(EditBuffer, 0)
	assert.NoError(t, err)

	_, err = NewWavetableDump(79, 0, make([]int32, SamplesPerWave), "x")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "wavetable slot", verr.Field)

	_, err = NewWavetableDump(80, 64, make([]int32, SamplesPerWave), "x")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "wave", verr.Field)

	_, err = NewWavetableDump(80, 0, make([]int32, 127), "x")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sample count", verr.Field)

	samples := make([]int32, SamplesPerWave)
	samples[3] = SampleMax + 1
	_, err = NewWavetableDump(80, 0, samples, "x")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sample", verr.Field)

	_, err = NewGlobalParametersData([]byte{0x00})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewMultiDumpData(make([]byte, 100))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMessagesCopyPayload(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x02}
	m, err := NewGlobalParametersData(payload)
	require.NoError(t, err)
	payload[1] = 0x00
	assert.Equal(t, ModeMulti, m.Mode())

	out := m.Payload()
	out[1] = 0x00
	assert.Equal(t, ModeMulti, m.Mode())

	sound, err := m.WithMode(ModeSound)
	require.NoError(t, err)
	assert.Equal(t, ModeSound, sound.Mode())
	assert.Equal(t, ModeMulti, m.Mode())
}

func TestSoundHelpersAgreeWithCodec(t *testing.T) {
	s := testSound(t)
	fast := SoundToSysEx(0x01, s)
	slow, err := Encode(0x01, SoundDumpData{Sound: s})
	require.NoError(t, err)
	assert.Equal(t, slow, fast)

	back, dev, err := SoundFromSysEx(fast)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), dev)
	assert.Equal(t, s, back)

	_, _, err = SoundFromSysEx(fast[:100])
	assert.ErrorIs(t, err, ErrMalformedMessage)

	req, err := Encode(0x01, SoundDumpRequest{})
	require.NoError(t, err)
	_, _, err = SoundFromSysEx(req)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestMultiHelpersAgreeWithCodec(t *testing.T) {
	payload := multiPayload(0, 4)
	fast, err := MultiToSysEx(0x00, payload)
	require.NoError(t, err)
	m, err := NewMultiDumpData(payload)
	require.NoError(t, err)
	slow, err := Encode(0x00, m)
	require.NoError(t, err)
	assert.Equal(t, slow, fast)

	back, _, err := MultiFromSysEx(fast)
	require.NoError(t, err)
	assert.Equal(t, payload, back.Payload())

	_, err = MultiToSysEx(0x00, payload[:50])
	assert.ErrorIs(t, err, ErrValidation)
}
