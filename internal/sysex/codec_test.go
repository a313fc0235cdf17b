package sysex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testSound(t *testing.T) Sound {
	t.Helper()
	s := Sound{Bank: 3, Program: 42}
	for i := soundDataOffset; i < SoundSlots; i++ {
		s.Parameters[i] = byte(i % 128)
	}
	s.SetName("Glass Bells")
	s.Parameters[soundCategorySlot] = 6
	require.NoError(t, s.Validate())
	return s
}

func multiPayload(bank, multi byte) []byte {
	p := make([]byte, MultiPayloadSize)
	p[0], p[1] = bank, multi
	copy(p[2:], EncodeName("Split Multi", MultiNameLength))
	for i := 2 + MultiNameLength; i < len(p); i++ {
		p[i] = byte(i*7) & 0x7F
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	snd := testSound(t)
	multi, err := NewMultiDumpData(multiPayload(0, 12))
	require.NoError(t, err)
	global, err := NewGlobalParametersData([]byte{0x01, 0x01, 0x20, 0x40, 0x00})
	require.NoError(t, err)
	samples := make([]int32, SamplesPerWave)
	for i := range samples {
		samples[i] = int32((i - 64) * 16000)
	}
	samples[0], samples[1] = SampleMin, SampleMax
	wave, err := NewWavetableDump(80, 63, samples, "MyTable")
	require.NoError(t, err)

	messages := []Message{
		SoundParameterChange{Location: 0, Param: 200, Value: 100},
		GlobalParameterChange{Param: 55, Value: 0x2345},
		SoundDumpRequest{Bank: 7, Program: 127},
		SoundDumpRequest{Bank: EditBuffer, Program: 0},
		SoundDumpData{Sound: snd},
		MultiDumpRequest{Bank: EditBuffer, Multi: 0},
		multi,
		GlobalParametersRequest{},
		global,
		wave,
		DeviceIdentityRequest{},
		DeviceIdentityReply{Manufacturer: ManufacturerWaldorf, Family: [2]byte{0x13}, Version: [4]byte{1, 0, 4, 0}},
	}

	for _, m := range messages {
		t.Run(m.Kind().String(), func(t *testing.T) {
			frame, err := Encode(0x05, m)
			require.NoError(t, err)
			assert.Equal(t, SysExStart, frame[0])
			assert.Equal(t, SysExEnd, frame[len(frame)-1])
			for _, b := range frame[1 : len(frame)-1] {
				require.LessOrEqual(t, b, byte(0x7F))
			}

			dev, got, err := Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, byte(0x05), dev)
			assert.Equal(t, m, got)
		})
	}
}

func TestEncodeLayouts(t *testing.T) {
	frame, err := Encode(0x00, SoundParameterChange{Location: 1, Param: 384, Value: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x13, 0x00, 0x20, 0x01, 0x03, 0x00, 0x05, 0xF7}, frame)

	frame, err = Encode(0x7F, SoundDumpRequest{Bank: 1, Program: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x13, 0x7F, 0x00, 0x01, 0x02, 0x7F, 0xF7}, frame)

	frame, err = Encode(0x10, MultiDumpRequest{Bank: 0x7F, Multi: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x13, 0x10, 0x01, 0x7F, 0x00, 0xF7}, frame)

	frame, err = Encode(0x00, GlobalParametersRequest{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x13, 0x00, 0x04, 0xF7}, frame)

	frame, err = Encode(0x00, GlobalParameterChange{Param: 200, Value: 384})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x13, 0x00, 0x05, 0x01, 0x48, 0x03, 0x00, 0xF7}, frame)

	frame, err = Encode(0x7F, DeviceIdentityRequest{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7}, frame)
}

func TestEncodeSoundDump(t *testing.T) {
	s := testSound(t)
	frame, err := Encode(0x00, SoundDumpData{Sound: s})
	require.NoError(t, err)
	require.Len(t, frame, 392)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x13, 0x00, 0x10, 0x03, 42}, frame[:7])
	assert.Equal(t, s.SDATA(), frame[7:390])
	assert.Equal(t, byte(0x7F), frame[390])
}

func TestEncodeMultiDump(t *testing.T) {
	payload := multiPayload(0, 9)
	m, err := NewMultiDumpData(payload)
	require.NoError(t, err)

	frame, err := Encode(0x00, m)
	require.NoError(t, err)
	require.Len(t, frame, 425)
	assert.Equal(t, payload[0], frame[5])
	assert.Equal(t, payload[1], frame[6])
	assert.Equal(t, Checksum(payload), frame[423])
	assert.Equal(t, 0, m.Bank())
	assert.Equal(t, 9, m.Multi())
	assert.Equal(t, "Split Multi", m.Name())
}

func TestEncodeWavetableDump(t *testing.T) {
	samples := make([]int32, SamplesPerWave)
	samples[0] = -1
	m, err := NewWavetableDump(118, 0, samples, "Saw")
	require.NoError(t, err)

	frame, err := Encode(0x00, m)
	require.NoError(t, err)
	require.Len(t, frame, 410)
	assert.Equal(t, []byte{118, 0, 0}, frame[5:8])
	assert.Equal(t, []byte{0x7F, 0x7F, 0x7F}, frame[8:11])
	assert.Equal(t, []byte("Saw           "), frame[392:406])
	assert.Equal(t, []byte{0x00, 0x00, 0x7F, 0xF7}, frame[406:])
}

func TestDecodeShortSoundDump(t *testing.T) {
	frame := make([]byte, 392)
	copy(frame, []byte{0xF0, 0x3E, 0x13, 0x00, 0x10, 0x01, 0x05})
	for i := 7; i < 390; i++ {
		frame[i] = 0x11
	}
	frame[390], frame[391] = 0x7F, 0xF7

	_, m, err := Decode(frame)
	require.NoError(t, err)
	s := m.(SoundDumpData).Sound
	assert.Equal(t, 1, s.Bank)
	assert.Equal(t, 5, s.Program)
	assert.Equal(t, byte(0), s.Parameters[0])
	assert.Equal(t, byte(0), s.Parameters[1])
	for i := 2; i < SoundSlots; i++ {
		require.Equal(t, byte(0x11), s.Parameters[i], "slot %d", i)
	}
}

func TestDecodeLongSoundDump(t *testing.T) {
	frame := make([]byte, 394)
	copy(frame, []byte{0xF0, 0x3E, 0x13, 0x00, 0x10, EditBuffer, 0x00})
	for i := 7; i < 392; i++ {
		frame[i] = byte(i-7) & 0x7F
	}
	frame[392], frame[393] = 0x33, 0xF7

	_, m, err := Decode(frame)
	require.NoError(t, err)
	s := m.(SoundDumpData).Sound
	assert.Equal(t, EditBuffer, s.Bank)
	for i := 0; i < SoundSlots; i++ {
		require.Equal(t, byte(i)&0x7F, s.Parameters[i], "slot %d", i)
	}
}

func TestSoundDumpKeepsLeadingSlots(t *testing.T) {
	s := testSound(t)
	s.Parameters[0], s.Parameters[1] = 5, 9
	m, err := NewSoundDumpData(s)
	require.NoError(t, err)

	frame, err := Encode(0x00, m)
	require.NoError(t, err)
	assert.Len(t, frame, 394)

	_, got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	s.Parameters[0], s.Parameters[1] = 0, 0
	frame, err = Encode(0x00, SoundDumpData{Sound: s})
	require.NoError(t, err)
	assert.Len(t, frame, 392)
}

func TestDecodeShortMultiDump(t *testing.T) {
	payload := multiPayload(0, 3)[:MultiPayloadSize-1]
	frame := append([]byte{0xF0, 0x3E, 0x13, 0x00, 0x11}, payload...)
	frame = append(frame, Checksum(payload), 0xF7)
	require.Len(t, frame, 424)

	_, m, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, 3, m.(MultiDumpData).Multi())
}

func TestDecodeShortSoundRequest(t *testing.T) {
	dev, m, err := Decode([]byte{0xF0, 0x3E, 0x13, 0x02, 0x00, 0x07, 0x7F, 0xF7})
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), dev)
	assert.Equal(t, SoundDumpRequest{Bank: 7, Program: 127}, m)
}

func TestDecodeChecksumMismatchIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	codec := NewCodec(zap.New(core))

	frame, err := codec.Encode(0x00, mustMulti(t))
	require.NoError(t, err)
	bad := (frame[len(frame)-2] + 1) & 0x7F
	if bad == WildcardChecksum {
		bad = 0
	}
	frame[len(frame)-2] = bad

	_, m, err := codec.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, KindMultiDumpData, m.Kind())
	assert.Equal(t, 1, logs.FilterMessage("checksum mismatch").Len())

	global := []byte{0xF0, 0x3E, 0x13, 0x00, 0x14, 0x00, 0x01, 0x05, 0x00, 0xF7}
	_, m, err = codec.Decode(global)
	require.NoError(t, err)
	assert.Equal(t, ModeMulti, m.(GlobalParametersData).Mode())
	assert.Equal(t, 2, logs.FilterMessage("checksum mismatch").Len())
}

func mustMulti(t *testing.T) MultiDumpData {
	t.Helper()
	m, err := NewMultiDumpData(multiPayload(0, 1))
	require.NoError(t, err)
	return m
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"empty", nil, ErrMalformedMessage},
		{"too short", []byte{0xF0, 0x3E, 0xF7}, ErrMalformedMessage},
		{"no start", []byte{0x00, 0x3E, 0x13, 0x00, 0x04, 0xF7}, ErrMalformedMessage},
		{"no end", []byte{0xF0, 0x3E, 0x13, 0x00, 0x04, 0x00}, ErrMalformedMessage},
		{"embedded status", []byte{0xF0, 0x3E, 0x13, 0xF7, 0x04, 0xF7}, ErrMalformedMessage},
		{"other manufacturer", []byte{0xF0, 0x41, 0x10, 0x42, 0x12, 0xF7}, ErrUnknownManufacturer},
		{"other model", []byte{0xF0, 0x3E, 0x0E, 0x00, 0x04, 0xF7}, ErrUnknownManufacturer},
		{"unknown command", []byte{0xF0, 0x3E, 0x13, 0x00, 0x33, 0xF7}, ErrUnknownCommand},
		{"unknown universal", []byte{0xF0, 0x7E, 0x00, 0x09, 0x01, 0xF7}, ErrUnknownCommand},
		{"bad request length", []byte{0xF0, 0x3E, 0x13, 0x00, 0x04, 0x00, 0xF7}, ErrMalformedMessage},
		{"bad sound dump length", append(append([]byte{0xF0, 0x3E, 0x13, 0x00, 0x10}, make([]byte, 300)...), 0xF7), ErrMalformedMessage},
		{"parameter out of range", []byte{0xF0, 0x3E, 0x13, 0x00, 0x20, 0x00, 0x03, 0x01, 0x00, 0xF7}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.frame)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestEncodeRejectsInvalidMessages(t *testing.T) {
	_, err := Encode(0x00, SoundParameterChange{Param: 385})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Encode(0x80, GlobalParametersRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Encode(0x00, MultiDumpData{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Encode(0x00, nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
