package sysex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit14(t *testing.T) {
	msb, lsb := Split14(200)
	assert.Equal(t, byte(1), msb)
	assert.Equal(t, byte(72), lsb)

	msb, lsb = Split14(384)
	assert.Equal(t, byte(3), msb)
	assert.Equal(t, byte(0), lsb)

	for _, v := range []int{0, 1, 127, 128, 384, 0x3FFF} {
		assert.Equal(t, v, Join14(Split14(v)))
	}
}

func TestSampleEncoding(t *testing.T) {
	assert.Equal(t, [3]byte{0x7F, 0x7F, 0x7F}, EncodeSample(-1))
	assert.Equal(t, [3]byte{0x00, 0x00, 0x00}, EncodeSample(0))
	assert.Equal(t, [3]byte{0x40, 0x00, 0x00}, EncodeSample(SampleMin))
	assert.Equal(t, [3]byte{0x3F, 0x7F, 0x7F}, EncodeSample(SampleMax))

	for _, s := range []int32{-1, 0, 1, SampleMin, SampleMax, -12345, 54321} {
		b := EncodeSample(s)
		assert.Equal(t, s, DecodeSample(b[0], b[1], b[2]), "sample %d", s)
	}
}

func TestSampleEncodingClamps(t *testing.T) {
	assert.Equal(t, EncodeSample(SampleMax), EncodeSample(SampleMax+10))
	assert.Equal(t, EncodeSample(SampleMin), EncodeSample(SampleMin-10))
}

func TestEncodeName(t *testing.T) {
	assert.Equal(t, []byte("Pad     "), EncodeName("Pad", 8))
	assert.Equal(t, []byte("TooLong"), EncodeName("TooLongName", 7))
	assert.Equal(t, []byte{'a', 0x7F, 'b', ' '}, EncodeName("a\tb", 4))
	assert.Equal(t, []byte{'x', 0x7F, ' '}, EncodeName("xé", 3))
}

func TestDecodeName(t *testing.T) {
	assert.Equal(t, "Warm Pad", DecodeName([]byte("Warm Pad        ")))
	assert.Equal(t, "Lead", DecodeName([]byte("Lead\x00\x00\x00")))
	assert.Equal(t, "  x", DecodeName([]byte("  x  ")))
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, byte(0), Checksum(nil))
	assert.Equal(t, byte(6), Checksum([]byte{1, 2, 3}))
	assert.Equal(t, byte((0x7F+0x7F+0x02)%128), Checksum([]byte{0x7F, 0x7F, 0x02}))
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "SNDD", CmdSoundDump.String())
	assert.Equal(t, "0x33", Command(0x33).String())
	assert.Equal(t, "0x0A", Command(0x0A).String())
	assert.Equal(t, "mode 0x05", Mode(5).String())
}
