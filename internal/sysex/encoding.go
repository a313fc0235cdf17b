package sysex

import (
	"fmt"
	"strings"
)

const (
	SysExStart byte = 0xF0
	SysExEnd   byte = 0xF7

	ManufacturerWaldorf byte = 0x3E
	ModelBlofeld        byte = 0x13

	// UniversalNonRealtime is the manufacturer byte of universal non-realtime messages.
	UniversalNonRealtime byte = 0x7E

	// Broadcast is the device ID every Blofeld answers to.
	Broadcast byte = 0x7F

	// WildcardChecksum is accepted by the device in place of a computed checksum.
	WildcardChecksum byte = 0x7F

	// headerSize covers F0 3E 13 dev cmd.
	headerSize = 5
)

// Command is the Blofeld command byte at offset 4 of a frame.
type Command byte

const (
	CmdSoundRequest    Command = 0x00 // SNDR
	CmdMultiRequest    Command = 0x01 // MULR
	CmdGlobalRequest   Command = 0x04 // GLBR
	CmdGlobalParameter Command = 0x05 // GLBP
	CmdSoundDump       Command = 0x10 // SNDD
	CmdMultiDump       Command = 0x11 // MULD
	CmdWavetableDump   Command = 0x12 // WTBD
	CmdGlobalDump      Command = 0x14 // GLBD
	CmdSoundParameter  Command = 0x20 // SNDP
)

var commandNames = map[Command]string{
	CmdSoundRequest:    "SNDR",
	CmdMultiRequest:    "MULR",
	CmdGlobalRequest:   "GLBR",
	CmdGlobalParameter: "GLBP",
	CmdSoundDump:       "SNDD",
	CmdMultiDump:       "MULD",
	CmdWavetableDump:   "WTBD",
	CmdGlobalDump:      "GLBD",
	CmdSoundParameter:  "SNDP",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", byte(c))
}

// Split14 splits a 14-bit value into two 7-bit bytes, most significant first.
func Split14(v int) (msb, lsb byte) {
	return byte(v>>7) & 0x7F, byte(v) & 0x7F
}

// Join14 is the inverse of Split14.
func Join14(msb, lsb byte) int {
	return int(msb&0x7F)<<7 | int(lsb&0x7F)
}

// Wavetable sample range: 21-bit two's complement.
const (
	SampleMin  = -1 << 20
	SampleMax  = 1<<20 - 1
	sampleBias = 1 << 21
)

// EncodeSample biases a negative sample by 2^21 and splits it into three
// 7-bit bytes, most significant first. Out-of-range samples are clamped.
func EncodeSample(s int32) [3]byte {
	v := int(s)
	switch {
	case v < SampleMin:
		v = SampleMin
	case v > SampleMax:
		v = SampleMax
	}
	if v < 0 {
		v += sampleBias
	}
	return [3]byte{byte(v>>14) & 0x7F, byte(v>>7) & 0x7F, byte(v) & 0x7F}
}

// DecodeSample is the inverse of EncodeSample.
func DecodeSample(b0, b1, b2 byte) int32 {
	v := int(b0&0x7F)<<14 | int(b1&0x7F)<<7 | int(b2&0x7F)
	if v > SampleMax {
		v -= sampleBias
	}
	return int32(v)
}

// EncodeName renders name as exactly width bytes, space padded. Characters
// outside printable ASCII become 0x7F.
func EncodeName(name string, width int) []byte {
	out := make([]byte, width)
	i := 0
	for _, r := range name {
		if i == width {
			break
		}
		if r < 0x20 || r > 0x7E {
			out[i] = 0x7F
		} else {
			out[i] = byte(r)
		}
		i++
	}
	for ; i < width; i++ {
		out[i] = ' '
	}
	return out
}

// DecodeName reads a fixed-width name field and trims trailing whitespace.
func DecodeName(b []byte) string {
	return strings.TrimRight(string(b), " \t\r\n\x00")
}

// Checksum is the sum of the payload bytes modulo 128.
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum = (sum + b) & 0x7F
	}
	return sum
}
