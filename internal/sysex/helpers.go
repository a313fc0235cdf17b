package sysex

import "fmt"

// SoundToSysEx renders an SNDD frame directly, without going through the
// generic encoder. Values are masked to seven bits. The 392-byte form is
// used unless one of the two leading slots is set; those only fit in the
// 394-byte form.
func SoundToSysEx(dev byte, s Sound) []byte {
	size, from := soundDumpFrameSize, soundDataOffset
	if s.Parameters[0] != 0 || s.Parameters[1] != 0 {
		size, from = soundDumpFrameLong, 0
	}
	out := make([]byte, size)
	out[0] = SysExStart
	out[1] = ManufacturerWaldorf
	out[2] = ModelBlofeld
	out[3] = dev & 0x7F
	out[4] = byte(CmdSoundDump)
	out[5] = byte(s.Bank) & 0x7F
	out[6] = byte(s.Program) & 0x7F
	for i, v := range s.Parameters[from:] {
		out[7+i] = v & 0x7F
	}
	out[size-2] = WildcardChecksum
	out[size-1] = SysExEnd
	return out
}

// SoundFromSysEx parses an SNDD frame of either accepted length.
func SoundFromSysEx(frame []byte) (Sound, byte, error) {
	if err := checkBlofeldFrame(frame, CmdSoundDump); err != nil {
		return Sound{}, 0, err
	}
	s, err := decodeSound(frame)
	if err != nil {
		return Sound{}, 0, err
	}
	return s, frame[3], nil
}

// MultiToSysEx renders a MULD frame around payload, computing its checksum.
func MultiToSysEx(dev byte, payload []byte) ([]byte, error) {
	m, err := NewMultiDumpData(payload)
	if err != nil {
		return nil, err
	}
	if dev > 0x7F {
		return nil, invalid("device id", int(dev), "must be in range 0–127")
	}
	return withChecksum(header(dev, CmdMultiDump, headerSize+len(m.payload)+2), m.payload), nil
}

// MultiFromSysEx parses a MULD frame of either accepted length. The checksum
// is not verified.
func MultiFromSysEx(frame []byte) (MultiDumpData, byte, error) {
	if err := checkBlofeldFrame(frame, CmdMultiDump); err != nil {
		return MultiDumpData{}, 0, err
	}
	if n := len(frame); n != multiDumpFrameSize && n != multiDumpFrameShort {
		return MultiDumpData{}, 0, badLength(CmdMultiDump, n)
	}
	payload := append([]byte(nil), frame[headerSize:len(frame)-2]...)
	return MultiDumpData{payload: payload}, frame[3], nil
}

func checkBlofeldFrame(frame []byte, cmd Command) error {
	n := len(frame)
	switch {
	case n < headerSize+1:
		return malformed("frame of %d bytes is too short", n)
	case frame[0] != SysExStart || frame[n-1] != SysExEnd:
		return malformed("missing F0/F7 delimiters")
	case frame[1] != ManufacturerWaldorf || frame[2] != ModelBlofeld:
		return fmt.Errorf("%w: 0x%02X 0x%02X", ErrUnknownManufacturer, frame[1], frame[2])
	case Command(frame[4]) != cmd:
		return fmt.Errorf("%w: want %s, got %s", ErrUnknownCommand, cmd, Command(frame[4]))
	}
	return nil
}
