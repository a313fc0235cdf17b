package sysex

import "fmt"

// Kind identifies a message variant.
type Kind int

const (
	KindSoundParameterChange Kind = iota + 1
	KindGlobalParameterChange
	KindSoundDumpRequest
	KindSoundDumpData
	KindMultiDumpRequest
	KindMultiDumpData
	KindGlobalParametersRequest
	KindGlobalParametersData
	KindWavetableDump
	KindDeviceIdentityRequest
	KindDeviceIdentityReply
)

var kindNames = map[Kind]string{
	KindSoundParameterChange:    "SNDP",
	KindGlobalParameterChange:   "GLBP",
	KindSoundDumpRequest:        "SNDR",
	KindSoundDumpData:           "SNDD",
	KindMultiDumpRequest:        "MULR",
	KindMultiDumpData:           "MULD",
	KindGlobalParametersRequest: "GLBR",
	KindGlobalParametersData:    "GLBD",
	KindWavetableDump:           "WTBD",
	KindDeviceIdentityRequest:   "IDRQ",
	KindDeviceIdentityReply:     "IDRP",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Message is one Blofeld or universal SysEx message. The set of
// implementations is closed; Encode and Decode switch over all of them.
type Message interface {
	Kind() Kind
	Validate() error
	message()
}

// SoundParameterChange (SNDP) sets one sound parameter on a part.
type SoundParameterChange struct {
	Location int // part, 0 in sound mode
	Param    int
	Value    int
}

func NewSoundParameterChange(location, param, value int) (SoundParameterChange, error) {
	m := SoundParameterChange{Location: location, Param: param, Value: value}
	return m, m.Validate()
}

func (SoundParameterChange) Kind() Kind { return KindSoundParameterChange }
func (SoundParameterChange) message()   {}

func (m SoundParameterChange) Validate() error {
	if err := checkRange("location", m.Location, 0, 0x7F); err != nil {
		return err
	}
	if err := checkRange("parameter", m.Param, 0, MaxParameterID); err != nil {
		return err
	}
	return checkRange("value", m.Value, 0, 0x7F)
}

// GlobalParameterChange (GLBP) sets one global parameter. Both fields are 14-bit.
type GlobalParameterChange struct {
	Param int
	Value int
}

func NewGlobalParameterChange(param, value int) (GlobalParameterChange, error) {
	m := GlobalParameterChange{Param: param, Value: value}
	return m, m.Validate()
}

func (GlobalParameterChange) Kind() Kind { return KindGlobalParameterChange }
func (GlobalParameterChange) message()   {}

func (m GlobalParameterChange) Validate() error {
	if err := checkRange("global parameter", m.Param, 0, 0x3FFF); err != nil {
		return err
	}
	return checkRange("global value", m.Value, 0, 0x3FFF)
}

// SoundDumpRequest (SNDR) asks for one program, or the edit buffer.
type SoundDumpRequest struct {
	Bank    int
	Program int
}

func NewSoundDumpRequest(bank, program int) (SoundDumpRequest, error) {
	m := SoundDumpRequest{Bank: bank, Program: program}
	return m, m.Validate()
}

func (SoundDumpRequest) Kind() Kind { return KindSoundDumpRequest }
func (SoundDumpRequest) message()   {}

func (m SoundDumpRequest) Validate() error {
	if err := checkBank(m.Bank); err != nil {
		return err
	}
	return checkRange("program", m.Program, 0, ProgramsPerBank-1)
}

// SoundDumpData (SNDD) carries a full sound.
type SoundDumpData struct {
	Sound Sound
}

func NewSoundDumpData(s Sound) (SoundDumpData, error) {
	m := SoundDumpData{Sound: s}
	return m, m.Validate()
}

func (SoundDumpData) Kind() Kind { return KindSoundDumpData }
func (SoundDumpData) message()   {}

func (m SoundDumpData) Validate() error { return m.Sound.Validate() }

// MultiDumpRequest (MULR) asks for one multi. Requesting the edit buffer
// switches the device into multi mode.
type MultiDumpRequest struct {
	Bank  int
	Multi int
}

func NewMultiDumpRequest(bank, multi int) (MultiDumpRequest, error) {
	m := MultiDumpRequest{Bank: bank, Multi: multi}
	return m, m.Validate()
}

func (MultiDumpRequest) Kind() Kind { return KindMultiDumpRequest }
func (MultiDumpRequest) message()   {}

func (m MultiDumpRequest) Validate() error {
	if err := checkRange("multi bank", m.Bank, 0, 0x7F); err != nil {
		return err
	}
	return checkRange("multi", m.Multi, 0, 0x7F)
}

const (
	// MultiPayloadSize is the MULD payload including its bank/multi prefix.
	MultiPayloadSize = 418
	// multiPayloadShort is the payload of the 424-byte variant.
	multiPayloadShort = MultiPayloadSize - 1
	MultiNameLength   = 16
)

// MultiDumpData (MULD) carries a multi configuration. The first two payload
// bytes are the bank and multi numbers.
type MultiDumpData struct {
	payload []byte
}

func NewMultiDumpData(payload []byte) (MultiDumpData, error) {
	m := MultiDumpData{payload: append([]byte(nil), payload...)}
	return m, m.Validate()
}

func (MultiDumpData) Kind() Kind { return KindMultiDumpData }
func (MultiDumpData) message()   {}

func (m MultiDumpData) Validate() error {
	if n := len(m.payload); n != MultiPayloadSize && n != multiPayloadShort {
		return invalid("multi payload length", n, "must be %d", MultiPayloadSize)
	}
	return checkDataBytes("multi payload", m.payload)
}

// Payload returns a copy of the raw payload.
func (m MultiDumpData) Payload() []byte { return append([]byte(nil), m.payload...) }

func (m MultiDumpData) Bank() int  { return m.at(0) }
func (m MultiDumpData) Multi() int { return m.at(1) }

func (m MultiDumpData) Name() string {
	if len(m.payload) < 2+MultiNameLength {
		return ""
	}
	return DecodeName(m.payload[2 : 2+MultiNameLength])
}

func (m MultiDumpData) at(i int) int {
	if i >= len(m.payload) {
		return 0
	}
	return int(m.payload[i])
}

// GlobalParametersRequest (GLBR) asks for the global parameter block.
type GlobalParametersRequest struct{}

func (GlobalParametersRequest) Kind() Kind      { return KindGlobalParametersRequest }
func (GlobalParametersRequest) message()        {}
func (GlobalParametersRequest) Validate() error { return nil }

// Mode is the global operating mode stored at payload offset 1 of a GLBD.
type Mode byte

const (
	ModeSound Mode = 0
	ModeMulti Mode = 1
)

func (m Mode) String() string {
	switch m {
	case ModeSound:
		return "sound"
	case ModeMulti:
		return "multi"
	}
	return fmt.Sprintf("mode 0x%02X", byte(m))
}

const globalModeOffset = 1

// GlobalParametersData (GLBD) carries the opaque global parameter block.
type GlobalParametersData struct {
	payload []byte
}

func NewGlobalParametersData(payload []byte) (GlobalParametersData, error) {
	m := GlobalParametersData{payload: append([]byte(nil), payload...)}
	return m, m.Validate()
}

func (GlobalParametersData) Kind() Kind { return KindGlobalParametersData }
func (GlobalParametersData) message()   {}

func (m GlobalParametersData) Validate() error {
	if n := len(m.payload); n <= globalModeOffset {
		return invalid("global payload length", n, "must hold the mode byte")
	}
	return checkDataBytes("global payload", m.payload)
}

func (m GlobalParametersData) Payload() []byte { return append([]byte(nil), m.payload...) }

func (m GlobalParametersData) Mode() Mode {
	if len(m.payload) <= globalModeOffset {
		return ModeSound
	}
	return Mode(m.payload[globalModeOffset])
}

// WithMode returns a copy with the mode byte replaced.
func (m GlobalParametersData) WithMode(mode Mode) (GlobalParametersData, error) {
	if err := m.Validate(); err != nil {
		return GlobalParametersData{}, err
	}
	out := m.Payload()
	out[globalModeOffset] = byte(mode)
	return NewGlobalParametersData(out)
}

// WavetableDump (WTBD) carries one wave of a user wavetable.
type WavetableDump struct {
	Slot    int
	Wave    int
	Samples [SamplesPerWave]int32
	Name    string
}

func NewWavetableDump(slot, wave int, samples []int32, name string) (WavetableDump, error) {
	m := WavetableDump{Slot: slot, Wave: wave, Name: name}
	if len(samples) != SamplesPerWave {
		return WavetableDump{}, invalid("sample count", len(samples), "must be exactly %d", SamplesPerWave)
	}
	copy(m.Samples[:], samples)
	return m, m.Validate()
}

func (WavetableDump) Kind() Kind { return KindWavetableDump }
func (WavetableDump) message()   {}

func (m WavetableDump) Validate() error {
	if err := checkRange("wavetable slot", m.Slot, WavetableFirstUserSlot, WavetableLastUserSlot); err != nil {
		return err
	}
	if err := checkRange("wave", m.Wave, 0, WavesPerTable-1); err != nil {
		return err
	}
	for _, s := range m.Samples {
		if err := checkRange("sample", int(s), SampleMin, SampleMax); err != nil {
			return err
		}
	}
	return nil
}

// DeviceIdentityRequest is the universal Identity Request (7E dev 06 01).
type DeviceIdentityRequest struct{}

func (DeviceIdentityRequest) Kind() Kind      { return KindDeviceIdentityRequest }
func (DeviceIdentityRequest) message()        {}
func (DeviceIdentityRequest) Validate() error { return nil }

// DeviceIdentityReply is the universal Identity Reply (7E dev 06 02).
type DeviceIdentityReply struct {
	Manufacturer byte
	Family       [2]byte
	Member       [2]byte
	Version      [4]byte
}

func (DeviceIdentityReply) Kind() Kind { return KindDeviceIdentityReply }
func (DeviceIdentityReply) message()   {}

func (m DeviceIdentityReply) Validate() error {
	fields := append([]byte{m.Manufacturer}, m.Family[:]...)
	fields = append(fields, m.Member[:]...)
	fields = append(fields, m.Version[:]...)
	return checkDataBytes("identity reply", fields)
}

// IsBlofeld reports whether the reply came from a Waldorf device.
func (m DeviceIdentityReply) IsBlofeld() bool {
	return m.Manufacturer == ManufacturerWaldorf
}
