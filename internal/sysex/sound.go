package sysex

import (
	"fmt"
	"strings"
)

const (
	// SoundSlots is the number of parameter slots a Sound holds.
	SoundSlots = 385
	// SoundDataSize is the SDATA body carried by a 392-byte SNDD frame.
	SoundDataSize = 383
	// MaxParameterID is the highest addressable sound parameter.
	MaxParameterID = SoundSlots - 1

	// SDATA starts two slots into the parameter array; a 394-byte dump
	// carries the two leading slots as well.
	soundDataOffset = SoundSlots - SoundDataSize

	SoundNameLength   = 16
	soundNameSlot     = 363 + soundDataOffset
	soundCategorySlot = 379 + soundDataOffset

	NumBanks        = 8
	ProgramsPerBank = 128
	// EditBuffer is the bank number of the currently loaded sound.
	EditBuffer = 127
)

var categoryNames = []string{
	"Init", "Arp", "Atmo", "Bass", "Drum", "FX", "Keys",
	"Lead", "Mono", "Pad", "Perc", "Poly", "Seq",
}

// Sound is one Blofeld program.
type Sound struct {
	Bank       int
	Program    int
	Parameters [SoundSlots]byte
}

// NewSound builds a sound from a 383-byte SDATA body.
func NewSound(bank, program int, sdata []byte) (Sound, error) {
	s := Sound{Bank: bank, Program: program}
	if err := s.SetSDATA(sdata); err != nil {
		return Sound{}, err
	}
	if err := s.Validate(); err != nil {
		return Sound{}, err
	}
	return s, nil
}

// Validate checks the storage coordinates and every parameter value.
func (s Sound) Validate() error {
	if err := checkBank(s.Bank); err != nil {
		return err
	}
	if err := checkRange("program", s.Program, 0, ProgramsPerBank-1); err != nil {
		return err
	}
	return checkDataBytes("parameter", s.Parameters[:])
}

func checkBank(bank int) error {
	if bank == EditBuffer {
		return nil
	}
	return checkRange("bank", bank, 0, NumBanks-1)
}

// SDATA returns a copy of the wire body (slots 2..384).
func (s Sound) SDATA() []byte {
	out := make([]byte, SoundDataSize)
	copy(out, s.Parameters[soundDataOffset:])
	return out
}

// SetSDATA replaces slots 2..384 with a 383-byte wire body.
func (s *Sound) SetSDATA(sdata []byte) error {
	if len(sdata) != SoundDataSize {
		return invalid("sdata length", len(sdata), "must be %d", SoundDataSize)
	}
	copy(s.Parameters[soundDataOffset:], sdata)
	return nil
}

// Name is the 16-character patch name.
func (s Sound) Name() string {
	return DecodeName(s.Parameters[soundNameSlot : soundNameSlot+SoundNameLength])
}

// SetName writes name into the name slots, padded and sanitised.
func (s *Sound) SetName(name string) {
	copy(s.Parameters[soundNameSlot:], EncodeName(name, SoundNameLength))
}

// Category is the raw category index.
func (s Sound) Category() byte {
	return s.Parameters[soundCategorySlot]
}

// SetCategory stores the raw category index.
func (s *Sound) SetCategory(c byte) {
	s.Parameters[soundCategorySlot] = c & 0x7F
}

// CategoryName maps Category to the label shown on the device.
func (s Sound) CategoryName() string {
	c := int(s.Category())
	if c < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category %d", c)
}

// Index is the absolute position of the sound in the library, starting at 1.
func (s Sound) Index() int {
	return LinearIndex(s.Bank, s.Program)
}

// LinearIndex maps bank/program to bank*128+program+1.
func LinearIndex(bank, program int) int {
	return bank*ProgramsPerBank + program + 1
}

// ParseBank accepts a bank letter A–H.
func ParseBank(bank string) (int, error) {
	if bank == "" {
		return 0, invalid("bank", -1, "must not be empty")
	}
	ch := strings.ToUpper(bank)[0]
	if ch < 'A' || ch > 'H' {
		return 0, invalid("bank", int(ch), "must be A–H, got %q", bank)
	}
	return int(ch - 'A'), nil
}

// BankName renders a bank number as its letter, or "EDIT" for the edit buffer.
func BankName(bank int) string {
	if bank == EditBuffer {
		return "EDIT"
	}
	if bank < 0 || bank >= NumBanks {
		return fmt.Sprintf("bank %d", bank)
	}
	return string(rune('A' + bank))
}
