// Package patch is a structured, JSON friendly view of a Blofeld sound.
// Field positions follow the SDATA table of the Blofeld SysEx documentation.
package patch

import (
	"math/rand"

	"blofeldctl/internal/sysex"
)

type Oscillator struct {
	Octave     byte `json:"octave"`
	Pitch      byte `json:"pitch"` // semitone
	Detune     byte `json:"detune"`
	BendRange  byte `json:"bend_range"`
	Keytrack   byte `json:"keytrack"`
	FMSource   byte `json:"fm_source"`
	FM         byte `json:"fm"`
	Shape      byte `json:"shape"`
	PW         byte `json:"pw"`
	PWMSource  byte `json:"pwm_source"`
	PWM        byte `json:"pwm"`
	LimitWT    byte `json:"limit_wt"`
	Brilliance byte `json:"brilliance"`
}

type Filter struct {
	Type       byte `json:"type"`
	Cutoff     byte `json:"cutoff"`
	Res        byte `json:"res"`
	Drive      byte `json:"drive"`
	DriveCurve byte `json:"drive_curve"`
	Keytrack   byte `json:"keytrack"`
	EnvAmt     byte `json:"env_amt"`
	EnvVel     byte `json:"env_vel"`
	ModSource  byte `json:"mod_source"`
	ModAmount  byte `json:"mod_amount"`
	FMSource   byte `json:"fm_source"`
	FMAmount   byte `json:"fm_amount"`
	Pan        byte `json:"pan"`
	PanSource  byte `json:"pan_source"`
	PanAmount  byte `json:"pan_amount"`
}

type Envelope struct {
	Mode        byte `json:"mode"`
	Attack      byte `json:"attack"`
	AttackLevel byte `json:"attack_level"`
	Decay       byte `json:"decay"`
	Sustain     byte `json:"sustain"`
	Decay2      byte `json:"decay2"`
	Sustain2    byte `json:"sustain2"`
	Release     byte `json:"release"`
}

type LFO struct {
	Shape      byte `json:"shape"`
	Speed      byte `json:"speed"`
	Sync       byte `json:"sync"`
	Clocked    byte `json:"clocked"`
	StartPhase byte `json:"start_phase"`
	Delay      byte `json:"delay"`
	Fade       byte `json:"fade"`
	Keytrack   byte `json:"keytrack"`
}

type Effect struct {
	Type   byte     `json:"type"`
	Mix    byte     `json:"mix"`
	Params [14]byte `json:"params"`
}

type ModulationMatrix struct {
	Source byte `json:"source"`
	Dest   byte `json:"dest"`
	Amount byte `json:"amount"`
}

type Modifier struct {
	SourceA  byte `json:"source_a"`
	SourceB  byte `json:"source_b"`
	Operator byte `json:"operator"`
	Constant byte `json:"constant"`
}

type Patch struct {
	Oscillators    [3]Oscillator `json:"oscillators"`
	Osc2Sync       byte          `json:"osc2_sync"`
	OscPitchSource byte          `json:"osc_pitch_source"`
	OscPitchAmount byte          `json:"osc_pitch_amount"`

	Glide         byte `json:"glide"`
	GlideMode     byte `json:"glide_mode"`
	GlideRate     byte `json:"glide_rate"`
	Unison        byte `json:"unison"`
	UnisonDetune  byte `json:"unison_detune"`
	FilterRouting byte `json:"filter_routing"`

	// Mixer
	MixOsc1         byte `json:"mix_osc1"`
	MixOsc1Balance  byte `json:"mix_osc1_balance"`
	MixOsc2         byte `json:"mix_osc2"`
	MixOsc2Balance  byte `json:"mix_osc2_balance"`
	MixOsc3         byte `json:"mix_osc3"`
	MixOsc3Balance  byte `json:"mix_osc3_balance"`
	MixNoise        byte `json:"mix_noise"`
	MixNoiseBalance byte `json:"mix_noise_balance"`
	MixNoiseColor   byte `json:"mix_noise_color"`
	MixRing         byte `json:"mix_ring"`
	MixRingBalance  byte `json:"mix_ring_balance"`

	Filters [2]Filter `json:"filters"`

	AmpVolume    byte `json:"amp_volume"`
	AmpVelocity  byte `json:"amp_velocity"`
	AmpModSource byte `json:"amp_mod_source"`
	AmpModAmount byte `json:"amp_mod_amount"`

	Effects [2]Effect `json:"effects"`

	LFOs      [3]LFO      `json:"lfos"`
	Envelopes [4]Envelope `json:"envelopes"`

	Modifiers [4]Modifier          `json:"modifiers"`
	ModMatrix [16]ModulationMatrix `json:"mod_matrix"`

	ArpMode          byte     `json:"arp_mode"`
	ArpPattern       byte     `json:"arp_pattern"`
	ArpClock         byte     `json:"arp_clock"`
	ArpLength        byte     `json:"arp_length"`
	ArpRange         byte     `json:"arp_range"`
	ArpDirection     byte     `json:"arp_direction"`
	ArpSort          byte     `json:"arp_sort"`
	ArpVelocityMode  byte     `json:"arp_velocity_mode"`
	ArpTimingFactor  byte     `json:"arp_timing_factor"`
	ArpPatternReset  byte     `json:"arp_pattern_reset"`
	ArpPatternLength byte     `json:"arp_pattern_length"`
	ArpTempo         byte     `json:"arp_tempo"`
	ArpPatternSteps  [16]byte `json:"arp_pattern_steps"`
	ArpPatternTiming [16]byte `json:"arp_pattern_timing"`

	Name        string `json:"name"`
	Category    byte   `json:"category"`
	SubCategory byte   `json:"subcategory"`
}

// oscillator offsets; -1 marks a field osc 3 does not have.
var oscFieldMapping = [3]struct {
	octave, pitch, detune, bendRange, keytrack, fmSource, fm int
	shape, pw, pwmSource, pwm, limitWT, brilliance           int
}{
	{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 14, 16},
	{17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 30, 32},
	{33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, -1, 48},
}

const (
	oscSyncIdx        = 49
	oscPitchSourceIdx = 50
	oscPitchAmountIdx = 51
	glideIdx          = 53
	glideModeIdx      = 56
	glideRateIdx      = 57
	unisonIdx         = 58
	unisonDetuneIdx   = 59

	mixOsc1Idx       = 61
	mixOsc1BalIdx    = 62
	mixOsc2Idx       = 63
	mixOsc2BalIdx    = 64
	mixOsc3Idx       = 65
	mixOsc3BalIdx    = 66
	mixNoiseIdx      = 67
	mixNoiseBalIdx   = 68
	mixNoiseColorIdx = 69
	mixRingIdx       = 71
	mixRingBalIdx    = 72

	filterStartIdx   = 77
	filterStride     = 20
	filterRoutingIdx = 117

	ampVolumeIdx    = 121
	ampVelocityIdx  = 122
	ampModSourceIdx = 123
	ampModAmountIdx = 124

	effectStartIdx = 128
	effectStride   = 16

	lfoStartIdx      = 160
	lfoStride        = 12
	envelopeStartIdx = 196
	envelopeStride   = 12

	modifierStartIdx  = 245
	modifierStride    = 4
	modMatrixStartIdx = 261
	modMatrixStride   = 3

	arpModeIdx               = 311
	arpPatternIdx            = 312
	arpClockIdx              = 314
	arpLengthIdx             = 315
	arpRangeIdx              = 316
	arpDirectionIdx          = 317
	arpSortIdx               = 318
	arpVelocityModeIdx       = 319
	arpTimingFactorIdx       = 320
	arpPatternResetIdx       = 322
	arpPatternLengthIdx      = 323
	arpTempoIdx              = 326
	arpPatternStepsStartIdx  = 327
	arpPatternTimingStartIdx = 343

	subCategoryIdx = 380
)

// binding ties one SDATA index to one field.
type binding struct {
	idx int
	ptr *byte
}

func (p *Patch) bindings() []binding {
	b := make([]binding, 0, 320)
	add := func(idx int, ptr *byte) {
		if idx >= 0 {
			b = append(b, binding{idx, ptr})
		}
	}

	for i, m := range oscFieldMapping {
		o := &p.Oscillators[i]
		add(m.octave, &o.Octave)
		add(m.pitch, &o.Pitch)
		add(m.detune, &o.Detune)
		add(m.bendRange, &o.BendRange)
		add(m.keytrack, &o.Keytrack)
		add(m.fmSource, &o.FMSource)
		add(m.fm, &o.FM)
		add(m.shape, &o.Shape)
		add(m.pw, &o.PW)
		add(m.pwmSource, &o.PWMSource)
		add(m.pwm, &o.PWM)
		add(m.limitWT, &o.LimitWT)
		add(m.brilliance, &o.Brilliance)
	}

	add(oscSyncIdx, &p.Osc2Sync)
	add(oscPitchSourceIdx, &p.OscPitchSource)
	add(oscPitchAmountIdx, &p.OscPitchAmount)
	add(glideIdx, &p.Glide)
	add(glideModeIdx, &p.GlideMode)
	add(glideRateIdx, &p.GlideRate)
	add(unisonIdx, &p.Unison)
	add(unisonDetuneIdx, &p.UnisonDetune)

	add(mixOsc1Idx, &p.MixOsc1)
	add(mixOsc1BalIdx, &p.MixOsc1Balance)
	add(mixOsc2Idx, &p.MixOsc2)
	add(mixOsc2BalIdx, &p.MixOsc2Balance)
	add(mixOsc3Idx, &p.MixOsc3)
	add(mixOsc3BalIdx, &p.MixOsc3Balance)
	add(mixNoiseIdx, &p.MixNoise)
	add(mixNoiseBalIdx, &p.MixNoiseBalance)
	add(mixNoiseColorIdx, &p.MixNoiseColor)
	add(mixRingIdx, &p.MixRing)
	add(mixRingBalIdx, &p.MixRingBalance)

	for i := range p.Filters {
		f := &p.Filters[i]
		base := filterStartIdx + i*filterStride
		add(base, &f.Type)
		add(base+1, &f.Cutoff)
		add(base+3, &f.Res)
		add(base+4, &f.Drive)
		add(base+5, &f.DriveCurve)
		add(base+9, &f.Keytrack)
		add(base+10, &f.EnvAmt)
		add(base+11, &f.EnvVel)
		add(base+12, &f.ModSource)
		add(base+13, &f.ModAmount)
		add(base+14, &f.FMSource)
		add(base+15, &f.FMAmount)
		add(base+16, &f.Pan)
		add(base+17, &f.PanSource)
		add(base+18, &f.PanAmount)
	}
	add(filterRoutingIdx, &p.FilterRouting)

	add(ampVolumeIdx, &p.AmpVolume)
	add(ampVelocityIdx, &p.AmpVelocity)
	add(ampModSourceIdx, &p.AmpModSource)
	add(ampModAmountIdx, &p.AmpModAmount)

	for i := range p.Effects {
		e := &p.Effects[i]
		base := effectStartIdx + i*effectStride
		add(base, &e.Type)
		add(base+1, &e.Mix)
		for j := range e.Params {
			add(base+2+j, &e.Params[j])
		}
	}

	for i := range p.LFOs {
		l := &p.LFOs[i]
		base := lfoStartIdx + i*lfoStride
		add(base, &l.Shape)
		add(base+1, &l.Speed)
		add(base+3, &l.Sync)
		add(base+4, &l.Clocked)
		add(base+5, &l.StartPhase)
		add(base+6, &l.Delay)
		add(base+7, &l.Fade)
		add(base+10, &l.Keytrack)
	}

	for i := range p.Envelopes {
		e := &p.Envelopes[i]
		base := envelopeStartIdx + i*envelopeStride
		add(base, &e.Mode)
		add(base+3, &e.Attack)
		add(base+4, &e.AttackLevel)
		add(base+5, &e.Decay)
		add(base+6, &e.Sustain)
		add(base+7, &e.Decay2)
		add(base+8, &e.Sustain2)
		add(base+9, &e.Release)
	}

	for i := range p.Modifiers {
		m := &p.Modifiers[i]
		base := modifierStartIdx + i*modifierStride
		add(base, &m.SourceA)
		add(base+1, &m.SourceB)
		add(base+2, &m.Operator)
		add(base+3, &m.Constant)
	}

	for i := range p.ModMatrix {
		m := &p.ModMatrix[i]
		base := modMatrixStartIdx + i*modMatrixStride
		add(base, &m.Source)
		add(base+1, &m.Dest)
		add(base+2, &m.Amount)
	}

	add(arpModeIdx, &p.ArpMode)
	add(arpPatternIdx, &p.ArpPattern)
	add(arpClockIdx, &p.ArpClock)
	add(arpLengthIdx, &p.ArpLength)
	add(arpRangeIdx, &p.ArpRange)
	add(arpDirectionIdx, &p.ArpDirection)
	add(arpSortIdx, &p.ArpSort)
	add(arpVelocityModeIdx, &p.ArpVelocityMode)
	add(arpTimingFactorIdx, &p.ArpTimingFactor)
	add(arpPatternResetIdx, &p.ArpPatternReset)
	add(arpPatternLengthIdx, &p.ArpPatternLength)
	add(arpTempoIdx, &p.ArpTempo)
	for i := range p.ArpPatternSteps {
		add(arpPatternStepsStartIdx+i, &p.ArpPatternSteps[i])
		add(arpPatternTimingStartIdx+i, &p.ArpPatternTiming[i])
	}

	add(subCategoryIdx, &p.SubCategory)
	return b
}

// FromSound decodes the structured view of s.
func FromSound(s sysex.Sound) *Patch {
	p := &Patch{}
	sdata := s.SDATA()
	for _, b := range p.bindings() {
		*b.ptr = sdata[b.idx]
	}
	p.Name = s.Name()
	p.Category = s.Category()
	return p
}

// ApplyTo writes every field of p into s. Parameters the view does not cover
// keep their current value.
func (p *Patch) ApplyTo(s *sysex.Sound) error {
	sdata := s.SDATA()
	for _, b := range p.bindings() {
		sdata[b.idx] = *b.ptr & 0x7F
	}
	if err := s.SetSDATA(sdata); err != nil {
		return err
	}
	s.SetName(p.Name)
	s.SetCategory(p.Category)
	return nil
}

// Sound builds a fresh sound for the given storage location.
func (p *Patch) Sound(bank, program int) (sysex.Sound, error) {
	s := sysex.Sound{Bank: bank, Program: program}
	if err := p.ApplyTo(&s); err != nil {
		return sysex.Sound{}, err
	}
	return s, s.Validate()
}

// RandomizeOscillators mutates only oscillator-related parameters.
func (p *Patch) RandomizeOscillators() {
	randByte := func() byte {
		return byte(rand.Intn(128))
	}

	// Limit shape to the first 5 oscillator types (0–4), avoiding custom samples/wavetables.
	randShape := func() byte {
		return byte(rand.Intn(5))
	}

	for i := range p.Oscillators {
		o := &p.Oscillators[i]
		o.Shape = randShape()
		o.Octave = randByte()
		o.Pitch = randByte()
		o.Detune = randByte()
		o.BendRange = randByte()
		o.Keytrack = randByte()
		o.FM = randByte()
		o.FMSource = randByte()
		o.PW = randByte()
		o.PWM = randByte()
		o.PWMSource = randByte()
		o.Brilliance = randByte()
		if oscFieldMapping[i].limitWT >= 0 {
			o.LimitWT = randByte()
		}
	}
}
