package session

import "time"

// Timing holds the pacing delays and deadlines the session applies.
// Zero fields fall back to DefaultTiming.
type Timing struct {
	DumpPacing      time.Duration `yaml:"dump_pacing"`
	MultiSettle     time.Duration `yaml:"multi_settle"`
	SoundSettle     time.Duration `yaml:"sound_settle"`
	ModeTimeout     time.Duration `yaml:"mode_timeout"`
	WavetablePacing time.Duration `yaml:"wavetable_pacing"`
	BankTimeout     time.Duration `yaml:"bank_timeout"`
	LibraryTimeout  time.Duration `yaml:"library_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

func DefaultTiming() Timing {
	return Timing{
		DumpPacing:      150 * time.Millisecond,
		MultiSettle:     150 * time.Millisecond,
		SoundSettle:     300 * time.Millisecond,
		ModeTimeout:     3 * time.Second,
		WavetablePacing: 20 * time.Millisecond,
		BankTimeout:     130 * time.Second,
		LibraryTimeout:  600 * time.Second,
		RequestTimeout:  5 * time.Second,
	}
}

// WithDefaults fills every zero field from DefaultTiming.
func (t Timing) WithDefaults() Timing {
	d := DefaultTiming()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.DumpPacing, d.DumpPacing)
	fill(&t.MultiSettle, d.MultiSettle)
	fill(&t.SoundSettle, d.SoundSettle)
	fill(&t.ModeTimeout, d.ModeTimeout)
	fill(&t.WavetablePacing, d.WavetablePacing)
	fill(&t.BankTimeout, d.BankTimeout)
	fill(&t.LibraryTimeout, d.LibraryTimeout)
	fill(&t.RequestTimeout, d.RequestTimeout)
	return t
}
