package sysex

import "math"

const (
	WavetableFirstUserSlot = 80
	WavetableLastUserSlot  = 118
	// WavetableUnassigned marks a table that has no user slot yet.
	WavetableUnassigned = 0

	WavesPerTable       = 64
	SamplesPerWave      = 128
	WavetableNameLength = 14
)

// Wave is one keyframe of a wavetable.
type Wave [SamplesPerWave]int32

// Wavetable is a user wavetable: 1 to 64 keyframes sharing one name.
type Wavetable struct {
	Slot  int
	Name  string
	Waves []Wave
}

func (t Wavetable) Validate() error {
	if t.Slot != WavetableUnassigned {
		if err := checkRange("wavetable slot", t.Slot, WavetableFirstUserSlot, WavetableLastUserSlot); err != nil {
			return err
		}
	}
	if err := checkRange("wave count", len(t.Waves), 1, WavesPerTable); err != nil {
		return err
	}
	for _, w := range t.Waves {
		for _, s := range w {
			if err := checkRange("sample", int(s), SampleMin, SampleMax); err != nil {
				return err
			}
		}
	}
	return nil
}

// Expand spreads the keyframes evenly over the 64 wave positions and fills
// the gaps by linear interpolation.
func (t Wavetable) Expand() [WavesPerTable]Wave {
	var out [WavesPerTable]Wave
	n := len(t.Waves)
	switch n {
	case 0:
		return out
	case 1:
		for i := range out {
			out[i] = t.Waves[0]
		}
		return out
	}

	pos := make([]int, n)
	for k := range pos {
		pos[k] = int(math.Round(float64(k*(WavesPerTable-1)) / float64(n-1)))
	}
	for k := 0; k < n-1; k++ {
		from, to := pos[k], pos[k+1]
		a, b := t.Waves[k], t.Waves[k+1]
		for i := from; i <= to; i++ {
			if to == from {
				out[i] = a
				continue
			}
			f := float64(i-from) / float64(to-from)
			for j := range out[i] {
				out[i][j] = int32(math.Round(float64(a[j]) + f*float64(b[j]-a[j])))
			}
		}
	}
	return out
}

// Messages builds the 64 WTBD messages for an assigned table.
func (t Wavetable) Messages() ([]WavetableDump, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Slot == WavetableUnassigned {
		return nil, invalid("wavetable slot", t.Slot, "table is not assigned to a user slot")
	}
	waves := t.Expand()
	out := make([]WavetableDump, 0, WavesPerTable)
	for i, w := range waves {
		m, err := NewWavetableDump(t.Slot, i, w[:], t.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
