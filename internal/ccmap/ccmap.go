// Package ccmap maps MIDI Control Change numbers to Blofeld sound parameters
// and back.
package ccmap

// Unmapped is returned for controllers or parameters without a mapping.
const Unmapped = -1

const (
	numCCs    = 128
	numParams = 385
)

// Index mappings into the sound parameter space (SDATA numbering).
var table = []struct {
	cc    int
	param int
}{
	// Oscillator extras and unison
	{2, 59}, {3, 5}, {4, 37}, {5, 57}, {6, 58}, {8, 4}, {9, 21},

	// Arpeggiator
	{12, 316}, {13, 312}, {14, 311},

	// LFOs: shape, speed, sync, delay
	{15, 160}, {16, 161}, {17, 163}, {18, 166},
	{19, 172}, {20, 173}, {21, 175}, {22, 178},
	{23, 184}, {24, 185}, {25, 187}, {26, 190},

	// Oscillator 1
	{27, 1}, {28, 2}, {29, 3}, {30, 7}, {31, 8}, {33, 9}, {34, 11},
	// Oscillator 2
	{35, 17}, {36, 18}, {37, 19}, {38, 23}, {39, 24}, {40, 25}, {41, 27},
	// Oscillator 3
	{42, 33}, {43, 34}, {44, 35}, {45, 39}, {46, 40}, {47, 41}, {48, 43},

	{49, 49}, {50, 51}, {51, 56},

	// Mixer
	{52, 61}, {53, 62}, {54, 71}, {55, 72}, {56, 63}, {57, 64},
	{58, 65}, {59, 66}, {60, 67}, {61, 68}, {62, 69},

	{63, 16}, {65, 53}, {66, 32}, {67, 117},

	// Filter 1
	{68, 77}, {69, 78}, {70, 80}, {71, 81}, {72, 86}, {73, 87}, {74, 88},
	{75, 90}, {76, 92}, {77, 93}, {78, 95},
	// Filter 2
	{79, 97}, {80, 98}, {81, 100}, {82, 101}, {83, 106}, {84, 107}, {85, 108},
	{86, 110}, {87, 112}, {88, 113}, {89, 115},

	// Amplifier and effect mix
	{90, 121}, {91, 122}, {92, 124}, {93, 129}, {94, 145},

	// Envelopes: attack, decay, sustain, decay 2, sustain 2, release
	{95, 199}, {96, 201}, {97, 202}, {98, 203}, {99, 204}, {100, 205},
	{101, 211}, {102, 213}, {103, 214}, {104, 215}, {105, 216}, {106, 217},
	{107, 223}, {108, 225}, {109, 226}, {110, 227}, {111, 228}, {112, 229},
	{113, 235}, {114, 237}, {115, 238}, {116, 239}, {117, 240}, {118, 241},

	{119, 48}, {122, 14}, {124, 30},
	// Envelope attack levels
	{125, 200}, {126, 212}, {127, 224},
}

// Mapper is an immutable bidirectional CC/parameter table. Lookups are O(1).
type Mapper struct {
	ccToParam [numCCs]int
	paramToCC [numParams]int
	size      int
}

// New builds the table.
func New() *Mapper {
	m := &Mapper{}
	for i := range m.ccToParam {
		m.ccToParam[i] = Unmapped
	}
	for i := range m.paramToCC {
		m.paramToCC[i] = Unmapped
	}
	for _, e := range table {
		m.ccToParam[e.cc] = e.param
		m.paramToCC[e.param] = e.cc
		m.size++
	}
	return m
}

// CCToParameter returns the parameter controlled by cc, or Unmapped.
func (m *Mapper) CCToParameter(cc int) int {
	if cc < 0 || cc >= numCCs {
		return Unmapped
	}
	return m.ccToParam[cc]
}

// ParameterToCC returns the controller for param, or Unmapped.
func (m *Mapper) ParameterToCC(param int) int {
	if param < 0 || param >= numParams {
		return Unmapped
	}
	return m.paramToCC[param]
}

func (m *Mapper) IsCCMapped(cc int) bool {
	return m.CCToParameter(cc) != Unmapped
}

func (m *Mapper) IsParameterMapped(param int) bool {
	return m.ParameterToCC(param) != Unmapped
}

// Len is the number of mapped pairs.
func (m *Mapper) Len() int {
	return m.size
}
