package ccmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownMappings(t *testing.T) {
	m := New()
	assert.Equal(t, 88, m.CCToParameter(74))
	assert.Equal(t, 74, m.ParameterToCC(88))
	assert.Equal(t, Unmapped, m.CCToParameter(1))
	assert.Equal(t, 78, m.CCToParameter(69))
	assert.Equal(t, 57, m.CCToParameter(5))
}

func TestTableSize(t *testing.T) {
	m := New()
	assert.Equal(t, 118, m.Len())

	mapped := 0
	for cc := 0; cc < 128; cc++ {
		if m.IsCCMapped(cc) {
			mapped++
		}
	}
	assert.Equal(t, 118, mapped)
}

func TestTableIsBijective(t *testing.T) {
	m := New()
	params := 0
	for cc := 0; cc < 128; cc++ {
		p := m.CCToParameter(cc)
		if p == Unmapped {
			continue
		}
		params++
		assert.Equal(t, cc, m.ParameterToCC(p), "cc %d", cc)
		assert.True(t, m.IsParameterMapped(p))
	}
	for p := 0; p < 385; p++ {
		if cc := m.ParameterToCC(p); cc != Unmapped {
			assert.Equal(t, p, m.CCToParameter(cc))
		}
	}
	assert.Equal(t, m.Len(), params)
}

func TestOutOfRangeInputs(t *testing.T) {
	m := New()
	assert.Equal(t, Unmapped, m.CCToParameter(-1))
	assert.Equal(t, Unmapped, m.CCToParameter(128))
	assert.Equal(t, Unmapped, m.ParameterToCC(385))
	assert.False(t, m.IsCCMapped(0))
	assert.False(t, m.IsCCMapped(64))
	assert.False(t, m.IsParameterMapped(0))
}
