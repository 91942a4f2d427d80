package labmatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssess(t *testing.T) {
	assert.Equal(t, Reliable, Assess(0, 1))
	assert.Equal(t, Reliable, Assess(1, 1))
	assert.Equal(t, Unreliable, Assess(1.0001, 1))
	assert.Equal(t, "Delta E過大 配方不準確", Unreliable.Label(LangZhTW))
	assert.Equal(t, "Delta E 合理範圍，配方具參考性", Reliable.Label(LangZhTW))
	assert.Contains(t, Unreliable.Label(LangEN), "not accurate")
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#000000", Hex(Lab{}))
	assert.Equal(t, "#ffffff", Hex(Lab{L: 100}))
}

func TestSwatchIsClampedForOutOfGamutColors(t *testing.T) {
	c := Swatch(Lab{L: 50, A: 120, B: -120})
	assert.True(t, c.IsValid())
}

func TestDeltaE2000(t *testing.T) {
	q := Lab{L: 50, A: 2.6772, B: -79.7751}
	assert.Zero(t, DeltaE2000(q, q))
	// Reference pair from Sharma, Wu and Dalal.
	assert.InDelta(t, 2.0425, DeltaE2000(q, Lab{L: 50, A: 0, B: -82.7485}), 1e-2)
}
