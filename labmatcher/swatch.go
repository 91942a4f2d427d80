package labmatcher

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Reliability is the operator verdict on how usable a match is.
type Reliability int

const (
	Reliable Reliability = iota
	Unreliable
)

// Assess flags matches farther than threshold from the target.
func Assess(deltaE, threshold float64) Reliability {
	if deltaE > threshold {
		return Unreliable
	}
	return Reliable
}

// Label renders the verdict for the operator.
func (r Reliability) Label(lang Language) string {
	if lang == LangEN {
		if r == Unreliable {
			return "Delta E too large, recipe is not accurate"
		}
		return "Delta E within range, recipe usable as reference"
	}
	if r == Unreliable {
		return "Delta E過大 配方不準確"
	}
	return "Delta E 合理範圍，配方具參考性"
}

// Swatch converts c to a displayable sRGB color under D65. Out-of-gamut
// colors are clamped.
func Swatch(c Lab) colorful.Color {
	return colorful.Lab(c.L/100, c.A/100, c.B/100).Clamped()
}

// Hex returns the swatch as #rrggbb.
func Hex(c Lab) string {
	return Swatch(c).Hex()
}

// DeltaE2000 reports the CIEDE2000 difference between two colors. It is
// informational only; ranking uses Distance.
func DeltaE2000(q, c Lab) float64 {
	a := colorful.Lab(q.L/100, q.A/100, q.B/100)
	b := colorful.Lab(c.L/100, c.A/100, c.B/100)
	return a.DistanceCIEDE2000(b) * 100
}
