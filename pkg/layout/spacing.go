package layout

import "math"

// SpacingRule maps terrain slope to a row spacing inside a regulatory band.
type SpacingRule struct {
	Min             float64 // meters
	Max             float64 // meters
	ComponentHeight float64 // meters, informational
}

// DefaultSpacing is the 3.6-4.7 m band for 2.278 m modules.
var DefaultSpacing = SpacingRule{Min: 3.6, Max: 4.7, ComponentHeight: 2.278}

// RowSpacing returns the spacing for a slope magnitude and aspect, both in
// radians. Pole-facing slopes (aspect 0) get the widest spacing and
// equator-facing slopes (aspect pi) the narrowest; steeper slopes widen it.
// The result is always within [Min, Max]; a NaN magnitude counts as flat
// and a non-finite aspect as pole-facing.
func (r SpacingRule) RowSpacing(magnitude, aspect float64) float64 {
	if math.IsNaN(magnitude) {
		magnitude = 0
	}
	if math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 0
	}
	a := normalizeAngle(aspect)

	var direction float64
	if a < math.Pi {
		direction = 1.0 - (a/math.Pi)*0.3
	} else {
		direction = 0.7 + ((a-math.Pi)/math.Pi)*0.3
	}
	slopeFactor := 1.0 + 0.2*math.Abs(magnitude)

	spacing := (r.Min + r.Max) / 2.0 * direction * slopeFactor
	return math.Min(math.Max(spacing, r.Min), r.Max)
}

// normalizeAngle maps a into [0, 2pi).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
