package layout

import (
	"math"
	"math/rand"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
)

// ToleranceParams bounds the as-built deviation of a pile.
type ToleranceParams struct {
	RowJitter         float64 // meters per axis, piles sharing a row
	FreeJitter        float64 // meters per axis, across rows
	VerticalDeviation float64 // radians per tilt axis
}

// DefaultTolerance allows 5 mm in-row, 20 cm across rows and 0.5% tilt.
var DefaultTolerance = ToleranceParams{RowJitter: 0.005, FreeJitter: 0.2, VerticalDeviation: 0.005}

// Tilt is a pile rotation: two small lean angles and a free yaw, radians.
type Tilt struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ApplyTolerance perturbs base by construction tolerance. Draw order is
// jitter x, jitter y, tilt x, tilt y, yaw.
func ApplyTolerance(rng *rand.Rand, base geo.Point2D, inRow bool, p ToleranceParams) (geo.Point2D, Tilt) {
	jitter := p.FreeJitter
	if inRow {
		jitter = p.RowJitter
	}
	pos := geo.Pt(
		base.X+uniform(rng, -jitter, jitter),
		base.Y+uniform(rng, -jitter, jitter),
	)
	tilt := Tilt{
		X: uniform(rng, -p.VerticalDeviation, p.VerticalDeviation),
		Y: uniform(rng, -p.VerticalDeviation, p.VerticalDeviation),
		Z: uniform(rng, 0, 2*math.Pi),
	}
	return pos, tilt
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}
