package layout

import (
	"fmt"
	"math"

	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
)

// DefaultSlopeRadius is the sampling offset in meters.
const DefaultSlopeRadius = 2.0

// Slope describes the local terrain gradient at a point.
type Slope struct {
	Magnitude float64 `json:"magnitude"` // radians from horizontal
	Aspect    float64 `json:"aspect"`    // radians, 0 = north
}

// EstimateSlope samples four heights at distance r around (x, y) and derives
// the slope from centered differences.
func EstimateSlope(h terrain.HeightQuerier, x, y, r float64) (Slope, error) {
	if !(r > 0) || math.IsInf(r, 1) {
		return Slope{}, fmt.Errorf("slope radius %v must be positive and finite", r)
	}
	samples := [4][2]float64{
		{x - r, y},
		{x + r, y},
		{x, y - r},
		{x, y + r},
	}
	var heights [4]float64
	for i, s := range samples {
		z, err := h.HeightAt(s[0], s[1])
		if err != nil {
			return Slope{}, fmt.Errorf("slope sample %d at (%.3f, %.3f): %w", i, s[0], s[1], err)
		}
		heights[i] = z
	}

	dzdx := (heights[1] - heights[0]) / (2 * r)
	dzdy := (heights[3] - heights[2]) / (2 * r)

	return Slope{
		Magnitude: math.Atan(math.Sqrt(dzdx*dzdx + dzdy*dzdy)),
		Aspect:    math.Atan2(dzdy, dzdx) + math.Pi/2,
	}, nil
}
