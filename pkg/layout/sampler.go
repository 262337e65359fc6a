package layout

import (
	"math/rand"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
)

// SamplerParams configures group-center rejection sampling.
type SamplerParams struct {
	AreaSize    float64 // edge length of the square site, centered on the origin
	NumGroups   int
	MinDistance float64
	MaxAttempts int
	Footprint   *geo.Footprint // optional; nil accepts the whole square
}

// SampleGroupCenters scatters up to NumGroups centers uniformly over the
// site so that every accepted pair is at least MinDistance apart. A group
// whose attempts run out is dropped, so the result may be shorter than
// NumGroups; its length is the ground truth.
func SampleGroupCenters(rng *rand.Rand, p SamplerParams) []geo.Point2D {
	half := p.AreaSize / 2
	centers := make([]geo.Point2D, 0, p.NumGroups)

	for g := 0; g < p.NumGroups; g++ {
		for attempt := 0; attempt < p.MaxAttempts; attempt++ {
			c := geo.Pt(uniform(rng, -half, half), uniform(rng, -half, half))
			if p.Footprint.Contains(c) && farFromAll(c, centers, p.MinDistance) {
				centers = append(centers, c)
				break
			}
		}
	}
	return centers
}

func farFromAll(c geo.Point2D, centers []geo.Point2D, minDist float64) bool {
	for _, e := range centers {
		if c.Distance(e) < minDist {
			return false
		}
	}
	return true
}
