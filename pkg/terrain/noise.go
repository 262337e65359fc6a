package terrain

import (
	"math"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// NoiseSurface is a procedural terrain mesh: terraces roughened with
// octave simplex noise, bounded to a square of half-extent Extent. Rays
// outside the extent miss.
type NoiseSurface struct {
	Extent    float64
	Base      Terraced
	Scale     float64
	Amplitude float64
	Octaves   int

	noise opensimplex.Noise
}

// NewNoiseSurface seeds a surface. Equal seeds give identical surfaces.
func NewNoiseSurface(seed int64, extent float64, base Terraced, scale, amplitude float64) *NoiseSurface {
	return &NoiseSurface{
		Extent:    extent,
		Base:      base,
		Scale:     scale,
		Amplitude: amplitude,
		Octaves:   4,
		noise:     opensimplex.NewNormalized(seed),
	}
}

func (s *NoiseSurface) CastRay(origin, dir geo.Vec3) (bool, geo.Vec3, error) {
	if dir.X != 0 || dir.Y != 0 || dir.Z >= 0 {
		return false, geo.Vec3{}, ErrUnsupportedRay
	}
	if math.Abs(origin.X) > s.Extent || math.Abs(origin.Y) > s.Extent {
		return false, geo.Vec3{}, nil
	}
	z := s.surfaceZ(origin.X, origin.Y)
	if z > origin.Z {
		return false, geo.Vec3{}, nil
	}
	return true, geo.Vec3{X: origin.X, Y: origin.Y, Z: z}, nil
}

func (s *NoiseSurface) surfaceZ(x, y float64) float64 {
	base, _ := s.Base.HeightAt(x, y)
	return base + s.Amplitude*(octaveNoise(s.noise, x, y, s.Octaves, s.Scale, 0.5)-0.5)
}

// octaveNoise sums octaves of normalized noise and rescales to [0,1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
