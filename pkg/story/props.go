package story

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
)

// BackgroundCategory is never labeled by the annotation step.
const BackgroundCategory = -1

// PropKind identifies a non-pile object.
type PropKind string

const (
	Concrete    PropKind = "concrete"
	Rebar       PropKind = "rebar"
	Lime        PropKind = "lime"
	MaterialBag PropKind = "material_bag"
	Machinery   PropKind = "machinery"
)

// Prop is a placed box-like object. Position is the center of its
// footprint on the ground plus any lift; Size is the full extent along
// the local axes; Rotation is Euler XYZ in radians.
type Prop struct {
	ID         string   `json:"id"`
	Kind       PropKind `json:"kind"`
	Position   geo.Vec3 `json:"position"`
	Size       geo.Vec3 `json:"size"`
	Rotation   geo.Vec3 `json:"rotation"`
	CategoryID int      `json:"category_id"`
	NearPile   string   `json:"near_pile,omitempty"`
}

// DebrisParams controls the scatter around piles.
type DebrisParams struct {
	Probability float64
	Radius      float64
}

// DefaultDebris matches the reference site.
var DefaultDebris = DebrisParams{Probability: 0.3, Radius: 1.0}

const (
	debrisMinDistance = 0.3
	rebarRadius       = 0.01
	limeThickness     = 0.002
)

var (
	debrisKinds   = []PropKind{Concrete, Rebar, Lime}
	debrisWeights = []float64{0.5, 0.3, 0.2}
)

// PlanDebris places at most one debris item per pile. For each pile the
// draws are: keep test, angle, distance, kind, then the kind's shape.
func PlanDebris(rng *rand.Rand, h terrain.HeightQuerier, piles []layout.PilePlan, p DebrisParams) ([]Prop, error) {
	var out []Prop
	for _, pile := range piles {
		if rng.Float64() > p.Probability {
			continue
		}
		angle := uniform(rng, 0, 2*math.Pi)
		dist := uniform(rng, debrisMinDistance, math.Max(p.Radius, debrisMinDistance))
		at := pile.Position.Polar(dist, angle)
		z, err := h.HeightAt(at.X, at.Y)
		if err != nil {
			return nil, fmt.Errorf("debris near %s: %w", pile.ID, err)
		}

		kind := pickKind(rng)
		prop := Prop{
			ID:         fmt.Sprintf("debris-%03d", len(out)),
			Kind:       kind,
			CategoryID: BackgroundCategory,
			NearPile:   pile.ID,
		}
		switch kind {
		case Concrete:
			r := uniform(rng, 0.1, 0.3)
			prop.Size = geo.Vec3{
				X: 2 * r * uniform(rng, 0.8, 1.2),
				Y: 2 * r * uniform(rng, 0.8, 1.2),
				Z: 2 * r * uniform(rng, 0.3, 0.6),
			}
			prop.Rotation = geo.Vec3{X: uniform(rng, 0, math.Pi), Y: uniform(rng, 0, math.Pi), Z: uniform(rng, 0, 2*math.Pi)}
			prop.Position = at.At(z + 0.05)
		case Rebar:
			prop.Size = geo.Vec3{X: 2 * rebarRadius, Y: 2 * rebarRadius, Z: uniform(rng, 0.2, 0.5)}
			prop.Rotation = geo.Vec3{X: uniform(rng, 0, math.Pi/4), Y: uniform(rng, 0, math.Pi/4), Z: uniform(rng, 0, 2*math.Pi)}
			prop.Position = at.At(z + 0.1)
		case Lime:
			prop.Size = geo.Vec3{X: 2 * uniform(rng, 0.3, 0.8), Y: 2 * uniform(rng, 0.1, 0.3), Z: limeThickness}
			prop.Rotation = geo.Vec3{Z: uniform(rng, 0, 2*math.Pi)}
			prop.Position = at.At(z + 0.001)
		}
		out = append(out, prop)
	}
	return out, nil
}

// DistractorParams controls site-wide negative samples.
type DistractorParams struct {
	AreaSize  float64
	Bags      int
	Machinery int
}

// PlanDistractors scatters material bags and then machinery blocks
// uniformly over the square site. Each rests on the ground. Per object the
// draws are: x, y, size, rotation.
func PlanDistractors(rng *rand.Rand, h terrain.HeightQuerier, p DistractorParams) ([]Prop, error) {
	out := make([]Prop, 0, p.Bags+p.Machinery)
	half := p.AreaSize / 2

	place := func(kind PropKind, i int, size func(*rand.Rand) geo.Vec3) error {
		x, y := uniform(rng, -half, half), uniform(rng, -half, half)
		z, err := h.HeightAt(x, y)
		if err != nil {
			return fmt.Errorf("%s %d: %w", kind, i, err)
		}
		s := size(rng)
		out = append(out, Prop{
			ID:         fmt.Sprintf("%s-%03d", kind, i),
			Kind:       kind,
			Position:   geo.Vec3{X: x, Y: y, Z: z + s.Z/2},
			Size:       s,
			Rotation:   randomRotation(rng),
			CategoryID: BackgroundCategory,
		})
		return nil
	}

	for i := 0; i < p.Bags; i++ {
		if err := place(MaterialBag, i, bagSize); err != nil {
			return nil, err
		}
	}
	for i := 0; i < p.Machinery; i++ {
		if err := place(Machinery, i, machinerySize); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func bagSize(rng *rand.Rand) geo.Vec3 {
	return geo.Vec3{X: uniform(rng, 0.8, 1.5), Y: uniform(rng, 0.6, 1.2), Z: uniform(rng, 0.3, 0.6)}
}

func machinerySize(rng *rand.Rand) geo.Vec3 {
	s := uniform(rng, 1.5, 3.0)
	return geo.Vec3{X: s, Y: s, Z: uniform(rng, 0.8, 1.5)}
}

func randomRotation(rng *rand.Rand) geo.Vec3 {
	return geo.Vec3{
		X: uniform(rng, 0, 2*math.Pi),
		Y: uniform(rng, 0, 2*math.Pi),
		Z: uniform(rng, 0, 2*math.Pi),
	}
}

func pickKind(rng *rand.Rand) PropKind {
	r := rng.Float64()
	acc := 0.0
	for i, w := range debrisWeights {
		acc += w
		if r < acc {
			return debrisKinds[i]
		}
	}
	return debrisKinds[len(debrisKinds)-1]
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Scene holds all planned props of one image.
type Scene struct {
	Debris      []Prop `json:"debris"`
	Distractors []Prop `json:"distractors"`
}

// Props returns debris followed by distractors.
func (s *Scene) Props() []Prop {
	return append(append([]Prop{}, s.Debris...), s.Distractors...)
}

// Plan runs PlanDebris and then PlanDistractors with the site settings.
func Plan(rng *rand.Rand, h terrain.HeightQuerier, piles []layout.PilePlan, st spec.StoryDef, areaSize float64) (*Scene, error) {
	debris, err := PlanDebris(rng, h, piles, DebrisParams{Probability: st.DebrisProbability, Radius: st.DebrisRadius})
	if err != nil {
		return nil, err
	}
	distractors, err := PlanDistractors(rng, h, DistractorParams{AreaSize: areaSize, Bags: st.MaterialBags, Machinery: st.Machinery})
	if err != nil {
		return nil, err
	}
	return &Scene{Debris: debris, Distractors: distractors}, nil
}
