package layout

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// PileType is one of the three foundation archetypes.
type PileType string

const (
	PHC         PileType = "PHC"
	SpiralSteel PileType = "spiral_steel"
	CastInPlace PileType = "cast_in_place"
)

// AllPileTypes lists the archetypes in selection order.
var AllPileTypes = []PileType{PHC, SpiralSteel, CastInPlace}

// ErrUnknownPileType is returned for any pile type name outside AllPileTypes.
var ErrUnknownPileType = errors.New("unknown pile type")

// ParsePileType validates a pile type name.
func ParsePileType(s string) (PileType, error) {
	for _, t := range AllPileTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPileType, s)
}

// Probabilities gives the selection weight of each pile type.
type Probabilities struct {
	PHC         float64 `json:"PHC"`
	SpiralSteel float64 `json:"spiral_steel"`
	CastInPlace float64 `json:"cast_in_place"`
}

// DefaultProbabilities yields the cutoffs 0.4 / 0.7.
var DefaultProbabilities = Probabilities{PHC: 0.4, SpiralSteel: 0.3, CastInPlace: 0.3}

// ProbabilitiesFromMap converts a name-keyed table. Missing types get 0.
func ProbabilitiesFromMap(m map[string]float64) (Probabilities, error) {
	var p Probabilities
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t, err := ParsePileType(k)
		if err != nil {
			return Probabilities{}, err
		}
		switch t {
		case PHC:
			p.PHC = m[k]
		case SpiralSteel:
			p.SpiralSteel = m[k]
		case CastInPlace:
			p.CastInPlace = m[k]
		}
	}
	return p, nil
}

// Sum returns the total weight.
func (p Probabilities) Sum() float64 {
	return p.PHC + p.SpiralSteel + p.CastInPlace
}

// Pick maps r in [0,1) onto a type by cumulative weight in AllPileTypes
// order. Values past the last cutoff fall to the last type.
func (p Probabilities) Pick(r float64) PileType {
	if r < p.PHC {
		return PHC
	}
	if r < p.PHC+p.SpiralSteel {
		return SpiralSteel
	}
	return CastInPlace
}

// SelectPileType draws one pile type.
func SelectPileType(rng *rand.Rand, p Probabilities) PileType {
	return p.Pick(rng.Float64())
}

// PileParams are the cosmetic per-type parameters forwarded to the asset
// factory.
type PileParams interface {
	Type() PileType
	Exposed() float64
}

// PHCParams describes a prestressed high-strength concrete pipe pile.
type PHCParams struct {
	Diameter      int     `json:"diameter"`       // mm
	ExposedHeight float64 `json:"exposed_height"` // m
	AgeState      string  `json:"age_state"`
	HasHoopClamp  bool    `json:"has_hoop_clamp"`
	HasCrackedTop bool    `json:"has_cracked_top"`
	AssetPath     string  `json:"asset_path,omitempty"`
}

func (PHCParams) Type() PileType     { return PHC }
func (p PHCParams) Exposed() float64 { return p.ExposedHeight }

// SpiralSteelParams describes a screw pile.
type SpiralSteelParams struct {
	PipeDiameter  int     `json:"pipe_diameter"` // mm
	TotalLength   float64 `json:"total_length"`  // m
	ExposedHeight float64 `json:"exposed_height"`
	RustLevel     string  `json:"rust_level"`
	AssetPath     string  `json:"asset_path,omitempty"`
}

func (SpiralSteelParams) Type() PileType     { return SpiralSteel }
func (p SpiralSteelParams) Exposed() float64 { return p.ExposedHeight }

// CastInPlaceParams describes a bored concrete pile.
type CastInPlaceParams struct {
	Diameter       float64 `json:"diameter"` // m
	TotalLength    float64 `json:"total_length"`
	ExposedHeight  float64 `json:"exposed_height"`
	HasSpiralMarks bool    `json:"has_spiral_marks"`
	HasLeakage     bool    `json:"has_leakage"`
	AssetPath      string  `json:"asset_path,omitempty"`
}

func (CastInPlaceParams) Type() PileType     { return CastInPlace }
func (p CastInPlaceParams) Exposed() float64 { return p.ExposedHeight }

var (
	phcDiameters    = []int{300, 400, 500}
	spiralDiameters = []int{76, 89, 114, 159}
	ageStates       = []string{"new", "aged"}
	ageWeights      = []float64{0.7, 0.3}
	rustLevels      = []string{"new", "light", "medium", "heavy"}
	rustWeights     = []float64{0.5, 0.3, 0.15, 0.05}
)

// NewPileParams samples the parameters of pile type t.
func NewPileParams(rng *rand.Rand, t PileType, assetPath string) (PileParams, error) {
	switch t {
	case PHC:
		return PHCParams{
			Diameter:      phcDiameters[rng.Intn(len(phcDiameters))],
			ExposedHeight: uniform(rng, 0.3, 0.5),
			AgeState:      weightedChoice(rng, ageStates, ageWeights),
			HasHoopClamp:  rng.Float64() < 0.8,
			HasCrackedTop: rng.Float64() < 0.2,
			AssetPath:     assetPath,
		}, nil
	case SpiralSteel:
		return SpiralSteelParams{
			PipeDiameter:  spiralDiameters[rng.Intn(len(spiralDiameters))],
			TotalLength:   uniform(rng, 1.5, 2.5),
			ExposedHeight: uniform(rng, 0.3, 0.5),
			RustLevel:     weightedChoice(rng, rustLevels, rustWeights),
			AssetPath:     assetPath,
		}, nil
	case CastInPlace:
		return CastInPlaceParams{
			Diameter:       0.3,
			TotalLength:    uniform(rng, 1.8, 2.5),
			ExposedHeight:  uniform(rng, 0.3, 0.5),
			HasSpiralMarks: true,
			HasLeakage:     rng.Float64() < 0.3,
			AssetPath:      assetPath,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPileType, string(t))
	}
}

// weightedChoice picks values[i] with probability weights[i]. Weights must
// sum to 1.
func weightedChoice(rng *rand.Rand, values []string, weights []float64) string {
	r := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return values[i]
		}
	}
	return values[len(values)-1]
}

// probabilitiesClose reports whether the weights sum to 1 within tol.
func probabilitiesClose(p Probabilities, tol float64) bool {
	return math.Abs(p.Sum()-1) <= tol
}
