package spec

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default returns the reference site parameters. Load decodes on top of these,
// so a site.yaml only needs to name what it changes.
func Default() *SiteSpec {
	return &SiteSpec{
		SpecVersion: "0.1.0",
		Site: SiteDef{
			Name:     "default-site",
			AreaSize: 200,
		},
		Terrain: TerrainDef{
			Source:      TerrainAnalytic,
			NumTerraces: 8,
			TerraceBand: 25,
			TerraceStep: 2.0,
			Variation:   0.3,
			RayOriginZ:  100,
			NoiseScale:  0.02,
			NoiseAmp:    3.0,
		},
		Layout: LayoutDef{
			NumGroups:         20,
			PilesPerGroup:     10,
			MinGroupDistance:  15,
			MaxAttempts:       100,
			RowPitch:          3.6,
			MinSpacing:        3.6,
			MaxSpacing:        4.7,
			ComponentHeight:   2.278,
			SlopeRadius:       2.0,
			VerticalTolerance: 0.04,
			ExposedMin:        0.3,
			ExposedMax:        1.0,
			RowAlignment:      RowAlignByRow,
			Relaxation:        RelaxPerSlot,
		},
		Tolerance: ToleranceDef{
			RowJitter:         0.005,
			FreeJitter:        0.2,
			VerticalDeviation: 0.005,
		},
		PileTypes: PileTypesDef{
			Probabilities: map[string]float64{
				"PHC":           0.4,
				"spiral_steel":  0.3,
				"cast_in_place": 0.3,
			},
		},
		Story: StoryDef{
			DebrisProbability: 0.3,
			DebrisRadius:      1.0,
			MaterialBags:      30,
			Machinery:         15,
		},
		Annotation: AnnotationDef{
			TargetCategory: 0,
			MinBoxSize:     0.005,
			LabelsDir:      "labels",
		},
		Render: RenderDef{
			Width:  5280,
			Height: 3956,
		},
	}
}

// Load reads a site spec from a YAML file.
func Load(path string) (*SiteSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. A probabilities map in the input
// replaces the default map rather than merging with it.
func Parse(data []byte) (*SiteSpec, error) {
	s := Default()
	probs := s.PileTypes.Probabilities
	s.PileTypes.Probabilities = nil
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing spec YAML: %w", err)
	}
	if s.PileTypes.Probabilities == nil {
		s.PileTypes.Probabilities = probs
	}
	return s, nil
}

// LoadProject loads a site spec from a project directory.
// It looks for site.yaml in the given directory.
func LoadProject(projectDir string) (*SiteSpec, error) {
	specPath := filepath.Join(projectDir, "site.yaml")
	return Load(specPath)
}

// EffectiveSeed derives the per-image seed. With a base seed the image index
// is added to it; without one the index alone is used.
func EffectiveSeed(base *int64, index int) int64 {
	if base == nil {
		return int64(index)
	}
	return *base + int64(index)
}

// Draw returns a copy of s with every set Randomize range replaced by a
// value drawn from rng. Ranges are drawn in the order area_size,
// num_terraces, terrace_step, material_bags, machinery; unset ranges
// consume nothing, so a spec without ranges leaves rng untouched.
func (s *SiteSpec) Draw(rng *rand.Rand) *SiteSpec {
	out := *s
	r := s.Randomize
	if len(r.AreaSize) == 2 {
		out.Site.AreaSize = drawFloat(rng, r.AreaSize)
	}
	if len(r.NumTerraces) == 2 {
		out.Terrain.NumTerraces = drawInt(rng, r.NumTerraces)
	}
	if len(r.TerraceStep) == 2 {
		out.Terrain.TerraceStep = drawFloat(rng, r.TerraceStep)
	}
	if len(r.MaterialBags) == 2 {
		out.Story.MaterialBags = drawInt(rng, r.MaterialBags)
	}
	if len(r.Machinery) == 2 {
		out.Story.Machinery = drawInt(rng, r.Machinery)
	}
	return &out
}

func drawFloat(rng *rand.Rand, r []float64) float64 {
	return r[0] + rng.Float64()*(r[1]-r[0])
}

func drawInt(rng *rand.Rand, r []int) int {
	if r[1] <= r[0] {
		return r[0]
	}
	return r[0] + rng.Intn(r[1]-r[0]+1)
}
