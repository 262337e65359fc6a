package spec

import (
	"math"
	"math/rand"
	"testing"
)

func TestLoadProject(t *testing.T) {
	s, err := LoadProject("../../examples/solar-farm")
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}

	if s.SpecVersion != "0.1.0" {
		t.Errorf("spec_version = %q, want %q", s.SpecVersion, "0.1.0")
	}
	if s.Site.AreaSize != 200 {
		t.Errorf("area_size = %v, want 200", s.Site.AreaSize)
	}
	if s.Terrain.Source != TerrainAnalytic {
		t.Errorf("terrain.source = %q, want %q", s.Terrain.Source, TerrainAnalytic)
	}
	if s.Layout.NumGroups != 20 || s.Layout.PilesPerGroup != 10 {
		t.Errorf("groups = %d x %d, want 20 x 10", s.Layout.NumGroups, s.Layout.PilesPerGroup)
	}
	if s.Layout.MinSpacing != 3.6 || s.Layout.MaxSpacing != 4.7 {
		t.Errorf("spacing = [%v, %v], want [3.6, 4.7]", s.Layout.MinSpacing, s.Layout.MaxSpacing)
	}

	sum := 0.0
	for _, p := range s.PileTypes.Probabilities {
		sum += p
	}
	if math.Abs(sum-1.0) > 0.01 {
		t.Errorf("probabilities sum = %v, want ~1.0", sum)
	}
	if s.Render.Width != 5280 || s.Render.Height != 3956 {
		t.Errorf("render = %dx%d, want 5280x3956", s.Render.Width, s.Render.Height)
	}
}

func TestLoadProjectPartialKeepsDefaults(t *testing.T) {
	s, err := LoadProject("../../examples/loess-site")
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if s.Site.GeologicalPreset != "loess" {
		t.Errorf("geological_preset = %q, want loess", s.Site.GeologicalPreset)
	}
	if s.Layout.NumGroups != 12 {
		t.Errorf("num_groups = %d, want 12", s.Layout.NumGroups)
	}
	// Absent keys fall back to the defaults.
	if s.Layout.MinGroupDistance != 15 {
		t.Errorf("min_group_distance = %v, want 15", s.Layout.MinGroupDistance)
	}
	if s.Tolerance.FreeJitter != 0.2 {
		t.Errorf("free_jitter = %v, want 0.2", s.Tolerance.FreeJitter)
	}
	if len(s.PileTypes.Probabilities) != 3 {
		t.Errorf("probabilities = %v, want default map", s.PileTypes.Probabilities)
	}
	if s.Layout.Relaxation != RelaxPerSlot {
		t.Errorf("relaxation = %q, want %q", s.Layout.Relaxation, RelaxPerSlot)
	}
	if len(s.Randomize.MaterialBags) != 2 || s.Randomize.MaterialBags[1] != 40 {
		t.Errorf("randomize.material_bags = %v, want [20 40]", s.Randomize.MaterialBags)
	}
	if s.Randomize.AreaSize != nil {
		t.Errorf("randomize.area_size = %v, want unset", s.Randomize.AreaSize)
	}
}

func TestParseReplacesProbabilities(t *testing.T) {
	s, err := Parse([]byte("pile_types:\n  probabilities:\n    PHC: 1.0\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(s.PileTypes.Probabilities) != 1 || s.PileTypes.Probabilities["PHC"] != 1.0 {
		t.Errorf("probabilities = %v, want only PHC", s.PileTypes.Probabilities)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("layout: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadProject(t.TempDir()); err == nil {
		t.Error("expected error for missing site.yaml")
	}
}

func TestEffectiveSeed(t *testing.T) {
	base := int64(1000)
	tests := []struct {
		name  string
		base  *int64
		index int
		want  int64
	}{
		{"no base", nil, 7, 7},
		{"no base zero", nil, 0, 0},
		{"with base", &base, 7, 1007},
		{"with base zero index", &base, 0, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveSeed(tt.base, tt.index); got != tt.want {
				t.Errorf("EffectiveSeed = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDrawWithoutRangesKeepsValues(t *testing.T) {
	s := Default()
	rng := rand.New(rand.NewSource(3))
	got := s.Draw(rng)
	if got == s {
		t.Fatal("Draw must return a copy")
	}
	if got.Site.AreaSize != 200 || got.Terrain.NumTerraces != 8 || got.Story.MaterialBags != 30 {
		t.Errorf("fixed values changed: %+v", got)
	}
	// No draws were taken.
	want := rand.New(rand.NewSource(3)).Int63()
	if next := rng.Int63(); next != want {
		t.Errorf("generator advanced: next = %d, want %d", next, want)
	}
}

func TestDrawRanges(t *testing.T) {
	s := Default()
	s.Randomize = RandomizeDef{
		AreaSize:     []float64{180, 220},
		NumTerraces:  []int{6, 12},
		TerraceStep:  []float64{1.5, 3.0},
		MaterialBags: []int{20, 40},
		Machinery:    []int{10, 20},
	}
	seen := map[int]bool{}
	for seed := int64(0); seed < 200; seed++ {
		got := s.Draw(rand.New(rand.NewSource(seed)))
		if got.Site.AreaSize < 180 || got.Site.AreaSize > 220 {
			t.Fatalf("area_size %v outside [180, 220]", got.Site.AreaSize)
		}
		if got.Terrain.NumTerraces < 6 || got.Terrain.NumTerraces > 12 {
			t.Fatalf("num_terraces %d outside [6, 12]", got.Terrain.NumTerraces)
		}
		if got.Terrain.TerraceStep < 1.5 || got.Terrain.TerraceStep > 3.0 {
			t.Fatalf("terrace_step %v outside [1.5, 3.0]", got.Terrain.TerraceStep)
		}
		if got.Story.MaterialBags < 20 || got.Story.MaterialBags > 40 {
			t.Fatalf("material_bags %d outside [20, 40]", got.Story.MaterialBags)
		}
		if got.Story.Machinery < 10 || got.Story.Machinery > 20 {
			t.Fatalf("machinery %d outside [10, 20]", got.Story.Machinery)
		}
		seen[got.Terrain.NumTerraces] = true
	}
	// Integer ranges are inclusive at both ends.
	if !seen[6] || !seen[12] {
		t.Errorf("num_terraces draws %v never hit both bounds", seen)
	}
	if s.Site.AreaSize != 200 || s.Story.MaterialBags != 30 {
		t.Error("Draw modified its receiver")
	}

	a := s.Draw(rand.New(rand.NewSource(9)))
	b := s.Draw(rand.New(rand.NewSource(9)))
	if a.Site.AreaSize != b.Site.AreaSize || a.Story.Machinery != b.Story.Machinery {
		t.Error("same seed drew different values")
	}
}

func TestDrawDegenerateRange(t *testing.T) {
	s := Default()
	s.Randomize.Machinery = []int{7, 7}
	if got := s.Draw(rand.New(rand.NewSource(1))); got.Story.Machinery != 7 {
		t.Errorf("machinery = %d, want 7", got.Story.Machinery)
	}
}
