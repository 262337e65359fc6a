package layout

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// --- Tolerance ---

func TestApplyToleranceBounds(t *testing.T) {
	rng := newRand(1)
	base := geo.Pt(50, -20)
	for i := 0; i < 2000; i++ {
		inRow := i%2 == 0
		pos, tilt := ApplyTolerance(rng, base, inRow, DefaultTolerance)
		limit := DefaultTolerance.FreeJitter
		if inRow {
			limit = DefaultTolerance.RowJitter
		}
		require.LessOrEqual(t, math.Abs(pos.X-base.X), limit)
		require.LessOrEqual(t, math.Abs(pos.Y-base.Y), limit)
		require.LessOrEqual(t, math.Abs(tilt.X), DefaultTolerance.VerticalDeviation)
		require.LessOrEqual(t, math.Abs(tilt.Y), DefaultTolerance.VerticalDeviation)
		require.GreaterOrEqual(t, tilt.Z, 0.0)
		require.Less(t, tilt.Z, 2*math.Pi)
	}
}

func TestApplyToleranceLooseAcrossRows(t *testing.T) {
	rng := newRand(2)
	maxDev := 0.0
	for i := 0; i < 500; i++ {
		pos, _ := ApplyTolerance(rng, geo.Origin, false, DefaultTolerance)
		maxDev = math.Max(maxDev, math.Max(math.Abs(pos.X), math.Abs(pos.Y)))
	}
	assert.Greater(t, maxDev, DefaultTolerance.RowJitter)
}

func TestApplyToleranceDrawOrder(t *testing.T) {
	ref := newRand(3)
	jx := -0.2 + 0.4*ref.Float64()
	jy := -0.2 + 0.4*ref.Float64()
	tx := -0.005 + 0.01*ref.Float64()
	ty := -0.005 + 0.01*ref.Float64()
	yaw := 2 * math.Pi * ref.Float64()

	pos, tilt := ApplyTolerance(newRand(3), geo.Origin, false, DefaultTolerance)
	assert.InDelta(t, jx, pos.X, 1e-15)
	assert.InDelta(t, jy, pos.Y, 1e-15)
	assert.InDelta(t, tx, tilt.X, 1e-15)
	assert.InDelta(t, ty, tilt.Y, 1e-15)
	assert.InDelta(t, yaw, tilt.Z, 1e-15)
}

// --- Sampler ---

func TestSampleGroupCentersNonOverlap(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		p := SamplerParams{AreaSize: 200, NumGroups: 20, MinDistance: 15, MaxAttempts: 100}
		centers := SampleGroupCenters(newRand(seed), p)
		require.LessOrEqual(t, len(centers), p.NumGroups)
		for i := range centers {
			assert.LessOrEqual(t, math.Abs(centers[i].X), 100.0)
			assert.LessOrEqual(t, math.Abs(centers[i].Y), 100.0)
			for j := i + 1; j < len(centers); j++ {
				d := centers[i].Distance(centers[j])
				require.GreaterOrEqual(t, d, p.MinDistance-1e-9, "seed %d: centers %d and %d", seed, i, j)
			}
		}
	}
}

func TestSampleGroupCentersDropsWhenFull(t *testing.T) {
	// A 10 m site cannot hold two centers 15 m apart.
	p := SamplerParams{AreaSize: 10, NumGroups: 5, MinDistance: 15, MaxAttempts: 100}
	centers := SampleGroupCenters(newRand(4), p)
	assert.Len(t, centers, 1)
}

func TestSampleGroupCentersFootprint(t *testing.T) {
	fp, err := geo.ParseFootprint("POLYGON((0 0,100 0,100 100,0 100,0 0))")
	require.NoError(t, err)
	p := SamplerParams{AreaSize: 200, NumGroups: 10, MinDistance: 15, MaxAttempts: 100, Footprint: fp}
	centers := SampleGroupCenters(newRand(5), p)
	require.NotEmpty(t, centers)
	for _, c := range centers {
		assert.True(t, fp.Contains(c), "center %v outside footprint", c)
	}
}

// --- Pile types ---

func TestProbabilitiesPick(t *testing.T) {
	tests := []struct {
		r    float64
		want PileType
	}{
		{0, PHC},
		{0.399, PHC},
		{0.4, SpiralSteel},
		{0.699, SpiralSteel},
		{0.7, CastInPlace},
		{0.999, CastInPlace},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultProbabilities.Pick(tt.r), "r=%v", tt.r)
	}
}

func TestSelectPileTypeFrequencies(t *testing.T) {
	rng := newRand(6)
	counts := map[PileType]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[SelectPileType(rng, DefaultProbabilities)]++
	}
	assert.InDelta(t, 0.4, float64(counts[PHC])/n, 0.02)
	assert.InDelta(t, 0.3, float64(counts[SpiralSteel])/n, 0.02)
	assert.InDelta(t, 0.3, float64(counts[CastInPlace])/n, 0.02)
}

func TestParsePileType(t *testing.T) {
	for _, pt := range AllPileTypes {
		got, err := ParsePileType(string(pt))
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
	_, err := ParsePileType("timber")
	assert.ErrorIs(t, err, ErrUnknownPileType)
}

func TestProbabilitiesFromMap(t *testing.T) {
	p, err := ProbabilitiesFromMap(map[string]float64{"spiral_steel": 0.7, "PHC": 0.2, "cast_in_place": 0.1})
	require.NoError(t, err)
	assert.Equal(t, Probabilities{PHC: 0.2, SpiralSteel: 0.7, CastInPlace: 0.1}, p)

	_, err = ProbabilitiesFromMap(map[string]float64{"helical": 1})
	assert.ErrorIs(t, err, ErrUnknownPileType)
}

func TestNewPileParamsRanges(t *testing.T) {
	rng := newRand(7)
	for i := 0; i < 500; i++ {
		for _, pt := range AllPileTypes {
			params, err := NewPileParams(rng, pt, "assets")
			require.NoError(t, err)
			require.Equal(t, pt, params.Type())
			require.GreaterOrEqual(t, params.Exposed(), 0.3)
			require.Less(t, params.Exposed(), 0.5)

			switch p := params.(type) {
			case PHCParams:
				assert.Contains(t, []int{300, 400, 500}, p.Diameter)
				assert.Contains(t, []string{"new", "aged"}, p.AgeState)
				assert.Equal(t, "assets", p.AssetPath)
			case SpiralSteelParams:
				assert.Contains(t, []int{76, 89, 114, 159}, p.PipeDiameter)
				assert.Contains(t, []string{"new", "light", "medium", "heavy"}, p.RustLevel)
				assert.True(t, p.TotalLength >= 1.5 && p.TotalLength < 2.5)
			case CastInPlaceParams:
				assert.Equal(t, 0.3, p.Diameter)
				assert.True(t, p.HasSpiralMarks)
				assert.True(t, p.TotalLength >= 1.8 && p.TotalLength < 2.5)
			default:
				t.Fatalf("unexpected params type %T", params)
			}
		}
	}
}

func TestNewPileParamsUnknownType(t *testing.T) {
	_, err := NewPileParams(newRand(1), PileType("timber"), "")
	assert.ErrorIs(t, err, ErrUnknownPileType)
}

// --- Row alignment ---

func TestRowAlignmentInRow(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, i < 5, RowByRow.InRow(i, 5), "by_row slot %d", i)
		assert.True(t, RowReference.InRow(i, 5), "reference slot %d", i)
	}
}

func TestParseRowAlignment(t *testing.T) {
	m, err := ParseRowAlignment("")
	require.NoError(t, err)
	assert.Equal(t, RowByRow, m)
	m, err = ParseRowAlignment("reference")
	require.NoError(t, err)
	assert.Equal(t, RowReference, m)
	_, err = ParseRowAlignment("zigzag")
	assert.Error(t, err)
}

func TestParseRelaxation(t *testing.T) {
	m, err := ParseRelaxation("")
	require.NoError(t, err)
	assert.Equal(t, RelaxPerSlot, m)
	m, err = ParseRelaxation("min_max")
	require.NoError(t, err)
	assert.Equal(t, RelaxMinMax, m)
	_, err = ParseRelaxation("lowest")
	assert.Error(t, err)
}

// --- Orchestrator ---

func TestLayoutPilesDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	a, _, err := LayoutPiles(newRand(42), terrain.DefaultTerraced, cfg)
	require.NoError(t, err)
	b, _, err := LayoutPiles(newRand(42), terrain.DefaultTerraced, cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(a.Piles, b.Piles); diff != "" {
		t.Fatalf("layouts differ for equal seeds (-a +b):\n%s", diff)
	}

	c, _, err := LayoutPiles(newRand(43), terrain.DefaultTerraced, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Piles[0].Position, c.Piles[0].Position)
}

func TestLayoutPilesStructure(t *testing.T) {
	cfg := DefaultConfig()
	l, report, err := LayoutPiles(newRand(9), terrain.DefaultTerraced, cfg)
	require.NoError(t, err)
	require.True(t, report.Valid)

	assert.Equal(t, 20, l.RequestedGroups)
	assert.Len(t, l.Piles, len(l.Groups)*cfg.PilesPerGroup)
	assert.Equal(t, l.RequestedGroups-len(l.Groups), l.DroppedGroups())

	perGroup := map[int]int{}
	ids := map[string]bool{}
	for _, p := range l.Piles {
		perGroup[p.GroupID]++
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
		assert.Equal(t, p.Type, p.Params.Type())
		assert.Equal(t, p.Slot < 5, p.InRow)
	}
	for gid, n := range perGroup {
		assert.Equal(t, cfg.PilesPerGroup, n, "group %d", gid)
	}
	for _, g := range l.Groups {
		assert.GreaterOrEqual(t, g.Spacing, cfg.Spacing.Min)
		assert.LessOrEqual(t, g.Spacing, cfg.Spacing.Max)
	}
}

func TestLayoutPilesFlatTops(t *testing.T) {
	l, _, err := LayoutPiles(newRand(11), terrain.Flat{Z: 2}, DefaultConfig())
	require.NoError(t, err)
	for _, p := range l.Piles {
		assert.Equal(t, 2.0, p.TerrainZ)
		assert.InDelta(t, 2.3, p.TopZ, 1e-12)
	}
	// Flat ground reports an east aspect, which clips to the band minimum.
	for _, g := range l.Groups {
		assert.InDelta(t, 3.6, g.Spacing, 1e-12)
	}
}

func TestLayoutPilesReferenceAlignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RowAlignment = RowReference
	l, _, err := LayoutPiles(newRand(12), terrain.DefaultTerraced, cfg)
	require.NoError(t, err)
	for _, p := range l.Piles {
		assert.True(t, p.InRow)
	}
}

func TestLayoutPilesReportsDroppedGroups(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sampler.AreaSize = 20
	l, report, err := LayoutPiles(newRand(13), terrain.Flat{}, cfg)
	require.NoError(t, err)
	assert.Positive(t, l.DroppedGroups())
	assert.True(t, report.Valid)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "layout.num_groups", report.Warnings[0].SpecPath)
}

func TestLayoutPilesPropagatesHeightError(t *testing.T) {
	_, _, err := LayoutPiles(newRand(1), failing(), DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errHeight))
}

func TestConfigFromSpecMatchesDefault(t *testing.T) {
	cfg, err := ConfigFromSpec(spec.Default())
	require.NoError(t, err)
	want := DefaultConfig()
	assert.Equal(t, want.Sampler, cfg.Sampler)
	assert.Equal(t, want.PilesPerGroup, cfg.PilesPerGroup)
	assert.Equal(t, want.Spacing, cfg.Spacing)
	assert.Equal(t, want.Group, cfg.Group)
	assert.Equal(t, want.Tolerance, cfg.Tolerance)
	assert.Equal(t, want.RowAlignment, cfg.RowAlignment)
	assert.Equal(t, want.Probabilities, cfg.Probabilities)
}

func TestConfigFromSpecRelaxation(t *testing.T) {
	s := spec.Default()
	s.Layout.Relaxation = spec.RelaxMinMax
	cfg, err := ConfigFromSpec(s)
	require.NoError(t, err)
	assert.Equal(t, RelaxMinMax, cfg.Group.Relaxation)

	s.Layout.Relaxation = "lowest"
	_, err = ConfigFromSpec(s)
	assert.Error(t, err)
}

func TestConfigFromSpecRejectsBadInput(t *testing.T) {
	s := spec.Default()
	s.PileTypes.Probabilities = map[string]float64{"PHC": 0.5, "wooden": 0.5}
	_, err := ConfigFromSpec(s)
	assert.ErrorIs(t, err, ErrUnknownPileType)

	s = spec.Default()
	s.PileTypes.Probabilities = map[string]float64{"PHC": 0.5}
	_, err = ConfigFromSpec(s)
	assert.Error(t, err)

	s = spec.Default()
	s.Site.FootprintWKT = "POLYGON(("
	_, err = ConfigFromSpec(s)
	assert.Error(t, err)
}
