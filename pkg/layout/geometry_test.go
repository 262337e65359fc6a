package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plane(a, b, c float64) terrain.HeightFunc {
	return func(x, y float64) (float64, error) { return a*x + b*y + c, nil }
}

var errHeight = errors.New("height service down")

func failing() terrain.HeightFunc {
	return func(x, y float64) (float64, error) { return 0, errHeight }
}

// --- Slope ---

func TestEstimateSlopeFlat(t *testing.T) {
	s, err := EstimateSlope(terrain.Flat{Z: 3}, 10, 10, DefaultSlopeRadius)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Magnitude)
	assert.InDelta(t, math.Pi/2, s.Aspect, 1e-12)
}

func TestEstimateSlopePlanes(t *testing.T) {
	tests := []struct {
		name      string
		h         terrain.HeightFunc
		magnitude float64
		aspect    float64
	}{
		{"rises east", plane(0.1, 0, 0), math.Atan(0.1), math.Pi / 2},
		{"rises north", plane(0, 0.1, 0), math.Atan(0.1), math.Pi},
		{"rises west", plane(-0.2, 0, 5), math.Atan(0.2), 3 * math.Pi / 2},
		{"diagonal", plane(0.3, 0.4, 0), math.Atan(0.5), math.Atan2(0.4, 0.3) + math.Pi/2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := EstimateSlope(tt.h, 4, -7, DefaultSlopeRadius)
			require.NoError(t, err)
			assert.InDelta(t, tt.magnitude, s.Magnitude, 1e-9)
			assert.InDelta(t, tt.aspect, s.Aspect, 1e-9)
		})
	}
}

func TestEstimateSlopeSamplePoints(t *testing.T) {
	var got []geo.Point2D
	h := terrain.HeightFunc(func(x, y float64) (float64, error) {
		got = append(got, geo.Pt(x, y))
		return 0, nil
	})
	_, err := EstimateSlope(h, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []geo.Point2D{{X: -1, Y: 1}, {X: 3, Y: 1}, {X: 1, Y: -1}, {X: 1, Y: 3}}, got)
}

func TestEstimateSlopePropagatesError(t *testing.T) {
	_, err := EstimateSlope(failing(), 0, 0, 2)
	assert.ErrorIs(t, err, errHeight)
}

func TestEstimateSlopeRejectsRadius(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := EstimateSlope(terrain.Flat{}, 0, 0, r)
		assert.Error(t, err, "radius %v", r)
	}
}

// --- Spacing ---

func TestRowSpacingValues(t *testing.T) {
	tests := []struct {
		name      string
		magnitude float64
		aspect    float64
		want      float64
	}{
		{"flat pole-facing", 0, 0, 4.15},
		{"gentle pole-facing", 0.1, 0, 4.15 * 1.02},
		{"steep pole-facing clips to max", 1.0, 0, 4.7},
		{"equator-facing clips to min", 0, math.Pi, 3.6},
		{"east-facing", 0, math.Pi / 2, 3.6},
		{"negative aspect wraps", 0.5, -math.Pi / 4, 4.15 * (0.7 + 0.75*0.3) * 1.1},
		{"signed magnitude", -0.1, 0, 4.15 * 1.02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultSpacing.RowSpacing(tt.magnitude, tt.aspect)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRowSpacingBounds(t *testing.T) {
	for m := -1.5; m <= 1.5; m += 0.05 {
		for a := -4 * math.Pi; a <= 4*math.Pi; a += 0.1 {
			got := DefaultSpacing.RowSpacing(m, a)
			if got < DefaultSpacing.Min || got > DefaultSpacing.Max {
				t.Fatalf("RowSpacing(%v, %v) = %v outside [%v, %v]", m, a, got, DefaultSpacing.Min, DefaultSpacing.Max)
			}
		}
	}
}

func TestRowSpacingNonFinite(t *testing.T) {
	tests := []struct {
		name      string
		magnitude float64
		aspect    float64
		want      float64
	}{
		{"NaN magnitude", math.NaN(), 0, 4.15},
		{"infinite magnitude", math.Inf(1), 0, 4.7},
		{"NaN aspect", 0, math.NaN(), 4.15},
		{"infinite aspect", 0, math.Inf(-1), 4.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultSpacing.RowSpacing(tt.magnitude, tt.aspect)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRowSpacingPoleFacingWider(t *testing.T) {
	wide := SpacingRule{Min: 1, Max: 10}
	for m := 0.0; m <= 1.5; m += 0.1 {
		pole := DefaultSpacing.RowSpacing(m, 0)
		equator := DefaultSpacing.RowSpacing(m, math.Pi)
		assert.GreaterOrEqual(t, pole, equator, "magnitude %v", m)

		// Without clipping the ratio is exactly 1 / 0.7.
		assert.InDelta(t, 1/0.7, wide.RowSpacing(m, 0)/wide.RowSpacing(m, math.Pi), 1e-9)
	}
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0, normalizeAngle(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, normalizeAngle(-math.Pi), 1e-12)
	assert.InDelta(t, math.Pi/2, normalizeAngle(5*math.Pi/2), 1e-12)
}

// --- Stepped group ---

func TestPlanSteppedGroupFlat(t *testing.T) {
	for _, z := range []float64{0, 5, -12.25} {
		plan, err := PlanSteppedGroup(terrain.Flat{Z: z}, geo.Pt(0, 0), 0.7, DefaultGroupParams())
		require.NoError(t, err)
		require.Len(t, plan.Slots, 10)
		assert.InDelta(t, z+0.3, plan.TargetTopZ, 1e-12)
		assert.Zero(t, plan.Relaxed)
		for _, s := range plan.Slots {
			assert.Equal(t, z, s.TerrainZ)
			assert.InDelta(t, 0.3, s.Exposed, 1e-12)
			assert.InDelta(t, plan.TargetTopZ, s.TopZ, 1e-12)
		}
		assert.InDelta(t, 0, plan.TopSpread(), 1e-12)
	}
}

func TestPlanSteppedGroupGrid(t *testing.T) {
	p := DefaultGroupParams()
	p.Spacing = 4
	plan, err := PlanSteppedGroup(terrain.Flat{}, geo.Pt(10, 20), 0, p)
	require.NoError(t, err)

	assert.Equal(t, 2, plan.Rows)
	assert.Equal(t, 5, plan.Cols)
	first, last := plan.Slots[0], plan.Slots[9]
	assert.InDelta(t, 2, first.Position.X, 1e-9)
	assert.InDelta(t, 18.2, first.Position.Y, 1e-9)
	assert.Equal(t, 0, first.Row)
	assert.InDelta(t, 18, last.Position.X, 1e-9)
	assert.InDelta(t, 21.8, last.Position.Y, 1e-9)
	assert.Equal(t, 1, last.Row)
	assert.Equal(t, 4, last.Col)

	// Adjacent slots in a row are one spacing apart.
	assert.InDelta(t, 4, plan.Slots[0].Position.Distance(plan.Slots[1].Position), 1e-9)
	// Rows are one pitch apart.
	assert.InDelta(t, 3.6, plan.Slots[0].Position.Distance(plan.Slots[5].Position), 1e-9)
}

func TestPlanSteppedGroupRotation(t *testing.T) {
	p := DefaultGroupParams()
	p.Spacing = 4
	plan, err := PlanSteppedGroup(terrain.Flat{}, geo.Pt(10, 20), math.Pi/2, p)
	require.NoError(t, err)
	// Local (-8, -1.8) rotated a quarter turn is (1.8, -8).
	assert.InDelta(t, 11.8, plan.Slots[0].Position.X, 1e-9)
	assert.InDelta(t, 12, plan.Slots[0].Position.Y, 1e-9)
}

func TestPlanSteppedGroupCentered(t *testing.T) {
	for _, angle := range []float64{0, 0.7, math.Pi / 2, 2.5} {
		center := geo.Pt(-12, 30)
		plan, err := PlanSteppedGroup(terrain.Flat{}, center, angle, DefaultGroupParams())
		require.NoError(t, err)

		var sum geo.Point2D
		for _, s := range plan.Slots {
			sum = sum.Add(s.Position)
		}
		centroid := sum.Scale(1 / float64(len(plan.Slots)))
		assert.InDelta(t, center.X, centroid.X, 1e-9, "angle %v", angle)
		assert.InDelta(t, center.Y, centroid.Y, 1e-9, "angle %v", angle)
	}
}

func TestPlanSteppedGroupPerSlotRelaxation(t *testing.T) {
	p := DefaultGroupParams()
	p.PileCount = 4
	p.Spacing = 1
	// Columns sit at x = -0.5 and x = 0.5, so the relief is 1 m against a
	// 0.7 m exposed range.
	plan, err := PlanSteppedGroup(plane(1, 0, 0), geo.Pt(0, 0), 0, p)
	require.NoError(t, err)

	zs := []float64{-0.5, 0.5, -0.5, 0.5}
	exposed := []float64{1.0, 0.3, 1.0, 0.3}
	tops := []float64{0.5, 0.8, 0.5, 0.8}
	for i, s := range plan.Slots {
		assert.InDelta(t, zs[i], s.TerrainZ, 1e-12, "slot %d", i)
		assert.InDelta(t, exposed[i], s.Exposed, 1e-12, "slot %d", i)
		assert.InDelta(t, tops[i], s.TopZ, 1e-12, "slot %d", i)
	}
	// Each slot moved the target for the next one.
	assert.Equal(t, 4, plan.Relaxed)
	assert.InDelta(t, 0.8, plan.TargetTopZ, 1e-12)
	assert.InDelta(t, 0.3, plan.TopSpread(), 1e-12)
	// Deviation stays within the exposed range width.
	assert.LessOrEqual(t, plan.TopSpread(), p.ExposedMax-p.ExposedMin)
}

func TestPlanSteppedGroupWithinRange(t *testing.T) {
	p := DefaultGroupParams()
	p.PileCount = 4
	p.Spacing = 1
	plan, err := PlanSteppedGroup(plane(0.5, 0, 0), geo.Pt(0, 0), 0, p)
	require.NoError(t, err)
	assert.Zero(t, plan.Relaxed)
	assert.LessOrEqual(t, plan.TopSpread(), p.VerticalTolerance)
	assert.InDelta(t, 0.8, plan.Slots[0].Exposed, 1e-12)
}

func TestPlanSteppedGroupMinMax(t *testing.T) {
	p := DefaultGroupParams()
	p.PileCount = 4
	p.Spacing = 1
	p.Relaxation = RelaxMinMax
	plan, err := PlanSteppedGroup(plane(1, 0, 0), geo.Pt(0, 0), 0, p)
	require.NoError(t, err)
	// No target fits both columns; the midpoint of the gap is used.
	assert.InDelta(t, 0.65, plan.TargetTopZ, 1e-12)
	for _, s := range plan.Slots {
		assert.LessOrEqual(t, math.Abs(s.TopZ-plan.TargetTopZ), 0.15+1e-12)
	}

	plan, err = PlanSteppedGroup(plane(0.5, 0, 0), geo.Pt(0, 0), 0, p)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, plan.TargetTopZ, 1e-12)
	assert.Zero(t, plan.Relaxed)
}

func TestPlanSteppedGroupBadCount(t *testing.T) {
	p := DefaultGroupParams()
	for _, n := range []int{0, 1, 7} {
		p.PileCount = n
		_, err := PlanSteppedGroup(terrain.Flat{}, geo.Origin, 0, p)
		assert.Error(t, err, "count %d", n)
	}
}

func TestPlanSteppedGroupPropagatesError(t *testing.T) {
	_, err := PlanSteppedGroup(failing(), geo.Origin, 0, DefaultGroupParams())
	assert.ErrorIs(t, err, errHeight)
}
