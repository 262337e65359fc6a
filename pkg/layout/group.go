package layout

import (
	"fmt"
	"math"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
)

const (
	groupRows         = 2
	defaultRowPitch   = 3.6  // meters between the two rows of a table
	defaultTolerance  = 0.04 // meters, max top-elevation spread in a table
	defaultExposedMin = 0.3  // meters
	defaultExposedMax = 1.0  // meters

	// clampEpsilon absorbs float noise from target - terrain round trips.
	clampEpsilon = 1e-9
)

// Relaxation selects how a group's common top elevation is settled when the
// terrain relief exceeds the exposed-height range.
type Relaxation string

const (
	// RelaxPerSlot walks the slots in grid order and, whenever a slot's
	// exposed height had to be clamped, moves the target to that slot's
	// clamped top. Later slots see the moved target.
	RelaxPerSlot Relaxation = spec.RelaxPerSlot
	// RelaxMinMax picks the single target that minimizes the largest
	// deviation of any clamped top from it.
	RelaxMinMax Relaxation = spec.RelaxMinMax
)

// ParseRelaxation validates a relaxation mode. Empty means RelaxPerSlot.
func ParseRelaxation(s string) (Relaxation, error) {
	switch s {
	case "", spec.RelaxPerSlot:
		return RelaxPerSlot, nil
	case spec.RelaxMinMax:
		return RelaxMinMax, nil
	}
	return "", fmt.Errorf("unknown relaxation mode %q", s)
}

// GroupParams configures one stepped pile group (a "table").
type GroupParams struct {
	PileCount         int
	Spacing           float64 // along a row
	RowPitch          float64 // between rows
	VerticalTolerance float64
	ExposedMin        float64
	ExposedMax        float64
	Relaxation        Relaxation
}

// DefaultGroupParams returns a 2x5 table with reference tolerances.
func DefaultGroupParams() GroupParams {
	return GroupParams{
		PileCount:         10,
		Spacing:           DefaultSpacing.Min,
		RowPitch:          defaultRowPitch,
		VerticalTolerance: defaultTolerance,
		ExposedMin:        defaultExposedMin,
		ExposedMax:        defaultExposedMax,
		Relaxation:        RelaxPerSlot,
	}
}

// Slot is one planned pile position in a group.
type Slot struct {
	Position geo.Point2D `json:"position"`
	TerrainZ float64     `json:"terrain_z"`
	Row      int         `json:"row"`
	Col      int         `json:"col"`
	Exposed  float64     `json:"exposed_height"` // clamped to the exposed range
	TopZ     float64     `json:"top_z"`          // TerrainZ + Exposed
}

// GroupPlan is the output of PlanSteppedGroup. Slots are in grid order,
// row-major.
type GroupPlan struct {
	Center     geo.Point2D `json:"center"`
	RowAngle   float64     `json:"row_angle"`
	Rows       int         `json:"rows"`
	Cols       int         `json:"cols"`
	TargetTopZ float64     `json:"target_top_z"` // after relaxation
	Relaxed    int         `json:"relaxed"`      // slots whose exposed height was clamped
	Slots      []Slot      `json:"slots"`
}

// TopSpread returns max(TopZ) - min(TopZ) over the slots.
func (g *GroupPlan) TopSpread() float64 {
	if len(g.Slots) == 0 {
		return 0
	}
	lo, hi := g.Slots[0].TopZ, g.Slots[0].TopZ
	for _, s := range g.Slots[1:] {
		lo = math.Min(lo, s.TopZ)
		hi = math.Max(hi, s.TopZ)
	}
	return hi - lo
}

// PlanSteppedGroup lays out a two-row grid of piles whose centroid is
// center, rotated by rowAngle around it, and settles exposed heights so
// the pile tops share a common elevation where the exposed range allows it.
//
// The initial target is the highest terrain point plus the minimum exposed
// height. Callers that need the exposed height of a pile under a different
// target must recompute target - TerrainZ themselves.
func PlanSteppedGroup(h terrain.HeightQuerier, center geo.Point2D, rowAngle float64, p GroupParams) (*GroupPlan, error) {
	if p.PileCount < groupRows || p.PileCount%groupRows != 0 {
		return nil, fmt.Errorf("pile count %d does not factor into %d rows", p.PileCount, groupRows)
	}
	cols := p.PileCount / groupRows

	plan := &GroupPlan{
		Center:   center,
		RowAngle: rowAngle,
		Rows:     groupRows,
		Cols:     cols,
		Slots:    make([]Slot, 0, p.PileCount),
	}

	maxZ := math.Inf(-1)
	for row := 0; row < groupRows; row++ {
		for col := 0; col < cols; col++ {
			local := geo.Pt(
				(float64(col)-float64(cols-1)/2.0)*p.Spacing,
				(float64(row)-float64(groupRows-1)/2.0)*p.RowPitch,
			)
			pos := local.Rotate(rowAngle).Add(center)
			z, err := h.HeightAt(pos.X, pos.Y)
			if err != nil {
				return nil, fmt.Errorf("group slot (%d,%d): %w", row, col, err)
			}
			maxZ = math.Max(maxZ, z)
			plan.Slots = append(plan.Slots, Slot{Position: pos, TerrainZ: z, Row: row, Col: col})
		}
	}

	target := maxZ + p.ExposedMin
	switch p.Relaxation {
	case RelaxMinMax:
		target = minMaxTarget(plan.Slots, p)
		for i := range plan.Slots {
			s := &plan.Slots[i]
			s.Exposed = clamp(target-s.TerrainZ, p.ExposedMin, p.ExposedMax)
			s.TopZ = s.TerrainZ + s.Exposed
			if math.Abs(s.Exposed-(target-s.TerrainZ)) > clampEpsilon {
				plan.Relaxed++
			}
		}
	default:
		for i := range plan.Slots {
			s := &plan.Slots[i]
			required := target - s.TerrainZ
			s.Exposed = clamp(required, p.ExposedMin, p.ExposedMax)
			if math.Abs(s.Exposed-required) > clampEpsilon {
				target = s.TerrainZ + s.Exposed
				plan.Relaxed++
			}
			s.TopZ = s.TerrainZ + s.Exposed
		}
	}
	plan.TargetTopZ = target
	return plan, nil
}

// minMaxTarget returns the lowest target every slot can reach, or the
// midpoint of the infeasible gap when none exists.
func minMaxTarget(slots []Slot, p GroupParams) float64 {
	lower, upper := math.Inf(-1), math.Inf(1)
	for _, s := range slots {
		lower = math.Max(lower, s.TerrainZ+p.ExposedMin)
		upper = math.Min(upper, s.TerrainZ+p.ExposedMax)
	}
	if lower <= upper {
		return lower
	}
	return (lower + upper) / 2
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
