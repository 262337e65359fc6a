// Package layout places solar-farm foundation piles on uneven terrain.
//
// Every randomized function takes an explicit *rand.Rand. A layout is
// reproducible when the generator is seeded identically and the height
// service answers identically.
package layout

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
)

// RowAlignment decides which piles of a group get the tight in-row
// position tolerance.
type RowAlignment string

const (
	// RowByRow treats the first row of a group as the aligned row.
	RowByRow RowAlignment = spec.RowAlignByRow
	// RowReference reproduces the historical predicate
	// index % cols < cols, which holds for every pile.
	RowReference RowAlignment = spec.RowAlignReference
)

// InRow reports whether slot index of a group with cols columns is aligned.
func (m RowAlignment) InRow(index, cols int) bool {
	if cols <= 0 {
		return true
	}
	if m == RowReference {
		return index%cols < cols
	}
	return index/cols == 0
}

// ParseRowAlignment validates a row alignment mode. Empty means RowByRow.
func ParseRowAlignment(s string) (RowAlignment, error) {
	switch s {
	case "", spec.RowAlignByRow:
		return RowByRow, nil
	case spec.RowAlignReference:
		return RowReference, nil
	}
	return "", fmt.Errorf("unknown row alignment mode %q", s)
}

// Config holds everything LayoutPiles needs besides the generator and the
// height service.
type Config struct {
	Sampler       SamplerParams
	PilesPerGroup int
	SlopeRadius   float64
	Spacing       SpacingRule
	Group         GroupParams // PileCount and Spacing are set per group
	Tolerance     ToleranceParams
	RowAlignment  RowAlignment
	Probabilities Probabilities
	AssetPath     string
}

// DefaultConfig mirrors spec.Default.
func DefaultConfig() Config {
	return Config{
		Sampler: SamplerParams{
			AreaSize:    200,
			NumGroups:   20,
			MinDistance: 15,
			MaxAttempts: 100,
		},
		PilesPerGroup: 10,
		SlopeRadius:   DefaultSlopeRadius,
		Spacing:       DefaultSpacing,
		Group: GroupParams{
			RowPitch:          defaultRowPitch,
			VerticalTolerance: defaultTolerance,
			ExposedMin:        defaultExposedMin,
			ExposedMax:        defaultExposedMax,
			Relaxation:        RelaxPerSlot,
		},
		Tolerance:     DefaultTolerance,
		RowAlignment:  RowByRow,
		Probabilities: DefaultProbabilities,
	}
}

// ConfigFromSpec builds a Config from a site spec. Geological presets are
// applied separately by the caller.
func ConfigFromSpec(s *spec.SiteSpec) (Config, error) {
	fp, err := geo.ParseFootprint(s.Site.FootprintWKT)
	if err != nil {
		return Config{}, err
	}
	probs, err := ProbabilitiesFromMap(s.PileTypes.Probabilities)
	if err != nil {
		return Config{}, err
	}
	if !probabilitiesClose(probs, 0.01) {
		return Config{}, fmt.Errorf("pile type probabilities sum to %.4f, want 1.0", probs.Sum())
	}
	align, err := ParseRowAlignment(s.Layout.RowAlignment)
	if err != nil {
		return Config{}, err
	}
	relax, err := ParseRelaxation(s.Layout.Relaxation)
	if err != nil {
		return Config{}, err
	}

	l := s.Layout
	return Config{
		Sampler: SamplerParams{
			AreaSize:    s.Site.AreaSize,
			NumGroups:   l.NumGroups,
			MinDistance: l.MinGroupDistance,
			MaxAttempts: l.MaxAttempts,
			Footprint:   fp,
		},
		PilesPerGroup: l.PilesPerGroup,
		SlopeRadius:   l.SlopeRadius,
		Spacing: SpacingRule{
			Min:             l.MinSpacing,
			Max:             l.MaxSpacing,
			ComponentHeight: l.ComponentHeight,
		},
		Group: GroupParams{
			RowPitch:          l.RowPitch,
			VerticalTolerance: l.VerticalTolerance,
			ExposedMin:        l.ExposedMin,
			ExposedMax:        l.ExposedMax,
			Relaxation:        relax,
		},
		Tolerance: ToleranceParams{
			RowJitter:         s.Tolerance.RowJitter,
			FreeJitter:        s.Tolerance.FreeJitter,
			VerticalDeviation: s.Tolerance.VerticalDeviation,
		},
		RowAlignment:  align,
		Probabilities: probs,
		AssetPath:     s.PileTypes.AssetPath,
	}, nil
}

// PilePlan is one pile of the site manifest.
type PilePlan struct {
	ID       string      `json:"id"`
	Position geo.Point2D `json:"position"`
	TerrainZ float64     `json:"terrain_z"`
	TopZ     float64     `json:"top_z"` // planned top elevation before tolerance
	Tilt     Tilt        `json:"tilt"`
	Type     PileType    `json:"pile_type"`
	Params   PileParams  `json:"pile_params"`
	GroupID  int         `json:"group_id"`
	Slot     int         `json:"slot"`
	InRow    bool        `json:"in_row"`
}

// GroupSummary records the per-group decisions of a layout.
type GroupSummary struct {
	ID      int        `json:"id"`
	Slope   Slope      `json:"slope"`
	Spacing float64    `json:"spacing"`
	Plan    *GroupPlan `json:"plan"`
}

// Layout is the full pile manifest of one site.
type Layout struct {
	RequestedGroups int            `json:"requested_groups"`
	Groups          []GroupSummary `json:"groups"`
	Piles           []PilePlan     `json:"piles"`
}

// DroppedGroups is how many requested groups found no free spot.
func (l *Layout) DroppedGroups() int {
	return l.RequestedGroups - len(l.Groups)
}

// LayoutPiles samples group centers, plans a stepped group at each and
// perturbs every pile by construction tolerance. It fails only when the
// height service fails.
//
// Per group the draw order is: row angle, then for each pile the tolerance
// draws, the type draw and the parameter draws.
func LayoutPiles(rng *rand.Rand, h terrain.HeightQuerier, cfg Config) (*Layout, *validation.Report, error) {
	report := validation.NewReport()

	centers := SampleGroupCenters(rng, cfg.Sampler)
	out := &Layout{
		RequestedGroups: cfg.Sampler.NumGroups,
		Groups:          make([]GroupSummary, 0, len(centers)),
		Piles:           make([]PilePlan, 0, len(centers)*cfg.PilesPerGroup),
	}

	for gid, center := range centers {
		rowAngle := uniform(rng, 0, 2*math.Pi)

		slope, err := EstimateSlope(h, center.X, center.Y, cfg.SlopeRadius)
		if err != nil {
			return nil, nil, fmt.Errorf("group %d: %w", gid, err)
		}
		spacing := cfg.Spacing.RowSpacing(slope.Magnitude, slope.Aspect)

		gp := cfg.Group
		gp.PileCount = cfg.PilesPerGroup
		gp.Spacing = spacing
		plan, err := PlanSteppedGroup(h, center, rowAngle, gp)
		if err != nil {
			return nil, nil, fmt.Errorf("group %d: %w", gid, err)
		}
		out.Groups = append(out.Groups, GroupSummary{ID: gid, Slope: slope, Spacing: spacing, Plan: plan})

		for i, slot := range plan.Slots {
			inRow := cfg.RowAlignment.InRow(i, plan.Cols)
			pos, tilt := ApplyTolerance(rng, slot.Position, inRow, cfg.Tolerance)

			pt := SelectPileType(rng, cfg.Probabilities)
			params, err := NewPileParams(rng, pt, cfg.AssetPath)
			if err != nil {
				return nil, nil, err
			}

			out.Piles = append(out.Piles, PilePlan{
				ID:       fmt.Sprintf("pile-g%02d-%02d", gid, i),
				Position: pos,
				TerrainZ: slot.TerrainZ,
				TopZ:     slot.TopZ,
				Tilt:     tilt,
				Type:     pt,
				Params:   params,
				GroupID:  gid,
				Slot:     i,
				InRow:    inRow,
			})
		}
	}

	if dropped := out.DroppedGroups(); dropped > 0 {
		report.AddWarning(validation.Result{
			Level: validation.LevelLayout,
			Message: fmt.Sprintf("placed %d of %d requested groups; %d found no spot %.0fm from the others",
				len(out.Groups), out.RequestedGroups, dropped, cfg.Sampler.MinDistance),
			SpecPath:    "layout.num_groups",
			ActualValue: len(out.Groups),
			Expected:    fmt.Sprintf("%d", out.RequestedGroups),
		})
	}
	report.AddInfo(validation.Result{
		Level:   validation.LevelLayout,
		Message: fmt.Sprintf("placed %d piles in %d groups", len(out.Piles), len(out.Groups)),
	})
	return out, report, nil
}
