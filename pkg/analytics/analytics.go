// Package analytics summarizes a generated pile layout: type mix, exposed
// heights and stepped-group quality.
package analytics

import (
	"sort"

	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/story"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the computed statistics of one layout.
type Summary struct {
	RequestedGroups int          `json:"requested_groups"`
	PlacedGroups    int          `json:"placed_groups"`
	PileCount       int          `json:"pile_count"`
	InRowCount      int          `json:"in_row_count"`
	Types           []TypeStat   `json:"types"`
	Exposed         Distribution `json:"exposed_height"`
	Spacing         Distribution `json:"spacing"`
	MaxTopSpread    float64      `json:"max_top_spread"`
	RelaxedGroups   int          `json:"relaxed_groups"`
	Groups          []GroupStat  `json:"groups"`
}

// Summarize computes layout statistics and checks them against the site
// settings. Expected type shares follow the geological preset when set.
func Summarize(s *spec.SiteSpec, l *layout.Layout) (*Summary, *validation.Report) {
	report := validation.NewReport()

	sum := &Summary{
		RequestedGroups: l.RequestedGroups,
		PlacedGroups:    len(l.Groups),
		PileCount:       len(l.Piles),
	}

	exposed := make([]float64, 0, len(l.Piles))
	counts := map[layout.PileType]int{}
	for _, p := range l.Piles {
		exposed = append(exposed, p.TopZ-p.TerrainZ)
		counts[p.Type]++
		if p.InRow {
			sum.InRowCount++
		}
	}
	sum.Exposed = describe(exposed)

	expected := expectedShares(s)
	for _, t := range layout.AllPileTypes {
		ts := TypeStat{Type: string(t), Count: counts[t], Expected: expected[t]}
		if len(l.Piles) > 0 {
			ts.Share = float64(counts[t]) / float64(len(l.Piles))
		}
		sum.Types = append(sum.Types, ts)
	}

	spacings := make([]float64, 0, len(l.Groups))
	for _, g := range l.Groups {
		gs := GroupStat{
			ID:        g.ID,
			Slope:     g.Slope.Magnitude,
			Spacing:   g.Spacing,
			TopSpread: g.Plan.TopSpread(),
			Relaxed:   g.Plan.Relaxed,
		}
		sum.Groups = append(sum.Groups, gs)
		spacings = append(spacings, g.Spacing)
		if gs.TopSpread > sum.MaxTopSpread {
			sum.MaxTopSpread = gs.TopSpread
		}
		if gs.Relaxed > 0 {
			sum.RelaxedGroups++
		}
	}
	sum.Spacing = describe(spacings)

	validateSummary(s, sum, report)
	return sum, report
}

// expectedShares resolves the configured type probabilities. Invalid
// settings yield zero expectations; schema validation reports them.
func expectedShares(s *spec.SiteSpec) map[layout.PileType]float64 {
	probs, err := layout.ProbabilitiesFromMap(s.PileTypes.Probabilities)
	if err != nil {
		return map[layout.PileType]float64{}
	}
	if p, err := story.LookupPreset(s.Site.GeologicalPreset); err == nil {
		probs = p.Probabilities
	}
	return map[layout.PileType]float64{
		layout.PHC:         probs.PHC,
		layout.SpiralSteel: probs.SpiralSteel,
		layout.CastInPlace: probs.CastInPlace,
	}
}

// describe returns the distribution of xs. StdDev is the sample standard
// deviation and is zero for fewer than two values.
func describe(xs []float64) Distribution {
	if len(xs) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	d := Distribution{
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}
