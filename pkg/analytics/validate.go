package analytics

import (
	"fmt"
	"math"

	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
)

// minPilesForMix is the sample size below which type shares are too noisy
// to compare against the configured probabilities.
const minPilesForMix = 100

func validateSummary(s *spec.SiteSpec, sum *Summary, report *validation.Report) {
	validateTopSpread(s, sum, report)
	validateTypeMix(sum, report)
	validateExposedRange(s, sum, report)
}

func validateTopSpread(s *spec.SiteSpec, sum *Summary, report *validation.Report) {
	tol := s.Layout.VerticalTolerance
	for _, g := range sum.Groups {
		if g.TopSpread <= tol+1e-9 {
			continue
		}
		report.AddWarning(validation.Result{
			Level:        validation.LevelLayout,
			Message:      fmt.Sprintf("group %d top spread %.3fm exceeds vertical tolerance %.3fm; %d slots relaxed", g.ID, g.TopSpread, tol, g.Relaxed),
			SpecPath:     "layout.vertical_tolerance",
			ActualValue:  g.TopSpread,
			ConflictWith: "layout.exposed_max",
			Suggestions:  []string{"Terrain relief under the group exceeds the exposed height range"},
		})
	}
}

func validateTypeMix(sum *Summary, report *validation.Report) {
	if sum.PileCount < minPilesForMix {
		return
	}
	n := float64(sum.PileCount)
	for _, t := range sum.Types {
		// Four standard errors of a binomial share.
		bound := 4 * math.Sqrt(t.Expected*(1-t.Expected)/n)
		if math.Abs(t.Share-t.Expected) <= math.Max(bound, 0.01) {
			continue
		}
		report.AddWarning(validation.Result{
			Level:       validation.LevelLayout,
			Message:     fmt.Sprintf("%s share %.3f deviates from configured %.3f", t.Type, t.Share, t.Expected),
			SpecPath:    "pile_types.probabilities." + t.Type,
			ActualValue: t.Share,
			Expected:    fmt.Sprintf("%.3f", t.Expected),
		})
	}
}

func validateExposedRange(s *spec.SiteSpec, sum *Summary, report *validation.Report) {
	if sum.PileCount == 0 {
		return
	}
	lo, hi := s.Layout.ExposedMin, s.Layout.ExposedMax
	if sum.Exposed.Min < lo-1e-9 || sum.Exposed.Max > hi+1e-9 {
		report.AddError(validation.Result{
			Level:       validation.LevelLayout,
			Message:     fmt.Sprintf("exposed heights [%.3f, %.3f] leave the configured range [%.2f, %.2f]", sum.Exposed.Min, sum.Exposed.Max, lo, hi),
			SpecPath:    "layout.exposed_min",
			ActualValue: fmt.Sprintf("%.3f-%.3f", sum.Exposed.Min, sum.Exposed.Max),
			Expected:    fmt.Sprintf("%.2f-%.2f", lo, hi),
		})
	}
}
