package validation

import (
	"fmt"
	"math"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
)

// ValidateSchema performs Level 1 (schema) validation on a parsed SiteSpec.
// It checks structural correctness before any layout is generated.
func ValidateSchema(s *spec.SiteSpec) *Report {
	r := NewReport()

	validateSite(s, r)
	validateTerrain(s, r)
	validateLayout(s, r)
	validateTolerance(s, r)
	validatePileTypes(s, r)
	validateStory(s, r)
	validateAnnotation(s, r)
	validateRandomize(s, r)

	return r
}

var knownPileTypes = []string{"PHC", "spiral_steel", "cast_in_place"}

func validateSite(s *spec.SiteSpec, r *Report) {
	if s.Site.AreaSize <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "site.area_size must be greater than 0",
			SpecPath:    "site.area_size",
			ActualValue: s.Site.AreaSize,
			Expected:    "> 0",
		})
	}

	switch s.Site.GeologicalPreset {
	case "", spec.PresetLoess, spec.PresetHills:
	default:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("unknown geological preset %q", s.Site.GeologicalPreset),
			SpecPath:    "site.geological_preset",
			ActualValue: s.Site.GeologicalPreset,
			Expected:    "loess | hills",
		})
	}

	fp, err := geo.ParseFootprint(s.Site.FootprintWKT)
	if err != nil {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("site.footprint_wkt is invalid: %v", err),
			SpecPath:    "site.footprint_wkt",
			ActualValue: s.Site.FootprintWKT,
			Expected:    "POLYGON or MULTIPOLYGON WKT",
		})
		return
	}
	if fp != nil && !fp.Contains(geo.Origin) {
		r.AddWarning(Result{
			Level:       LevelSchema,
			Message:     "site footprint does not contain the site origin",
			SpecPath:    "site.footprint_wkt",
			Suggestions: []string{"Group centers are drawn from the square centered on the origin; keep the footprint inside it"},
		})
	}
}

func validateTerrain(s *spec.SiteSpec, r *Report) {
	t := s.Terrain
	switch t.Source {
	case spec.TerrainAnalytic, spec.TerrainNoise, spec.TerrainFlat:
	default:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("unknown terrain source %q", t.Source),
			SpecPath:    "terrain.source",
			ActualValue: t.Source,
			Expected:    "analytic | noise | flat",
		})
	}
	if t.TerraceBand <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "terrain.terrace_band must be > 0",
			SpecPath:    "terrain.terrace_band",
			ActualValue: t.TerraceBand,
			Expected:    "> 0",
		})
	}
	if t.Variation < 0 || t.Variation > t.TerraceStep {
		r.AddWarning(Result{
			Level:       LevelTerrain,
			Message:     fmt.Sprintf("terrain.variation %.2f should stay within one terrace step (%.2f)", t.Variation, t.TerraceStep),
			SpecPath:    "terrain.variation",
			ActualValue: t.Variation,
		})
	}
}

func validateLayout(s *spec.SiteSpec, r *Report) {
	l := s.Layout

	if l.NumGroups <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "layout.num_groups must be > 0",
			SpecPath:    "layout.num_groups",
			ActualValue: l.NumGroups,
			Expected:    "> 0",
		})
	}
	if l.PilesPerGroup < 2 || l.PilesPerGroup%2 != 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("layout.piles_per_group %d must be an even number >= 2 (two rows)", l.PilesPerGroup),
			SpecPath:    "layout.piles_per_group",
			ActualValue: l.PilesPerGroup,
			Expected:    "even, >= 2",
		})
	}
	if l.MaxAttempts <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "layout.max_attempts must be > 0",
			SpecPath:    "layout.max_attempts",
			ActualValue: l.MaxAttempts,
			Expected:    "> 0",
		})
	}
	if l.MinSpacing <= 0 || l.MinSpacing > l.MaxSpacing {
		r.AddError(Result{
			Level:        LevelSchema,
			Message:      fmt.Sprintf("spacing band [%.2f, %.2f] is invalid", l.MinSpacing, l.MaxSpacing),
			SpecPath:     "layout.min_spacing",
			ActualValue:  l.MinSpacing,
			Expected:     "0 < min_spacing <= max_spacing",
			ConflictWith: "layout.max_spacing",
		})
	}
	if l.ExposedMin <= 0 || l.ExposedMin > l.ExposedMax {
		r.AddError(Result{
			Level:        LevelSchema,
			Message:      fmt.Sprintf("exposed height range [%.2f, %.2f] is invalid", l.ExposedMin, l.ExposedMax),
			SpecPath:     "layout.exposed_min",
			ActualValue:  l.ExposedMin,
			Expected:     "0 < exposed_min <= exposed_max",
			ConflictWith: "layout.exposed_max",
		})
	}
	if l.SlopeRadius <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "layout.slope_sample_radius must be > 0",
			SpecPath:    "layout.slope_sample_radius",
			ActualValue: l.SlopeRadius,
			Expected:    "> 0",
		})
	}
	if l.VerticalTolerance < 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "layout.vertical_tolerance must be >= 0",
			SpecPath:    "layout.vertical_tolerance",
			ActualValue: l.VerticalTolerance,
			Expected:    ">= 0",
		})
	}
	switch l.RowAlignment {
	case spec.RowAlignByRow, spec.RowAlignReference:
	default:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("unknown row alignment mode %q", l.RowAlignment),
			SpecPath:    "layout.row_alignment",
			ActualValue: l.RowAlignment,
			Expected:    "by_row | reference",
		})
	}
	switch l.Relaxation {
	case "", spec.RelaxPerSlot, spec.RelaxMinMax:
	default:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("unknown relaxation mode %q", l.Relaxation),
			SpecPath:    "layout.relaxation",
			ActualValue: l.Relaxation,
			Expected:    "per_slot | min_max",
		})
	}

	// Packing estimate: each group claims roughly a disc of radius
	// min_distance/2; hexagonal packing covers ~90% of the plane.
	if s.Site.AreaSize > 0 && l.MinGroupDistance > 0 && l.NumGroups > 0 {
		disc := math.Pi * math.Pow(l.MinGroupDistance/2, 2)
		capacity := int(0.9 * s.Site.AreaSize * s.Site.AreaSize / disc)
		if l.NumGroups > capacity {
			r.AddWarning(Result{
				Level:       LevelLayout,
				Message:     fmt.Sprintf("%d groups are unlikely to fit a %.0fm site at %.0fm spacing (about %d)", l.NumGroups, s.Site.AreaSize, l.MinGroupDistance, capacity),
				SpecPath:    "layout.num_groups",
				ActualValue: l.NumGroups,
				Suggestions: []string{"Reduce num_groups or min_group_distance", "Dropped groups are reported after layout"},
			})
		}
	}
}

func validateTolerance(s *spec.SiteSpec, r *Report) {
	t := s.Tolerance
	fields := map[string]float64{
		"row_jitter":         t.RowJitter,
		"free_jitter":        t.FreeJitter,
		"vertical_deviation": t.VerticalDeviation,
	}
	for _, name := range []string{"row_jitter", "free_jitter", "vertical_deviation"} {
		if fields[name] < 0 {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("tolerance.%s must be non-negative", name),
				SpecPath:    fmt.Sprintf("tolerance.%s", name),
				ActualValue: fields[name],
				Expected:    ">= 0",
			})
		}
	}
	if t.RowJitter > t.FreeJitter {
		r.AddWarning(Result{
			Level:        LevelSchema,
			Message:      "in-row jitter exceeds cross-row jitter",
			SpecPath:     "tolerance.row_jitter",
			ActualValue:  t.RowJitter,
			ConflictWith: "tolerance.free_jitter",
		})
	}
}

func validatePileTypes(s *spec.SiteSpec, r *Report) {
	probs := s.PileTypes.Probabilities
	sum := 0.0
	for name, p := range probs {
		known := false
		for _, k := range knownPileTypes {
			if name == k {
				known = true
				break
			}
		}
		if !known {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("unknown pile type %q", name),
				SpecPath:    fmt.Sprintf("pile_types.probabilities.%s", name),
				Expected:    "PHC | spiral_steel | cast_in_place",
				Suggestions: []string{"Pile type names are case-sensitive"},
			})
		}
		if p < 0 {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("pile_types.probabilities.%s must be non-negative", name),
				SpecPath:    fmt.Sprintf("pile_types.probabilities.%s", name),
				ActualValue: p,
				Expected:    ">= 0",
			})
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 0.01 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("pile type probabilities must sum to 1.0 (got %.4f)", sum),
			SpecPath:    "pile_types.probabilities",
			ActualValue: sum,
			Expected:    "1.0 (±0.01)",
			Suggestions: []string{"Adjust probabilities so they sum to 1.0"},
		})
	}
	if s.Site.GeologicalPreset != "" {
		r.AddInfo(Result{
			Level:    LevelSchema,
			Message:  fmt.Sprintf("geological preset %q overrides pile type probabilities", s.Site.GeologicalPreset),
			SpecPath: "site.geological_preset",
		})
	}
}

func validateStory(s *spec.SiteSpec, r *Report) {
	st := s.Story
	if st.DebrisProbability < 0 || st.DebrisProbability > 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("storytelling.debris_probability %.2f must be within [0, 1]", st.DebrisProbability),
			SpecPath:    "storytelling.debris_probability",
			ActualValue: st.DebrisProbability,
			Expected:    "0-1",
		})
	}
	if st.DebrisRadius < 0.3 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "storytelling.debris_radius must be at least 0.3m",
			SpecPath:    "storytelling.debris_radius",
			ActualValue: st.DebrisRadius,
			Expected:    ">= 0.3",
		})
	}
	if st.MaterialBags < 0 || st.Machinery < 0 {
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "distractor counts must be non-negative",
			SpecPath: "storytelling",
		})
	}
}

func validateAnnotation(s *spec.SiteSpec, r *Report) {
	a := s.Annotation
	if a.MinBoxSize <= 0 || a.MinBoxSize >= 1 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("annotation.min_box_size %.4f must be within (0, 1)", a.MinBoxSize),
			SpecPath:    "annotation.min_box_size",
			ActualValue: a.MinBoxSize,
			Expected:    "0 < size < 1",
		})
	}
	if s.Render.Width <= 0 || s.Render.Height <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("render size %dx%d must be positive", s.Render.Width, s.Render.Height),
			SpecPath:    "render",
			ActualValue: fmt.Sprintf("%dx%d", s.Render.Width, s.Render.Height),
			Expected:    "> 0",
		})
	}
}

func validateRandomize(s *spec.SiteSpec, r *Report) {
	rz := s.Randomize
	checkFloatRange(r, "randomize.area_size", rz.AreaSize, true)
	checkIntRange(r, "randomize.num_terraces", rz.NumTerraces, 1)
	checkFloatRange(r, "randomize.terrace_step", rz.TerraceStep, true)
	checkIntRange(r, "randomize.material_bags", rz.MaterialBags, 0)
	checkIntRange(r, "randomize.machinery", rz.Machinery, 0)
}

func checkFloatRange(r *Report, path string, v []float64, positive bool) {
	if v == nil {
		return
	}
	switch {
	case len(v) != 2:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s must be a [min, max] pair", path),
			SpecPath:    path,
			ActualValue: v,
			Expected:    "[min, max]",
		})
	case math.IsNaN(v[0]) || math.IsNaN(v[1]) || v[0] > v[1]:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s range [%v, %v] is inverted", path, v[0], v[1]),
			SpecPath:    path,
			ActualValue: v,
			Expected:    "min <= max",
		})
	case positive && v[0] <= 0:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s minimum must be > 0", path),
			SpecPath:    path,
			ActualValue: v[0],
			Expected:    "> 0",
		})
	}
}

func checkIntRange(r *Report, path string, v []int, lo int) {
	if v == nil {
		return
	}
	switch {
	case len(v) != 2:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s must be a [min, max] pair", path),
			SpecPath:    path,
			ActualValue: v,
			Expected:    "[min, max]",
		})
	case v[0] > v[1]:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s range [%d, %d] is inverted", path, v[0], v[1]),
			SpecPath:    path,
			ActualValue: v,
			Expected:    "min <= max",
		})
	case v[0] < lo:
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s minimum must be >= %d", path, lo),
			SpecPath:    path,
			ActualValue: v[0],
			Expected:    fmt.Sprintf(">= %d", lo),
		})
	}
}
