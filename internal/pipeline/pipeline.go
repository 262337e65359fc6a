// Package pipeline runs the per-image generation steps: terrain, pile
// layout, storytelling props, textures, manifest and analytics.
package pipeline

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/LeoAKALiu/BlenderProc/pkg/analytics"
	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/scene"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/story"
	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
	"github.com/LeoAKALiu/BlenderProc/pkg/texture"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
)

// ErrInvalidSpec is returned when schema validation fails. The Result still
// carries the report.
var ErrInvalidSpec = errors.New("site spec has validation errors")

// Options selects the image and the optional texture library.
type Options struct {
	Index    int
	BaseSeed *int64
	// Textures and AssetsPath enable texture selection when both are set.
	Textures   *texture.Cache
	AssetsPath string
	Log        zerolog.Logger
}

// Result is everything generated for one image.
type Result struct {
	Index    int                `json:"image_index"`
	Seed     int64              `json:"seed"`
	// Site is the site spec after per-image randomize ranges were drawn.
	Site     *spec.SiteSpec     `json:"site,omitempty"`
	Preset   *story.Preset      `json:"preset,omitempty"`
	Layout   *layout.Layout     `json:"layout,omitempty"`
	Props    *story.Scene       `json:"props,omitempty"`
	Textures *texture.Selection `json:"textures,omitempty"`
	Graph    *scene.Graph       `json:"scene_graph,omitempty"`
	Summary  *analytics.Summary `json:"analytics,omitempty"`
	Report   *validation.Report `json:"validation"`
}

// Generate builds one image's layout from site. The generator is seeded with
// spec.EffectiveSeed(opts.BaseSeed, opts.Index), so two calls with the same
// spec and options return identical plans.
//
// Draw order on the generator: randomize ranges, layout, debris,
// distractors, textures. The concrete pile texture takes no draws.
func Generate(site *spec.SiteSpec, opts Options) (*Result, error) {
	res := &Result{Index: opts.Index, Seed: spec.EffectiveSeed(opts.BaseSeed, opts.Index)}

	res.Report = validation.ValidateSchema(site)
	if !res.Report.Valid {
		return res, ErrInvalidSpec
	}

	rng := rand.New(rand.NewSource(res.Seed))
	s := site.Draw(rng)
	res.Site = s
	if !s.Randomize.Empty() {
		opts.Log.Debug().
			Int("image", opts.Index).
			Float64("area_size", s.Site.AreaSize).
			Int("num_terraces", s.Terrain.NumTerraces).
			Float64("terrace_step", s.Terrain.TerraceStep).
			Int("material_bags", s.Story.MaterialBags).
			Int("machinery", s.Story.Machinery).
			Msg("scene parameters drawn")
	}

	cfg, err := layout.ConfigFromSpec(s)
	if err != nil {
		return res, fmt.Errorf("building layout config: %w", err)
	}
	res.Preset, err = story.ApplyPreset(&cfg, s.Site.GeologicalPreset)
	if err != nil {
		return res, err
	}

	h, err := terrain.New(s.Terrain, s.Site.AreaSize, res.Seed)
	if err != nil {
		return res, err
	}

	l, layoutReport, err := layout.LayoutPiles(rng, h, cfg)
	if err != nil {
		return res, fmt.Errorf("image %d: %w", opts.Index, err)
	}
	res.Layout = l
	res.Report.Merge(layoutReport)
	if l.DroppedGroups() > 0 {
		opts.Log.Warn().Int("image", opts.Index).Int("dropped", l.DroppedGroups()).Msg("groups dropped")
	}

	res.Props, err = story.Plan(rng, h, l.Piles, s.Story, s.Site.AreaSize)
	if err != nil {
		return res, fmt.Errorf("image %d: planning props: %w", opts.Index, err)
	}

	if opts.Textures != nil && opts.AssetsPath != "" {
		lib, err := opts.Textures.Library(opts.AssetsPath)
		if err != nil {
			return res, fmt.Errorf("discovering textures: %w", err)
		}
		sel := lib.SelectRandom(rng)
		concrete, ok, err := opts.Textures.First(opts.AssetsPath, texture.Concrete)
		if err != nil {
			return res, fmt.Errorf("discovering concrete texture: %w", err)
		}
		if ok {
			sel.Concrete = &concrete
		}
		res.Textures = &sel
	}

	if rh, ok := h.(*terrain.RayHeight); ok && rh.Misses() > 0 {
		opts.Log.Debug().Int64("misses", rh.Misses()).Msg("height queries fell back to terraces")
		res.Report.AddInfo(validation.Result{
			Level:       validation.LevelTerrain,
			Message:     fmt.Sprintf("%d height queries missed the surface and used the terraced model", rh.Misses()),
			SpecPath:    "terrain.source",
			ActualValue: rh.Misses(),
		})
	}

	res.Graph, err = scene.Assemble(s, l, res.Props.Props())
	if err != nil {
		return res, err
	}
	res.Report.Merge(scene.ValidateGraph(res.Graph))

	summary, analyticsReport := analytics.Summarize(s, l)
	res.Summary = summary
	res.Report.Merge(analyticsReport)

	opts.Log.Info().
		Int("image", opts.Index).
		Int64("seed", res.Seed).
		Int("groups", len(l.Groups)).
		Int("piles", len(l.Piles)).
		Int("props", len(res.Graph.Entities)-len(l.Piles)).
		Msg("layout generated")
	return res, nil
}
