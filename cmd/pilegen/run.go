package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/LeoAKALiu/BlenderProc/internal/pipeline"
	"github.com/LeoAKALiu/BlenderProc/internal/store"
	"github.com/LeoAKALiu/BlenderProc/pkg/annotate"
	"github.com/LeoAKALiu/BlenderProc/pkg/scene2d"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/texture"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
)

type layoutOptions struct {
	index    int
	count    int
	seed     int64
	baseSeed *int64
	out      string
	db       string
}

type annotateOptions struct {
	index    int
	labels   string
	width    int
	height   int
	category int
	minBox   float64
}

// loadAndValidate loads the site spec and runs schema validation.
func loadAndValidate(projectPath string) (*spec.SiteSpec, *validation.Report, error) {
	siteSpec, err := spec.LoadProject(projectPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading spec: %w", err)
	}
	return siteSpec, validation.ValidateSchema(siteSpec), nil
}

// openStore opens the run history at path, falling back to db.path.
// It returns nil when neither is set.
func (a *app) openStore(path string) (*store.Store, error) {
	if path == "" {
		path = a.settings.DB.Path
	}
	if path == "" {
		return nil, nil
	}
	return store.Open(path, a.log)
}

func (a *app) generate(siteSpec *spec.SiteSpec, index int, base *int64) (*pipeline.Result, error) {
	res, err := pipeline.Generate(siteSpec, pipeline.Options{
		Index:      index,
		BaseSeed:   base,
		Textures:   a.textures,
		AssetsPath: a.settings.Assets.Path,
		Log:        a.log,
	})
	if errors.Is(err, pipeline.ErrInvalidSpec) {
		printValidationReport(os.Stdout, res.Report)
	}
	return res, err
}

func runValidate(a *app, projectPath string) error {
	siteSpec, report, err := loadAndValidate(projectPath)
	if err != nil {
		return err
	}

	// A trial layout surfaces the soft constraint findings.
	if report.Valid {
		res, err := pipeline.Generate(siteSpec, pipeline.Options{BaseSeed: a.settings.BaseSeed(), Log: a.log})
		if err != nil {
			return err
		}
		report = res.Report
	}

	printValidationReport(os.Stdout, report)

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

func runLayout(a *app, projectPath string, o layoutOptions) error {
	siteSpec, err := spec.LoadProject(projectPath)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}
	if o.count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", o.count)
	}

	st, err := a.openStore(o.db)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	for i := o.index; i < o.index+o.count; i++ {
		res, err := a.generate(siteSpec, i, o.baseSeed)
		if err != nil {
			return err
		}
		if st != nil {
			run := &store.Run{
				SiteName:    siteSpec.Site.Name,
				SpecVersion: siteSpec.SpecVersion,
				Preset:      siteSpec.Site.GeologicalPreset,
				Seed:        res.Seed,
				ImageIndex:  res.Index,
			}
			if err := st.SaveRun(run, res.Layout, res.Summary); err != nil {
				return err
			}
		}

		path := o.out
		if o.count > 1 {
			path = filepath.Join(a.settings.OutputDir, "layouts", fmt.Sprintf("%06d.json", i))
		}
		if err := writeManifest(path, res); err != nil {
			return err
		}
	}
	return nil
}

// writeManifest writes res as indented JSON to path, or stdout when path
// is empty.
func writeManifest(path string, res *pipeline.Result) error {
	var w io.Writer = os.Stdout
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating manifest dir: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating manifest: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runAnnotate(a *app, framePath string, o annotateOptions) error {
	fs := afero.NewOsFs()
	frame, err := annotate.LoadFrame(fs, framePath)
	if err != nil {
		return err
	}

	width, height := o.width, o.height
	if width <= 0 {
		width = frame.Width
	}
	if height <= 0 {
		height = frame.Height
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image size unknown: pass --width and --height")
	}

	d := annotate.NewDeriver(width, height, o.category)
	if o.minBox > 0 {
		d.MinBoxSize = o.minBox
	}
	d.Log = a.log

	dir := o.labels
	if dir == "" {
		dir = filepath.Join(a.settings.OutputDir, "labels")
	}
	annotator := &annotate.Annotator{
		Deriver: d,
		Writer:  &annotate.Writer{Fs: fs, Dir: dir, Log: a.log},
	}
	n, err := annotator.WriteAnnotations(o.index, frame.Segmaps, frame.AttributeMap)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d annotations\n", filepath.Join(dir, annotate.LabelName(o.index)), n)
	return nil
}

func runPreview(a *app, projectPath string, index int, out string) error {
	siteSpec, err := spec.LoadProject(projectPath)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}
	res, err := a.generate(siteSpec, index, a.settings.BaseSeed())
	if err != nil {
		return err
	}
	view := scene2d.Assemble2D(res.Site, res.Layout, res.Props.Props())
	if err := scene2d.RenderPNG(view, out); err != nil {
		return err
	}
	a.log.Info().Str("path", out).Int("piles", view.Metadata.PileCount).Msg("preview written")
	return nil
}

func runTextures(fs afero.Fs, root string) error {
	if root == "" {
		return fmt.Errorf("no asset directory given and assets.path is unset")
	}
	lib, err := texture.DiscoverAll(fs, root)
	if err != nil {
		return err
	}
	printTextureLibrary(os.Stdout, lib)
	return nil
}
