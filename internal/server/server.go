// Package server is the local dev server for inspecting layouts and
// deriving labels interactively.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/LeoAKALiu/BlenderProc/internal/pipeline"
	"github.com/LeoAKALiu/BlenderProc/internal/store"
	"github.com/LeoAKALiu/BlenderProc/pkg/annotate"
	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/texture"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
)

// Options configures a Server. Store, Textures and LabelsFs are optional.
type Options struct {
	ProjectPath string
	Port        int
	BaseSeed    *int64
	OutputDir   string
	AssetsPath  string
	Store       *store.Store
	Textures    *texture.Cache
	LabelsFs    afero.Fs
	Log         zerolog.Logger
}

// Server is the local development server for one project directory.
type Server struct {
	cfg Options
	log  zerolog.Logger
}

// New creates a server for the given project directory.
func New(o Options) *Server {
	if o.LabelsFs == nil {
		o.LabelsFs = afero.NewOsFs()
	}
	return &Server{cfg: o, log: o.Log.With().Str("component", "server").Logger()}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/spec", s.handleSpec)
	mux.HandleFunc("GET /api/validation", s.handleValidation)
	mux.HandleFunc("GET /api/layout", s.handleLayout)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("POST /api/annotate", s.handleAnnotate)
	mux.HandleFunc("GET /", s.handleIndex)

	return mux
}

// Start launches the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info().Str("addr", "http://localhost"+addr).Str("project", s.cfg.ProjectPath).Msg("server starting")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>pilegen</title></head>
<body style="margin:0;background:#111;color:#fff;font-family:system-ui;display:flex;align-items:center;justify-content:center;height:100vh">
<div style="text-align:center">
<h1>pilegen</h1>
<p><a style="color:#8cf" href="/api/preview?index=0">Layout preview</a> &middot;
<a style="color:#8cf" href="/api/validation">Validation</a> &middot;
<a style="color:#8cf" href="/api/runs">Runs</a></p>
</div>
</body></html>`)
}

func (s *Server) handleSpec(w http.ResponseWriter, _ *http.Request) {
	site, err := spec.LoadProject(s.cfg.ProjectPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	site, err := spec.LoadProject(s.cfg.ProjectPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, validation.ValidateSchema(site))
}

// generate loads the site spec and runs the pipeline for the index query
// parameter. The returned spec carries the values drawn for that image.
// It writes the error response itself and returns nil then.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) (*spec.SiteSpec, *pipeline.Result) {
	index, err := queryIndex(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, nil
	}
	site, err := spec.LoadProject(s.cfg.ProjectPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return nil, nil
	}
	res, err := pipeline.Generate(site, pipeline.Options{
		Index:      index,
		BaseSeed:   s.cfg.BaseSeed,
		Textures:   s.cfg.Textures,
		AssetsPath: s.cfg.AssetsPath,
		Log:        s.log,
	})
	if errors.Is(err, pipeline.ErrInvalidSpec) {
		writeJSON(w, http.StatusUnprocessableEntity, res.Report)
		return nil, nil
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return nil, nil
	}
	return res.Site, res
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	site, res := s.generate(w, r)
	if res == nil {
		return
	}
	if s.cfg.Store != nil {
		run := &store.Run{
			SiteName:    site.Site.Name,
			SpecVersion: site.SpecVersion,
			Preset:      site.Site.GeologicalPreset,
			Seed:        res.Seed,
			ImageIndex:  res.Index,
		}
		if err := s.cfg.Store.SaveRun(run, res.Layout, res.Summary); err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("X-Run-ID", run.ID)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	site, res := s.generate(w, r)
	if res == nil {
		return
	}

	byType := map[layout.PileType][]opts.ScatterData{}
	for _, p := range res.Layout.Piles {
		byType[p.Type] = append(byType[p.Type], opts.ScatterData{Value: []interface{}{p.Position.X, p.Position.Y, p.TopZ}, Name: p.ID})
	}
	props := make([]opts.ScatterData, 0, len(res.Props.Debris)+len(res.Props.Distractors))
	for _, p := range res.Props.Props() {
		props = append(props, opts.ScatterData{Value: []interface{}{p.Position.X, p.Position.Y}, Name: p.ID})
	}

	pad := site.Site.AreaSize / 2
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pile Layout", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: site.Site.Name, Subtitle: fmt.Sprintf("image=%d seed=%d piles=%d groups=%d/%d", res.Index, res.Seed, len(res.Layout.Piles), len(res.Layout.Groups), res.Layout.RequestedGroups)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	for _, t := range layout.AllPileTypes {
		scatter.AddSeries(string(t), byType[t], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	}
	scatter.AddSeries("props", props, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to render preview: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no run store configured"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.cfg.Store.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

type annotateResponse struct {
	Index       int    `json:"image_index"`
	Annotations int    `json:"annotations"`
	Path        string `json:"path"`
}

// handleAnnotate derives labels for a frame export posted as the body.
// The image size falls back to the render size of the site spec.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	index, err := queryIndex(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var frame annotate.Frame
	if err := json.NewDecoder(r.Body).Decode(&frame); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parsing frame: %w", err))
		return
	}
	site, err := spec.LoadProject(s.cfg.ProjectPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	width, height := frame.Width, frame.Height
	if width <= 0 || height <= 0 {
		width, height = site.Render.Width, site.Render.Height
	}
	d := annotate.NewDeriver(width, height, site.Annotation.TargetCategory)
	d.MinBoxSize = site.Annotation.MinBoxSize
	d.Log = s.log

	dir := filepath.Join(s.cfg.OutputDir, site.Annotation.LabelsDir)
	a := &annotate.Annotator{
		Deriver: d,
		Writer:  &annotate.Writer{Fs: s.cfg.LabelsFs, Dir: dir, Log: s.log},
	}
	n, err := a.WriteAnnotations(index, frame.Segmaps, frame.AttributeMap)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, annotateResponse{Index: index, Annotations: n, Path: filepath.Join(dir, annotate.LabelName(index))})
}

func queryIndex(r *http.Request) (int, error) {
	v := r.URL.Query().Get("index")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid image index %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Error().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
