package annotate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// LabelName is the artifact file name for an image index.
func LabelName(index int) string {
	return fmt.Sprintf("%06d.txt", index)
}

// Writer stores one label file per image index under Dir, replacing any
// previous content.
type Writer struct {
	Fs  afero.Fs
	Dir string
	Log zerolog.Logger
}

// NewWriter returns a writer on the OS filesystem.
func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{Fs: afero.NewOsFs(), Dir: dir, Log: log}
}

// Write stores the annotations of one image and returns the file path.
// An empty slice produces an empty file.
func (w *Writer) Write(index int, anns []Annotation) (string, error) {
	if err := w.Fs.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating labels dir: %w", err)
	}
	var b strings.Builder
	for _, a := range anns {
		b.WriteString(a.String())
		b.WriteByte('\n')
	}
	path := filepath.Join(w.Dir, LabelName(index))
	if err := afero.WriteFile(w.Fs, path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Annotator ties ingestion, derivation and the label artifact together.
type Annotator struct {
	Deriver *Deriver
	Writer  *Writer
}

// WriteAnnotations derives and writes the labels of one frame. Missing,
// empty or malformed segmentation yields an empty label file; only storage
// failures are returned as errors.
func (a *Annotator) WriteAnnotations(index int, segmentation, attributes any) (int, error) {
	log := a.Writer.Log.With().Int("image", index).Logger()

	seg, ok := NormalizeSegmentation(segmentation)
	if !ok {
		log.Warn().Msg("segmentation missing or malformed, writing empty labels")
		_, err := a.Writer.Write(index, nil)
		return 0, err
	}

	anns := a.Deriver.Derive(seg, NormalizeAttributes(attributes))
	path, err := a.Writer.Write(index, anns)
	if err != nil {
		return 0, err
	}
	log.Info().Int("annotations", len(anns)).Str("path", path).Msg("labels written")
	return len(anns), nil
}
