package annotate

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// Frame is a renderer export of one image: the segmentation layers and the
// instance attributes, kept in their decoded JSON shapes.
type Frame struct {
	Width        int `json:"width"`
	Height       int `json:"height"`
	Segmaps      any `json:"instance_segmaps"`
	AttributeMap any `json:"instance_attribute_maps"`
}

// LoadFrame decodes a frame export from path.
func LoadFrame(fs afero.Fs, path string) (*Frame, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing frame %s: %w", path, err)
	}
	return &f, nil
}
