package annotate

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// DefaultMinBoxSize drops boxes narrower or shorter than 0.5% of the image.
const DefaultMinBoxSize = 0.005

// Annotation is one YOLO label line. Spatial fields are normalized by the
// image size.
type Annotation struct {
	CategoryID int     `json:"category_id"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// String formats the label line without a trailing newline.
func (a Annotation) String() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", a.CategoryID, a.CenterX, a.CenterY, a.Width, a.Height)
}

// Box is a pixel-space bounding box with inclusive bounds.
type Box struct {
	MinRow, MinCol int
	MaxRow, MaxCol int
}

// Deriver converts one segmentation frame into annotations for a single
// target category.
type Deriver struct {
	ImageWidth     int
	ImageHeight    int
	TargetCategory int
	MinBoxSize     float64
	Log            zerolog.Logger
}

// NewDeriver returns a deriver with the default minimum box size and a
// silent logger.
func NewDeriver(width, height, target int) *Deriver {
	return &Deriver{
		ImageWidth:     width,
		ImageHeight:    height,
		TargetCategory: target,
		MinBoxSize:     DefaultMinBoxSize,
		Log:            zerolog.Nop(),
	}
}

// Boxes returns the bounding box of every nonzero instance id.
func Boxes(s *Segmap) map[int]Box {
	boxes := map[int]Box{}
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			id := s.At(r, c)
			if id == 0 {
				continue
			}
			b, ok := boxes[id]
			if !ok {
				boxes[id] = Box{MinRow: r, MinCol: c, MaxRow: r, MaxCol: c}
				continue
			}
			b.MinRow = min(b.MinRow, r)
			b.MinCol = min(b.MinCol, c)
			b.MaxRow = max(b.MaxRow, r)
			b.MaxCol = max(b.MaxCol, c)
			boxes[id] = b
		}
	}
	return boxes
}

// Derive returns annotations in ascending instance id order. Instances
// without an attribute record, with another category, or whose box is
// below MinBoxSize on either axis are skipped.
//
// Boxes use pixel-edge coordinates: a mask spanning columns [c0, c1]
// covers [c0, c1+1) in the image.
func (d *Deriver) Derive(s *Segmap, attrs AttributeTable) []Annotation {
	boxes := Boxes(s)
	ids := make([]int, 0, len(boxes))
	for id := range boxes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	w, h := float64(d.ImageWidth), float64(d.ImageHeight)
	var out []Annotation
	for _, id := range ids {
		attr, ok := attrs.Lookup(id)
		if !ok {
			d.Log.Debug().Int("instance", id).Msg("no attribute record, skipping")
			continue
		}
		if attr.CategoryID != d.TargetCategory {
			continue
		}
		b := boxes[id]
		a := Annotation{
			CategoryID: attr.CategoryID,
			CenterX:    float64(b.MinCol+b.MaxCol+1) / 2 / w,
			CenterY:    float64(b.MinRow+b.MaxRow+1) / 2 / h,
			Width:      float64(b.MaxCol+1-b.MinCol) / w,
			Height:     float64(b.MaxRow+1-b.MinRow) / h,
		}
		if a.Width < d.MinBoxSize || a.Height < d.MinBoxSize {
			d.Log.Debug().Int("instance", id).Float64("width", a.Width).Float64("height", a.Height).Msg("box below minimum size")
			continue
		}
		out = append(out, a)
	}
	return out
}
