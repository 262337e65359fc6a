package scene2d

import (
	"fmt"
	"image/color"

	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var typeStyles = map[string]draw.GlyphStyle{
	string(layout.PHC):         {Color: color.RGBA{R: 120, G: 120, B: 120, A: 255}, Radius: vg.Points(2.5), Shape: draw.CircleGlyph{}},
	string(layout.SpiralSteel): {Color: color.RGBA{R: 30, G: 90, B: 200, A: 255}, Radius: vg.Points(2.5), Shape: draw.TriangleGlyph{}},
	string(layout.CastInPlace): {Color: color.RGBA{R: 200, G: 120, B: 40, A: 255}, Radius: vg.Points(2.5), Shape: draw.BoxGlyph{}},
}

var propStyle = draw.GlyphStyle{Color: color.RGBA{R: 200, G: 60, B: 60, A: 160}, Radius: vg.Points(1.5), Shape: draw.CrossGlyph{}}

// Plot builds a top-down plot of piles by type, props and the site square.
func Plot(v *Scene2D) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %d piles in %d groups", v.Metadata.SiteName, v.Metadata.PileCount, v.Metadata.GroupCount)
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	boundary := make(plotter.XYs, len(v.Boundary))
	for i, pt := range v.Boundary {
		boundary[i] = plotter.XY{X: pt[0], Y: pt[1]}
	}
	if len(boundary) > 1 {
		line, err := plotter.NewLine(boundary)
		if err != nil {
			return nil, fmt.Errorf("site boundary: %w", err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
	}

	for _, t := range layout.AllPileTypes {
		pts := make(plotter.XYs, 0, v.TypeCounts[string(t)])
		for _, pile := range v.Piles {
			if pile.Type == string(t) {
				pts = append(pts, plotter.XY{X: pile.Position[0], Y: pile.Position[1]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("%s piles: %w", t, err)
		}
		sc.GlyphStyle = typeStyles[string(t)]
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("%s (%d)", t, len(pts)), sc)
	}

	if len(v.Props) > 0 {
		pts := make(plotter.XYs, len(v.Props))
		for i, pr := range v.Props {
			pts[i] = plotter.XY{X: pr.Position[0], Y: pr.Position[1]}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("props: %w", err)
		}
		sc.GlyphStyle = propStyle
		p.Add(sc)
		p.Legend.Add("props", sc)
	}
	return p, nil
}

// RenderPNG writes the plot of v to path. The extension selects the format.
func RenderPNG(v *Scene2D, path string) error {
	p, err := Plot(v)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("saving preview: %w", err)
	}
	return nil
}
