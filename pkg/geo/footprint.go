package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Footprint is the buildable boundary of a site. A nil *Footprint accepts
// every point.
type Footprint struct {
	wkt  string
	geom geom.Geometry
}

// ParseFootprint parses a WKT polygon or multipolygon. An empty string yields
// a nil footprint.
func ParseFootprint(wkt string) (*Footprint, error) {
	if wkt == "" {
		return nil, nil
	}
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("parsing footprint WKT: %w", err)
	}
	if !g.IsPolygon() && !g.IsMultiPolygon() {
		return nil, fmt.Errorf("footprint must be a POLYGON or MULTIPOLYGON, got %s", g.Type())
	}
	if g.Area() <= 0 {
		return nil, fmt.Errorf("footprint has zero area")
	}
	return &Footprint{wkt: wkt, geom: g}, nil
}

// Contains reports whether p lies inside the footprint.
func (f *Footprint) Contains(p Point2D) bool {
	if f == nil {
		return true
	}
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY})
	if err != nil {
		return false
	}
	ok, err := geom.Contains(f.geom, pt.AsGeometry())
	if err != nil {
		return false
	}
	return ok
}

// Area returns the footprint area, or 0 for a nil footprint.
func (f *Footprint) Area() float64 {
	if f == nil {
		return 0
	}
	return f.geom.Area()
}

// String returns the source WKT.
func (f *Footprint) String() string {
	if f == nil {
		return ""
	}
	return f.wkt
}
