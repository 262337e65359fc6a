package scene2d

import (
	"time"

	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/story"
)

// Assemble2D flattens a layout and its props into plan view. Elevation
// survives only as per-pile top heights and per-group spread.
func Assemble2D(s *spec.SiteSpec, l *layout.Layout, props []story.Prop) *Scene2D {
	return &Scene2D{
		Metadata:   assembleMetadata(s, l),
		Boundary:   siteSquare(s.Site.AreaSize),
		Groups:     assembleGroups(l.Groups),
		Piles:      assemblePiles(l.Piles),
		Props:      assembleProps(props),
		TypeCounts: countTypes(l.Piles),
	}
}

func assembleMetadata(s *spec.SiteSpec, l *layout.Layout) Metadata {
	return Metadata{
		SiteName:        s.Site.Name,
		AreaSize:        s.Site.AreaSize,
		Footprint:       s.Site.FootprintWKT,
		RequestedGroups: l.RequestedGroups,
		GroupCount:      len(l.Groups),
		PileCount:       len(l.Piles),
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

// siteSquare returns the closed ring of the sampling square.
func siteSquare(area float64) [][2]float64 {
	h := area / 2
	return [][2]float64{{-h, -h}, {h, -h}, {h, h}, {-h, h}, {-h, -h}}
}

func assembleGroups(groups []layout.GroupSummary) []Group2D {
	out := make([]Group2D, 0, len(groups))
	for _, g := range groups {
		out = append(out, Group2D{
			ID:        g.ID,
			Center:    [2]float64{g.Plan.Center.X, g.Plan.Center.Y},
			RowAngle:  g.Plan.RowAngle,
			Spacing:   g.Spacing,
			TargetTop: g.Plan.TargetTopZ,
			TopSpread: g.Plan.TopSpread(),
			Relaxed:   g.Plan.Relaxed,
		})
	}
	return out
}

func assemblePiles(piles []layout.PilePlan) []Pile2D {
	out := make([]Pile2D, 0, len(piles))
	for _, p := range piles {
		out = append(out, Pile2D{
			ID:       p.ID,
			Type:     string(p.Type),
			GroupID:  p.GroupID,
			Position: [2]float64{p.Position.X, p.Position.Y},
			TopZ:     p.TopZ,
			InRow:    p.InRow,
		})
	}
	return out
}

func assembleProps(props []story.Prop) []Prop2D {
	out := make([]Prop2D, 0, len(props))
	for _, p := range props {
		out = append(out, Prop2D{
			ID:       p.ID,
			Kind:     string(p.Kind),
			Position: [2]float64{p.Position.X, p.Position.Y},
			Size:     [2]float64{p.Size.X, p.Size.Y},
			Yaw:      p.Rotation.Z,
		})
	}
	return out
}

func countTypes(piles []layout.PilePlan) map[string]int {
	counts := make(map[string]int, len(layout.AllPileTypes))
	for _, t := range layout.AllPileTypes {
		counts[string(t)] = 0
	}
	for _, p := range piles {
		counts[string(p.Type)]++
	}
	return counts
}
