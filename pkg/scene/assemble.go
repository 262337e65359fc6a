package scene

import (
	"fmt"
	"math"
	"time"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/story"
)

// PileCategory is the label category of every pile entity.
const PileCategory = 0

// Assemble converts a pile layout and its planned props into a scene graph.
// It fails with layout.ErrUnknownPileType when a pile carries a type the
// asset builder cannot construct.
func Assemble(s *spec.SiteSpec, l *layout.Layout, props []story.Prop) (*Graph, error) {
	g := NewGraph()

	if err := assemblePiles(l.Piles, g); err != nil {
		return nil, err
	}
	assembleProps(props, g)

	bounds := computeBounds(g.Entities)
	half := s.Site.AreaSize / 2
	bounds.Min.X, bounds.Min.Y = -half, -half
	bounds.Max.X, bounds.Max.Y = half, half

	g.Metadata = Metadata{
		SpecVersion: s.SpecVersion,
		SiteName:    s.Site.Name,
		Preset:      s.Site.GeologicalPreset,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		SiteBounds:  bounds,
	}
	return g, nil
}

func assemblePiles(piles []layout.PilePlan, g *Graph) error {
	for _, p := range piles {
		diameter, mat, err := pileShape(p)
		if err != nil {
			return err
		}
		addEntity(g, Entity{
			ID:         p.ID,
			Type:       EntityPile,
			Kind:       string(p.Type),
			Position:   p.Position.At(p.TerrainZ),
			Dimensions: geo.Vec3{X: diameter, Y: diameter, Z: p.TopZ - p.TerrainZ},
			Rotation:   eulerQuat(p.Tilt.X, p.Tilt.Y, p.Tilt.Z),
			Material:   mat,
			Group:      fmt.Sprintf("group-%02d", p.GroupID),
			CategoryID: PileCategory,
			Metadata: map[string]any{
				"params": p.Params,
				"slot":   p.Slot,
				"in_row": p.InRow,
				"top_z":  p.TopZ,
			},
		})
	}
	return nil
}

// pileShape returns the diameter in meters and the material of a pile.
func pileShape(p layout.PilePlan) (float64, string, error) {
	switch params := p.Params.(type) {
	case layout.PHCParams:
		return float64(params.Diameter) / 1000, "phc_concrete", nil
	case layout.SpiralSteelParams:
		return float64(params.PipeDiameter) / 1000, "galvanized_steel", nil
	case layout.CastInPlaceParams:
		return params.Diameter, "cast_concrete", nil
	}
	return 0, "", fmt.Errorf("pile %s: %w: %q", p.ID, layout.ErrUnknownPileType, string(p.Type))
}

var propMaterials = map[story.PropKind]string{
	story.Concrete:    "concrete_chunk",
	story.Rebar:       "rusty_rebar",
	story.Lime:        "lime_powder",
	story.MaterialBag: "white_bag",
	story.Machinery:   "machinery_yellow",
}

func assembleProps(props []story.Prop, g *Graph) {
	for _, p := range props {
		et := EntityDistractor
		meta := map[string]any{}
		switch p.Kind {
		case story.Concrete, story.Rebar, story.Lime:
			et = EntityDebris
			meta["near_pile"] = p.NearPile
		}
		pos := p.Position
		if et == EntityDistractor {
			pos.Z -= p.Size.Z / 2
		}
		addEntity(g, Entity{
			ID:         p.ID,
			Type:       et,
			Kind:       string(p.Kind),
			Position:   pos,
			Dimensions: p.Size,
			Rotation:   eulerQuat(p.Rotation.X, p.Rotation.Y, p.Rotation.Z),
			Material:   propMaterials[p.Kind],
			CategoryID: p.CategoryID,
			Metadata:   meta,
		})
	}
}

// addEntity appends an entity and updates all group indices.
func addEntity(g *Graph, e Entity) {
	g.Entities = append(g.Entities, e)
	id := e.ID

	if e.Group != "" {
		g.Groups.PileGroups[e.Group] = append(g.Groups.PileGroups[e.Group], id)
	}
	g.Groups.Kinds[e.Kind] = append(g.Groups.Kinds[e.Kind], id)
	g.Groups.EntityTypes[e.Type] = append(g.Groups.EntityTypes[e.Type], id)
}

// computeBounds calculates the AABB of all entities.
func computeBounds(entities []Entity) BoundingBox {
	if len(entities) == 0 {
		return BoundingBox{}
	}
	minV := geo.Vec3{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
	maxV := geo.Vec3{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64}

	for _, e := range entities {
		halfX := e.Dimensions.X / 2
		halfY := e.Dimensions.Y / 2

		minV.X = math.Min(minV.X, e.Position.X-halfX)
		maxV.X = math.Max(maxV.X, e.Position.X+halfX)
		minV.Y = math.Min(minV.Y, e.Position.Y-halfY)
		maxV.Y = math.Max(maxV.Y, e.Position.Y+halfY)
		minV.Z = math.Min(minV.Z, e.Position.Z)
		maxV.Z = math.Max(maxV.Z, e.Position.Z+e.Dimensions.Z)
	}
	return BoundingBox{Min: minV, Max: maxV}
}

// eulerQuat converts XYZ Euler angles (X applied first) to [x, y, z, w].
func eulerQuat(x, y, z float64) [4]float64 {
	cx, sx := math.Cos(x/2), math.Sin(x/2)
	cy, sy := math.Cos(y/2), math.Sin(y/2)
	cz, sz := math.Cos(z/2), math.Sin(z/2)
	return [4]float64{
		sx*cy*cz - cx*sy*sz,
		cx*sy*cz + sx*cy*sz,
		cx*cy*sz - sx*sy*cz,
		cx*cy*cz + sx*sy*sz,
	}
}
