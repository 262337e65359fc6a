package scene

import "github.com/LeoAKALiu/BlenderProc/pkg/geo"

// EntityType identifies the kind of entity.
type EntityType string

const (
	EntityPile       EntityType = "pile"
	EntityDebris     EntityType = "debris"
	EntityDistractor EntityType = "distractor"
)

// BoundingBox defines an axis-aligned bounding box.
type BoundingBox struct {
	Min geo.Vec3 `json:"min"`
	Max geo.Vec3 `json:"max"`
}

// Entity is a single object handed to the asset builder. Position is the
// center of the base; Dimensions are full extents with Z up.
type Entity struct {
	ID         string         `json:"id"`
	Type       EntityType     `json:"type"`
	Kind       string         `json:"kind"`
	Position   geo.Vec3       `json:"position"`
	Dimensions geo.Vec3       `json:"dimensions"`
	Rotation   [4]float64     `json:"rotation"` // quaternion [x, y, z, w]
	Material   string         `json:"material"`
	Group      string         `json:"group,omitempty"`
	CategoryID int            `json:"category_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Graph is the complete asset manifest of one image.
type Graph struct {
	Metadata Metadata `json:"metadata"`
	Entities []Entity `json:"entities"`
	Groups   Groups   `json:"groups"`
}

// Metadata holds scene-level information.
type Metadata struct {
	SpecVersion string      `json:"spec_version"`
	SiteName    string      `json:"site_name"`
	Preset      string      `json:"geological_preset,omitempty"`
	GeneratedAt string      `json:"generated_at"`
	SiteBounds  BoundingBox `json:"site_bounds"`
}

// Groups organizes entity IDs by various axes for fast filtering.
type Groups struct {
	PileGroups  map[string][]string     `json:"pile_groups"`
	Kinds       map[string][]string     `json:"kinds"`
	EntityTypes map[EntityType][]string `json:"entity_types"`
}

// NewGraph creates an empty scene graph.
func NewGraph() *Graph {
	return &Graph{
		Entities: []Entity{},
		Groups: Groups{
			PileGroups:  make(map[string][]string),
			Kinds:       make(map[string][]string),
			EntityTypes: make(map[EntityType][]string),
		},
	}
}
