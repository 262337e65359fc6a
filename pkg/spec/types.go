package spec

// SiteSpec is the top-level description of one synthetic pile-foundation site.
type SiteSpec struct {
	SpecVersion string        `yaml:"spec_version" json:"spec_version"`
	Site        SiteDef       `yaml:"site" json:"site"`
	Terrain     TerrainDef    `yaml:"terrain" json:"terrain"`
	Layout      LayoutDef     `yaml:"layout" json:"layout"`
	Tolerance   ToleranceDef  `yaml:"tolerance" json:"tolerance"`
	PileTypes   PileTypesDef  `yaml:"pile_types" json:"pile_types"`
	Story       StoryDef      `yaml:"storytelling" json:"storytelling"`
	Annotation  AnnotationDef `yaml:"annotation" json:"annotation"`
	Render      RenderDef     `yaml:"render" json:"render"`
	Randomize   RandomizeDef  `yaml:"randomize" json:"randomize"`
}

// SiteDef describes the square site and its optional boundary.
type SiteDef struct {
	Name             string  `yaml:"name" json:"name"`
	AreaSize         float64 `yaml:"area_size" json:"area_size"`
	FootprintWKT     string  `yaml:"footprint_wkt" json:"footprint_wkt,omitempty"`
	GeologicalPreset string  `yaml:"geological_preset" json:"geological_preset,omitempty"`
}

// Geological presets.
const (
	PresetLoess = "loess"
	PresetHills = "hills"
)

// Terrain sources.
const (
	TerrainAnalytic = "analytic"
	TerrainNoise    = "noise"
	TerrainFlat     = "flat"
)

type TerrainDef struct {
	Source      string  `yaml:"source" json:"source"`
	// NumTerraces caps the number of terrace levels; 0 leaves them unbounded.
	NumTerraces int     `yaml:"num_terraces" json:"num_terraces"`
	TerraceBand float64 `yaml:"terrace_band" json:"terrace_band"`
	TerraceStep float64 `yaml:"terrace_step" json:"terrace_step"`
	Variation   float64 `yaml:"variation" json:"variation"`
	RayOriginZ  float64 `yaml:"ray_origin_z" json:"ray_origin_z"`
	NoiseScale  float64 `yaml:"noise_scale" json:"noise_scale"`
	NoiseAmp    float64 `yaml:"noise_amplitude" json:"noise_amplitude"`
}

// Row alignment modes. See layout.RowAlignment.InRow.
const (
	RowAlignByRow     = "by_row"
	RowAlignReference = "reference"
)

// Group relaxation modes. See layout.Relaxation.
const (
	RelaxPerSlot = "per_slot"
	RelaxMinMax  = "min_max"
)

type LayoutDef struct {
	NumGroups         int     `yaml:"num_groups" json:"num_groups"`
	PilesPerGroup     int     `yaml:"piles_per_group" json:"piles_per_group"`
	MinGroupDistance  float64 `yaml:"min_group_distance" json:"min_group_distance"`
	MaxAttempts       int     `yaml:"max_attempts" json:"max_attempts"`
	RowPitch          float64 `yaml:"row_pitch" json:"row_pitch"`
	MinSpacing        float64 `yaml:"min_spacing" json:"min_spacing"`
	MaxSpacing        float64 `yaml:"max_spacing" json:"max_spacing"`
	ComponentHeight   float64 `yaml:"component_height" json:"component_height"`
	SlopeRadius       float64 `yaml:"slope_sample_radius" json:"slope_sample_radius"`
	VerticalTolerance float64 `yaml:"vertical_tolerance" json:"vertical_tolerance"`
	ExposedMin        float64 `yaml:"exposed_min" json:"exposed_min"`
	ExposedMax        float64 `yaml:"exposed_max" json:"exposed_max"`
	RowAlignment      string  `yaml:"row_alignment" json:"row_alignment"`
	Relaxation        string  `yaml:"relaxation" json:"relaxation"`
}

type ToleranceDef struct {
	RowJitter         float64 `yaml:"row_jitter" json:"row_jitter"`
	FreeJitter        float64 `yaml:"free_jitter" json:"free_jitter"`
	VerticalDeviation float64 `yaml:"vertical_deviation" json:"vertical_deviation"`
}

// PileTypesDef holds the selection probabilities and asset location.
// Probabilities are keyed by canonical pile type name.
type PileTypesDef struct {
	Probabilities map[string]float64 `yaml:"probabilities" json:"probabilities"`
	AssetPath     string             `yaml:"asset_path" json:"asset_path"`
}

type StoryDef struct {
	DebrisProbability float64 `yaml:"debris_probability" json:"debris_probability"`
	DebrisRadius      float64 `yaml:"debris_radius" json:"debris_radius"`
	MaterialBags      int     `yaml:"material_bags" json:"material_bags"`
	Machinery         int     `yaml:"machinery" json:"machinery"`
}

type AnnotationDef struct {
	TargetCategory int     `yaml:"target_category" json:"target_category"`
	MinBoxSize     float64 `yaml:"min_box_size" json:"min_box_size"`
	LabelsDir      string  `yaml:"labels_dir" json:"labels_dir"`
}

type RenderDef struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// RandomizeDef holds optional inclusive [min, max] ranges. Each set range
// replaces the matching fixed value with a fresh draw for every image.
type RandomizeDef struct {
	AreaSize     []float64 `yaml:"area_size" json:"area_size,omitempty"`
	NumTerraces  []int     `yaml:"num_terraces" json:"num_terraces,omitempty"`
	TerraceStep  []float64 `yaml:"terrace_step" json:"terrace_step,omitempty"`
	MaterialBags []int     `yaml:"material_bags" json:"material_bags,omitempty"`
	Machinery    []int     `yaml:"machinery" json:"machinery,omitempty"`
}

// Empty reports whether no range is set.
func (r RandomizeDef) Empty() bool {
	return r.AreaSize == nil && r.NumTerraces == nil && r.TerraceStep == nil &&
		r.MaterialBags == nil && r.Machinery == nil
}
