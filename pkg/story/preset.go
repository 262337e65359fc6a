// Package story plans the environmental details around a pile layout:
// geological presets, construction debris near piles and distractor
// objects scattered over the site. Everything it produces is a negative
// sample and carries the background category.
package story

import (
	"fmt"
	"sort"

	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
)

// RGB is a linear color with components in [0, 1].
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Preset describes a regional geology and the construction practice that
// goes with it.
type Preset struct {
	Name              string               `json:"name"`
	Preferred         layout.PileType      `json:"preferred_pile_type"`
	Probabilities     layout.Probabilities `json:"pile_type_probabilities"`
	TerrainColor      RGB                  `json:"terrain_color"`
	TerrainRoughness  float64              `json:"terrain_roughness"`
	SandDeposits      bool                 `json:"sand_deposits"`
	VegetationDensity float64              `json:"vegetation_density"`
	TextureKeywords   []string             `json:"texture_keywords"`
}

var presets = map[string]Preset{
	spec.PresetLoess: {
		Name:              spec.PresetLoess,
		Preferred:         layout.SpiralSteel,
		Probabilities:     layout.Probabilities{PHC: 0.2, SpiralSteel: 0.7, CastInPlace: 0.1},
		TerrainColor:      RGB{0.7, 0.6, 0.5},
		TerrainRoughness:  0.8,
		SandDeposits:      true,
		VegetationDensity: 0.1,
		TextureKeywords:   []string{"loess", "dry", "sand", "yellow"},
	},
	spec.PresetHills: {
		Name:              spec.PresetHills,
		Preferred:         layout.PHC,
		Probabilities:     layout.Probabilities{PHC: 0.6, SpiralSteel: 0.1, CastInPlace: 0.3},
		TerrainColor:      RGB{0.6, 0.4, 0.3},
		TerrainRoughness:  0.7,
		VegetationDensity: 0.5,
		TextureKeywords:   []string{"red", "clay", "grass", "vegetation"},
	},
}

// LookupPreset returns a preset by name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown geological preset %q", name)
	}
	return p, nil
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overrides the pile type probabilities of cfg. An empty name
// leaves cfg untouched and returns a nil preset.
func ApplyPreset(cfg *layout.Config, name string) (*Preset, error) {
	if name == "" {
		return nil, nil
	}
	p, err := LookupPreset(name)
	if err != nil {
		return nil, err
	}
	cfg.Probabilities = p.Probabilities
	return &p, nil
}
