// Package terrain answers ground-height queries for the layout engine.
package terrain

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/LeoAKALiu/BlenderProc/pkg/geo"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
)

// HeightQuerier returns the ground height at a horizontal position.
type HeightQuerier interface {
	HeightAt(x, y float64) (float64, error)
}

// RayCaster intersects a ray with the terrain surface.
type RayCaster interface {
	CastRay(origin, dir geo.Vec3) (hit bool, location geo.Vec3, err error)
}

// HeightFunc adapts a plain function to HeightQuerier.
type HeightFunc func(x, y float64) (float64, error)

func (f HeightFunc) HeightAt(x, y float64) (float64, error) { return f(x, y) }

// Down is the cast direction for height queries.
var Down = geo.Vec3{X: 0, Y: 0, Z: -1}

// ErrUnsupportedRay is returned by casters that only handle vertical rays.
var ErrUnsupportedRay = errors.New("terrain: only downward vertical rays are supported")

// RayHeight casts a ray straight down from OriginZ and falls back to
// Fallback when the ray misses. Caster errors are returned unchanged.
type RayHeight struct {
	Caster   RayCaster
	OriginZ  float64
	Fallback HeightQuerier

	misses atomic.Int64
}

func (r *RayHeight) HeightAt(x, y float64) (float64, error) {
	hit, loc, err := r.Caster.CastRay(geo.Vec3{X: x, Y: y, Z: r.OriginZ}, Down)
	if err != nil {
		return 0, fmt.Errorf("ray cast at (%.3f, %.3f): %w", x, y, err)
	}
	if hit {
		return loc.Z, nil
	}
	r.misses.Add(1)
	return r.Fallback.HeightAt(x, y)
}

// Misses returns how many queries used the fallback.
func (r *RayHeight) Misses() int64 {
	return r.misses.Load()
}

// Terraced is the analytic stepped-terrain model used when no surface is hit.
// Levels caps the number of terraces; beyond the last band the ground stays
// on the top level. Zero means unbounded.
type Terraced struct {
	Band      float64
	Step      float64
	Variation float64
	Levels    int
}

// DefaultTerraced matches the reference terrain: 25 m bands, 2 m steps.
var DefaultTerraced = Terraced{Band: 25, Step: 2.0, Variation: 0.3}

func (t Terraced) HeightAt(x, y float64) (float64, error) {
	dist := math.Hypot(x, y)
	level := math.Floor(dist / t.Band)
	if t.Levels > 0 {
		level = math.Min(level, float64(t.Levels-1))
	}
	variation := t.Variation * math.Sin(dist*0.1) * math.Cos(x*0.05) * math.Sin(y*0.05)
	return level*t.Step + variation, nil
}

// Flat is a constant-height terrain.
type Flat struct {
	Z float64
}

func (f Flat) HeightAt(_, _ float64) (float64, error) {
	return f.Z, nil
}

// New builds the height service described by def for a square site of the
// given edge length. The seed only affects noise terrain.
func New(def spec.TerrainDef, areaSize float64, seed int64) (HeightQuerier, error) {
	terraced := Terraced{
		Band:      def.TerraceBand,
		Step:      def.TerraceStep,
		Variation: def.Variation,
		Levels:    def.NumTerraces,
	}
	switch def.Source {
	case "", spec.TerrainAnalytic:
		return terraced, nil
	case spec.TerrainFlat:
		return Flat{}, nil
	case spec.TerrainNoise:
		surface := NewNoiseSurface(seed, areaSize/2, terraced, def.NoiseScale, def.NoiseAmp)
		return &RayHeight{Caster: surface, OriginZ: def.RayOriginZ, Fallback: terraced}, nil
	default:
		return nil, fmt.Errorf("unknown terrain source %q", def.Source)
	}
}
