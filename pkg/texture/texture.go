// Package texture finds PBR texture folders in an asset library and picks
// a varied subset for each image.
package texture

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Kind is a texture family, matched by folder name.
type Kind string

const (
	Grass      Kind = "Grass"
	Ground     Kind = "Ground"
	TireTracks Kind = "Tire"
	Pathway    Kind = "Pathway"
	Concrete   Kind = "Concrete"
)

// TerrainKinds are the families a terrain material draws from.
var TerrainKinds = []Kind{Grass, Ground, TireTracks, Pathway}

// Patterns are the folder globs of a kind in both spellings, e.g.
// "*Concrete*_4K-JPG" and "*concrete*_4K-JPG".
func (k Kind) Patterns() []string {
	name := string(k)
	lower := strings.ToLower(name[:1]) + name[1:]
	return []string{"*" + name + "*_4K-JPG", "*" + lower + "*_4K-JPG"}
}

// Set is one PBR texture folder. Missing maps are empty strings.
type Set struct {
	Name         string `json:"name"`
	Dir          string `json:"dir"`
	Color        string `json:"color,omitempty"`
	Normal       string `json:"normal,omitempty"`
	Roughness    string `json:"roughness,omitempty"`
	Displacement string `json:"displacement,omitempty"`
	AO           string `json:"ao,omitempty"`
}

var mapSuffixes = []string{"_Color.jpg", "_NormalGL.jpg", "_Roughness.jpg", "_Displacement.jpg", "_AmbientOcclusion.jpg"}

// LoadSet reads the maps present in dir. It returns false when the folder
// holds none of them.
func LoadSet(fs afero.Fs, dir string) (Set, bool) {
	name := filepath.Base(dir)
	s := Set{Name: name, Dir: dir}
	targets := []*string{&s.Color, &s.Normal, &s.Roughness, &s.Displacement, &s.AO}
	found := false
	for i, suffix := range mapSuffixes {
		p := filepath.Join(dir, name+suffix)
		if ok, _ := afero.Exists(fs, p); ok {
			*targets[i] = p
			found = true
		}
	}
	return s, found
}

// Discover returns the sets of one kind under root, sorted by folder name.
func Discover(fs afero.Fs, root string, kind Kind) ([]Set, error) {
	seen := map[string]bool{}
	var matches []string
	for _, pattern := range kind.Patterns() {
		found, err := afero.Glob(fs, filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("globbing %s textures: %w", kind, err)
		}
		for _, m := range found {
			if !seen[m] {
				seen[m] = true
				matches = append(matches, m)
			}
		}
	}
	sort.Strings(matches)

	var sets []Set
	for _, m := range matches {
		if isDir, _ := afero.IsDir(fs, m); !isDir {
			continue
		}
		if s, ok := LoadSet(fs, m); ok {
			sets = append(sets, s)
		}
	}
	return sets, nil
}

// Library is every terrain texture set found under a root.
type Library map[Kind][]Set

// DiscoverAll scans root for every terrain kind.
func DiscoverAll(fs afero.Fs, root string) (Library, error) {
	if ok, _ := afero.DirExists(fs, root); !ok {
		return nil, fmt.Errorf("texture root %s does not exist", root)
	}
	lib := Library{}
	for _, k := range TerrainKinds {
		sets, err := Discover(fs, root, k)
		if err != nil {
			return nil, err
		}
		lib[k] = sets
	}
	return lib, nil
}

// Selection is the texture choice for one image. Concrete is the pile
// texture, the same first set for every image.
type Selection struct {
	Grass      *Set  `json:"grass,omitempty"`
	Ground     []Set `json:"ground,omitempty"`
	TireTracks *Set  `json:"tire_tracks,omitempty"`
	Pathway    *Set  `json:"pathway,omitempty"`
	Concrete   *Set  `json:"concrete,omitempty"`
}

// SelectRandom picks one grass set, one to three distinct ground sets, tire
// tracks seven times in ten and a pathway half the time. Kinds with no sets
// are skipped without consuming draws.
func (l Library) SelectRandom(rng *rand.Rand) Selection {
	var sel Selection
	if g := l[Grass]; len(g) > 0 {
		sel.Grass = &g[rng.Intn(len(g))]
	}
	if g := l[Ground]; len(g) > 0 {
		n := 1 + rng.Intn(min(3, len(g)))
		for _, i := range rng.Perm(len(g))[:n] {
			sel.Ground = append(sel.Ground, g[i])
		}
	}
	if t := l[TireTracks]; len(t) > 0 && rng.Float64() > 0.3 {
		sel.TireTracks = &t[rng.Intn(len(t))]
	}
	if p := l[Pathway]; len(p) > 0 && rng.Float64() > 0.5 {
		sel.Pathway = &p[rng.Intn(len(p))]
	}
	return sel
}

// Cache memoizes Discover per (root, kind). It is safe for concurrent use.
type Cache struct {
	fs afero.Fs

	mu      sync.Mutex
	entries map[cacheKey][]Set
}

type cacheKey struct {
	root string
	kind Kind
}

// NewCache returns an empty cache over fs.
func NewCache(fs afero.Fs) *Cache {
	return &Cache{fs: fs, entries: map[cacheKey][]Set{}}
}

// Get returns the sets of kind under root, scanning on first use.
func (c *Cache) Get(root string, kind Kind) ([]Set, error) {
	key := cacheKey{root: filepath.Clean(root), kind: kind}
	c.mu.Lock()
	defer c.mu.Unlock()
	if sets, ok := c.entries[key]; ok {
		return sets, nil
	}
	sets, err := Discover(c.fs, key.root, kind)
	if err != nil {
		return nil, err
	}
	c.entries[key] = sets
	return sets, nil
}

// First returns the first set of kind under root, used for pile concrete.
func (c *Cache) First(root string, kind Kind) (Set, bool, error) {
	sets, err := c.Get(root, kind)
	if err != nil || len(sets) == 0 {
		return Set{}, false, err
	}
	return sets[0], true, nil
}

// Invalidate drops every cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[cacheKey][]Set{}
}

// Len is the number of cached (root, kind) entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Library returns every terrain kind under root through the cache.
func (c *Cache) Library(root string) (Library, error) {
	lib := Library{}
	for _, k := range TerrainKinds {
		sets, err := c.Get(root, k)
		if err != nil {
			return nil, err
		}
		lib[k] = sets
	}
	return lib, nil
}
