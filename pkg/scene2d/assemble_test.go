package scene2d

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/LeoAKALiu/BlenderProc/pkg/layout"
	"github.com/LeoAKALiu/BlenderProc/pkg/spec"
	"github.com/LeoAKALiu/BlenderProc/pkg/story"
	"github.com/LeoAKALiu/BlenderProc/pkg/terrain"
)

func testScene(t *testing.T) (*spec.SiteSpec, *layout.Layout, []story.Prop) {
	t.Helper()
	s := spec.Default()
	s.Layout.NumGroups = 6
	s.Story.MaterialBags = 4
	s.Story.Machinery = 2

	cfg, err := layout.ConfigFromSpec(s)
	if err != nil {
		t.Fatalf("ConfigFromSpec: %v", err)
	}
	rng := rand.New(rand.NewSource(5))
	h := terrain.DefaultTerraced
	l, _, err := layout.LayoutPiles(rng, h, cfg)
	if err != nil {
		t.Fatalf("LayoutPiles: %v", err)
	}
	sc, err := story.Plan(rng, h, l.Piles, s.Story, s.Site.AreaSize)
	if err != nil {
		t.Fatalf("story.Plan: %v", err)
	}
	return s, l, sc.Props()
}

func TestAssemble2DMetadata(t *testing.T) {
	s, l, props := testScene(t)
	v := Assemble2D(s, l, props)

	if v.Metadata.SiteName != s.Site.Name {
		t.Errorf("site name = %q", v.Metadata.SiteName)
	}
	if v.Metadata.PileCount != len(l.Piles) || v.Metadata.GroupCount != len(l.Groups) {
		t.Errorf("counts = %d piles / %d groups, want %d / %d",
			v.Metadata.PileCount, v.Metadata.GroupCount, len(l.Piles), len(l.Groups))
	}
	if v.Metadata.GeneratedAt == "" {
		t.Error("generated_at is empty")
	}
}

func TestAssemble2DBoundary(t *testing.T) {
	s, l, _ := testScene(t)
	v := Assemble2D(s, l, nil)
	if len(v.Boundary) != 5 {
		t.Fatalf("expected closed square ring, got %d points", len(v.Boundary))
	}
	if v.Boundary[0] != v.Boundary[4] {
		t.Error("boundary ring is not closed")
	}
	if v.Boundary[2] != [2]float64{100, 100} {
		t.Errorf("unexpected corner %v", v.Boundary[2])
	}
}

func TestAssemble2DTypeCounts(t *testing.T) {
	s, l, _ := testScene(t)
	v := Assemble2D(s, l, nil)
	total := 0
	for _, pt := range layout.AllPileTypes {
		n, ok := v.TypeCounts[string(pt)]
		if !ok {
			t.Errorf("missing count for %s", pt)
		}
		total += n
	}
	if total != len(l.Piles) {
		t.Errorf("type counts sum to %d, want %d", total, len(l.Piles))
	}
}

func TestAssemble2DGroups(t *testing.T) {
	s, l, props := testScene(t)
	v := Assemble2D(s, l, props)
	if len(v.Groups) != len(l.Groups) {
		t.Fatalf("expected %d groups, got %d", len(l.Groups), len(v.Groups))
	}
	for _, g := range v.Groups {
		if g.Spacing < s.Layout.MinSpacing || g.Spacing > s.Layout.MaxSpacing {
			t.Errorf("group %d spacing %.3f outside band", g.ID, g.Spacing)
		}
		if g.TopSpread < 0 {
			t.Errorf("group %d negative spread", g.ID)
		}
	}
	if len(v.Props) != len(props) {
		t.Errorf("expected %d props, got %d", len(props), len(v.Props))
	}
}

func TestRenderPNG(t *testing.T) {
	s, l, props := testScene(t)
	path := filepath.Join(t.TempDir(), "preview.png")
	if err := RenderPNG(Assemble2D(s, l, props), path); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("preview not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("preview is empty")
	}
}

func TestPlotEmptyScene(t *testing.T) {
	v := &Scene2D{Boundary: siteSquare(10)}
	if _, err := Plot(v); err != nil {
		t.Errorf("empty scene should still plot: %v", err)
	}
}
