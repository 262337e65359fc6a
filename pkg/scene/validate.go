package scene

import (
	"fmt"

	"github.com/LeoAKALiu/BlenderProc/pkg/story"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
)

// ValidateGraph performs structural validation on a scene graph output.
// It checks entity integrity, group index consistency, label categories
// and bounds enclosure.
func ValidateGraph(g *Graph) *validation.Report {
	r := validation.NewReport()

	if g == nil {
		r.AddError(validation.Result{
			Level:   validation.LevelScene,
			Message: "scene graph is nil",
		})
		return r
	}

	validateEntityIDs(g, r)
	validateGroupIndices(g, r)
	validateGroupMembership(g, r)
	validateCategories(g, r)
	validateBoundsEnclosure(g, r)
	validateEntityDimensions(g, r)

	return r
}

func validateEntityIDs(g *Graph, r *validation.Report) {
	seen := make(map[string]int, len(g.Entities))

	for i, e := range g.Entities {
		if e.ID == "" {
			r.AddError(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("entity at index %d has empty ID", i),
				SpecPath:    fmt.Sprintf("entities[%d].id", i),
				ActualValue: "",
				Expected:    "non-empty string",
			})
			continue
		}
		if prev, exists := seen[e.ID]; exists {
			r.AddError(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("duplicate entity ID %q at indices %d and %d", e.ID, prev, i),
				SpecPath:    fmt.Sprintf("entities[%d].id", i),
				ActualValue: e.ID,
			})
		}
		seen[e.ID] = i
	}
}

func validateGroupIndices(g *Graph, r *validation.Report) {
	entityIDs := make(map[string]bool, len(g.Entities))
	for _, e := range g.Entities {
		entityIDs[e.ID] = true
	}

	checkGroup := func(groupType, groupName string, ids []string) {
		for _, id := range ids {
			if !entityIDs[id] {
				r.AddError(validation.Result{
					Level:       validation.LevelScene,
					Message:     fmt.Sprintf("group %s.%s references non-existent entity %q", groupType, groupName, id),
					SpecPath:    fmt.Sprintf("groups.%s.%s", groupType, groupName),
					ActualValue: id,
					Expected:    "existing entity ID",
				})
			}
		}
	}

	for name, ids := range g.Groups.PileGroups {
		checkGroup("pile_groups", name, ids)
	}
	for name, ids := range g.Groups.Kinds {
		checkGroup("kinds", name, ids)
	}
	for name, ids := range g.Groups.EntityTypes {
		checkGroup("entity_types", string(name), ids)
	}
}

func memberSets[K ~string](groups map[K][]string) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(groups))
	for k, ids := range groups {
		m := make(map[string]bool, len(ids))
		for _, id := range ids {
			m[id] = true
		}
		out[string(k)] = m
	}
	return out
}

func validateGroupMembership(g *Graph, r *validation.Report) {
	typeMembers := memberSets(g.Groups.EntityTypes)
	kindMembers := memberSets(g.Groups.Kinds)
	groupMembers := memberSets(g.Groups.PileGroups)

	check := func(e Entity, axis, value string, members map[string]map[string]bool) {
		m, ok := members[value]
		if !ok {
			r.AddError(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("entity %q has %s %q but no such group exists", e.ID, axis, value),
				SpecPath:    "groups." + axis,
				ActualValue: value,
			})
			return
		}
		if !m[e.ID] {
			r.AddError(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("entity %q has %s %q but is not in that group", e.ID, axis, value),
				SpecPath:    fmt.Sprintf("groups.%s.%s", axis, value),
				ActualValue: e.ID,
			})
		}
	}

	for _, e := range g.Entities {
		if e.ID == "" {
			continue
		}
		check(e, "entity_types", string(e.Type), typeMembers)
		check(e, "kinds", e.Kind, kindMembers)
		if e.Group != "" {
			check(e, "pile_groups", e.Group, groupMembers)
		}
	}
}

// validateCategories enforces that only piles are labeled.
func validateCategories(g *Graph, r *validation.Report) {
	for _, e := range g.Entities {
		want := story.BackgroundCategory
		if e.Type == EntityPile {
			want = PileCategory
		}
		if e.CategoryID != want {
			r.AddError(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("%s %q has category %d, want %d", e.Type, e.ID, e.CategoryID, want),
				SpecPath:    fmt.Sprintf("entities.%s.category_id", e.ID),
				ActualValue: e.CategoryID,
				Expected:    fmt.Sprintf("%d", want),
			})
		}
	}
}

func validateBoundsEnclosure(g *Graph, r *validation.Report) {
	bounds := g.Metadata.SiteBounds
	tolerance := 1.0

	for _, e := range g.Entities {
		halfX := e.Dimensions.X / 2
		halfY := e.Dimensions.Y / 2

		if e.Position.X-halfX < bounds.Min.X-tolerance || e.Position.X+halfX > bounds.Max.X+tolerance {
			r.AddWarning(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("entity %q X extent [%.1f, %.1f] outside site bounds [%.1f, %.1f]", e.ID, e.Position.X-halfX, e.Position.X+halfX, bounds.Min.X, bounds.Max.X),
				SpecPath:    "metadata.site_bounds",
				ActualValue: e.Position.X,
			})
			break
		}
		if e.Position.Y-halfY < bounds.Min.Y-tolerance || e.Position.Y+halfY > bounds.Max.Y+tolerance {
			r.AddWarning(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("entity %q Y extent [%.1f, %.1f] outside site bounds [%.1f, %.1f]", e.ID, e.Position.Y-halfY, e.Position.Y+halfY, bounds.Min.Y, bounds.Max.Y),
				SpecPath:    "metadata.site_bounds",
				ActualValue: e.Position.Y,
			})
			break
		}
	}
}

func validateEntityDimensions(g *Graph, r *validation.Report) {
	for _, e := range g.Entities {
		if e.Dimensions.X <= 0 || e.Dimensions.Y <= 0 || e.Dimensions.Z <= 0 {
			r.AddWarning(validation.Result{
				Level:       validation.LevelScene,
				Message:     fmt.Sprintf("entity %q has zero or negative dimension (%.2f, %.2f, %.2f)", e.ID, e.Dimensions.X, e.Dimensions.Y, e.Dimensions.Z),
				SpecPath:    fmt.Sprintf("entities.%s.dimensions", e.ID),
				ActualValue: fmt.Sprintf("%.2f x %.2f x %.2f", e.Dimensions.X, e.Dimensions.Y, e.Dimensions.Z),
				Expected:    "all dimensions > 0",
			})
		}
	}
}
