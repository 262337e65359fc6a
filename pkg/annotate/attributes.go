package annotate

import (
	"sort"
	"strconv"
)

// BackgroundCategory marks objects that must never be labeled.
const BackgroundCategory = -1

// Renderers spell the instance id key two ways.
var idKeys = []string{"segmap_id", "idx"}

// Attribute is one instance record with a single canonical id.
type Attribute struct {
	InstanceID int    `json:"instance_id"`
	CategoryID int    `json:"category_id"`
	Name       string `json:"name,omitempty"`
}

// AttributeTable maps instance id to its record.
type AttributeTable map[int]Attribute

// Lookup returns the record of an instance, if registered.
func (t AttributeTable) Lookup(id int) (Attribute, bool) {
	a, ok := t[id]
	return a, ok
}

// NormalizeAttributes adapts renderer attribute output into a table. It
// accepts a list of records, a list of per-frame lists (first frame wins),
// or a map keyed by instance id. Records without a usable id are dropped;
// a missing category becomes BackgroundCategory.
func NormalizeAttributes(v any) AttributeTable {
	table := AttributeTable{}
	switch t := v.(type) {
	case []Attribute:
		for _, a := range t {
			table[a.InstanceID] = a
		}
	case []map[string]any:
		for _, rec := range t {
			addRecord(table, rec, 0, false)
		}
	case map[int]map[string]any:
		for id, rec := range t {
			addRecord(table, rec, id, true)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec, ok := t[k].(map[string]any)
			if !ok {
				continue
			}
			id, err := strconv.Atoi(k)
			addRecord(table, rec, id, err == nil)
		}
	case []any:
		if len(t) > 0 {
			if frame, ok := t[0].([]any); ok {
				return NormalizeAttributes(frame)
			}
		}
		for _, item := range t {
			if rec, ok := item.(map[string]any); ok {
				addRecord(table, rec, 0, false)
			}
		}
	}
	return table
}

// addRecord stores rec under its own id field, or under fallbackID when
// the record carries none and hasFallback is set.
func addRecord(table AttributeTable, rec map[string]any, fallbackID int, hasFallback bool) {
	id, ok := recordID(rec)
	if !ok {
		if !hasFallback {
			return
		}
		id = fallbackID
	}
	a := Attribute{InstanceID: id, CategoryID: BackgroundCategory}
	if c, ok := toInt(rec["category_id"]); ok {
		a.CategoryID = c
	}
	if name, ok := rec["name"].(string); ok {
		a.Name = name
	}
	table[id] = a
}

func recordID(rec map[string]any) (int, bool) {
	for _, k := range idKeys {
		if id, ok := toInt(rec[k]); ok && id != 0 {
			return id, true
		}
	}
	return 0, false
}
