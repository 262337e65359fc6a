// Package annotate turns rendered instance segmentation into YOLO labels.
package annotate

import "math"

// Segmap is a dense row-major instance-id image. Zero is background.
type Segmap struct {
	Rows int
	Cols int
	IDs  []int
}

// At returns the instance id at (row, col).
func (s *Segmap) At(row, col int) int {
	return s.IDs[row*s.Cols+col]
}

// NormalizeSegmentation converts the shapes a renderer or a JSON decoder
// hands over into a Segmap. A stack of frames yields its first frame.
// It returns false for nil, empty, ragged or non-integer input.
func NormalizeSegmentation(v any) (*Segmap, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case *Segmap:
		if t == nil || t.Rows == 0 || t.Cols == 0 || len(t.IDs) != t.Rows*t.Cols {
			return nil, false
		}
		return t, true
	case Segmap:
		return NormalizeSegmentation(&t)
	case [][]int:
		return fromRows(t)
	case [][]int32:
		return fromRows(t)
	case [][]uint16:
		return fromRows(t)
	case [][]uint8:
		return fromRows(t)
	case [][][]int:
		if len(t) == 0 {
			return nil, false
		}
		return fromRows(t[0])
	case [][][]int32:
		if len(t) == 0 {
			return nil, false
		}
		return fromRows(t[0])
	case []any:
		return fromAny(t)
	default:
		return nil, false
	}
}

type integer interface {
	~int | ~int32 | ~uint16 | ~uint8
}

func fromRows[T integer](rows [][]T) (*Segmap, bool) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, false
	}
	cols := len(rows[0])
	s := &Segmap{Rows: len(rows), Cols: cols, IDs: make([]int, 0, len(rows)*cols)}
	for _, r := range rows {
		if len(r) != cols {
			return nil, false
		}
		for _, v := range r {
			s.IDs = append(s.IDs, int(v))
		}
	}
	return s, true
}

// fromAny handles decoded JSON: [][]number or [][][]number.
func fromAny(rows []any) (*Segmap, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	first, ok := rows[0].([]any)
	if !ok || len(first) == 0 {
		return nil, false
	}
	if _, nested := first[0].([]any); nested {
		return fromAny(first)
	}

	cols := len(first)
	s := &Segmap{Rows: len(rows), Cols: cols, IDs: make([]int, 0, len(rows)*cols)}
	for _, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) != cols {
			return nil, false
		}
		for _, cell := range row {
			id, ok := toInt(cell)
			if !ok {
				return nil, false
			}
			s.IDs = append(s.IDs, id)
		}
	}
	return s, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
