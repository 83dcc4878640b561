package board

import (
	"encoding/json"
	"sort"
)

// Axis distinguishes cleared rows (constant z) from cleared columns
// (constant x).
type Axis uint8

const (
	RowAxis Axis = iota
	ColumnAxis
)

// String returns "row" or "column".
func (a Axis) String() string {
	if a == RowAxis {
		return "row"
	}
	return "column"
}

// MarshalJSON encodes the axis by name.
func (a Axis) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Line identifies one cleared row or column.
type Line struct {
	Axis  Axis `json:"axis"`
	Index int  `json:"index"`
}

// findClearedLines evaluates the clearing predicate against the current
// board: any contiguous run of at least clearWidth tetromino-occupied
// cells along a row or column clears, and the whole run goes. Rows and
// columns are judged on the same pre-clear board. Returns the cleared
// lines and the union of cells whose tetromino items are to be removed.
func findClearedLines(b *Board, clearWidth int) ([]Line, []Point) {
	if clearWidth <= 0 {
		return nil, nil
	}

	rows := make(map[int][]int) // z -> sorted xs with tetromino items
	cols := make(map[int][]int) // x -> sorted zs with tetromino items
	b.Occupied(func(p Point, items []Item) bool {
		for _, it := range items {
			if it.Kind == TetrominoItem {
				rows[p.Z] = append(rows[p.Z], p.X)
				cols[p.X] = append(cols[p.X], p.Z)
				break
			}
		}
		return true
	})

	var lines []Line
	cleared := make(map[Point]bool)

	for z, xs := range rows {
		runs := contiguousRuns(xs, clearWidth)
		if len(runs) > 0 {
			lines = append(lines, Line{RowAxis, z})
		}
		for _, run := range runs {
			for _, x := range run {
				cleared[Point{x, z}] = true
			}
		}
	}
	for x, zs := range cols {
		runs := contiguousRuns(zs, clearWidth)
		if len(runs) > 0 {
			lines = append(lines, Line{ColumnAxis, x})
		}
		for _, run := range runs {
			for _, z := range run {
				cleared[Point{x, z}] = true
			}
		}
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Axis != lines[j].Axis {
			return lines[i].Axis < lines[j].Axis
		}
		return lines[i].Index < lines[j].Index
	})

	cells := make([]Point, 0, len(cleared))
	for p := range cleared {
		cells = append(cells, p)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Z < cells[j].Z
	})
	return lines, cells
}

// contiguousRuns splits a coordinate list into maximal consecutive runs
// and returns those of at least minLen. The input is sorted in place.
func contiguousRuns(coords []int, minLen int) [][]int {
	if len(coords) == 0 {
		return nil
	}
	sort.Ints(coords)
	var runs [][]int
	start := 0
	for i := 1; i <= len(coords); i++ {
		if i == len(coords) || coords[i] != coords[i-1]+1 {
			if i-start >= minLen {
				runs = append(runs, coords[start:i])
			}
			start = i
		}
	}
	return runs
}
