package board

import (
	"encoding/json"
	"fmt"
)

// TetrominoType identifies one of the seven canonical shapes.
type TetrominoType uint8

const (
	I TetrominoType = iota
	J
	L
	O
	S
	T
	Z
)

// TetrominoTypeCount is the number of distinct shapes.
const TetrominoTypeCount = 7

// RotationCount is the number of rotation states per shape.
const RotationCount = 4

// TetrominoStartHeight is the height above the board plane at which a
// falling piece spawns. A placement is only accepted at height zero.
const TetrominoStartHeight = 10

// String returns the one-letter shape name.
func (t TetrominoType) String() string {
	if t >= TetrominoTypeCount {
		return "?"
	}
	return string("IJLOSTZ"[t])
}

// ParseTetrominoType parses a one-letter shape name.
func ParseTetrominoType(s string) (TetrominoType, error) {
	if len(s) == 1 {
		for i := 0; i < TetrominoTypeCount; i++ {
			if "IJLOSTZ"[i] == s[0] {
				return TetrominoType(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown tetromino type %q", s)
}

// MarshalJSON encodes the type as its letter name.
func (t TetrominoType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a letter name.
func (t *TetrominoType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTetrominoType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// shapes holds the filled-cell offsets of every (type, rotation) pair,
// anchored at the shape's minimum corner. Rotation advances clockwise;
// shapes whose silhouette repeats every half turn repeat their tables.
var shapes = [TetrominoTypeCount][RotationCount][]Point{
	I: {
		{{0, 0}, {0, 1}, {0, 2}, {0, 3}},
		{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
		{{0, 0}, {0, 1}, {0, 2}, {0, 3}},
		{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
	},
	J: {
		{{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {2, 0}, {2, 1}},
		{{1, 0}, {1, 1}, {0, 2}, {1, 2}},
	},
	L: {
		{{2, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{0, 0}, {0, 1}, {0, 2}, {1, 2}},
		{{0, 0}, {1, 0}, {2, 0}, {0, 1}},
		{{0, 0}, {1, 0}, {1, 1}, {1, 2}},
	},
	O: {
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	},
	S: {
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {0, 1}, {1, 1}, {1, 2}},
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{0, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	T: {
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{0, 0}, {0, 1}, {1, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {2, 0}, {1, 1}},
		{{1, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	Z: {
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {0, 1}, {1, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{1, 0}, {0, 1}, {1, 1}, {0, 2}},
	},
}

// Shape returns the filled-cell offsets for a (type, rotation) pair.
// The returned slice is shared; callers must not modify it.
func Shape(t TetrominoType, rotation int) []Point {
	return shapes[t][((rotation%RotationCount)+RotationCount)%RotationCount]
}

// Tetromino is a falling piece as submitted for placement.
type Tetromino struct {
	Type             TetrominoType `json:"type"`
	Rotation         int           `json:"rotation"`
	Pos              Point         `json:"position"`
	HeightAboveBoard int           `json:"heightAboveBoard"`
}

// Cells returns the board cells the piece covers at its position.
func (t Tetromino) Cells() []Point {
	offs := Shape(t.Type, t.Rotation)
	cells := make([]Point, len(offs))
	for i, o := range offs {
		cells[i] = t.Pos.Add(o)
	}
	return cells
}
