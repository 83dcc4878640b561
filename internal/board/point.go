package board

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a cell coordinate on the ground plane.
type Point struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Add returns the point offset by q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Z + q.Z}
}

// Key returns the wire form "x,z" used as a cell map key.
func (p Point) Key() string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Z)
}

// String returns the point as "(x,z)".
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Z)
}

// ParseKey parses a "x,z" cell key back into a Point.
func ParseKey(s string) (Point, error) {
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return Point{}, fmt.Errorf("invalid cell key %q", s)
	}
	x, err := strconv.Atoi(s[:i])
	if err != nil {
		return Point{}, fmt.Errorf("invalid cell key %q: %v", s, err)
	}
	z, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return Point{}, fmt.Errorf("invalid cell key %q: %v", s, err)
	}
	return Point{x, z}, nil
}

// Neighbours8 lists the eight-neighbourhood offsets in fixed lexicographic
// (dx,dz) order. Search code iterates this order so path tie-breaks are
// deterministic.
var Neighbours8 = [8]Point{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// MaxCoord bounds coordinates accepted from clients. The board itself is
// unbounded; this only rejects nonsense input before it bloats the map.
const MaxCoord = 1 << 20
