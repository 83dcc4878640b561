package board

// Home zone dimensions: eight files across, two ranks deep.
const (
	HomeZoneWidth = 8
	HomeZoneDepth = 2
)

// backRankOrder is the piece layout of the back rank by file.
var backRankOrder = [HomeZoneWidth]ChessPieceType{
	Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook,
}

// HomeZone is a player's anchor region. Min and Max are the inclusive
// corners of the rectangle; Orientation is the direction the zone opens
// toward (the direction its pawns advance).
type HomeZone struct {
	PlayerID    string
	Min, Max    Point
	Orientation Orientation
}

// Contains reports whether p lies inside the zone rectangle.
func (h HomeZone) Contains(p Point) bool {
	return p.X >= h.Min.X && p.X <= h.Max.X && p.Z >= h.Min.Z && p.Z <= h.Max.Z
}

// Cells returns every cell of the zone rectangle.
func (h HomeZone) Cells() []Point {
	cells := make([]Point, 0, (h.Max.X-h.Min.X+1)*(h.Max.Z-h.Min.Z+1))
	for x := h.Min.X; x <= h.Max.X; x++ {
		for z := h.Min.Z; z <= h.Max.Z; z++ {
			cells = append(cells, Point{x, z})
		}
	}
	return cells
}

// RankCell maps (rank, file) to a board cell. Rank 0 is the back rank at
// the zone's closed edge, rank 1 the pawn rank; files run along the zone's
// long axis in increasing coordinate order.
func (h HomeZone) RankCell(rank, file int) Point {
	switch h.Orientation % 4 {
	case FacingPosZ:
		return Point{h.Min.X + file, h.Min.Z + rank}
	case FacingNegZ:
		return Point{h.Min.X + file, h.Max.Z - rank}
	case FacingPosX:
		return Point{h.Min.X + rank, h.Min.Z + file}
	default: // FacingNegX
		return Point{h.Max.X - rank, h.Min.Z + file}
	}
}

// BackEdgeDistance returns how far p has advanced from the zone's back
// rank along the facing axis. Pawn promotion triggers on this distance.
func (h HomeZone) BackEdgeDistance(p Point) int {
	switch h.Orientation % 4 {
	case FacingPosZ:
		return p.Z - h.Min.Z
	case FacingNegZ:
		return h.Max.Z - p.Z
	case FacingPosX:
		return p.X - h.Min.X
	default: // FacingNegX
		return h.Max.X - p.X
	}
}

// InitialPieces builds the standard sixteen-piece set for a zone: the back
// rank R,N,B,Q,K,B,N,R against the closed edge and eight pawns in front of
// it. Piece ids come from newID.
func InitialPieces(zone HomeZone, newID func() string) []*ChessPiece {
	pieces := make([]*ChessPiece, 0, 16)
	for file := 0; file < HomeZoneWidth; file++ {
		pieces = append(pieces, &ChessPiece{
			ID:          newID(),
			Type:        backRankOrder[file],
			PlayerID:    zone.PlayerID,
			Pos:         zone.RankCell(0, file),
			Orientation: zone.Orientation,
		})
		pieces = append(pieces, &ChessPiece{
			ID:          newID(),
			Type:        Pawn,
			PlayerID:    zone.PlayerID,
			Pos:         zone.RankCell(1, file),
			Orientation: zone.Orientation,
		})
	}
	return pieces
}
