package board

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// plateau builds a 5x5 supported area over x,z in 0..4 with a hole at
// (1,2), an own pawn at (2,3) and an enemy pawn at (3,3). The subject
// piece goes at the centre.
func plateau(subject ChessPieceType) *Position {
	pos := NewPosition(DefaultConfig())
	for x := 0; x <= 4; x++ {
		for z := 0; z <= 4; z++ {
			if (Point{x, z}) == (Point{1, 2}) {
				continue
			}
			preload(pos, "alice", Point{x, z})
		}
	}
	pos.AddPiece(&ChessPiece{ID: "subject", Type: subject, PlayerID: "alice", Pos: Point{2, 2}})
	pos.AddPiece(&ChessPiece{ID: "own", Type: Pawn, PlayerID: "alice", Pos: Point{2, 3}})
	pos.AddPiece(&ChessPiece{ID: "enemy", Type: Pawn, PlayerID: "bob", Pos: Point{3, 3}})
	return pos
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// clearRay reports whether every cell strictly between from and to is
// supported and free of chess pieces.
func clearRay(pos *Position, from, to Point) bool {
	step := Point{sign(to.X - from.X), sign(to.Z - from.Z)}
	for cur := from.Add(step); cur != to; cur = cur.Add(step) {
		if !pos.Board.HasSupport(cur) {
			return false
		}
		if _, ok := pos.Board.ChessAt(cur); ok {
			return false
		}
	}
	return true
}

// referenceLegal is an independent statement of the movement rules, used
// to cross-check the generator.
func referenceLegal(pos *Position, pc *ChessPiece, to Point) bool {
	if to == pc.Pos || !pos.Board.HasSupport(to) {
		return false
	}
	if it, ok := pos.Board.ChessAt(to); ok && it.PlayerID == pc.PlayerID {
		return false
	}
	dx, dz := to.X-pc.Pos.X, to.Z-pc.Pos.Z
	switch pc.Type {
	case King:
		return abs(dx) <= 1 && abs(dz) <= 1
	case Knight:
		return (abs(dx) == 1 && abs(dz) == 2) || (abs(dx) == 2 && abs(dz) == 1)
	case Rook:
		return (dx == 0 || dz == 0) && clearRay(pos, pc.Pos, to)
	case Bishop:
		return abs(dx) == abs(dz) && clearRay(pos, pc.Pos, to)
	case Queen:
		return (dx == 0 || dz == 0 || abs(dx) == abs(dz)) && clearRay(pos, pc.Pos, to)
	}
	return false
}

func TestLegalMovesMatchReference(t *testing.T) {
	for _, typ := range []ChessPieceType{King, Queen, Rook, Bishop, Knight} {
		t.Run(typ.String(), func(t *testing.T) {
			pos := plateau(typ)
			pc, _ := pos.Piece("subject")

			var want []Point
			for x := -2; x <= 6; x++ {
				for z := -2; z <= 6; z++ {
					if to := (Point{x, z}); referenceLegal(pos, pc, to) {
						want = append(want, to)
					}
				}
			}
			if diff := cmp.Diff(want, pos.LegalMovesFor(pc)); diff != "" {
				t.Errorf("move list mismatch:\n%s", diff)
			}
		})
	}
}

func TestPawnMovesFollowOrientation(t *testing.T) {
	// A pawn facing +z at (2,2): forward is (2,3), captures are (1,3)
	// and (3,3).
	tests := []struct {
		name     string
		enemies  []Point
		expected []Point
	}{
		{
			name:     "open ground advances only",
			expected: []Point{{2, 3}},
		},
		{
			name:     "blocked straight ahead",
			enemies:  []Point{{2, 3}},
			expected: nil,
		},
		{
			name:     "captures diagonally forward",
			enemies:  []Point{{1, 3}, {3, 3}},
			expected: []Point{{1, 3}, {2, 3}, {3, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := NewPosition(DefaultConfig())
			for x := 0; x <= 4; x++ {
				for z := 0; z <= 4; z++ {
					preload(pos, "alice", Point{x, z})
				}
			}
			pos.AddPiece(&ChessPiece{ID: "p1", Type: Pawn, PlayerID: "alice", Pos: Point{2, 2}, Orientation: FacingPosZ})
			for i, e := range tt.enemies {
				pos.AddPiece(&ChessPiece{ID: string(rune('a' + i)), Type: Pawn, PlayerID: "bob", Pos: e})
			}

			pc, _ := pos.Piece("p1")
			if diff := cmp.Diff(tt.expected, pos.LegalMovesFor(pc)); diff != "" {
				t.Errorf("move list mismatch:\n%s", diff)
			}
		})
	}
}

func TestSlidingStopsAtGap(t *testing.T) {
	pos := NewPosition(DefaultConfig())
	// A row with a gap at (3,0). The far block at (4,0) is supported but
	// unreachable.
	preload(pos, "alice", Point{0, 0}, Point{1, 0}, Point{2, 0}, Point{4, 0})
	pos.AddPiece(&ChessPiece{ID: "r1", Type: Rook, PlayerID: "alice", Pos: Point{0, 0}})

	pc, _ := pos.Piece("r1")
	if diff := cmp.Diff([]Point{{1, 0}, {2, 0}}, pos.LegalMovesFor(pc)); diff != "" {
		t.Errorf("move list mismatch:\n%s", diff)
	}
}

func TestMoveChessValidation(t *testing.T) {
	setup := func() *Position {
		pos := NewPosition(DefaultConfig())
		preload(pos, "alice", Point{0, 0}, Point{1, 0}, Point{2, 0})
		pos.AddPiece(&ChessPiece{ID: "n1", Type: Knight, PlayerID: "alice", Pos: Point{0, 0}})
		pos.AddPiece(&ChessPiece{ID: "bp", Type: Pawn, PlayerID: "bob", Pos: Point{2, 0}})
		return pos
	}

	tests := []struct {
		name     string
		pieceID  string
		target   Point
		mover    string
		expected error
	}{
		{"unknown piece", "ghost", Point{1, 0}, "alice", ErrNoSuchPiece},
		{"opponent's piece", "bp", Point{1, 0}, "alice", ErrNotYourPiece},
		{"knight cannot sidestep", "n1", Point{1, 0}, "alice", ErrIllegalChessMove},
		{"unsupported destination", "n1", Point{1, 2}, "alice", ErrIllegalChessMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := setup()
			_, err := pos.MoveChess(tt.pieceID, tt.target, tt.mover)
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
			if pc, ok := pos.Piece("n1"); !ok || pc.Pos != (Point{0, 0}) {
				t.Error("failed move must not change the position")
			}
		})
	}
}

func TestMoveChessCapture(t *testing.T) {
	pos := NewPosition(DefaultConfig())
	preload(pos, "alice", Point{0, 0}, Point{2, 1})
	pos.AddPiece(&ChessPiece{ID: "n1", Type: Knight, PlayerID: "alice", Pos: Point{0, 0}})
	pos.AddPiece(&ChessPiece{ID: "bp", Type: Pawn, PlayerID: "bob", Pos: Point{2, 1}})

	res, err := pos.MoveChess("n1", Point{2, 1}, "alice")
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if res.Captured == nil || res.Captured.ID != "bp" {
		t.Fatalf("expected pawn captured, got %+v", res)
	}
	if res.KingCaptured {
		t.Error("pawn capture must not end the game")
	}
	if _, ok := pos.Piece("bp"); ok {
		t.Error("captured pawn still registered")
	}
	if pc, ok := pos.PieceAt(Point{2, 1}); !ok || pc.ID != "n1" {
		t.Error("knight did not take the square")
	}
	if pc, _ := pos.Piece("n1"); !pc.HasMoved {
		t.Error("expected HasMoved after a move")
	}
}

func TestMoveChessKingCaptureWins(t *testing.T) {
	pos := NewPosition(DefaultConfig())
	preload(pos, "alice", Point{0, 0}, Point{1, 0}, Point{2, 0}, Point{3, 0})
	pos.AddPiece(&ChessPiece{ID: "r1", Type: Rook, PlayerID: "alice", Pos: Point{0, 0}})
	pos.AddPiece(&ChessPiece{ID: "bk", Type: King, PlayerID: "bob", Pos: Point{3, 0}})

	res, err := pos.MoveChess("r1", Point{3, 0}, "alice")
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if !res.KingCaptured || res.Winner != "alice" {
		t.Fatalf("expected king capture win for alice, got %+v", res)
	}
	if _, ok := pos.KingOf("bob"); ok {
		t.Error("bob's king should be gone")
	}
}

func TestPawnPromotion(t *testing.T) {
	tests := []struct {
		name     string
		from, to Point
		promoted bool
	}{
		{"short of the line", Point{2, 6}, Point{2, 7}, false},
		{"reaches the line", Point{2, 7}, Point{2, 8}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := NewPosition(DefaultConfig())
			pos.AddZone(HomeZone{PlayerID: "alice", Min: Point{0, 0}, Max: Point{7, 1}, Orientation: FacingPosZ})
			preload(pos, "alice", tt.from, tt.to)
			pos.AddPiece(&ChessPiece{ID: "p1", Type: Pawn, PlayerID: "alice", Pos: tt.from, Orientation: FacingPosZ})

			res, err := pos.MoveChess("p1", tt.to, "alice")
			if err != nil {
				t.Fatalf("move failed: %v", err)
			}
			if res.Promoted != tt.promoted {
				t.Errorf("expected promoted=%v, got %v", tt.promoted, res.Promoted)
			}
			pc, _ := pos.Piece("p1")
			expected := Pawn
			if tt.promoted {
				expected = Queen
			}
			if pc.Type != expected {
				t.Errorf("expected piece type %v, got %v", expected, pc.Type)
			}
		})
	}
}

func TestHasLegalChessMove(t *testing.T) {
	pos := NewPosition(DefaultConfig())
	kingdom(pos, "alice", Point{0, 0})

	if pos.HasLegalChessMove("alice") {
		t.Error("a lone king on a one-cell island has nowhere to go")
	}
	preload(pos, "alice", Point{1, 0})
	if !pos.HasLegalChessMove("alice") {
		t.Error("expected a king step onto the new block")
	}
}
