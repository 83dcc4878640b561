package board

import (
	"fmt"
	"sort"
)

var (
	straightDirs = [4]Point{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
	diagonalDirs = [4]Point{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	knightJumps  = [8]Point{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
)

// LegalMovesFor returns every destination the piece may move to. Standard
// chess geometry applies, with the board's own restrictions: pieces walk
// only on supported cells (tetromino or home items), sliding pieces stop
// at the first unsupported cell, and the destination may not hold an own
// piece. Knights jump; pawns advance along their home-zone orientation and
// capture diagonally forward. Results are sorted lexicographically.
func (p *Position) LegalMovesFor(pc *ChessPiece) []Point {
	var moves []Point
	add := func(pt Point) {
		moves = append(moves, pt)
	}

	switch pc.Type {
	case King:
		for _, d := range Neighbours8 {
			if pt := pc.Pos.Add(d); p.stepTarget(pt, pc.PlayerID) {
				add(pt)
			}
		}
	case Knight:
		for _, d := range knightJumps {
			if pt := pc.Pos.Add(d); p.stepTarget(pt, pc.PlayerID) {
				add(pt)
			}
		}
	case Rook:
		p.slide(pc, straightDirs[:], add)
	case Bishop:
		p.slide(pc, diagonalDirs[:], add)
	case Queen:
		p.slide(pc, straightDirs[:], add)
		p.slide(pc, diagonalDirs[:], add)
	case Pawn:
		fwd := pc.Orientation.Forward()
		ahead := pc.Pos.Add(fwd)
		if p.Board.HasSupport(ahead) {
			if _, occupied := p.Board.ChessAt(ahead); !occupied {
				add(ahead)
			}
		}
		perp := Point{fwd.Z, -fwd.X}
		for _, side := range [2]Point{perp, {-perp.X, -perp.Z}} {
			diag := ahead.Add(side)
			if !p.Board.HasSupport(diag) {
				continue
			}
			if it, ok := p.Board.ChessAt(diag); ok && it.PlayerID != pc.PlayerID {
				add(diag)
			}
		}
	}

	sort.Slice(moves, func(i, j int) bool {
		if moves[i].X != moves[j].X {
			return moves[i].X < moves[j].X
		}
		return moves[i].Z < moves[j].Z
	})
	return moves
}

// stepTarget reports whether a single-step destination is usable: the cell
// is supported and holds no own piece.
func (p *Position) stepTarget(pt Point, playerID string) bool {
	if !p.Board.HasSupport(pt) {
		return false
	}
	if it, ok := p.Board.ChessAt(pt); ok && it.PlayerID == playerID {
		return false
	}
	return true
}

// slide walks each direction until the path leaves supported cells or hits
// a piece. An opposing piece is a capturable final destination.
func (p *Position) slide(pc *ChessPiece, dirs []Point, add func(Point)) {
	for _, d := range dirs {
		for pt := pc.Pos.Add(d); ; pt = pt.Add(d) {
			if !p.Board.HasSupport(pt) {
				break
			}
			if it, ok := p.Board.ChessAt(pt); ok {
				if it.PlayerID != pc.PlayerID {
					add(pt)
				}
				break
			}
			add(pt)
		}
	}
}

// LegalMoves returns the legal destinations for the piece with the given
// id, or nil if the piece does not exist.
func (p *Position) LegalMoves(pieceID string) []Point {
	pc, ok := p.Pieces[pieceID]
	if !ok {
		return nil
	}
	return p.LegalMovesFor(pc)
}

// HasLegalChessMove reports whether any of playerID's pieces can move.
func (p *Position) HasLegalChessMove(playerID string) bool {
	for _, pc := range p.Pieces {
		if pc.PlayerID != playerID {
			continue
		}
		if len(p.LegalMovesFor(pc)) > 0 {
			return true
		}
	}
	return false
}

// MoveResult reports an applied chess move.
type MoveResult struct {
	PieceID  string
	From, To Point
	// Captured is a copy of the piece removed from the destination, if any.
	Captured *ChessPiece
	// Promoted is set when a pawn reached promotion distance and became a
	// queen.
	Promoted bool
	// KingCaptured ends the game; Winner is the moving player.
	KingCaptured bool
	Winner       string
}

// MoveChess validates and applies a chess move by moverID. On success the
// piece record and its board item move together; captures remove the
// victim, and a pawn reaching promotion distance becomes a queen. On a
// validation error the position is unchanged.
func (p *Position) MoveChess(pieceID string, target Point, moverID string) (*MoveResult, error) {
	pc, ok := p.Pieces[pieceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPiece, pieceID)
	}
	if pc.PlayerID != moverID {
		return nil, fmt.Errorf("%w: %s", ErrNotYourPiece, pieceID)
	}
	if !containsPoint(p.LegalMovesFor(pc), target) {
		return nil, fmt.Errorf("%w: %s %v to %v", ErrIllegalChessMove, pc.Type, pc.Pos, target)
	}

	res := &MoveResult{PieceID: pieceID, From: pc.Pos, To: target}

	if victim, ok := p.PieceAt(target); ok {
		cp := *victim
		res.Captured = &cp
		if victim.Type == King {
			res.KingCaptured = true
			res.Winner = moverID
		}
		p.RemovePiece(victim.ID)
	}

	p.Board.RemoveChess(pc.Pos, pc.ID)
	pc.Pos = target
	pc.HasMoved = true
	p.Board.Add(target, NewChessItem(pc.PlayerID, pc.ID))

	if pc.Type == Pawn {
		if zone, ok := p.Zones[pc.PlayerID]; ok && zone.BackEdgeDistance(target) >= p.Cfg.PromotionDistance {
			pc.Type = Queen
			res.Promoted = true
		}
	}
	return res, nil
}
