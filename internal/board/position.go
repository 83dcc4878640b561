package board

import (
	"fmt"
	"sort"
)

// Config carries the tunable rule parameters of a game.
type Config struct {
	// ClearWidth is the contiguous run length of tetromino-occupied cells
	// that clears a row or column.
	ClearWidth int
	// PromotionDistance is how far a pawn must advance from its zone's
	// back rank before it promotes to a queen.
	PromotionDistance int
}

// DefaultConfig returns the standard rule parameters.
func DefaultConfig() Config {
	return Config{ClearWidth: 8, PromotionDistance: 8}
}

// Position aggregates the full rule-engine state of one game: the sparse
// board, the live chess pieces, and the players' home zones. All methods
// assume single-threaded access; games serialize mutation through their
// worker.
type Position struct {
	Board  *Board
	Pieces map[string]*ChessPiece
	Zones  map[string]HomeZone
	Cfg    Config
}

// NewPosition returns an empty position with the given rule parameters.
func NewPosition(cfg Config) *Position {
	return &Position{
		Board:  NewBoard(),
		Pieces: make(map[string]*ChessPiece),
		Zones:  make(map[string]HomeZone),
		Cfg:    cfg,
	}
}

// AddZone registers a home zone and stamps its cells with home items.
func (p *Position) AddZone(z HomeZone) {
	p.Zones[z.PlayerID] = z
	for _, c := range z.Cells() {
		p.Board.Add(c, NewHomeItem(z.PlayerID))
	}
}

// AddPiece inserts a piece and its board item, keeping the two in sync.
func (p *Position) AddPiece(pc *ChessPiece) {
	p.Pieces[pc.ID] = pc
	p.Board.Add(pc.Pos, NewChessItem(pc.PlayerID, pc.ID))
}

// RemovePiece deletes a piece and its board item.
func (p *Position) RemovePiece(id string) {
	pc, ok := p.Pieces[id]
	if !ok {
		return
	}
	p.Board.RemoveChess(pc.Pos, id)
	delete(p.Pieces, id)
}

// Piece returns the piece with the given id.
func (p *Position) Piece(id string) (*ChessPiece, bool) {
	pc, ok := p.Pieces[id]
	return pc, ok
}

// PieceAt returns the piece standing on pt, if any.
func (p *Position) PieceAt(pt Point) (*ChessPiece, bool) {
	it, ok := p.Board.ChessAt(pt)
	if !ok {
		return nil, false
	}
	pc, ok := p.Pieces[it.PieceID]
	return pc, ok
}

// KingOf returns playerID's king.
func (p *Position) KingOf(playerID string) (*ChessPiece, bool) {
	for _, pc := range p.Pieces {
		if pc.PlayerID == playerID && pc.Type == King {
			return pc, true
		}
	}
	return nil, false
}

// PiecesOf returns playerID's pieces sorted by id.
func (p *Position) PiecesOf(playerID string) []*ChessPiece {
	var out []*ChessPiece
	for _, pc := range p.Pieces {
		if pc.PlayerID == playerID {
			out = append(out, pc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	c := &Position{
		Board:  p.Board.Clone(),
		Pieces: make(map[string]*ChessPiece, len(p.Pieces)),
		Zones:  make(map[string]HomeZone, len(p.Zones)),
		Cfg:    p.Cfg,
	}
	for id, pc := range p.Pieces {
		cp := *pc
		c.Pieces[id] = &cp
	}
	for id, z := range p.Zones {
		c.Zones[id] = z
	}
	return c
}

// Validate checks the piece/board sync invariants: every piece's position
// holds a matching chess item, every chess item refers to a live piece at
// that cell, and no cell holds two chess items.
func (p *Position) Validate() error {
	for id, pc := range p.Pieces {
		it, ok := p.Board.ChessAt(pc.Pos)
		if !ok {
			return fmt.Errorf("piece %s at %v has no board item", id, pc.Pos)
		}
		if it.PieceID != id {
			return fmt.Errorf("piece %s at %v shadowed by item %s", id, pc.Pos, it.PieceID)
		}
	}
	var err error
	p.Board.Occupied(func(pt Point, items []Item) bool {
		seen := 0
		for _, it := range items {
			if it.Kind != ChessPieceItem {
				continue
			}
			seen++
			if seen > 1 {
				err = fmt.Errorf("cell %v holds multiple chess items", pt)
				return false
			}
			pc, ok := p.Pieces[it.PieceID]
			if !ok {
				err = fmt.Errorf("cell %v holds item for dead piece %s", pt, it.PieceID)
				return false
			}
			if pc.Pos != pt {
				err = fmt.Errorf("piece %s thinks it is at %v but its item is at %v", it.PieceID, pc.Pos, pt)
				return false
			}
		}
		return true
	})
	return err
}
