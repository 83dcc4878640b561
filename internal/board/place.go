package board

import (
	"fmt"
	"sort"
	"time"
)

// PlaceResult reports everything a placement changed: the cells the piece
// landed on, cleared lines, and the fallout of the island re-check.
type PlaceResult struct {
	Cells []Point
	// Lines and ClearedCells describe row/column clearing.
	Lines        []Line
	ClearedCells []Point
	// FallenCells are cells whose tetromino items were severed from their
	// king and removed. DestroyedPieces stood on fallen cells with nothing
	// left beneath them; KingsLost lists owners of destroyed kings.
	FallenCells     []Point
	DestroyedPieces []ChessPiece
	KingsLost       []string
}

// CanPlace validates a placement without mutating the position. The piece
// must sit on the board plane, must not land on chess items or another
// player's tetromino items, must touch existing occupancy, and the
// augmented board must keep an eight-connected path from the piece back to
// the placing player's king.
func (p *Position) CanPlace(t Tetromino, playerID string) error {
	if t.HeightAboveBoard != 0 {
		return fmt.Errorf("%w: piece is at height %d", ErrOutOfBounds, t.HeightAboveBoard)
	}
	if t.Pos.X < -MaxCoord || t.Pos.X > MaxCoord || t.Pos.Z < -MaxCoord || t.Pos.Z > MaxCoord {
		return fmt.Errorf("%w: position %v", ErrOutOfBounds, t.Pos)
	}

	cells := t.Cells()
	inPiece := make(map[Point]bool, len(cells))
	for _, c := range cells {
		inPiece[c] = true
	}

	for _, c := range cells {
		if _, ok := p.Board.ChessAt(c); ok {
			return fmt.Errorf("%w: chess piece at %v", ErrCollision, c)
		}
		for _, it := range p.Board.Get(c) {
			if it.Kind == TetrominoItem && it.PlayerID != playerID {
				return fmt.Errorf("%w: opposing block at %v", ErrCollision, c)
			}
		}
	}

	if p.Board.Len() > 0 {
		adjacent := false
		for _, c := range cells {
			for _, d := range Neighbours8 {
				n := c.Add(d)
				if !inPiece[n] && len(p.Board.Get(n)) > 0 {
					adjacent = true
					break
				}
			}
			if adjacent {
				break
			}
		}
		if !adjacent {
			return ErrNotAdjacent
		}
	}

	sim := p.Clone()
	for _, c := range cells {
		sim.Board.Add(c, NewTetrominoItem(playerID, t.Type, time.Time{}))
	}
	for _, c := range cells {
		if _, ok := sim.PathToKing(c, playerID); ok {
			return nil
		}
	}
	return ErrNoPathToKing
}

// Place validates and applies a placement: the piece's cells gain
// tetromino items, full lines clear, and every player's blocks are
// re-checked for connectivity to their king. Severed blocks are removed;
// chess pieces left standing on nothing fall with them. On a validation
// error the position is unchanged.
func (p *Position) Place(t Tetromino, playerID string, now time.Time) (*PlaceResult, error) {
	if err := p.CanPlace(t, playerID); err != nil {
		return nil, err
	}

	res := &PlaceResult{Cells: t.Cells()}
	for _, c := range res.Cells {
		p.Board.Add(c, NewTetrominoItem(playerID, t.Type, now))
	}

	res.Lines, res.ClearedCells = findClearedLines(p.Board, p.Cfg.ClearWidth)
	for _, c := range res.ClearedCells {
		p.Board.RemoveTetrominoItems(c)
	}

	res.FallenCells, res.DestroyedPieces, res.KingsLost = p.removeSeveredIslands()
	return res, nil
}

// removeSeveredIslands drops every tetromino item that lost its
// eight-connected path to its owner's king, for all players, and destroys
// chess pieces standing on dropped cells that retain no support. Removing
// a chess item can sever further blocks, so passes repeat until stable.
// A lost king stops the sweep; the game is over at that point.
func (p *Position) removeSeveredIslands() (fallen []Point, destroyed []ChessPiece, kingsLost []string) {
	players := make([]string, 0, len(p.Zones))
	for id := range p.Zones {
		players = append(players, id)
	}
	sort.Strings(players)

	for {
		removedAny := false
		for _, playerID := range players {
			king, ok := p.KingOf(playerID)
			if !ok {
				continue
			}
			for _, island := range p.Islands(playerID) {
				if containsPoint(island, king.Pos) {
					continue
				}
				for _, c := range island {
					if !p.Board.HasTetromino(c) {
						continue
					}
					if !tetrominoOwnedBy(p.Board.Get(c), playerID) {
						continue
					}
					p.Board.RemoveTetrominoItems(c)
					fallen = append(fallen, c)
					removedAny = true

					if pc, ok := p.PieceAt(c); ok && !p.Board.HasSupport(c) {
						destroyed = append(destroyed, *pc)
						if pc.Type == King {
							kingsLost = append(kingsLost, pc.PlayerID)
						}
						p.RemovePiece(pc.ID)
					}
				}
			}
		}
		if !removedAny || len(kingsLost) > 0 {
			return fallen, destroyed, kingsLost
		}
	}
}

func containsPoint(pts []Point, p Point) bool {
	for _, q := range pts {
		if q == p {
			return true
		}
	}
	return false
}

func tetrominoOwnedBy(items []Item, playerID string) bool {
	for _, it := range items {
		if it.Kind == TetrominoItem && it.PlayerID == playerID {
			return true
		}
	}
	return false
}
