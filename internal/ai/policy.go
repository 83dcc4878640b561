package ai

import (
	"sort"

	"lukechampine.com/frand"

	"github.com/shaktris/shaktris/internal/board"
	"github.com/shaktris/shaktris/internal/game"
)

// positionFromSnapshot rebuilds a rule-engine position from the wire
// state so the policy can validate candidate moves locally. Chess items
// are skipped while loading cells because AddPiece restamps them.
func positionFromSnapshot(snap *game.Snapshot) *board.Position {
	pos := board.NewPosition(board.DefaultConfig())
	for key, items := range snap.Board.Cells {
		pt, err := board.ParseKey(key)
		if err != nil {
			continue
		}
		for _, it := range items {
			if it.Kind != board.ChessPieceItem {
				pos.Board.Add(pt, it)
			}
		}
	}
	for _, pc := range snap.ChessPieces {
		pos.AddPiece(&board.ChessPiece{
			ID:          pc.ID,
			Type:        pc.Type,
			PlayerID:    pc.PlayerID,
			Pos:         pc.Position,
			Orientation: pc.Orientation,
			HasMoved:    pc.HasMoved,
		})
	}
	for pid, z := range snap.HomeZones {
		pos.Zones[pid] = board.HomeZone{
			PlayerID:    pid,
			Min:         board.Point{X: z.MinX, Z: z.MinZ},
			Max:         board.Point{X: z.MaxX, Z: z.MaxZ},
			Orientation: z.Orientation,
		}
	}
	return pos
}

// placementBudget caps validation calls per decision so a sprawling
// board cannot stall the scheduler tick.
const placementBudget = 512

func chebyshev(a, b board.Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// nearestEnemyKing returns the closest opposing king to pt.
func nearestEnemyKing(pos *board.Position, playerID string, pt board.Point) (board.Point, bool) {
	best := board.Point{}
	bestDist := -1
	for _, pc := range pos.Pieces {
		if pc.Type != board.King || pc.PlayerID == playerID {
			continue
		}
		if d := chebyshev(pt, pc.Pos); bestDist < 0 || d < bestDist {
			best, bestDist = pc.Pos, d
		}
	}
	return best, bestDist >= 0
}

// scorePlacement rates a legal candidate. Touching own cells counts per
// BuildSpeed, closing on the nearest opposing king per Aggressiveness,
// staying near the own king per KingProtection. Higher is better.
func scorePlacement(pos *board.Position, playerID string, tet board.Tetromino, pol Policy) float64 {
	cells := tet.Cells()
	inPiece := make(map[board.Point]bool, len(cells))
	for _, c := range cells {
		inPiece[c] = true
	}

	touching := 0
	for _, c := range cells {
		for _, d := range board.Neighbours8 {
			if n := c.Add(d); !inPiece[n] && pos.Board.HasPlayerItem(n, playerID) {
				touching++
			}
		}
	}
	score := pol.BuildSpeed * float64(touching)

	anchor := cells[0]
	if enemy, ok := nearestEnemyKing(pos, playerID, anchor); ok {
		score -= pol.Aggressiveness * float64(chebyshev(anchor, enemy))
	}
	if king, ok := pos.KingOf(playerID); ok {
		score -= pol.KingProtection * float64(chebyshev(anchor, king.Pos))
	}
	return score
}

// choosePlacement proposes a legal placement of t for playerID. Anchor
// positions around the player's existing cells are generated in sorted
// order, every legal candidate is scored against the policy, and the
// best wins; ties keep the earliest candidate, so a zero policy is fully
// deterministic. ExplorationRate instead picks a random legal candidate.
func choosePlacement(pos *board.Position, playerID string, t board.TetrominoType, pol Policy) (board.Tetromino, bool) {
	var own []board.Point
	pos.Board.Occupied(func(p board.Point, _ []board.Item) bool {
		if pos.Board.HasPlayerItem(p, playerID) {
			own = append(own, p)
		}
		return true
	})
	sort.Slice(own, func(i, j int) bool {
		if own[i].X != own[j].X {
			return own[i].X < own[j].X
		}
		return own[i].Z < own[j].Z
	})

	budget := placementBudget
	tried := make(map[board.Tetromino]bool)
	var legal []board.Tetromino
	var best board.Tetromino
	bestScore := 0.0
	for _, c := range own {
		for dx := -2; dx <= 2; dx++ {
			for dz := -2; dz <= 2; dz++ {
				anchor := c.Add(board.Point{X: dx, Z: dz})
				for rot := 0; rot < board.RotationCount; rot++ {
					tet := board.Tetromino{Type: t, Rotation: rot, Pos: anchor}
					if tried[tet] {
						continue
					}
					tried[tet] = true
					if budget--; budget < 0 {
						goto done
					}
					if pos.CanPlace(tet, playerID) != nil {
						continue
					}
					if score := scorePlacement(pos, playerID, tet, pol); len(legal) == 0 || score > bestScore {
						best, bestScore = tet, score
					}
					legal = append(legal, tet)
				}
			}
		}
	}
done:
	if len(legal) == 0 {
		return board.Tetromino{}, false
	}
	if pol.ExplorationRate > 0 && frand.Float64() < pol.ExplorationRate {
		return legal[frand.Intn(len(legal))], true
	}
	return best, true
}

// chessCandidate is one legal move with its policy score.
type chessCandidate struct {
	pieceID string
	to      board.Point
	score   float64
}

// chooseChessMove picks a chess move for playerID. Captures are worth
// their victim's value scaled up by Aggressiveness; Defensiveness pulls
// destinations toward the own king; KingProtection makes moving the king
// itself expensive. Candidates are generated in piece-id order and ties
// keep the earliest, so a zero policy is deterministic.
func chooseChessMove(pos *board.Position, playerID string, pol Policy) (pieceID string, to board.Point, ok bool) {
	king, hasKing := pos.KingOf(playerID)

	var candidates []chessCandidate
	for _, pc := range pos.PiecesOf(playerID) {
		for _, mv := range pos.LegalMovesFor(pc) {
			score := 0.0
			if victim, hit := pos.PieceAt(mv); hit && victim.PlayerID != playerID {
				score += float64(victim.Type.Value()) * (0.2 + pol.Aggressiveness)
			}
			if hasKing && pc.Type != board.King {
				score -= pol.Defensiveness * float64(chebyshev(mv, king.Pos))
			}
			if pc.Type == board.King {
				score -= pol.KingProtection * float64(board.Pawn.Value())
			}
			candidates = append(candidates, chessCandidate{pc.ID, mv, score})
		}
	}
	if len(candidates) == 0 {
		return "", board.Point{}, false
	}
	if pol.ExplorationRate > 0 && frand.Float64() < pol.ExplorationRate {
		c := candidates[frand.Intn(len(candidates))]
		return c.pieceID, c.to, true
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best.pieceID, best.to, true
}
