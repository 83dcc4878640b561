package game

import (
	"sort"
	"time"

	"github.com/shaktris/shaktris/internal/board"
)

// Snapshot is the stable on-wire description of a game. Broadcast
// snapshots leave NextTetromino empty; snapshots requested by a player
// carry that player's upcoming piece.
type Snapshot struct {
	ID            string                    `json:"id"`
	Status        Status                    `json:"status"`
	Winner        *string                   `json:"winner,omitempty"`
	EndReason     string                    `json:"endReason,omitempty"`
	Board         BoardSnapshot             `json:"board"`
	ChessPieces   []PieceSnapshot           `json:"chessPieces"`
	HomeZones     map[string]ZoneSnapshot   `json:"homeZones"`
	Players       map[string]PlayerSnapshot `json:"players"`
	NextTetromino *board.TetrominoType      `json:"nextTetromino,omitempty"`
}

// BoardSnapshot is the sparse cell map keyed by "x,z" plus the tracked
// extremes.
type BoardSnapshot struct {
	Cells map[string][]board.Item `json:"cells"`
	MinX  int                     `json:"minX"`
	MaxX  int                     `json:"maxX"`
	MinZ  int                     `json:"minZ"`
	MaxZ  int                     `json:"maxZ"`
}

type PieceSnapshot struct {
	ID          string               `json:"id"`
	Type        board.ChessPieceType `json:"type"`
	PlayerID    string               `json:"playerId"`
	Position    board.Point          `json:"position"`
	Orientation board.Orientation    `json:"orientation"`
	HasMoved    bool                 `json:"hasMoved"`
}

type ZoneSnapshot struct {
	MinX        int               `json:"minX"`
	MinZ        int               `json:"minZ"`
	MaxX        int               `json:"maxX"`
	MaxZ        int               `json:"maxZ"`
	Orientation board.Orientation `json:"orientation"`
}

type TurnSnapshot struct {
	Phase         Phase     `json:"phase"`
	StartedAt     time.Time `json:"startedAt"`
	MinDurationMs int64     `json:"minDurationMs"`
}

type PlayerSnapshot struct {
	Name        string       `json:"name"`
	IsComputer  bool         `json:"isComputer"`
	IsActive    bool         `json:"isActive"`
	IsConnected bool         `json:"isConnected"`
	CurrentTurn TurnSnapshot `json:"currentTurn"`
}

func pieceSnapshot(pc *board.ChessPiece) PieceSnapshot {
	return PieceSnapshot{
		ID:          pc.ID,
		Type:        pc.Type,
		PlayerID:    pc.PlayerID,
		Position:    pc.Pos,
		Orientation: pc.Orientation,
		HasMoved:    pc.HasMoved,
	}
}

func zoneSnapshot(z board.HomeZone) ZoneSnapshot {
	return ZoneSnapshot{
		MinX:        z.Min.X,
		MinZ:        z.Min.Z,
		MaxX:        z.Max.X,
		MaxZ:        z.Max.Z,
		Orientation: z.Orientation,
	}
}

// buildSnapshot assembles the wire state. Runs on the game worker.
func (g *Game) buildSnapshot(viewerID string) *Snapshot {
	minX, maxX, minZ, maxZ, _ := g.pos.Board.Bounds()
	snap := &Snapshot{
		ID:        g.id,
		Status:    g.status,
		EndReason: g.endReason,
		Board: BoardSnapshot{
			Cells: make(map[string][]board.Item, g.pos.Board.Len()),
			MinX:  minX,
			MaxX:  maxX,
			MinZ:  minZ,
			MaxZ:  maxZ,
		},
		ChessPieces: make([]PieceSnapshot, 0, len(g.pos.Pieces)),
		HomeZones:   make(map[string]ZoneSnapshot, len(g.pos.Zones)),
		Players:     make(map[string]PlayerSnapshot, len(g.players)),
	}
	if g.winner != "" {
		w := g.winner
		snap.Winner = &w
	}

	g.pos.Board.Occupied(func(pt board.Point, items []board.Item) bool {
		cp := make([]board.Item, len(items))
		copy(cp, items)
		snap.Board.Cells[pt.Key()] = cp
		return true
	})

	for _, pc := range g.pos.Pieces {
		snap.ChessPieces = append(snap.ChessPieces, pieceSnapshot(pc))
	}
	sort.Slice(snap.ChessPieces, func(i, j int) bool {
		return snap.ChessPieces[i].ID < snap.ChessPieces[j].ID
	})

	for id, z := range g.pos.Zones {
		snap.HomeZones[id] = zoneSnapshot(z)
	}

	for id, pl := range g.players {
		snap.Players[id] = PlayerSnapshot{
			Name:        pl.Name,
			IsComputer:  pl.Kind.IsComputer(),
			IsActive:    pl.Active,
			IsConnected: pl.Connected,
			CurrentTurn: TurnSnapshot{
				Phase:         pl.Phase,
				StartedAt:     pl.PhaseStartedAt,
				MinDurationMs: pl.MinDuration.Milliseconds(),
			},
		}
	}

	if viewer := g.players[viewerID]; viewer != nil {
		next := viewer.Bag.Peek(0)
		if viewer.ActiveTetromino != nil {
			next = *viewer.ActiveTetromino
		}
		snap.NextTetromino = &next
	}
	return snap
}
