package board

import (
	"encoding/json"
	"fmt"
	"time"
)

// ItemKind discriminates the variants a cell can hold.
type ItemKind uint8

const (
	TetrominoItem ItemKind = iota
	ChessPieceItem
	HomeZoneItem
)

// String returns the wire name of the kind.
func (k ItemKind) String() string {
	switch k {
	case TetrominoItem:
		return "tetromino"
	case ChessPieceItem:
		return "chess"
	case HomeZoneItem:
		return "home"
	default:
		return "unknown"
	}
}

// Item is one entry in a cell's item list. Exactly one variant is active,
// selected by Kind; the other fields are zero. A cell may hold several
// items at once (a chess piece standing on a tetromino cell inside a home
// zone holds all three kinds).
type Item struct {
	Kind     ItemKind
	PlayerID string

	// Tetromino items.
	PieceType TetrominoType
	PlacedAt  time.Time

	// Chess items.
	PieceID string
}

// NewTetrominoItem returns a tetromino cell item owned by playerID.
func NewTetrominoItem(playerID string, t TetrominoType, at time.Time) Item {
	return Item{Kind: TetrominoItem, PlayerID: playerID, PieceType: t, PlacedAt: at}
}

// NewChessItem returns a chess cell item for the given piece.
func NewChessItem(playerID, pieceID string) Item {
	return Item{Kind: ChessPieceItem, PlayerID: playerID, PieceID: pieceID}
}

// NewHomeItem returns a home-zone marker item for playerID.
func NewHomeItem(playerID string) Item {
	return Item{Kind: HomeZoneItem, PlayerID: playerID}
}

// itemWire is the JSON shape of an Item. Only the active variant's
// fields are present.
type itemWire struct {
	Kind     string         `json:"kind"`
	PlayerID string         `json:"playerId"`
	Type     *TetrominoType `json:"type,omitempty"`
	PlacedAt *time.Time     `json:"placedAt,omitempty"`
	PieceID  string         `json:"pieceId,omitempty"`
}

// MarshalJSON encodes the item as a kind-tagged object.
func (it Item) MarshalJSON() ([]byte, error) {
	w := itemWire{Kind: it.Kind.String(), PlayerID: it.PlayerID}
	switch it.Kind {
	case TetrominoItem:
		t := it.PieceType
		at := it.PlacedAt
		w.Type = &t
		w.PlacedAt = &at
	case ChessPieceItem:
		w.PieceID = it.PieceID
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a kind-tagged item object.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Item{PlayerID: w.PlayerID}
	switch w.Kind {
	case "tetromino":
		out.Kind = TetrominoItem
		if w.Type != nil {
			out.PieceType = *w.Type
		}
		if w.PlacedAt != nil {
			out.PlacedAt = *w.PlacedAt
		}
	case "chess":
		out.Kind = ChessPieceItem
		out.PieceID = w.PieceID
	case "home":
		out.Kind = HomeZoneItem
	default:
		return fmt.Errorf("unknown item kind %q", w.Kind)
	}
	*it = out
	return nil
}
