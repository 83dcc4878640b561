package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaktris/shaktris/internal/board"
)

// The request payload field names are a published contract; clients
// break silently if a rename slips in, so decode the documented shapes
// verbatim.
func TestRequestPayloadShapes(t *testing.T) {
	t.Run("join_game", func(t *testing.T) {
		var p joinPayload
		raw := `{"gameId":"g1","playerId":"alice","playerName":"Alice"}`
		require.NoError(t, json.Unmarshal([]byte(raw), &p))
		require.Equal(t, "g1", p.GameID)
		require.Equal(t, "alice", p.PlayerID)
		require.Equal(t, "Alice", p.Name)
	})

	t.Run("chess_move", func(t *testing.T) {
		var p chessMovePayload
		raw := `{"pieceId":"p1","targetPosition":{"x":3,"z":5}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &p))
		require.Equal(t, "p1", p.PieceID)
		require.Equal(t, board.Point{X: 3, Z: 5}, p.To)
	})

	t.Run("tetromino_placed", func(t *testing.T) {
		var p board.Tetromino
		raw := `{"type":"I","rotation":1,"position":{"x":2,"z":-4},"heightAboveBoard":0}`
		require.NoError(t, json.Unmarshal([]byte(raw), &p))
		require.Equal(t, board.I, p.Type)
		require.Equal(t, 1, p.Rotation)
		require.Equal(t, board.Point{X: 2, Z: -4}, p.Pos)
	})

	t.Run("request_spectate", func(t *testing.T) {
		var p spectatePayload
		require.NoError(t, json.Unmarshal([]byte(`{"targetPlayerId":"alice"}`), &p))
		require.Equal(t, "alice", p.TargetPlayerID)
	})
}
