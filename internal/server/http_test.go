package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaktris/shaktris/internal/ai"
	"github.com/shaktris/shaktris/internal/board"
	"github.com/shaktris/shaktris/internal/events"
	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/session"
	"github.com/shaktris/shaktris/internal/storage"
)

// newTestServer builds a full server over a temp-dir store. minTurn
// configures the pacing floor for every game it creates.
func newTestServer(t *testing.T, minTurn time.Duration) (*httptest.Server, *session.Coordinator) {
	t.Helper()
	logger := log.New(io.Discard)

	tmpDir, err := os.MkdirTemp("", "shaktris-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	store, err := storage.Open(filepath.Join(tmpDir, "db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bus := events.NewBus(events.DefaultConfig(), logger)
	coord := session.NewCoordinator(session.Config{
		Game: game.Config{MinTurnDuration: minTurn},
	}, bus, store, logger)
	t.Cleanup(coord.Shutdown)

	sched := ai.NewScheduler(coord, logger)
	t.Cleanup(sched.Stop)
	registry := ai.NewRegistry(store, logger)

	srv := New(Config{}, coord, sched, registry, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, coord
}

func postJSON(t *testing.T, url string, body any, out any) (int, *wireError) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusOK {
		var fail struct {
			Error *wireError `json:"error"`
		}
		require.NoError(t, json.Unmarshal(raw, &fail), "body: %s", raw)
		return resp.StatusCode, fail.Error
	}
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode, nil
}

func registerExternal(t *testing.T, baseURL string) registerResponse {
	t.Helper()
	var reg registerResponse
	status, _ := postJSON(t, baseURL+"/computer-players/register", registerRequest{Name: "crusher"}, &reg)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, reg.PlayerID)
	require.NotEmpty(t, reg.APIToken)
	return reg
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExternalMoveFlow(t *testing.T) {
	ts, coord := newTestServer(t, 0)
	reg := registerExternal(t, ts.URL)

	_, err := coord.CreateGame("m1")
	require.NoError(t, err)

	var added addComputerResponse
	status, _ := postJSON(t, ts.URL+"/games/m1/add-computer-player",
		addComputerRequest{APIToken: reg.APIToken}, &added)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, reg.PlayerID, added.PlayerID)

	var placed game.PlaceOutcome
	status, _ = postJSON(t, ts.URL+"/games/m1/computer-move", computerMoveRequest{
		APIToken: reg.APIToken,
		MoveType: "tetromino",
		MoveData: json.RawMessage(`{"type":"O","rotation":0,"position":{"x":4,"z":2}}`),
	}, &placed)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, placed.Cells, 4)
	assert.Equal(t, game.PhaseChess, placed.Phase)

	// A pawn on the front rank steps onto the block just placed.
	pieces := listPieces(t, ts.URL, "m1", reg.PlayerID)
	require.Len(t, pieces, 16)
	var pawnID string
	for _, pc := range pieces {
		if pc.Type == board.Pawn && pc.Position.X == 4 && pc.Position.Z == 1 {
			pawnID = pc.ID
		}
	}
	require.NotEmpty(t, pawnID, "expected a pawn at (4,1)")

	var moved game.MoveOutcome
	status, _ = postJSON(t, ts.URL+"/games/m1/computer-move", computerMoveRequest{
		APIToken: reg.APIToken,
		MoveType: "chess",
		MoveData: json.RawMessage(`{"pieceId":"` + pawnID + `","targetPosition":{"x":4,"z":2}}`),
	}, &moved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, game.PhaseTetris, moved.Phase)
}

func TestExternalMoveRateLimited(t *testing.T) {
	ts, coord := newTestServer(t, 5*time.Second)
	reg := registerExternal(t, ts.URL)

	_, err := coord.CreateGame("m1")
	require.NoError(t, err)
	status, _ := postJSON(t, ts.URL+"/games/m1/add-computer-player",
		addComputerRequest{APIToken: reg.APIToken}, nil)
	require.Equal(t, http.StatusOK, status)

	first := computerMoveRequest{
		APIToken: reg.APIToken,
		MoveType: "tetromino",
		MoveData: json.RawMessage(`{"type":"O","rotation":0,"position":{"x":4,"z":2}}`),
	}
	status, _ = postJSON(t, ts.URL+"/games/m1/computer-move", first, nil)
	require.Equal(t, http.StatusOK, status)

	second := first
	second.MoveData = json.RawMessage(`{"pieceId":"whatever","targetPosition":{"x":4,"z":2}}`)
	second.MoveType = "chess"
	status, werr := postJSON(t, ts.URL+"/games/m1/computer-move", second, nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	require.NotNil(t, werr)
	assert.Equal(t, codeTooSoon, werr.Code)
	assert.Greater(t, werr.RetryAfterMs, int64(0))
}

func TestExternalMoveAuth(t *testing.T) {
	ts, coord := newTestServer(t, 0)
	_, err := coord.CreateGame("m1")
	require.NoError(t, err)

	status, werr := postJSON(t, ts.URL+"/games/m1/computer-move", computerMoveRequest{
		APIToken: "bogus",
		MoveType: "tetromino",
		MoveData: json.RawMessage(`{}`),
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, werr)
	assert.Equal(t, codeInvalidAPIToken, werr.Code)

	reg := registerExternal(t, ts.URL)
	status, werr = postJSON(t, ts.URL+"/games/no-such-game/computer-move", computerMoveRequest{
		APIToken: reg.APIToken,
		MoveType: "tetromino",
		MoveData: json.RawMessage(`{}`),
	}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, werr)
	assert.Equal(t, codeGameNotFound, werr.Code)
}

func TestAddBuiltinComputer(t *testing.T) {
	ts, coord := newTestServer(t, 0)
	_, err := coord.CreateGame("m1")
	require.NoError(t, err)

	var added addComputerResponse
	status, _ := postJSON(t, ts.URL+"/games/m1/add-computer-player",
		addComputerRequest{Difficulty: "easy"}, &added)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, added.PlayerID)
	assert.Equal(t, "easy", added.Difficulty)

	g, ok := coord.GameOf(added.PlayerID)
	require.True(t, ok)
	assert.Equal(t, "m1", g.ID())

	status, werr := postJSON(t, ts.URL+"/games/m1/add-computer-player",
		addComputerRequest{Difficulty: "impossible"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, werr)
	assert.Equal(t, codeProtocol, werr.Code)
}

func TestAvailableTetrominos(t *testing.T) {
	ts, coord := newTestServer(t, 0)
	reg := registerExternal(t, ts.URL)
	_, err := coord.CreateGame("m1")
	require.NoError(t, err)
	status, _ := postJSON(t, ts.URL+"/games/m1/add-computer-player",
		addComputerRequest{APIToken: reg.APIToken}, nil)
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/games/m1/available-tetrominos?apiToken=" + reg.APIToken)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var draw game.TetrominoDraw
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&draw))
	assert.Less(t, uint8(draw.Current), uint8(7))
	assert.Less(t, uint8(draw.Next), uint8(7))
}

func listPieces(t *testing.T, baseURL, gameID, playerID string) []game.PieceSnapshot {
	t.Helper()
	resp, err := http.Get(baseURL + "/games/" + gameID + "/chess-pieces?playerId=" + playerID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out chessPiecesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.ChessPieces
}
