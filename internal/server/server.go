// Package server exposes the game over a websocket endpoint for
// interactive clients and a small HTTP API for computer players.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/shaktris/shaktris/internal/ai"
	"github.com/shaktris/shaktris/internal/board"
	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/session"
)

// opTimeout bounds every game operation issued on behalf of a request.
const opTimeout = 2 * time.Second

type Config struct {
	// Addr is the listen address, host:port.
	Addr string
}

// Server ties the coordinator, the AI scheduler and the external AI
// registry to the network.
type Server struct {
	cfg      Config
	logger   *log.Logger
	coord    *session.Coordinator
	sched    *ai.Scheduler
	registry *ai.Registry
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func New(cfg Config, coord *session.Coordinator, sched *ai.Scheduler, registry *ai.Registry, logger *log.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.WithPrefix("server"),
		coord:    coord,
		sched:    sched,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /computer-players/register", s.handleRegister)
	mux.HandleFunc("POST /games/{gameId}/add-computer-player", s.handleAddComputer)
	mux.HandleFunc("POST /games/{gameId}/computer-move", s.handleComputerMove)
	mux.HandleFunc("GET /games/{gameId}/available-tetrominos", s.handleAvailableTetrominos)
	mux.HandleFunc("GET /games/{gameId}/chess-pieces", s.handleChessPieces)
	s.mux = mux
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "err", err)
		return
	}
	c := newClient(s, conn, uuid.NewString())
	go c.writePump()
	go c.readPump()
}

// dispatch handles one decoded socket message and queues the response.
func (s *Server) dispatch(c *client, msg *clientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		payload any
		err     error
	)
	switch msg.Type {
	case msgJoinGame:
		payload, err = s.wsJoin(ctx, c, msg.Payload, false)
	case msgCreateGame:
		payload, err = s.wsJoin(ctx, c, msg.Payload, true)
	case msgTetrominoPlaced:
		payload, err = s.wsPlace(ctx, c, msg.Payload)
	case msgChessMove:
		payload, err = s.wsChessMove(ctx, c, msg.Payload)
	case msgRequestTetromino:
		payload, err = s.wsDraw(ctx, c)
	case msgGetGameState:
		payload, err = s.wsGameState(ctx, c, msg.Payload)
	case msgRequestSpectate:
		payload, err = s.wsSpectate(ctx, c, msg.Payload)
	case msgStopSpectating:
		err = s.wsStopSpectating(c)
	case msgRestartGame:
		err = s.wsRestart(ctx, c, msg.Payload)
	default:
		err = fmt.Errorf("%w: unknown message type %q", errProtocol, msg.Type)
	}
	if err != nil {
		c.reply(response{RequestID: msg.RequestID, OK: false, Error: errorBody(err)})
		return
	}
	c.reply(response{RequestID: msg.RequestID, OK: true, Payload: payload})
}

func (s *Server) wsJoin(ctx context.Context, c *client, raw json.RawMessage, create bool) (any, error) {
	var p joinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: bad join payload", errProtocol)
		}
	}
	playerID := p.PlayerID
	if playerID == "" {
		playerID = c.player()
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	gameID := p.GameID
	if create {
		g, err := s.coord.CreateGame(gameID)
		switch {
		case errors.Is(err, session.ErrGameExists):
			// Joining an existing game is close enough to what the
			// caller wanted.
		case err != nil:
			return nil, err
		default:
			gameID = g.ID()
		}
	}

	g, res, err := s.coord.Join(ctx, session.JoinParams{
		GameID:   gameID,
		PlayerID: playerID,
		Name:     p.Name,
		Kind:     game.HumanPlayer,
	})
	if err != nil {
		return nil, err
	}
	c.setPlayer(playerID)
	c.attachGame(g.ID())
	return joinedPayload{
		GameID:   g.ID(),
		PlayerID: playerID,
		Rejoined: res.Rejoined,
		Snapshot: res.Snapshot,
	}, nil
}

// ownGame resolves the game the connection's player belongs to.
func (s *Server) ownGame(c *client) (*game.Game, string, error) {
	pid := c.player()
	if pid == "" {
		return nil, "", game.ErrPlayerNotInGame
	}
	g, ok := s.coord.GameOf(pid)
	if !ok {
		return nil, "", game.ErrPlayerNotInGame
	}
	return g, pid, nil
}

func (s *Server) wsPlace(ctx context.Context, c *client, raw json.RawMessage) (any, error) {
	var t board.Tetromino
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: bad tetromino payload", errProtocol)
	}
	g, pid, err := s.ownGame(c)
	if err != nil {
		return nil, err
	}
	out, err := g.PlaceTetromino(ctx, pid, t)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) wsChessMove(ctx context.Context, c *client, raw json.RawMessage) (any, error) {
	var p chessMovePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: bad chess move payload", errProtocol)
	}
	g, pid, err := s.ownGame(c)
	if err != nil {
		return nil, err
	}
	out, err := g.MoveChess(ctx, pid, p.PieceID, p.To)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) wsDraw(ctx context.Context, c *client) (any, error) {
	g, pid, err := s.ownGame(c)
	if err != nil {
		return nil, err
	}
	draw, err := g.DrawTetromino(ctx, pid)
	if err != nil {
		return nil, err
	}
	return draw, nil
}

func (s *Server) wsGameState(ctx context.Context, c *client, raw json.RawMessage) (any, error) {
	var p gameRefPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: bad payload", errProtocol)
		}
	}
	viewer := c.player()
	var g *game.Game
	if p.GameID != "" {
		var ok bool
		if g, ok = s.coord.Game(p.GameID); !ok {
			return nil, session.ErrGameNotFound
		}
	} else if target, ok := s.coord.Spectating(c.connID); ok && viewer == "" {
		g, _ = s.coord.GameOf(target)
	} else {
		var err error
		if g, _, err = s.ownGame(c); err != nil {
			return nil, err
		}
	}
	if g == nil {
		return nil, session.ErrGameNotFound
	}
	snap, err := g.Snapshot(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Server) wsSpectate(ctx context.Context, c *client, raw json.RawMessage) (any, error) {
	var p spectatePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.TargetPlayerID == "" {
		return nil, fmt.Errorf("%w: targetPlayerId required", errProtocol)
	}
	g, err := s.coord.Spectate(p.TargetPlayerID, c.connID)
	if err != nil {
		return nil, err
	}
	c.attachSpectate(g.ID())
	snap, err := g.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Server) wsStopSpectating(c *client) error {
	c.detachSpectate()
	return s.coord.StopSpectating(c.connID)
}

func (s *Server) wsRestart(ctx context.Context, c *client, raw json.RawMessage) error {
	var p gameRefPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: bad payload", errProtocol)
		}
	}
	gameID := p.GameID
	if gameID == "" {
		g, _, err := s.ownGame(c)
		if err != nil {
			return err
		}
		gameID = g.ID()
	}
	return s.coord.Restart(ctx, gameID)
}
