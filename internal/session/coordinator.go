// Package session coordinates the server's live games: which games
// exist, which game every player and spectator is attached to, and how
// returning players find their way back. Game state itself lives behind
// each game's worker; the coordinator only routes to it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/shaktris/shaktris/internal/events"
	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/storage"
)

var (
	ErrGameNotFound   = errors.New("session: game not found")
	ErrGameExists     = errors.New("session: game already exists")
	ErrPlayerNotFound = errors.New("session: player not found")
	ErrNotSpectator   = errors.New("session: not spectating")
)

// DefaultGameID names the always-available game that players land in
// when they do not ask for a specific one.
const DefaultGameID = "global"

// Config carries the coordinator's tunables.
type Config struct {
	// Game is applied to every game the coordinator creates.
	Game game.Config
}

// Coordinator owns the game, player, and spectator registries. The
// mutex guards only the maps; game operations run against the returned
// handles outside of it.
type Coordinator struct {
	cfg    Config
	bus    *events.Bus
	store  *storage.Store
	logger *log.Logger

	mu         sync.RWMutex
	games      map[string]*game.Game
	players    map[string]string // playerID -> gameID
	spectators map[string]string // spectatorID -> target playerID
}

// NewCoordinator creates a coordinator. store may be nil, in which case
// nothing is persisted and reconnection only works within the process.
func NewCoordinator(cfg Config, bus *events.Bus, store *storage.Store, logger *log.Logger) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		bus:        bus,
		store:      store,
		logger:     logger.WithPrefix("session"),
		games:      make(map[string]*game.Game),
		players:    make(map[string]string),
		spectators: make(map[string]string),
	}
}

// Store exposes the persistence layer shared with other components.
func (c *Coordinator) Store() *storage.Store {
	return c.store
}

// Bus exposes the event bus games publish to.
func (c *Coordinator) Bus() *events.Bus {
	return c.bus
}

// CreateGame creates a new game. An empty id gets a generated one; a
// taken id is rejected with ErrGameExists.
func (c *Coordinator) CreateGame(id string) (*game.Game, error) {
	if id == "" {
		id = uuid.NewString()
	}
	c.mu.Lock()
	if _, ok := c.games[id]; ok {
		c.mu.Unlock()
		return nil, ErrGameExists
	}
	g := game.New(id, c.cfg.Game, c.bus, c.logger)
	c.games[id] = g
	c.mu.Unlock()

	go c.bookkeep(g)
	c.logger.Info("game created", "game", id)
	return g, nil
}

// Game returns the game with the given id.
func (c *Coordinator) Game(id string) (*game.Game, bool) {
	c.mu.RLock()
	g, ok := c.games[id]
	c.mu.RUnlock()
	return g, ok
}

// GameOf returns the game a player is currently registered in.
func (c *Coordinator) GameOf(playerID string) (*game.Game, bool) {
	c.mu.RLock()
	gameID, ok := c.players[playerID]
	var g *game.Game
	if ok {
		g, ok = c.games[gameID]
	}
	c.mu.RUnlock()
	return g, ok
}

// resolveGame maps a requested game id to a live game. Unknown or empty
// ids land in the global game, which is created on first use; a player's
// stored session takes precedence so reconnecting clients return to the
// game they left.
func (c *Coordinator) resolveGame(requested, playerID string) *game.Game {
	if requested != "" {
		if g, ok := c.Game(requested); ok {
			return g
		}
		c.logger.Warn("unknown game requested, using global", "game", requested, "player", playerID)
	}

	if requested == "" && playerID != "" {
		if g, ok := c.GameOf(playerID); ok {
			return g
		}
		if c.store != nil {
			if rec, err := c.store.Session(playerID); err == nil {
				if g, ok := c.Game(rec.GameID); ok {
					return g
				}
			}
		}
	}

	if g, ok := c.Game(DefaultGameID); ok {
		return g
	}
	g, err := c.CreateGame(DefaultGameID)
	if err != nil {
		// Lost a create race; the winner's game is in the registry.
		g, _ = c.Game(DefaultGameID)
	}
	return g
}

// JoinParams carries a join request through the coordinator.
type JoinParams struct {
	GameID      string
	PlayerID    string
	Name        string
	Kind        game.PlayerKind
	MinDuration time.Duration
}

// Join routes a player into a game. Requests for unknown games fall back
// to the global game; players already in another live game are detached
// from it first.
func (c *Coordinator) Join(ctx context.Context, p JoinParams) (*game.Game, *game.JoinResult, error) {
	g := c.resolveGame(p.GameID, p.PlayerID)

	c.mu.Lock()
	prevID, had := c.players[p.PlayerID]
	c.mu.Unlock()
	if had && prevID != g.ID() {
		if prev, ok := c.Game(prevID); ok {
			if err := prev.Disconnect(ctx, p.PlayerID); err != nil && !errors.Is(err, game.ErrGameClosed) {
				c.logger.Warn("detach from previous game failed", "player", p.PlayerID, "game", prevID, "err", err)
			}
		}
	}

	res, err := g.Join(ctx, game.JoinParams{
		PlayerID:    p.PlayerID,
		Name:        p.Name,
		Kind:        p.Kind,
		MinDuration: p.MinDuration,
	})
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.players[p.PlayerID] = g.ID()
	c.mu.Unlock()

	if c.store != nil {
		rec := &storage.SessionRecord{PlayerID: p.PlayerID, GameID: g.ID(), LastSeen: time.Now()}
		if err := c.store.SaveSession(rec); err != nil {
			c.logger.Warn("session save failed", "player", p.PlayerID, "err", err)
		}
	}
	return g, res, nil
}

// Disconnect marks a player's transport as gone. Their registry entry
// and stored session survive so a later join returns them to the game.
func (c *Coordinator) Disconnect(ctx context.Context, playerID string) {
	c.mu.Lock()
	gameID, ok := c.players[playerID]
	c.mu.Unlock()
	if !ok {
		return
	}
	if g, live := c.Game(gameID); live {
		if err := g.Disconnect(ctx, playerID); err != nil && !errors.Is(err, game.ErrGameClosed) {
			c.logger.Warn("disconnect failed", "player", playerID, "game", gameID, "err", err)
		}
	}
	if c.store != nil {
		rec := &storage.SessionRecord{PlayerID: playerID, GameID: gameID, LastSeen: time.Now()}
		if err := c.store.SaveSession(rec); err != nil {
			c.logger.Warn("session save failed", "player", playerID, "err", err)
		}
	}
}

// Spectate binds a spectator to a target player and returns that
// player's game. Spectators receive the same event stream as players;
// they are not part of the game state.
func (c *Coordinator) Spectate(targetPlayerID, spectatorID string) (*game.Game, error) {
	g, ok := c.GameOf(targetPlayerID)
	if !ok {
		return nil, ErrPlayerNotFound
	}
	c.mu.Lock()
	c.spectators[spectatorID] = targetPlayerID
	c.mu.Unlock()
	return g, nil
}

// StopSpectating removes a spectator registration.
func (c *Coordinator) StopSpectating(spectatorID string) error {
	c.mu.Lock()
	_, ok := c.spectators[spectatorID]
	delete(c.spectators, spectatorID)
	c.mu.Unlock()
	if !ok {
		return ErrNotSpectator
	}
	return nil
}

// Spectating returns the player a spectator is watching.
func (c *Coordinator) Spectating(spectatorID string) (string, bool) {
	c.mu.RLock()
	id, ok := c.spectators[spectatorID]
	c.mu.RUnlock()
	return id, ok
}

// Restart rebuilds a game in place, keeping its roster.
func (c *Coordinator) Restart(ctx context.Context, gameID string) error {
	g, ok := c.Game(gameID)
	if !ok {
		return ErrGameNotFound
	}
	return g.Restart(ctx)
}

// Shutdown stops every game. Safe to call once at process exit.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	games := make([]*game.Game, 0, len(c.games))
	for _, g := range c.games {
		games = append(games, g)
	}
	c.mu.Unlock()
	for _, g := range games {
		g.Stop()
	}
}
