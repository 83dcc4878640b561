package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"lukechampine.com/frand"

	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/session"
)

// jittered stretches an interval by up to a quarter so same-difficulty
// bots drift apart.
func jittered(d time.Duration) time.Duration {
	return d + time.Duration(frand.Intn(int(d/4)+1))
}

// opTimeout bounds every game operation a bot issues, matching the
// validation deadline the transport applies to client moves.
const opTimeout = 2 * time.Second

// errGameOver tells a bot loop its game has ended and the loop should
// retire rather than keep ticking against a finished board.
var errGameOver = errors.New("game over")

// Scheduler runs the built-in computer players. One goroutine per bot
// wakes on its difficulty's interval and submits at most one action.
type Scheduler struct {
	coord  *session.Coordinator
	logger *log.Logger

	mu   sync.Mutex
	bots map[string]context.CancelFunc
}

// NewScheduler creates an empty scheduler.
func NewScheduler(coord *session.Coordinator, logger *log.Logger) *Scheduler {
	return &Scheduler{
		coord:  coord,
		logger: logger.WithPrefix("ai"),
		bots:   make(map[string]context.CancelFunc),
	}
}

// AddBuiltin joins a new built-in player to gameID and starts its tick
// loop. The game must already exist; there is no global fallback for
// bots.
func (s *Scheduler) AddBuiltin(ctx context.Context, gameID string, d Difficulty) (string, error) {
	g, ok := s.coord.Game(gameID)
	if !ok {
		return "", session.ErrGameNotFound
	}
	preset := PresetFor(d)
	playerID := "ai-" + uuid.NewString()[:8]
	name := fmt.Sprintf("%s-bot-%s", d, playerID[3:])

	if _, _, err := s.coord.Join(ctx, session.JoinParams{
		GameID:      gameID,
		PlayerID:    playerID,
		Name:        name,
		Kind:        game.BuiltinAIPlayer,
		MinDuration: preset.MinDuration,
	}); err != nil {
		return "", err
	}

	botCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.bots[playerID] = cancel
	s.mu.Unlock()
	go s.run(botCtx, g, playerID, preset)

	s.logger.Info("builtin player added", "game", gameID, "player", playerID, "difficulty", d)
	return playerID, nil
}

// Stop cancels every bot loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.bots))
	for _, cancel := range s.bots {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (s *Scheduler) run(ctx context.Context, g *game.Game, playerID string, preset Preset) {
	defer func() {
		s.mu.Lock()
		delete(s.bots, playerID)
		s.mu.Unlock()
	}()

	// Jittered waits keep a fleet of same-difficulty bots from ticking in
	// lockstep.
	timer := time.NewTimer(jittered(preset.Interval))
	defer timer.Stop()

	// nextActAt mirrors the server-side pacing window so ticks inside it
	// skip cheaply instead of collecting rejections.
	var nextActAt time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(jittered(preset.Interval))
			if time.Now().Before(nextActAt) {
				continue
			}
			wait, err := s.act(ctx, g, playerID, preset)
			if errors.Is(err, game.ErrGameClosed) || errors.Is(err, errGameOver) {
				return
			}
			if err != nil {
				s.logger.Debug("bot action failed", "player", playerID, "err", err)
			}
			if wait > 0 {
				nextActAt = time.Now().Add(wait)
			}
		}
	}
}

// act reads the game, decides, and submits at most one action. The
// returned duration is how long the bot should hold off before acting
// again.
func (s *Scheduler) act(ctx context.Context, g *game.Game, playerID string, preset Preset) (time.Duration, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	snap, err := g.Snapshot(opCtx, playerID)
	if err != nil {
		return 0, err
	}
	if snap.Status == game.StatusEnded {
		return 0, errGameOver
	}
	if snap.Status != game.StatusPlaying {
		return 0, nil
	}
	me, ok := snap.Players[playerID]
	if !ok || !me.IsActive {
		return 0, nil
	}

	switch me.CurrentTurn.Phase {
	case game.PhaseTetris:
		draw, err := g.DrawTetromino(opCtx, playerID)
		if err != nil {
			return 0, err
		}
		tet, found := choosePlacement(positionFromSnapshot(snap), playerID, draw.Current, preset.Policy)
		if !found {
			return 0, nil
		}
		if _, err := g.PlaceTetromino(opCtx, playerID, tet); err != nil {
			var tooSoon *game.TooSoonError
			if errors.As(err, &tooSoon) {
				return tooSoon.RetryAfter, nil
			}
			return 0, err
		}

	case game.PhaseChess:
		pieceID, to, found := chooseChessMove(positionFromSnapshot(snap), playerID, preset.Policy)
		if !found {
			return 0, nil
		}
		if _, err := g.MoveChess(opCtx, playerID, pieceID, to); err != nil {
			var tooSoon *game.TooSoonError
			if errors.As(err, &tooSoon) {
				return tooSoon.RetryAfter, nil
			}
			return 0, err
		}
	}
	return preset.MinDuration, nil
}
