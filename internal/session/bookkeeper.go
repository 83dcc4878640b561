package session

import (
	"time"

	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/storage"
)

// bookkeep follows one game's event stream and maintains its durable
// trail: live counters while the game runs, a GameRecord when it ends.
// Exits when the game's stream closes.
func (c *Coordinator) bookkeep(g *game.Game) {
	if c.store == nil {
		return
	}
	sub := c.bus.Subscribe(g.ID(), "bookkeeper")
	defer sub.Close()

	var (
		startedAt time.Time
		players   []string
		moves     int
	)
	seen := make(map[string]bool)

	for ev := range sub.Events() {
		switch ev.Type {
		case game.EventGameStarted:
			startedAt = time.Now()
			if err := c.store.NoteGameStarted(); err != nil {
				c.logger.Warn("stats update failed", "game", g.ID(), "err", err)
			}

		case game.EventPlayerJoined:
			if p, ok := ev.Payload.(game.PlayerJoinedPayload); ok && !seen[p.PlayerID] {
				seen[p.PlayerID] = true
				players = append(players, p.PlayerID)
			}

		case game.EventTetrominoPlaced, game.EventChessMoved:
			moves++
			if err := c.store.NoteMoves(1); err != nil {
				c.logger.Warn("stats update failed", "game", g.ID(), "err", err)
			}

		case game.EventRowsCleared:
			if p, ok := ev.Payload.(game.RowsClearedPayload); ok && len(p.Lines) > 0 {
				if err := c.store.NoteRowsCleared(len(p.Lines)); err != nil {
					c.logger.Warn("stats update failed", "game", g.ID(), "err", err)
				}
			}

		case game.EventGameEnded:
			rec := &storage.GameRecord{
				GameID:    g.ID(),
				Players:   append([]string(nil), players...),
				StartedAt: startedAt,
				EndedAt:   time.Now(),
				Moves:     moves,
			}
			if p, ok := ev.Payload.(game.GameEndedPayload); ok {
				rec.EndReason = p.EndReason
				if p.Winner != nil {
					rec.Winner = *p.Winner
				}
			}
			if err := c.store.RecordResult(rec); err != nil {
				c.logger.Warn("game record failed", "game", g.ID(), "err", err)
			}
			// A restart begins a fresh count.
			moves = 0
		}
	}

	if err := sub.Err(); err != nil {
		c.logger.Warn("bookkeeper detached", "game", g.ID(), "err", err)
	}
}
