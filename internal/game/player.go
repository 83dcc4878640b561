package game

import (
	"time"

	"github.com/shaktris/shaktris/internal/board"
)

// PlayerKind tells humans and the two computer-player flavours apart.
type PlayerKind uint8

const (
	HumanPlayer PlayerKind = iota
	BuiltinAIPlayer
	ExternalAIPlayer
)

// IsComputer reports whether the player is machine-driven.
func (k PlayerKind) IsComputer() bool {
	return k != HumanPlayer
}

// Player is one participant's state inside a game. Everything here is
// owned by the game worker; nothing outside it may touch a Player.
type Player struct {
	ID   string
	Name string
	Kind PlayerKind

	Active    bool
	Connected bool

	Zone board.HomeZone
	Bag  *board.Bag

	Phase          Phase
	PhaseStartedAt time.Time
	LastActionAt   time.Time
	MinDuration    time.Duration

	// ActiveTetromino is the piece drawn through request_tetromino and
	// not yet placed.
	ActiveTetromino *board.TetrominoType
}

// tooSoon returns the pacing rejection for an action at now, if any. The
// window anchors on the player's last accepted action of either kind.
func (p *Player) tooSoon(now time.Time) error {
	if p.LastActionAt.IsZero() || p.MinDuration <= 0 {
		return nil
	}
	if wait := p.MinDuration - now.Sub(p.LastActionAt); wait > 0 {
		return &TooSoonError{RetryAfter: wait}
	}
	return nil
}
