package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// Phase is the half of a turn a player is in. A legal tetromino placement
// moves the player to the chess phase; a legal chess move, or a skip when
// none exists, returns them to tetris.
type Phase uint8

const (
	PhaseTetris Phase = iota
	PhaseChess
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	if p == PhaseChess {
		return "chess"
	}
	return "tetris"
}

// MarshalJSON encodes the phase name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "tetris":
		*p = PhaseTetris
	case "chess":
		*p = PhaseChess
	default:
		return fmt.Errorf("unknown phase %q", s)
	}
	return nil
}

// TooSoonError rejects an action submitted before the player's pacing
// window elapsed. RetryAfter is how much longer the player must wait.
type TooSoonError struct {
	RetryAfter time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("move too soon, retry in %s", e.RetryAfter.Round(time.Millisecond))
}
