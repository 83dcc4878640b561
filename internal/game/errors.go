package game

import "errors"

var (
	// ErrWrongPhase rejects an action that does not match the player's
	// current turn phase.
	ErrWrongPhase = errors.New("action does not match the current phase")
	// ErrNotYourTurn rejects actions from players who cannot act at all:
	// the game is not running or the player is inactive.
	ErrNotYourTurn = errors.New("player cannot act now")
	// ErrPlayerNotInGame rejects operations naming a player the game has
	// never seen.
	ErrPlayerNotInGame = errors.New("player is not in this game")
	// ErrBackpressure is returned when a game's work queue is full. The
	// submission was dropped and may be retried.
	ErrBackpressure = errors.New("game queue is full")
	// ErrGameClosed is returned for operations on a stopped game.
	ErrGameClosed = errors.New("game is closed")
)
