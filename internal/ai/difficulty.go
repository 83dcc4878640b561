// Package ai drives the server's computer players. Built-in players run
// on a scheduler that wakes them at a bounded rate and submits moves
// through the same game operations human clients use; external players
// register for a credential and submit over HTTP, again through the same
// operations. Neither flavour gets a private path into a game.
package ai

import (
	"fmt"
	"time"
)

// Difficulty selects a built-in player's tuning.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Policy is the decision-weight tuple behind a built-in player, every
// weight in [0,1]. It shapes which of the legal candidates the player
// prefers; it never relaxes rule enforcement.
type Policy struct {
	// Aggressiveness weighs advancing toward opponents and taking their
	// pieces.
	Aggressiveness float64
	// Defensiveness weighs keeping pieces close to the own king.
	Defensiveness float64
	// BuildSpeed weighs compact placements that touch many own cells.
	BuildSpeed float64
	// KingProtection weighs building near the own king and penalises
	// moving it.
	KingProtection float64
	// ExplorationRate is the chance of picking a random legal candidate
	// instead of the best-scored one.
	ExplorationRate float64
}

// Preset is the full tuning for a difficulty: how often the scheduler
// wakes the player, the pacing floor it registers with, and its decision
// weights. Intervals never go below one second in the presets.
type Preset struct {
	Interval    time.Duration
	MinDuration time.Duration
	Policy      Policy
}

var presets = map[Difficulty]Preset{
	DifficultyEasy: {
		Interval:    3 * time.Second,
		MinDuration: 15 * time.Second,
		Policy: Policy{
			Aggressiveness:  0.2,
			Defensiveness:   0.6,
			BuildSpeed:      0.4,
			KingProtection:  0.7,
			ExplorationRate: 0.3,
		},
	},
	DifficultyMedium: {
		Interval:    2 * time.Second,
		MinDuration: 10 * time.Second,
		Policy: Policy{
			Aggressiveness:  0.5,
			Defensiveness:   0.5,
			BuildSpeed:      0.6,
			KingProtection:  0.5,
			ExplorationRate: 0.15,
		},
	},
	DifficultyHard: {
		Interval:    time.Second,
		MinDuration: 5 * time.Second,
		Policy: Policy{
			Aggressiveness:  0.8,
			Defensiveness:   0.4,
			BuildSpeed:      0.9,
			KingProtection:  0.4,
			ExplorationRate: 0.05,
		},
	},
}

// PresetFor returns the tuning for a difficulty.
func PresetFor(d Difficulty) Preset {
	return presets[d]
}

// ParseDifficulty parses a difficulty name, defaulting to medium for the
// empty string.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	case "":
		return DifficultyMedium, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}
