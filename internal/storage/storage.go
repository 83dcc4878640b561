package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Credentials are keyed by token because the token is what
// arrives with every external-AI request; sessions are keyed by player.
const (
	prefixCredential = "aicred:"
	prefixSession    = "session:"
	prefixRecord     = "record:"
	keyStats         = "stats"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Credential is one registered external computer player.
type Credential struct {
	PlayerID  string    `json:"playerId"`
	APIToken  string    `json:"apiToken"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionRecord remembers which game a player last belonged to, so a
// reconnecting client can be routed back into it.
type SessionRecord struct {
	PlayerID string    `json:"playerId"`
	GameID   string    `json:"gameId"`
	LastSeen time.Time `json:"lastSeen"`
}

// GameRecord is the durable summary of a finished game.
type GameRecord struct {
	GameID    string    `json:"gameId"`
	Players   []string  `json:"players"`
	Winner    string    `json:"winner,omitempty"`
	EndReason string    `json:"endReason"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Moves     int       `json:"moves"`
}

// Stats aggregates counters across every game the server has hosted.
type Stats struct {
	GamesStarted int            `json:"games_started"`
	GamesEnded   int            `json:"games_ended"`
	MovesApplied int            `json:"moves_applied"`
	RowsCleared  int            `json:"rows_cleared"`
	WinsByPlayer map[string]int `json:"wins_by_player"`
}

// NewStats returns empty counters.
func NewStats() *Stats {
	return &Stats{WinsByPlayer: make(map[string]int)}
}

// Store wraps BadgerDB for server state that must survive a restart.
type Store struct {
	db *badger.DB
}

// Open opens or creates the database under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// SaveCredential stores an external computer player's credential.
func (s *Store) SaveCredential(c *Credential) error {
	return s.put(prefixCredential+c.APIToken, c)
}

// CredentialByToken resolves an apiToken to its registration. Returns
// ErrNotFound for unknown tokens.
func (s *Store) CredentialByToken(token string) (*Credential, error) {
	var c Credential
	if err := s.get(prefixCredential+token, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveSession records where a player currently is.
func (s *Store) SaveSession(rec *SessionRecord) error {
	return s.put(prefixSession+rec.PlayerID, rec)
}

// Session returns a player's last known session, or ErrNotFound.
func (s *Store) Session(playerID string) (*SessionRecord, error) {
	var rec SessionRecord
	if err := s.get(prefixSession+playerID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteSession forgets a player's session.
func (s *Store) DeleteSession(playerID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(prefixSession + playerID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Record returns the summary of a finished game, or ErrNotFound.
func (s *Store) Record(gameID string) (*GameRecord, error) {
	var rec GameRecord
	if err := s.get(prefixRecord+gameID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadStats loads the aggregate counters, returning empty counters when
// none have been written yet.
func (s *Store) LoadStats() (*Stats, error) {
	stats := NewStats()
	err := s.get(keyStats, stats)
	if errors.Is(err, ErrNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	if stats.WinsByPlayer == nil {
		stats.WinsByPlayer = make(map[string]int)
	}
	return stats, nil
}

// updateStats applies fn to the stored counters in one transaction.
func (s *Store) updateStats(fn func(*Stats)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		stats := NewStats()
		item, err := txn.Get([]byte(keyStats))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, stats)
			}); err != nil {
				return err
			}
			if stats.WinsByPlayer == nil {
				stats.WinsByPlayer = make(map[string]int)
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		fn(stats)

		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyStats), data)
	})
}

// NoteGameStarted bumps the started-games counter.
func (s *Store) NoteGameStarted() error {
	return s.updateStats(func(st *Stats) { st.GamesStarted++ })
}

// NoteMoves adds accepted moves to the counters.
func (s *Store) NoteMoves(n int) error {
	if n == 0 {
		return nil
	}
	return s.updateStats(func(st *Stats) { st.MovesApplied += n })
}

// NoteRowsCleared adds cleared lines to the counters.
func (s *Store) NoteRowsCleared(n int) error {
	if n == 0 {
		return nil
	}
	return s.updateStats(func(st *Stats) { st.RowsCleared += n })
}

// RecordResult stores a finished game's summary and folds the outcome
// into the aggregate counters. Per-move counters are tracked live through
// NoteMoves; only the outcome is folded in here.
func (s *Store) RecordResult(rec *GameRecord) error {
	if err := s.put(prefixRecord+rec.GameID, rec); err != nil {
		return err
	}
	return s.updateStats(func(st *Stats) {
		st.GamesEnded++
		if rec.Winner != "" {
			st.WinsByPlayer[rec.Winner]++
		}
	})
}
