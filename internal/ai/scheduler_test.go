package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shaktris/shaktris/internal/events"
	"github.com/shaktris/shaktris/internal/game"
	"github.com/shaktris/shaktris/internal/session"
)

func newTestCoordinator(t *testing.T) *session.Coordinator {
	t.Helper()
	logger := log.New(io.Discard)
	bus := events.NewBus(events.Config{SoftLimit: 1024, HardLimit: 4096}, logger)
	c := session.NewCoordinator(session.Config{}, bus, nil, logger)
	t.Cleanup(c.Shutdown)
	return c
}

func TestSchedulerBotPlaysSolo(t *testing.T) {
	coord := newTestCoordinator(t)
	g, err := coord.CreateGame("g1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	ctx := context.Background()
	if _, _, err := coord.Join(ctx, session.JoinParams{
		GameID: "g1", PlayerID: "ai-solo", Name: "solo-bot", Kind: game.BuiltinAIPlayer,
	}); err != nil {
		t.Fatalf("bot join failed: %v", err)
	}

	s := NewScheduler(coord, log.New(io.Discard))
	botCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.bots["ai-solo"] = cancel
	s.mu.Unlock()
	go s.run(botCtx, g, "ai-solo", Preset{Interval: 20 * time.Millisecond, MinDuration: 0})

	// The bot should keep the tetris/chess cycle going on its own. Two
	// placements grow the board past the 16 zone cells.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := g.Snapshot(ctx, "ai-solo")
		if err != nil {
			t.Fatalf("snapshot failed: %v", err)
		}
		if len(snap.Board.Cells) >= 24 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("bot made no progress within the deadline")
}

func TestSchedulerBotRetiresWhenGameEnds(t *testing.T) {
	coord := newTestCoordinator(t)
	g, err := coord.CreateGame("g-over")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	ctx := context.Background()
	if _, _, err := coord.Join(ctx, session.JoinParams{
		GameID: "g-over", PlayerID: "ai-1", Name: "bot", Kind: game.BuiltinAIPlayer,
	}); err != nil {
		t.Fatalf("bot join failed: %v", err)
	}
	if _, _, err := coord.Join(ctx, session.JoinParams{
		GameID: "g-over", PlayerID: "alice", Name: "Alice",
	}); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	s := NewScheduler(coord, log.New(io.Discard))
	botCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.bots["ai-1"] = cancel
	s.mu.Unlock()
	go s.run(botCtx, g, "ai-1", Preset{Interval: 20 * time.Millisecond, MinDuration: 0})

	// Alice leaving hands the bot the win; its loop must notice the
	// ended status and retire instead of ticking forever.
	if err := g.Disconnect(ctx, "alice"); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.bots)
		s.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("bot loop kept running after the game ended")
}

func TestAddBuiltin(t *testing.T) {
	coord := newTestCoordinator(t)
	s := NewScheduler(coord, log.New(io.Discard))
	ctx := context.Background()

	if _, err := s.AddBuiltin(ctx, "missing", DifficultyMedium); !errors.Is(err, session.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound for unknown game, got %v", err)
	}

	g, err := coord.CreateGame("g2")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id, err := s.AddBuiltin(ctx, "g2", DifficultyHard)
	if err != nil {
		t.Fatalf("AddBuiltin failed: %v", err)
	}
	if !strings.HasPrefix(id, "ai-") {
		t.Errorf("expected generated ai- player id, got %q", id)
	}

	snap, err := g.Snapshot(ctx, "")
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	pl, ok := snap.Players[id]
	if !ok {
		t.Fatal("expected the bot in the game roster")
	}
	if !pl.IsComputer {
		t.Error("expected the bot flagged as a computer player")
	}
	if pl.CurrentTurn.MinDurationMs != 5000 {
		t.Errorf("expected the hard preset pacing of 5000ms, got %d", pl.CurrentTurn.MinDurationMs)
	}

	s.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.bots)
		s.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("bot loop did not exit after Stop")
}

func TestParseDifficulty(t *testing.T) {
	cases := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", DifficultyEasy, false},
		{"medium", DifficultyMedium, false},
		{"hard", DifficultyHard, false},
		{"", DifficultyMedium, false},
		{"brutal", "", true},
	}
	for _, tc := range cases {
		got, err := ParseDifficulty(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDifficulty(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDifficulty(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDifficulty(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
