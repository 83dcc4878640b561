package board

import (
	"testing"
	"time"
)

func TestBoardSetGetDelete(t *testing.T) {
	b := NewBoard()
	p := Point{3, -2}

	if items := b.Get(p); items != nil {
		t.Errorf("expected empty cell, got %v", items)
	}

	b.Add(p, NewHomeItem("alice"))
	b.Add(p, NewTetrominoItem("alice", I, time.Now()))
	if got := len(b.Get(p)); got != 2 {
		t.Errorf("expected 2 items, got %d", got)
	}
	if b.Len() != 1 {
		t.Errorf("expected 1 occupied cell, got %d", b.Len())
	}

	b.Delete(p)
	if b.Get(p) != nil {
		t.Error("expected cell gone after delete")
	}

	b.Set(p, []Item{NewHomeItem("bob")})
	b.Set(p, nil)
	if b.Get(p) != nil {
		t.Error("expected setting empty list to delete the cell")
	}
}

func TestBoardBoundsGrowMonotonically(t *testing.T) {
	b := NewBoard()
	if _, _, _, _, ok := b.Bounds(); ok {
		t.Fatal("expected no bounds on empty board")
	}

	b.Add(Point{2, 3}, NewHomeItem("a"))
	b.Add(Point{-5, 7}, NewHomeItem("a"))
	minX, maxX, minZ, maxZ, ok := b.Bounds()
	if !ok || minX != -5 || maxX != 2 || minZ != 3 || maxZ != 7 {
		t.Fatalf("unexpected bounds %d..%d, %d..%d (ok=%v)", minX, maxX, minZ, maxZ, ok)
	}

	// Deleting the extreme cell must not shrink the bounds.
	b.Delete(Point{-5, 7})
	minX, _, _, maxZ, _ = b.Bounds()
	if minX != -5 || maxZ != 7 {
		t.Errorf("bounds shrank after delete: minX=%d maxZ=%d", minX, maxZ)
	}
}

func TestBoardItemQueries(t *testing.T) {
	b := NewBoard()
	p := Point{0, 0}
	b.Add(p, NewHomeItem("alice"))
	b.Add(p, NewChessItem("alice", "piece-1"))

	if !b.HasSupport(p) {
		t.Error("home item should count as support")
	}
	if b.HasTetromino(p) {
		t.Error("no tetromino item expected")
	}
	it, ok := b.ChessAt(p)
	if !ok || it.PieceID != "piece-1" {
		t.Errorf("expected chess item piece-1, got %v (ok=%v)", it, ok)
	}
	if !b.HasPlayerItem(p, "alice") {
		t.Error("expected alice to own an item here")
	}
	if b.HasPlayerItem(p, "bob") {
		t.Error("bob owns nothing here")
	}

	b.RemoveChess(p, "piece-1")
	if _, ok := b.ChessAt(p); ok {
		t.Error("chess item should be removed")
	}
	if !b.HasSupport(p) {
		t.Error("home item should remain")
	}
}

func TestBoardRemoveTetrominoItemsKeepsOthers(t *testing.T) {
	b := NewBoard()
	p := Point{1, 1}
	b.Add(p, NewTetrominoItem("alice", L, time.Now()))
	b.Add(p, NewChessItem("bob", "piece-2"))

	b.RemoveTetrominoItems(p)
	if b.HasTetromino(p) {
		t.Error("tetromino item should be gone")
	}
	if _, ok := b.ChessAt(p); !ok {
		t.Error("chess item should survive")
	}

	// A cell holding only tetromino items vanishes entirely.
	q := Point{2, 2}
	b.Add(q, NewTetrominoItem("alice", L, time.Now()))
	b.RemoveTetrominoItems(q)
	if b.Get(q) != nil {
		t.Error("cell with only tetromino items should be deleted")
	}
}

func TestBoardClone(t *testing.T) {
	b := NewBoard()
	p := Point{4, 4}
	b.Add(p, NewTetrominoItem("alice", T, time.Now()))

	c := b.Clone()
	c.Add(p, NewChessItem("alice", "piece-3"))
	c.Add(Point{9, 9}, NewHomeItem("bob"))

	if got := len(b.Get(p)); got != 1 {
		t.Errorf("clone mutation leaked into original: %d items", got)
	}
	if b.Get(Point{9, 9}) != nil {
		t.Error("clone insertion leaked into original")
	}
}
