package board

// Board is the sparse cell store: a map from coordinates to non-empty item
// lists, with tracked extremes. The board is unbounded; the extremes exist
// for fast iteration and only grow. Deleting cells never shrinks them.
type Board struct {
	cells                  map[Point][]Item
	minX, maxX, minZ, maxZ int
	nonEmpty               bool
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{cells: make(map[Point][]Item)}
}

// Get returns the items at p, or nil for an empty cell. The returned slice
// is the board's own storage; callers must treat it as read-only.
func (b *Board) Get(p Point) []Item {
	return b.cells[p]
}

// Set replaces the items at p. Setting an empty list deletes the cell.
func (b *Board) Set(p Point, items []Item) {
	if len(items) == 0 {
		delete(b.cells, p)
		return
	}
	b.cells[p] = items
	b.grow(p)
}

// Add appends one item to the cell at p.
func (b *Board) Add(p Point, it Item) {
	b.cells[p] = append(b.cells[p], it)
	b.grow(p)
}

// Delete removes the cell at p entirely.
func (b *Board) Delete(p Point) {
	delete(b.cells, p)
}

// Len returns the number of occupied cells.
func (b *Board) Len() int {
	return len(b.cells)
}

// Occupied calls fn for every occupied cell until fn returns false.
// Iteration order is unspecified.
func (b *Board) Occupied(fn func(Point, []Item) bool) {
	for p, items := range b.cells {
		if !fn(p, items) {
			return
		}
	}
}

// Bounds returns the tracked extremes. ok is false while the board has
// never held a cell.
func (b *Board) Bounds() (minX, maxX, minZ, maxZ int, ok bool) {
	return b.minX, b.maxX, b.minZ, b.maxZ, b.nonEmpty
}

func (b *Board) grow(p Point) {
	if !b.nonEmpty {
		b.minX, b.maxX, b.minZ, b.maxZ = p.X, p.X, p.Z, p.Z
		b.nonEmpty = true
		return
	}
	if p.X < b.minX {
		b.minX = p.X
	}
	if p.X > b.maxX {
		b.maxX = p.X
	}
	if p.Z < b.minZ {
		b.minZ = p.Z
	}
	if p.Z > b.maxZ {
		b.maxZ = p.Z
	}
}

// HasTetromino reports whether the cell at p holds at least one tetromino
// item.
func (b *Board) HasTetromino(p Point) bool {
	for _, it := range b.cells[p] {
		if it.Kind == TetrominoItem {
			return true
		}
	}
	return false
}

// HasSupport reports whether a chess piece can stand on the cell at p:
// the cell holds a tetromino item or a home-zone item.
func (b *Board) HasSupport(p Point) bool {
	for _, it := range b.cells[p] {
		if it.Kind == TetrominoItem || it.Kind == HomeZoneItem {
			return true
		}
	}
	return false
}

// ChessAt returns the chess item at p, if any. At most one chess item may
// occupy a cell.
func (b *Board) ChessAt(p Point) (Item, bool) {
	for _, it := range b.cells[p] {
		if it.Kind == ChessPieceItem {
			return it, true
		}
	}
	return Item{}, false
}

// HasPlayerItem reports whether any item at p belongs to playerID.
func (b *Board) HasPlayerItem(p Point, playerID string) bool {
	for _, it := range b.cells[p] {
		if it.PlayerID == playerID {
			return true
		}
	}
	return false
}

// RemoveChess removes the chess item with the given piece id from p.
func (b *Board) RemoveChess(p Point, pieceID string) {
	b.removeWhere(p, func(it Item) bool {
		return it.Kind == ChessPieceItem && it.PieceID == pieceID
	})
}

// RemoveTetrominoItems strips all tetromino items from p, keeping any
// chess or home items.
func (b *Board) RemoveTetrominoItems(p Point) {
	b.removeWhere(p, func(it Item) bool {
		return it.Kind == TetrominoItem
	})
}

func (b *Board) removeWhere(p Point, match func(Item) bool) {
	items := b.cells[p]
	kept := items[:0]
	for _, it := range items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		delete(b.cells, p)
		return
	}
	b.cells[p] = kept
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	c := &Board{
		cells:    make(map[Point][]Item, len(b.cells)),
		minX:     b.minX,
		maxX:     b.maxX,
		minZ:     b.minZ,
		maxZ:     b.maxZ,
		nonEmpty: b.nonEmpty,
	}
	for p, items := range b.cells {
		cp := make([]Item, len(items))
		copy(cp, items)
		c.cells[p] = cp
	}
	return c
}
