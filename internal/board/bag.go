package board

import "lukechampine.com/frand"

// Bag deals tetromino types under the 7-bag discipline: pieces are drawn
// from a shuffled bag of all seven types, and a fresh bag is shuffled in
// whenever the queue runs low. Every window of seven consecutive draws is
// a permutation of the seven types.
type Bag struct {
	queue []TetrominoType
}

// NewBag returns a bag with the first seven pieces already shuffled.
func NewBag() *Bag {
	b := &Bag{}
	b.refill()
	return b
}

func (b *Bag) refill() {
	batch := make([]TetrominoType, TetrominoTypeCount)
	for i := range batch {
		batch[i] = TetrominoType(i)
	}
	frand.Shuffle(len(batch), func(i, j int) {
		batch[i], batch[j] = batch[j], batch[i]
	})
	b.queue = append(b.queue, batch...)
}

// Next draws the next piece.
func (b *Bag) Next() TetrominoType {
	if len(b.queue) == 0 {
		b.refill()
	}
	t := b.queue[0]
	b.queue = b.queue[1:]
	return t
}

// Peek returns the upcoming piece at offset n without drawing it.
func (b *Bag) Peek(n int) TetrominoType {
	for len(b.queue) <= n {
		b.refill()
	}
	return b.queue[n]
}
