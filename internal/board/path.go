package board

import "sort"

// PathToKing searches for a shortest eight-neighbourhood path from `from`
// to playerID's king, walking only cells that hold at least one of the
// player's items (tetromino, chess, or home). The returned path runs from
// the start cell to the king cell inclusive. Neighbours are expanded in
// the fixed Neighbours8 order, so equally short paths resolve the same way
// every run.
func (p *Position) PathToKing(from Point, playerID string) ([]Point, bool) {
	king, ok := p.KingOf(playerID)
	if !ok {
		return nil, false
	}
	if !p.Board.HasPlayerItem(from, playerID) {
		return nil, false
	}
	if from == king.Pos {
		return []Point{from}, true
	}

	parent := map[Point]Point{from: from}
	queue := []Point{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range Neighbours8 {
			next := cur.Add(d)
			if _, seen := parent[next]; seen {
				continue
			}
			if !p.Board.HasPlayerItem(next, playerID) {
				continue
			}
			parent[next] = cur
			if next == king.Pos {
				return rebuildPath(parent, from, next), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func rebuildPath(parent map[Point]Point, from, to Point) []Point {
	var rev []Point
	for cur := to; ; cur = parent[cur] {
		rev = append(rev, cur)
		if cur == from {
			break
		}
	}
	path := make([]Point, len(rev))
	for i, pt := range rev {
		path[len(rev)-1-i] = pt
	}
	return path
}

// Islands returns the eight-connected components of playerID's cells.
// Components and the cells within them come back in lexicographic (x,z)
// order so destructive passes over them are deterministic.
func (p *Position) Islands(playerID string) [][]Point {
	var cells []Point
	p.Board.Occupied(func(pt Point, items []Item) bool {
		for _, it := range items {
			if it.PlayerID == playerID {
				cells = append(cells, pt)
				break
			}
		}
		return true
	})
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X != cells[j].X {
			return cells[i].X < cells[j].X
		}
		return cells[i].Z < cells[j].Z
	})

	member := make(map[Point]bool, len(cells))
	for _, c := range cells {
		member[c] = true
	}

	visited := make(map[Point]bool, len(cells))
	var islands [][]Point
	for _, start := range cells {
		if visited[start] {
			continue
		}
		visited[start] = true
		island := []Point{start}
		queue := []Point{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, d := range Neighbours8 {
				next := cur.Add(d)
				if !member[next] || visited[next] {
					continue
				}
				visited[next] = true
				island = append(island, next)
				queue = append(queue, next)
			}
		}
		sort.Slice(island, func(i, j int) bool {
			if island[i].X != island[j].X {
				return island[i].X < island[j].X
			}
			return island[i].Z < island[j].Z
		})
		islands = append(islands, island)
	}
	return islands
}
