package repository

// Treap-based, in-memory per-day ranking board.
//
// Ordering: best score DESC, then submission sequence ASC, so an in-order
// traversal yields the leaderboard from best to worst with the earliest
// submission winning ties. Subtree sizes make "players strictly above this
// score" an O(log n) order-statistic query.

// boardNode is one treap node keyed by (score desc, seq asc).
type boardNode struct {
	player string
	score  uint64
	seq    uint64
	prio   uint64
	left   *boardNode
	right  *boardNode
	size   int
}

func nsize(n *boardNode) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *boardNode) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// boardLess returns true if (aScore, aSeq) ranks earlier than (bScore, bSeq).
func boardLess(aScore, aSeq, bScore, bSeq uint64) bool {
	if aScore != bScore {
		return aScore > bScore // higher score ranks earlier
	}
	return aSeq < bSeq // earlier submission wins ties
}

// seqToPriority derives a deterministic pseudo-random heap priority from the
// submission sequence (splitmix64), keeping the treap balanced under the
// monotonically increasing sequences this board sees.
func seqToPriority(seq uint64) uint64 {
	z := seq + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func rotateRight(y *boardNode) *boardNode {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *boardNode) *boardNode {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func boardInsert(n *boardNode, player string, score, seq uint64) *boardNode {
	if n == nil {
		return &boardNode{player: player, score: score, seq: seq, prio: seqToPriority(seq), size: 1}
	}
	if boardLess(score, seq, n.score, n.seq) {
		n.left = boardInsert(n.left, player, score, seq)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = boardInsert(n.right, player, score, seq)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func boardDelete(n *boardNode, score, seq uint64) *boardNode {
	if n == nil {
		return nil
	}
	if score == n.score && seq == n.seq {
		// Merge children by rotating the higher priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = boardDelete(n.right, score, seq)
		} else {
			n = rotateLeft(n)
			n.left = boardDelete(n.left, score, seq)
		}
	} else if boardLess(score, seq, n.score, n.seq) {
		n.left = boardDelete(n.left, score, seq)
	} else {
		n.right = boardDelete(n.right, score, seq)
	}
	fix(n)
	return n
}

// dayBoard wraps a treap root for one day's standings.
type dayBoard struct {
	root *boardNode
}

func (b *dayBoard) insert(player string, score, seq uint64) {
	b.root = boardInsert(b.root, player, score, seq)
}

// reinsert moves a player's node to a new (score, seq) position.
func (b *dayBoard) reinsert(player string, oldScore, oldSeq, newScore, newSeq uint64) {
	b.root = boardDelete(b.root, oldScore, oldSeq)
	b.root = boardInsert(b.root, player, newScore, newSeq)
}

func (b *dayBoard) len() int {
	return nsize(b.root)
}

// countGreater returns the number of players with a strictly greater score.
// Ties on seq never matter here: every node ordered before a (score, *) key
// with a different score has a strictly greater score.
func (b *dayBoard) countGreater(score uint64) int {
	count := 0
	n := b.root
	for n != nil {
		if n.score > score {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// top appends up to limit players in rank order (best first).
func (b *dayBoard) top(limit int) []string {
	out := make([]string, 0, limit)
	collectTop(b.root, limit, &out)
	return out
}

func collectTop(n *boardNode, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.player)
	}
	if len(*out) < limit {
		collectTop(n.right, limit, out)
	}
}
