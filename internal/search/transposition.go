package search

import "chessforge/board"

// Grounded on hailam-chessplay/internal/engine/transposition.go: a
// fixed-size, power-of-two-capacity slot table keyed by the low bits
// of the Zobrist fingerprint, with the high bits kept as a
// verification tag so a slot collision is detected rather than
// silently returned.

// Bound classifies how a stored score relates to the search window
// that produced it.
type Bound uint8

const (
	// BoundNone marks an empty slot.
	BoundNone Bound = iota
	// BoundExact is the node's true minimax value.
	BoundExact
	// BoundLower means the node failed high; the true score is >= the stored value.
	BoundLower
	// BoundUpper means the node failed low; the true score is <= the stored value.
	BoundUpper
)

// entry is one transposition table slot, kept small so a large
// Hash-MB table holds many millions of positions.
type entry struct {
	key   uint32 // high 32 bits of the fingerprint, for collision detection
	move  board.Move // best move at this node
	score int16
	depth int8
	bound Bound
	age   uint8
}

const entrySize = 12 // approximate bytes per slot, used to size the table from a MB budget

// Table is the fixed-memory position cache of spec §4.2.
type Table struct {
	entries []entry
	mask    uint64
	age     uint8

	probes uint64
	hits   uint64
}

// NewTable allocates a table sized to fit within sizeMB megabytes,
// rounding the slot count down to a power of two so indexing uses a
// bitmask rather than a modulo.
func NewTable(sizeMB int) *Table {
	if sizeMB < 1 {
		sizeMB = 1
	}
	numEntries := roundDownPow2((sizeMB * 1024 * 1024) / entrySize)
	if numEntries < 1024 {
		numEntries = 1024
	}
	return &Table{
		entries: make([]entry, numEntries),
		mask:    uint64(numEntries - 1),
	}
}

func roundDownPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

func (t *Table) slot(key uint64) *entry {
	return &t.entries[key&t.mask]
}

// Probe looks up a fingerprint. found is false on a miss or on a
// stored-key mismatch (a detected collision).
func (t *Table) Probe(key uint64) (depth int, score int, bound Bound, move board.Move, found bool) {
	t.probes++
	e := t.slot(key)
	if e.bound == BoundNone || e.key != uint32(key>>32) {
		return 0, 0, BoundNone, board.NoMove, false
	}
	t.hits++
	return int(e.depth), int(e.score), e.bound, e.move, true
}

// UsableScore implements §4.2's usableScore predicate: the stored
// score may resolve this node only if the stored depth is at least
// the requested depth and the bound is conclusive for (alpha, beta).
func UsableScore(entryDepth int, bound Bound, score, depth, alpha, beta int) (int, bool) {
	if entryDepth < depth {
		return 0, false
	}
	switch bound {
	case BoundExact:
		return score, true
	case BoundLower:
		if score >= beta {
			return score, true
		}
	case BoundUpper:
		if score <= alpha {
			return score, true
		}
	}
	return 0, false
}

// Store writes an entry using §4.2's replacement policy: always
// replace an empty slot or the same position; otherwise depth ≥
// storedDepth is a baseline requirement regardless of staleness, and
// only at equal depth does staleness (entry from a previous root
// search) break the tie in favor of the fresh entry.
func (t *Table) Store(key uint64, depth, score int, bound Bound, move board.Move) {
	e := t.slot(key)
	newKey := uint32(key >> 32)

	sameOrEmpty := e.bound == BoundNone || e.key == newKey
	if !sameOrEmpty {
		storedDepth := int(e.depth)
		if depth < storedDepth {
			return
		}
		if depth == storedDepth && e.age == t.age {
			return
		}
	}

	e.key = newKey
	e.move = move
	e.score = int16(clampScore(score))
	e.depth = int8(depth)
	e.bound = bound
	e.age = t.age
}

func clampScore(s int) int {
	if s > Infinity {
		return Infinity
	}
	if s < -Infinity {
		return -Infinity
	}
	return s
}

// NewSearch increments the age counter, marking previously stored
// entries stale so they yield to fresh ones of equal or greater depth.
func (t *Table) NewSearch() { t.age++ }

// Clear empties the table, used on ucinewgame.
func (t *Table) Clear() {
	for i := range t.entries {
		t.entries[i] = entry{}
	}
	t.age = 0
	t.probes = 0
	t.hits = 0
}

// HashFull estimates per-mille occupancy by sampling the first 1000 slots.
func (t *Table) HashFull() int {
	sample := 1000
	if sample > len(t.entries) {
		sample = len(t.entries)
	}
	if sample == 0 {
		return 0
	}
	used := 0
	for i := 0; i < sample; i++ {
		if t.entries[i].bound != BoundNone && t.entries[i].age == t.age {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns the cache hit rate as a percentage, for diagnostics.
func (t *Table) HitRate() float64 {
	if t.probes == 0 {
		return 0
	}
	return float64(t.hits) / float64(t.probes) * 100
}

// Size returns the slot capacity.
func (t *Table) Size() int { return len(t.entries) }

// AdjustScoreFromTT converts a ply-corrected mate score read out of
// the table back into a root-relative score (§4.2's mate-adjustment
// invariant, needed so the same mate retrieved at a different ply
// still compares correctly against MateScore bounds).
func AdjustScoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a root-relative mate score into the
// ply-independent form stored in the table.
func AdjustScoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
