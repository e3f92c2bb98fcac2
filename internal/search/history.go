package search

import "chessforge/board"

// History is the quiet-move success counter of spec §3/§4.3: a single
// contiguous array indexed by (side to move, piece type, from, to),
// per the §9 redesign note replacing the teacher's sparse [64][64]
// table-of-tables with one dense array and no pointer-chasing.
type History struct {
	score [2][6][64][64]int
}

const historyCeiling = 1 << 14 // "configured ceiling" of §4.3

// Bonus adds a beta-cutoff bonus of depth^2 to the cell for a quiet
// move, aging (halving) the whole side's table if any cell reaches
// 90% of the ceiling.
func (h *History) Bonus(side board.Color, piece board.PieceType, from, to board.Square, depth int) {
	bonus := depth * depth
	cell := &h.score[side][piece][from][to]
	*cell += bonus
	if *cell >= historyCeiling*9/10 {
		h.age(side)
	}
}

// Penalty subtracts floor(depth/2) from a quiet move that was tried
// and searched but did not cause the cutoff, clamped at zero so the
// table never goes negative.
func (h *History) Penalty(side board.Color, piece board.PieceType, from, to board.Square, depth int) {
	cell := &h.score[side][piece][from][to]
	*cell -= depth / 2
	if *cell < 0 {
		*cell = 0
	}
}

func (h *History) age(side board.Color) {
	for pt := range h.score[side] {
		for f := range h.score[side][pt] {
			for t := range h.score[side][pt][f] {
				h.score[side][pt][f][t] /= 2
			}
		}
	}
}

// Score returns the current history value for a quiet move.
func (h *History) Score(side board.Color, piece board.PieceType, from, to board.Square) int {
	return h.score[side][piece][from][to]
}

// Clear resets every cell, used on ucinewgame.
func (h *History) Clear() {
	h.score = [2][6][64][64]int{}
}
