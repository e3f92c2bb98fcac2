package search

import "chessforge/board"

// PV is the triangular principal-variation table of spec §4.7: row ply
// holds the best line found starting from that ply. Updating row p
// stores the new best move at row[p][p] and copies row[p+1][p+1:] into
// row[p][p+1:].
type PV struct {
	length [MaxPly]int
	table  [MaxPly][MaxPly]board.Move
}

// Reset clears every row, done at the start of each root search.
func (pv *PV) Reset() {
	for i := range pv.length {
		pv.length[i] = 0
	}
}

// Update prepends best onto the line found at ply+1, per §4.7.
func (pv *PV) Update(ply int, best board.Move) {
	pv.table[ply][ply] = best
	for next := ply + 1; next < pv.length[ply+1]; next++ {
		pv.table[ply][next] = pv.table[ply+1][next]
	}
	pv.length[ply] = pv.length[ply+1]
	if pv.length[ply] <= ply {
		pv.length[ply] = ply + 1
	}
}

// Line returns the principal variation starting at ply, root first.
func (pv *PV) Line(ply int) []board.Move {
	n := pv.length[ply]
	if n <= ply {
		return nil
	}
	line := make([]board.Move, 0, n-ply)
	for i := ply; i < n; i++ {
		line = append(line, pv.table[ply][i])
	}
	return line
}

// BestMove returns the root's best move, or board.NoMove if the table is empty.
func (pv *PV) BestMove() board.Move {
	if pv.length[0] == 0 {
		return board.NoMove
	}
	return pv.table[0][0]
}
