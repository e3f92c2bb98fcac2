package search

import "chessforge/board"

// Killers is the per-ply non-capture cutoff table of spec §3/§4.3: a
// dense max_ply x 2 move array (the §9 redesign note's replacement for
// the reference's nullable, pointer-based killer slots).
type Killers struct {
	moves [MaxPly][2]board.Move
}

// Store records a quiet move that caused a beta cutoff at ply. If it
// is already the primary killer, nothing changes; otherwise the
// primary moves to secondary and the new move becomes primary.
// Captures and promotions are never stored (guarded by the caller,
// which only calls Store for quiet cutoff moves).
func (k *Killers) Store(m board.Move, ply int) {
	if ply < 0 || ply >= MaxPly {
		return
	}
	if k.moves[ply][0] == m {
		return
	}
	k.moves[ply][1] = k.moves[ply][0]
	k.moves[ply][0] = m
}

// Primary returns the first killer at ply, or board.NoMove.
func (k *Killers) Primary(ply int) board.Move {
	if ply < 0 || ply >= MaxPly {
		return board.NoMove
	}
	return k.moves[ply][0]
}

// Secondary returns the second killer at ply, or board.NoMove.
func (k *Killers) Secondary(ply int) board.Move {
	if ply < 0 || ply >= MaxPly {
		return board.NoMove
	}
	return k.moves[ply][1]
}

// Clear resets every ply's killers, done at the start of each root search.
func (k *Killers) Clear() {
	k.moves = [MaxPly][2]board.Move{}
}
