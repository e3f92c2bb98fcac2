package search

import "chessforge/board"

// Grounded on hailam-chessplay/internal/engine/ordering.go, trimmed to
// exactly the priority bands spec §4.4 names: hash move, MVV-LVA
// captures/promotions, killers, history, with a castling nudge. The
// teacher's extra capture-history and countermove-history tables (used
// by its Lazy-SMP worker) are dropped — see DESIGN.md.

const (
	ttMoveScore    = 1 << 30 // hash move: "largest constant"
	captureBase    = 1 << 20
	killerPrimary  = 1 << 19
	killerSecondary = killerPrimary - 1
	castleNudge    = 1 // "small positive nudge over generic quiet moves"
)

// mvvLva[victim][attacker] implements victim_value*10 - attacker_value
// using piece-type indices 0=Pawn..5=King, scaled into a compact table
// exactly as the teacher precomputes it.
var mvvLva = [6][6]int{
	/* victim P */ {15, 14, 14, 13, 12, 11},
	/* victim N */ {25, 24, 24, 23, 22, 21},
	/* victim B */ {35, 34, 34, 33, 32, 31},
	/* victim R */ {45, 44, 44, 43, 42, 41},
	/* victim Q */ {55, 54, 54, 53, 52, 51},
	/* victim K */ {0, 0, 0, 0, 0, 0},
}

// score computes a single move's sort key per spec §4.4: hash move,
// then MVV-LVA captures/promotions, then killers, then history, with a
// small castling nudge over otherwise-equal quiet moves.
func score(pos *board.Position, m board.Move, ply int, ttMove board.Move, killers *Killers, hist *History) int {
	if m == ttMove {
		return ttMoveScore
	}

	if m.IsCapture(pos) {
		return captureBase + mvvLvaScore(pos, m)
	}

	if m.IsPromotion() {
		// Queen promotion ranks highest among promotions.
		promoRank := 0
		if m.Promotion() == board.Queen {
			promoRank = 4
		} else {
			promoRank = int(m.Promotion())
		}
		return captureBase - 1000 + promoRank
	}

	if m == killers.Primary(ply) {
		return killerPrimary
	}
	if m == killers.Secondary(ply) {
		return killerSecondary
	}

	piece := pos.PieceAt(m.From())
	h := hist.Score(pos.SideToMove, piece.Type(), m.From(), m.To())
	if m.IsCastling() {
		return h + castleNudge
	}
	return h
}

// mvvLvaScore scores a capture (including en passant, treated as a
// pawn capture per §4.4) by victim/attacker value.
func mvvLvaScore(pos *board.Position, m board.Move) int {
	attacker := pos.PieceAt(m.From()).Type()

	var victim board.PieceType
	if m.IsEnPassant() {
		victim = board.Pawn
	} else {
		victim = pos.PieceAt(m.To()).Type()
	}

	if victim > board.King || attacker > board.King {
		return 0
	}
	return mvvLva[victim][attacker] * 1000
}

// PickMove performs one step of lazy selection sort: the best
// remaining move (by score) is swapped into position index. Used by
// the negamax loop so moves are only sorted as far as the search
// actually looks, avoiding a full sort when a cutoff happens early.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}
