package search

import (
	"chessforge/board"
	"chessforge/internal/eval"
)

// quiescence implements spec §4.5's qsearch(position, alpha, beta,
// qdepth) -> score. It is the capture-only extension that stabilizes
// leaf evaluation so the negamax core never "sees" a position mid
// tactical exchange.
//
// Grounded on hailam-chessplay/internal/engine/worker.go's
// quiescenceInternal, trimmed to the stand-pat/delta-pruning/MVV-LVA
// shape spec §4.5 names, with SEE-based pruning of losing captures
// kept as a documented enrichment (see DESIGN.md).
func (s *Searcher) quiescence(alpha, beta, ply int) int {
	s.stats.QuiescenceNodes++
	s.stats.Nodes++

	if s.checkStop() {
		return alpha
	}

	inCheck := s.pos.InCheck()

	var standPat int
	if !inCheck {
		standPat = eval.Evaluate(s.pos)
		if standPat >= beta {
			return beta
		}
		if standPat > alpha {
			alpha = standPat
		}
		if standPat+eval.QueenValue < alpha {
			return alpha
		}
	}

	const maxQuiescencePly = 32
	if ply >= MaxPly || ply >= maxQuiescencePly {
		if inCheck {
			return eval.Evaluate(s.pos)
		}
		return standPat
	}

	var captures *board.MoveList
	if inCheck {
		// In check, every evasion is a candidate, not just captures.
		captures = s.pos.GenerateLegalMoves()
	} else {
		captures = s.pos.GenerateCaptures()
	}

	if inCheck && captures.Len() == 0 {
		return -MateScore + ply
	}

	scores := make([]int, captures.Len())
	for i := 0; i < captures.Len(); i++ {
		scores[i] = mvvLvaScore(s.pos, captures.Get(i))
	}

	best := alpha
	for i := 0; i < captures.Len(); i++ {
		PickMove(captures, scores, i)
		m := captures.Get(i)

		if !inCheck && eval.SEE(s.pos, m) < 0 {
			continue
		}

		undo := s.pos.MakeMove(m)
		score := -s.quiescence(-beta, -best, ply+1)
		s.pos.UnmakeMove(m, undo)

		if s.stopped {
			return best
		}

		if score > best {
			best = score
			if best >= beta {
				return beta
			}
		}
	}

	return best
}
