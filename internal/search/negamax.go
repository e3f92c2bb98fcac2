package search

import (
	"math"
	"sync/atomic"

	"chessforge/board"
	"chessforge/internal/eval"
)

// lmrTable precomputes late-move-reduction amounts, grounded on
// hailam-chessplay/internal/engine/worker.go's Stockfish-derived
// formula: 21.46 * log(depth) * log(moveCount) / 1024.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrTable[d][m] = int(21.46 * math.Log(float64(d)) * math.Log(float64(m)) / 1024.0)
		}
	}
}

// Searcher owns all per-search mutable state for one single-threaded
// negamax run (spec §4.6/§4.11: the engine is deliberately
// single-worker, replacing the teacher's Lazy-SMP fan-out per the §9
// redesign note).
type Searcher struct {
	pos *board.Position
	tt  *Table

	killers *Killers
	history *History
	pawns   *eval.PawnCache

	pv PV

	stats   Stats
	stopped bool
	stop    *atomic.Bool

	undoStack [MaxPly]board.UndoInfo
	evalStack [MaxPly]int
}

// NewSearcher creates a Searcher bound to a shared transposition
// table and pawn cache (survive across searches within one game) and
// a fresh set of per-search ordering tables.
func NewSearcher(tt *Table, pawns *eval.PawnCache, stop *atomic.Bool) *Searcher {
	return &Searcher{
		tt:      tt,
		pawns:   pawns,
		killers: &Killers{},
		history: &History{},
		stop:    stop,
	}
}

// NewGame clears everything that should not survive past ucinewgame.
func (s *Searcher) NewGame() {
	s.tt.Clear()
	s.killers.Clear()
	s.history.Clear()
	s.pawns.Clear()
}

// checkStop polls the external stop flag every 2048 nodes, matching
// the teacher's node-counted polling interval so stop latency stays
// bounded without an atomic load on every single node.
func (s *Searcher) checkStop() bool {
	if s.stopped {
		return true
	}
	if s.stats.Nodes&2047 == 0 && s.stop.Load() {
		s.stopped = true
	}
	return s.stopped
}

// evaluate is the staticEvaluate collaborator of spec §6.
func (s *Searcher) evaluate() int {
	return eval.EvaluateWithPawnCache(s.pos, s.pawns)
}

// SearchRoot runs one fixed-depth negamax pass from the root,
// returning the best move and its score; the PV line is left in s.pv.
// It is the unit the iterative-deepening driver (Engine.FindBestMove
// in engine.go) calls once per depth.
func (s *Searcher) SearchRoot(pos *board.Position, depth, alpha, beta int) (board.Move, int) {
	s.pos = pos
	s.pv.Reset()

	score := s.negamax(depth, 0, alpha, beta, false, false, 0)

	best := s.pv.BestMove()
	if best == board.NoMove && !s.stopped {
		moves := s.pos.GenerateLegalMoves()
		if moves.Len() > 0 {
			best = moves.Get(0)
		}
	}
	return best, score
}

// negamax implements spec §4.6: negamax with alpha-beta pruning, a
// transposition table, null-move pruning, late-move reductions,
// futility pruning, check extensions, and principal variation search.
// parentNull reports whether the move leading to this node was a null
// move (so NMP never fires twice in a row); extensions is the
// cumulative check-extension bonus already granted along this line.
func (s *Searcher) negamax(depth, ply int, alpha, beta int, parentNull bool, cutNode bool, extensions int) int {
	if ply >= MaxPly-1 {
		return s.evaluate()
	}
	if s.checkStop() {
		return alpha
	}

	s.stats.Nodes++
	if depth < MaxPly {
		s.stats.NodesByDepth[depth]++
	}

	pvNode := beta-alpha > 1

	if ply > 0 && s.isDraw() {
		return 0
	}

	// Transposition table probe (spec §4.2).
	var ttMove board.Move
	ttDepth, ttScore, ttBound, storedMove, found := s.tt.Probe(s.pos.Hash)
	if found {
		s.stats.TTHits++
		ttMove = storedMove
		if score, usable := UsableScore(ttDepth, ttBound, AdjustScoreFromTT(ttScore, ply), depth, alpha, beta); usable && !pvNode {
			return score
		}
	} else {
		s.stats.TTMisses++
	}

	if depth <= 0 {
		return s.quiescence(alpha, beta, ply)
	}

	inCheck := s.pos.InCheck()

	staticEval := s.evaluate()
	s.evalStack[ply] = staticEval
	improving := ply >= 2 && staticEval > s.evalStack[ply-2]

	// Reverse futility / static null-move pruning: a position already
	// far above beta by a depth-scaled margin is assumed to hold.
	if !inCheck && !pvNode && depth <= 6 {
		margin := 80 * depth
		if !improving {
			margin -= 20
		}
		if staticEval-margin >= beta {
			return beta
		}
	}

	// Null-move pruning (spec §4.6): skip our move entirely and verify
	// the opponent still cannot reach beta, signalling this node is
	// safely above beta regardless of our actual best reply. Disabled
	// in check, at the root, in PV nodes, with only pawns and king left
	// (zugzwang risk), and when the parent just null-moved (two
	// consecutive null moves prove nothing).
	if !inCheck && !pvNode && !parentNull && depth >= 3 && ply > 0 && s.pos.HasNonPawnMaterial() {
		r := 3 + depth/4
		if staticEval-beta > 0 {
			r++
		}
		if r > depth-1 {
			r = depth - 1
		}
		if r >= 1 {
			undo := s.pos.MakeNullMove()
			score := -s.negamax(depth-1-r, ply+1, -beta, -beta+1, true, !cutNode, extensions)
			s.pos.UnmakeNullMove(undo)
			if s.stopped {
				return alpha
			}
			if score >= beta {
				return score
			}
		}
	}

	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = score(s.pos, moves.Get(i), ply, ttMove, s.killers, s.history)
	}

	// Futility pruning flag: at shallow depth, if the static eval is
	// already well below alpha, quiet moves cannot plausibly recover
	// and are skipped once at least one move has been searched.
	futilityPrune := false
	futilityMargins := [6]int{0, 200, 300, 500, 700, 900}
	if !inCheck && !pvNode && depth <= 5 {
		if staticEval+futilityMargins[depth] <= alpha {
			futilityPrune = true
		}
	}

	bestScore := -Infinity
	bestMove := board.NoMove
	bound := BoundUpper
	searched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		isCapture := move.IsCapture(s.pos)
		isPromotion := move.IsPromotion()
		isQuiet := !isCapture && !isPromotion

		if futilityPrune && isQuiet && bestMove != board.NoMove {
			continue
		}

		s.undoStack[ply] = s.pos.MakeMove(move)
		if !s.undoStack[ply].Valid {
			s.pos.UnmakeMove(move, s.undoStack[ply])
			continue
		}
		searched++

		// Check extension (spec §4.6 step 9): evaluated per child,
		// against the position the move just produced, not the parent's
		// own check status. Capped by a per-line budget so a long
		// forcing sequence cannot runaway-extend the search.
		childExtension := 0
		if s.pos.InCheck() && extensions < MaxCheckExtensions {
			childExtension = 1
		}
		childExtensions := extensions + childExtension
		newDepth := depth - 1 + childExtension

		var moveScore int
		switch {
		case searched == 1:
			// First move searched with the full window (PVS, spec §4.6).
			moveScore = -s.negamax(newDepth, ply+1, -beta, -alpha, false, false, childExtensions)
		case isQuiet && searched > 4 && depth >= 3 && !inCheck:
			// Late move reduction (spec §4.6): quiet moves searched
			// late in the ordering get a reduced-depth scout search
			// first, re-searched at full depth only if it beats alpha.
			d := depth
			if d > 63 {
				d = 63
			}
			m := searched
			if m > 63 {
				m = 63
			}
			reduction := lmrTable[d][m]
			if !improving {
				reduction++
			}
			if move == ttMove {
				reduction -= 2
			}
			if cutNode {
				reduction++
			}
			if reduction < 0 {
				reduction = 0
			}
			reduced := newDepth - reduction
			if reduced < 1 {
				reduced = 1
			}

			moveScore = -s.negamax(reduced, ply+1, -alpha-1, -alpha, false, true, childExtensions)
			if moveScore > alpha && reduced < newDepth {
				moveScore = -s.negamax(newDepth, ply+1, -alpha-1, -alpha, false, !cutNode, childExtensions)
			}
			if moveScore > alpha && moveScore < beta {
				moveScore = -s.negamax(newDepth, ply+1, -beta, -alpha, false, false, childExtensions)
			}
		default:
			// PVS scout search with a null window, re-searched with the
			// full window only if it fails high.
			moveScore = -s.negamax(newDepth, ply+1, -alpha-1, -alpha, false, !cutNode, childExtensions)
			if moveScore > alpha && moveScore < beta {
				moveScore = -s.negamax(newDepth, ply+1, -beta, -alpha, false, false, childExtensions)
			}
		}

		s.pos.UnmakeMove(move, s.undoStack[ply])

		if s.stopped {
			return alpha
		}

		if moveScore > bestScore {
			bestScore = moveScore
			bestMove = move

			if moveScore > alpha {
				alpha = moveScore
				bound = BoundExact
				s.pv.Update(ply, move)
			}
		}

		if moveScore >= beta {
			s.stats.BetaCutoffs++
			s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(moveScore, ply), BoundLower, bestMove)

			if isQuiet {
				s.killers.Store(move, ply)
				piece := s.pos.PieceAt(move.From())
				s.history.Bonus(s.pos.SideToMove, piece.Type(), move.From(), move.To(), depth)
				for j := 0; j < i; j++ {
					other := moves.Get(j)
					if !other.IsCapture(s.pos) && !other.IsPromotion() {
						op := s.pos.PieceAt(other.From())
						s.history.Penalty(s.pos.SideToMove, op.Type(), other.From(), other.To(), depth)
					}
				}
			}
			return moveScore
		}
	}

	if searched == 0 {
		// Every pseudo-legal move generated turned out illegal: should
		// not happen since moves came from GenerateLegalMoves, but
		// guards against an empty search with a stalemate-like score.
		return 0
	}

	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), bound, bestMove)
	return bestScore
}

// isDraw implements spec §4.6's draw detection: fifty-move rule and
// insufficient material. Repetition is not detected: the Searcher only
// sees the subtree it is currently exploring, and no caller checks the
// game's position history either.
func (s *Searcher) isDraw() bool {
	if s.pos.HalfMoveClock >= 100 {
		return true
	}
	if s.pos.IsInsufficientMaterial() {
		return true
	}
	return false
}
