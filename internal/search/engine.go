package search

import (
	"sync/atomic"
	"time"

	"chessforge/board"
	"chessforge/internal/eval"
)

// Config is the engine-wide configuration of spec §4.11: hash table
// size and the advertised MultiPV width. Threads is accepted for UCI
// compatibility but never read — the engine always runs a single
// search worker.
type Config struct {
	HashMB  int
	Threads int
	MultiPV int
}

// DefaultConfig returns the engine's out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{HashMB: 64, Threads: 1, MultiPV: 1}
}

// Budget is the time/depth/node ceiling for one findBestMove call,
// built from UCI "go" parameters by the caller (spec §4.10).
type Budget struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
	Infinite  bool
}

// Info is one iterative-deepening progress report, fed to the UCI
// layer's "info" line (spec §4.9).
type Info struct {
	Depth    int
	Score    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
	HashFull int
}

// SearchResult is findBestMove's return value (spec §4.11).
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
	Nodes uint64
}

// BookProber is the opening-book collaborator (spec §6's supplemented
// book feature); *book.CachedBook satisfies it without this package
// needing to import book directly.
type BookProber interface {
	Probe(pos *board.Position) (board.Move, bool)
}

// Engine is the single entry point of spec §4.11: construct once per
// process, reuse its transposition table and caches across searches
// within a game, and call FindBestMove once per "go" command.
type Engine struct {
	cfg Config

	tt    *Table
	pawns *eval.PawnCache
	stop  atomic.Bool

	searcher *Searcher
	book     BookProber

	positionHashes []uint64

	OnInfo func(Info)
}

// NewEngine constructs an Engine from a Config.
func NewEngine(cfg Config) *Engine {
	if cfg.HashMB < 1 {
		cfg.HashMB = 1
	}
	if cfg.MultiPV < 1 {
		cfg.MultiPV = 1
	}
	tt := NewTable(cfg.HashMB)
	pawns := eval.NewPawnCache(4)

	e := &Engine{
		cfg:   cfg,
		tt:    tt,
		pawns: pawns,
	}
	e.searcher = NewSearcher(tt, pawns, &e.stop)
	return e
}

// SetBook installs the opening-book collaborator.
func (e *Engine) SetBook(b BookProber) {
	e.book = b
}

// SetHashSize resizes the transposition table, done on a UCI
// "setoption name Hash" before the next search.
func (e *Engine) SetHashSize(mb int) {
	if mb < 1 {
		mb = 1
	}
	e.cfg.HashMB = mb
	e.tt = NewTable(mb)
	e.searcher.tt = e.tt
}

// SetPositionHistory records the game's position hashes so far. Only
// their count is used, as the game ply handed to the time manager;
// repeated positions are not detected.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.positionHashes = append([]uint64(nil), hashes...)
}

// NewGame clears all learned state, done on "ucinewgame".
func (e *Engine) NewGame() {
	e.searcher.NewGame()
}

// Stop signals the running search to return as soon as possible.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return eval.EvaluateWithPawnCache(pos, e.pawns)
}

// HashFull reports the transposition table's per-mille occupancy,
// exposed so callers outside this package can record it alongside
// other completed-search statistics without reaching into the table.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Perft counts leaf nodes at depth below pos, for move-generator
// regression testing (spec §8).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}
	return nodes
}

// FindBestMove is spec §4.11's findBestMove(position, budget, config)
// -> SearchResult: it probes the opening book, then runs iterative
// deepening with aspiration windows (spec §4.8/§4.9) until the time
// manager or a depth/node ceiling says to stop.
func (e *Engine) FindBestMove(pos *board.Position, budget Budget) SearchResult {
	if e.book != nil {
		if move, ok := e.book.Probe(pos); ok {
			return SearchResult{Move: move}
		}
	}

	e.stop.Store(false)
	e.searcher.stopped = false
	e.tt.NewSearch()
	e.searcher.killers.Clear()
	e.searcher.stats.reset()

	tm := NewTimeManager()
	ply := len(e.positionHashes)
	tm.Init(UCILimits{
		Time:      [2]time.Duration{budget.WTime, budget.BTime},
		Inc:       [2]time.Duration{budget.WInc, budget.BInc},
		MovesToGo: budget.MovesToGo,
		MoveTime:  budget.MoveTime,
		Depth:     budget.Depth,
		Nodes:     budget.Nodes,
		Infinite:  budget.Infinite,
	}, pos.SideToMove, ply)

	rootMoves := pos.GenerateLegalMoves()
	tm.ApplyComplexity(rootMoves.Len(), pos.GenerateCaptures().Len(), pos.InCheck())

	maxDepth := MaxPly - 1
	if budget.Depth > 0 {
		maxDepth = budget.Depth
	}

	start := time.Now()
	var result SearchResult
	var lastMove board.Move
	var stability int
	var lastIterationElapsed time.Duration

	prevScore := 0
	for depth := 1; depth <= maxDepth; depth++ {
		// Predictive stop (spec §4.9 step 2): assume the next iteration
		// takes ~3x the previous one; don't start it if that would blow
		// through the hard time budget minus a 50ms safety margin.
		if !budget.Infinite && tm.WouldExceedHard(lastIterationElapsed) {
			break
		}
		iterStart := time.Now()

		var move board.Move
		var score int

		if depth < 5 {
			move, score = e.searcher.SearchRoot(pos, depth, -Infinity, Infinity)
		} else {
			// Aspiration window search (spec §4.8): start with a narrow
			// window around the previous iteration's score and widen on
			// each fail-high/fail-low until the true score is bracketed.
			window := 25
			alpha := prevScore - window
			beta := prevScore + window
			for {
				move, score = e.searcher.SearchRoot(pos, depth, alpha, beta)
				if e.searcher.stopped {
					break
				}
				if score <= alpha {
					alpha -= window
					window *= 2
				} else if score >= beta {
					beta += window
					window *= 2
				} else {
					break
				}
				if alpha < -Infinity {
					alpha = -Infinity
				}
				if beta > Infinity {
					beta = Infinity
				}
			}
		}

		if e.searcher.stopped {
			break
		}

		prevScore = score
		e.searcher.stats.Elapsed = time.Since(start)
		lastIterationElapsed = time.Since(iterStart)

		if move != board.NoMove {
			if move == lastMove {
				stability++
			} else {
				stability = 0
			}
			lastMove = move

			result = SearchResult{
				Move:  move,
				Score: score,
				PV:    e.searcher.pv.Line(0),
				Depth: depth,
				Nodes: e.searcher.stats.Nodes,
			}

			if e.OnInfo != nil {
				e.OnInfo(Info{
					Depth:    depth,
					Score:    score,
					Nodes:    e.searcher.stats.Nodes,
					Elapsed:  e.searcher.stats.Elapsed,
					PV:       result.PV,
					HashFull: e.tt.HashFull(),
				})
			}
		}

		if score > MateScore-100 || score < -MateScore+100 {
			break
		}
		if budget.Nodes > 0 && e.searcher.stats.Nodes >= budget.Nodes {
			break
		}
		if !budget.Infinite {
			if tm.PastOptimum() && stability >= 4 {
				break
			}
			if tm.ShouldStop() {
				break
			}
		}
	}

	e.stop.Store(true)
	return result
}
