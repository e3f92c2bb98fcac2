// Package search implements the move-search and decision core of the
// engine: iterative deepening driven negamax with alpha-beta pruning,
// a transposition table, move ordering, and quiescence search.
//
// The package treats the board representation, legal move generator
// and static evaluator as external collaborators (see chessforge/board
// and chessforge/internal/eval); it never constructs or inspects a
// position beyond the accessors those packages expose.
package search

// MateScore is the score assigned to an immediate checkmate at ply 0.
// Scores within MaxPly of MateScore are mate-coded and ply-adjusted
// when they cross the transposition table boundary.
const MateScore = 29000

// MaxPly bounds recursion depth and the size of ply-indexed tables
// (killers, the PV table, the undo stack).
const MaxPly = 128

// Infinity is a window bound wide enough that it is never mistaken for
// a real evaluation; kept comfortably below the int range used for
// alpha/beta arithmetic so negation never overflows.
const Infinity = MateScore + MaxPly

// MaxCheckExtensions caps the cumulative check-extension ply bonus
// along a single root-to-leaf line (spec §4.6 step 9: "capped by a
// per-line extension budget to prevent runaway extension").
const MaxCheckExtensions = 16
