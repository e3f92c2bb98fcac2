package search

import (
	"time"

	"chessforge/board"
)

// UCILimits contains UCI time control parameters.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode
}

// TimeManager implements spec §4.10: it converts a clock/increment/
// moves-to-go input into a {soft, hard, min} output triple.
//   - soft is the target the driver stops extending new iterations past
//     (PastOptimum).
//   - hard is the ceiling past which the driver must not start a new
//     iteration (ShouldStop).
//   - min is the floor below which soft is never clamped, guaranteeing
//     every move gets at least a token amount of thinking time.
type TimeManager struct {
	soft, hard, min time.Duration
	startTime       time.Time
	timePressure    bool
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// minSlice is the floor clamp spec §4.10 applies to the base time slice.
const minSlice = 100 * time.Millisecond

// Init initializes the time manager for a new search. ply is the
// current game ply (half-move number), unused by the §4.10 formula
// itself but accepted for parity with the rest of the search driver's
// per-move inputs.
func (tm *TimeManager) Init(limits UCILimits, us board.Color, ply int) {
	tm.startTime = time.Now()

	ourTime := limits.Time[us]
	ourInc := limits.Inc[us]
	tm.timePressure = ourTime+10*ourInc < 10*time.Second

	// Fixed move time mode: soft = hard = min = movetime.
	if limits.MoveTime > 0 {
		tm.soft = limits.MoveTime
		tm.hard = limits.MoveTime
		tm.min = limits.MoveTime
		return
	}

	// Infinite or depth-only mode: no clock is driving the search.
	if limits.Infinite || (ourTime == 0 && limits.MoveTime == 0) {
		tm.soft = time.Hour
		tm.hard = time.Hour
		tm.min = 0
		return
	}

	// effectiveMoves = max(movesToGo, 20).
	effectiveMoves := limits.MovesToGo
	if effectiveMoves < 20 {
		effectiveMoves = 20
	}

	// baseSlice = max(0, ourTime - 50) / effectiveMoves, plus 0.8 * increment.
	budget := ourTime - 50*time.Millisecond
	if budget < 0 {
		budget = 0
	}
	baseSlice := budget/time.Duration(effectiveMoves) + ourInc*8/10

	// Clamp below by 100ms, above by ourTime/2.
	if baseSlice < minSlice {
		baseSlice = minSlice
	}
	if half := ourTime / 2; baseSlice > half {
		baseSlice = half
	}

	tm.soft = baseSlice
	tm.min = minSlice

	// Hard time is the ceiling past which the driver must not start a
	// new iteration: generous headroom over soft so a completed-but-
	// slow iteration isn't cut off mid-search, but never past 95% of
	// what's left on the clock.
	hard := baseSlice * 3
	if safety := ourTime * 95 / 100; hard > safety {
		hard = safety
	}
	if hard < tm.soft {
		hard = tm.soft
	}
	tm.hard = hard
}

// ApplyComplexity implements §4.10's optional complexity adjustment:
// multiply soft by a factor in [0.8, 1.5] derived from position
// features (move count, captures available, check status), clamping
// the result so it never exceeds hard.
func (tm *TimeManager) ApplyComplexity(moveCount, captureCount int, inCheck bool) {
	factor := 1.0
	switch {
	case moveCount < 20:
		factor -= 0.1
	case moveCount > 40:
		factor += 0.1
	}
	if captureCount > 5 {
		factor += 0.1
	}
	if inCheck {
		factor += 0.2
	}
	if factor < 0.8 {
		factor = 0.8
	}
	if factor > 1.5 {
		factor = 1.5
	}

	adjusted := time.Duration(float64(tm.soft) * factor)
	if adjusted < tm.min {
		adjusted = tm.min
	}
	if adjusted > tm.hard {
		adjusted = tm.hard
	}
	tm.soft = adjusted
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// Soft returns the target time for this move.
func (tm *TimeManager) Soft() time.Duration {
	return tm.soft
}

// Hard returns the maximum time allowed before a new iteration must
// not be started.
func (tm *TimeManager) Hard() time.Duration {
	return tm.hard
}

// Min returns the guaranteed floor on thinking time.
func (tm *TimeManager) Min() time.Duration {
	return tm.min
}

// TimePressure reports §4.10's low-time flag: ourTime + 10×ourIncrement < 10s.
func (tm *TimeManager) TimePressure() bool {
	return tm.timePressure
}

// ShouldStop returns true once hard time has been exceeded.
func (tm *TimeManager) ShouldStop() bool {
	return tm.Elapsed() >= tm.hard
}

// PastOptimum returns true once soft time has been exceeded.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.soft
}

// WouldExceedHard implements §4.9 step 2's predictive stop check: given
// the previous iteration's duration, estimate the next iteration at
// ~3x that duration and report whether starting it would blow through
// hard time minus a 50ms safety margin.
func (tm *TimeManager) WouldExceedHard(prevIterationElapsed time.Duration) bool {
	if prevIterationElapsed <= 0 {
		return false
	}
	estimate := tm.Elapsed() + prevIterationElapsed*3
	safety := 50 * time.Millisecond
	return estimate > tm.hard-safety
}
