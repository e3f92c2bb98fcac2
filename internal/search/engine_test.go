package search

import (
	"testing"
	"time"

	"chessforge/board"
	"chessforge/internal/eval"
)

func TestFindBestMoveBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(Config{HashMB: 16})

	result := eng.FindBestMove(pos, Budget{Depth: 4, MoveTime: 2 * time.Second})
	if result.Move == board.NoMove {
		t.Error("FindBestMove returned NoMove for starting position")
	}
	t.Logf("best move: %s depth=%d score=%d", result.Move.String(), result.Depth, result.Score)
}

func TestFindBestMoveAcrossPositions(t *testing.T) {
	eng := NewEngine(Config{HashMB: 16})

	positions := []string{
		board.StartFEN,
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3", // Italian Game
		"8/8/8/4k3/8/4K3/4P3/8 w - - 0 1",                                  // KP endgame
	}

	for i, fen := range positions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("position %d: failed to parse FEN: %v", i, err)
		}

		result := eng.FindBestMove(pos, Budget{Depth: 5, MoveTime: 300 * time.Millisecond})
		if result.Move == board.NoMove {
			if !pos.InCheck() || pos.GenerateLegalMoves().Len() > 0 {
				t.Errorf("position %d: FindBestMove returned NoMove", i)
			}
			continue
		}
		t.Logf("position %d: best move = %s", i, result.Move.String())
	}
}

func TestFindBestMoveRespectsDepthCeiling(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(Config{HashMB: 16})

	result := eng.FindBestMove(pos, Budget{Depth: 3, MoveTime: 5 * time.Second})
	if result.Depth > 3 {
		t.Errorf("expected depth <= 3, got %d", result.Depth)
	}
}

func TestStopHaltsSearchPromptly(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(Config{HashMB: 16})

	done := make(chan SearchResult, 1)
	go func() {
		done <- eng.FindBestMove(pos, Budget{Infinite: true})
	}()

	time.Sleep(20 * time.Millisecond)
	eng.Stop()

	select {
	case result := <-done:
		if result.Move == board.NoMove {
			t.Error("expected a move even from a stopped infinite search")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not halt the search promptly")
	}
}

func TestPawnCache(t *testing.T) {
	pc := eval.NewPawnCache(1)

	pos := board.NewPosition()

	if _, _, found := pc.Probe(pos.PawnKey); found {
		t.Error("expected cache miss on first probe")
	}

	pc.Store(pos.PawnKey, -15, -20)

	mg, eg, found := pc.Probe(pos.PawnKey)
	if !found {
		t.Error("expected cache hit after store")
	}
	if mg != -15 || eg != -20 {
		t.Errorf("wrong values: got mg=%d, eg=%d, want -15, -20", mg, eg)
	}

	oldKey := pos.PawnKey
	move := board.NewMove(board.E2, board.E4)
	undo := pos.MakeMove(move)
	if pos.PawnKey == oldKey {
		t.Error("PawnKey should change when a pawn moves")
	}

	pos.UnmakeMove(move, undo)
	if pos.PawnKey != oldKey {
		t.Error("PawnKey should be restored on unmake")
	}
}
