// Package uci implements the boundary of spec §6: it speaks the
// Universal Chess Interface protocol over stdin/stdout and translates
// it to calls against the internal/search facade.
package uci

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"chessforge/board"
	"chessforge/internal/book"
	"chessforge/internal/search"
	"chessforge/internal/store"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *search.Engine
	position *board.Position

	positionHashes []uint64

	bookStore *store.Store
	book      *book.Book

	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool
}

// New creates a new UCI protocol handler bound to eng.
func New(eng *search.Engine) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
	}
}

// Run starts the UCI main loop, reading commands from stdin until EOF
// or "quit".
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "d":
			fmt.Println(u.position.String())
		case "perft":
			u.handlePerft(args)
		}
	}
}

// handleUCI responds to the "uci" command with the engine's identity
// and configurable options.
func (u *UCI) handleUCI() {
	fmt.Println("id name Chessforge")
	fmt.Println("id author Chessforge Contributors")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 4096")
	fmt.Println("option name MultiPV type spin default 1 min 1 max 8")
	fmt.Println("option name OwnBook type check default true")
	fmt.Println("option name BookFile type string default <empty>")
	fmt.Println("option name BookMaxPly type spin default 0 min 0 max 200")
	fmt.Println("option name BookMinWeight type spin default 0 min 0 max 65535")
	fmt.Println("uciok")
}

// handleNewGame resets learned search state for a fresh game.
func (u *UCI) handleNewGame() {
	u.engine.NewGame()
	u.position = board.NewPosition()
	u.positionHashes = []uint64{u.position.Hash}
}

// handlePosition parses and applies one of:
//
//	position startpos
//	position startpos moves e2e4 e7e5
//	position fen <fen>
//	position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	u.positionHashes = nil
	var moveStart int

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}
		pos, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			fmt.Fprintf(os.Stderr, "info string invalid FEN: %v\n", err)
			return
		}
		u.position = pos
		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	default:
		return
	}

	u.positionHashes = append(u.positionHashes, u.position.Hash)

	if moveStart < len(args) {
		for _, moveStr := range args[moveStart:] {
			move := u.parseMove(moveStr)
			if move == board.NoMove {
				fmt.Fprintf(os.Stderr, "info string invalid move: %s\n", moveStr)
				return
			}
			u.position.MakeMove(move)
			u.position.UpdateCheckers()
			u.positionHashes = append(u.positionHashes, u.position.Hash)
		}
	}
}

// parseMove converts a UCI long-algebraic move string to the matching
// legal board.Move in the current position.
func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')
	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}

	from := board.NewSquare(fromFile, fromRank)
	to := board.NewSquare(toFile, toRank)

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if promo != 0 {
			if m.IsPromotion() && m.Promotion() == promo {
				return m
			}
		} else if !m.IsPromotion() {
			return m
		}
	}
	return board.NoMove
}

// GoOptions holds parsed "go" command arguments.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search for the current position and reports
// "bestmove" once it completes or is stopped.
func (u *UCI) handleGo(args []string) {
	opts := u.parseGoOptions(args)

	u.engine.SetPositionHistory(u.positionHashes)
	u.engine.OnInfo = func(info search.Info) {
		u.sendInfo(info)
	}

	budget := search.Budget{
		Depth:     opts.Depth,
		Nodes:     opts.Nodes,
		MoveTime:  opts.MoveTime,
		WTime:     opts.WTime,
		BTime:     opts.BTime,
		WInc:      opts.WInc,
		BInc:      opts.BInc,
		MovesToGo: opts.MovesToGo,
		Infinite:  opts.Infinite,
	}

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	pos := u.position.Copy()
	originalPos := u.position.Copy()

	go func() {
		defer close(u.searchDone)

		result := u.engine.FindBestMove(pos, budget)
		u.searching = false
		u.recordSearch(originalPos, result)

		bestMove := result.Move
		if bestMove != board.NoMove {
			legal := originalPos.GenerateLegalMoves()
			for i := 0; i < legal.Len(); i++ {
				if legal.Get(i) == bestMove {
					fmt.Printf("bestmove %s\n", bestMove.String())
					return
				}
			}
			fmt.Fprintf(os.Stderr, "info string search returned illegal move %s\n", bestMove.String())
		}

		legal := originalPos.GenerateLegalMoves()
		if legal.Len() > 0 {
			fmt.Printf("bestmove %s\n", legal.Get(0).String())
		} else {
			fmt.Println("bestmove 0000")
		}
	}()
}

// recordSearch appends a SearchRecord for one completed search to the
// session's node-count ledger (SPEC_FULL.md's domain stack: a running
// record of engine performance across a UCI session), opening the
// shared cache store on first use if no book has opened it already.
func (u *UCI) recordSearch(pos *board.Position, result search.SearchResult) {
	s := u.statsStore()
	if s == nil {
		return
	}
	rec := store.SearchRecord{
		FEN:      pos.ToFEN(),
		Depth:    result.Depth,
		Score:    result.Score,
		Nodes:    result.Nodes,
		HashFull: u.engine.HashFull(),
		Finished: time.Now(),
	}
	if err := s.AppendSearchRecord(rec); err != nil {
		fmt.Fprintf(os.Stderr, "info string failed to record search stats: %v\n", err)
	}
}

// statsStore returns the shared cache store, opening it on first use.
// It is the same store a loaded book caches entries in; a search
// record gets appended to it whether or not a book was ever loaded.
func (u *UCI) statsStore() *store.Store {
	if u.bookStore != nil {
		return u.bookStore
	}
	s, err := store.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string failed to open cache store: %v\n", err)
		return nil
	}
	u.bookStore = s
	return u.bookStore
}

// parseGoOptions parses "go" command arguments.
func (u *UCI) parseGoOptions(args []string) GoOptions {
	var opts GoOptions

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				opts.Nodes = n
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	return opts
}

// sendInfo writes one iterative-deepening progress report in UCI format.
func (u *UCI) sendInfo(info search.Info) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))

	if info.Score > search.MateScore-100 {
		mateIn := (search.MateScore - info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else if info.Score < -search.MateScore+100 {
		mateIn := -(search.MateScore + info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Elapsed.Milliseconds()))

	if info.Elapsed > 0 {
		nps := uint64(float64(info.Nodes) / info.Elapsed.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		strs := make([]string, len(info.PV))
		for i, m := range info.PV {
			strs[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(strs, " "))
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

// handleStop requests the running search stop and waits for it to return.
func (u *UCI) handleStop() {
	if u.searching {
		u.stopRequested.Store(true)
		u.engine.Stop()
		<-u.searchDone
	}
}

// handleQuit stops any running search and exits the process.
func (u *UCI) handleQuit() {
	u.handleStop()
	os.Exit(0)
}

// handleSetOption processes "setoption name <name> value <value>".
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName, readingValue := false, false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil {
			u.engine.SetHashSize(mb)
		}
	case "bookfile":
		u.loadBook(value)
	case "bookmaxply":
		if n, err := strconv.Atoi(value); err == nil && u.book != nil {
			u.book.MaxPly = n
		}
	case "bookminweight":
		if n, err := strconv.Atoi(value); err == nil && u.book != nil {
			u.book.MinWeight = uint16(n)
		}
	}
}

// LoadBookFile loads a Polyglot opening book from path and installs it
// on the engine, wrapped in the store-backed cache so repeated probes
// of the same position don't re-scan the book file. Exported so the
// command entry point can preload a book from a command-line flag
// ahead of the first "go".
func (u *UCI) LoadBookFile(path string) {
	u.loadBook(path)
}

// loadBook does the work for LoadBookFile and the "setoption name
// BookFile" handler.
func (u *UCI) loadBook(path string) {
	if path == "" || path == "<empty>" {
		return
	}

	b, err := book.LoadPolyglot(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string failed to load book %s: %v\n", path, err)
		return
	}
	u.book = b

	s := u.statsStore()
	if s == nil {
		u.engine.SetBook(b)
		return
	}

	u.engine.SetBook(book.NewCachedBook(b, s))
}

// handlePerft runs a perft test from the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
