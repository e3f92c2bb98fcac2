package book

import (
	"encoding/binary"
	"io"
	"math/rand"
	"os"
	"sort"

	"chessforge/board"
)

// BookEntry is one candidate reply stored against a Zobrist-equivalent
// Polyglot position key.
type BookEntry struct {
	Move   board.Move
	Weight uint16
}

// Book is an in-memory Polyglot opening book, consulted by
// search.Engine (via BookProber) ahead of every root search so a
// known line is played instantly rather than searched.
type Book struct {
	entries map[uint64][]BookEntry

	// MaxPly limits how deep into the game the book is consulted; 0
	// means no limit. Past this ply the engine falls through to the
	// search core even if the position has book entries, so the
	// opponent sees original play once an opening runs out rather
	// than riding a long book line into the middlegame.
	MaxPly int

	// MinWeight discards entries whose Polyglot weight falls below
	// this threshold before selection, so a book containing rare
	// transpositions with near-zero weight never gets picked over an
	// unlisted but stronger reply.
	MinWeight uint16
}

// New creates an empty book with no ply or weight restriction.
func New() *Book {
	return &Book{
		entries: make(map[uint64][]BookEntry),
	}
}

// LoadPolyglot loads a Polyglot format opening book from a file.
func LoadPolyglot(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadPolyglotReader(file)
}

// LoadPolyglotReader loads a Polyglot format book from a reader.
func LoadPolyglotReader(r io.Reader) (*Book, error) {
	book := New()

	// Polyglot entry format:
	// 8 bytes: position key (big-endian)
	// 2 bytes: move (big-endian)
	// 2 bytes: weight (big-endian)
	// 4 bytes: learn data (ignored)
	var entry [16]byte

	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		key := binary.BigEndian.Uint64(entry[0:8])
		moveData := binary.BigEndian.Uint16(entry[8:10])
		weight := binary.BigEndian.Uint16(entry[10:12])

		move := decodePolyglotMove(moveData)
		if move != board.NoMove {
			book.entries[key] = append(book.entries[key], BookEntry{
				Move:   move,
				Weight: weight,
			})
		}
	}

	return book, nil
}

// decodePolyglotMove converts a Polyglot move encoding to our Move type.
// Polyglot move format (bits):
// 0-5: to square
// 6-11: from square
// 12-14: promotion piece (0=none, 1=knight, 2=bishop, 3=rook, 4=queen)
func decodePolyglotMove(data uint16) board.Move {
	toFile := data & 7
	toRank := (data >> 3) & 7
	fromFile := (data >> 6) & 7
	fromRank := (data >> 9) & 7
	promo := (data >> 12) & 7

	from := board.NewSquare(int(fromFile), int(fromRank))
	to := board.NewSquare(int(toFile), int(toRank))

	// Handle castling: Polyglot uses king-captures-rook encoding
	// We need to convert to our e1-g1/e1-c1 encoding
	if from == board.E1 && to == board.H1 {
		to = board.G1 // White kingside
	} else if from == board.E1 && to == board.A1 {
		to = board.C1 // White queenside
	} else if from == board.E8 && to == board.H8 {
		to = board.G8 // Black kingside
	} else if from == board.E8 && to == board.A8 {
		to = board.C8 // Black queenside
	}

	if promo > 0 {
		// Promotion pieces: 1=knight, 2=bishop, 3=rook, 4=queen
		promoTypes := []board.PieceType{0, board.Knight, board.Bishop, board.Rook, board.Queen}
		return board.NewPromotion(from, to, promoTypes[promo])
	}

	return board.NewMove(from, to)
}

// Probe looks up a position in the book and returns a move using
// weighted random selection, honoring MaxPly and MinWeight.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	if b == nil {
		return board.NoMove, false
	}
	entries := b.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}
	return SelectWeighted(pos, entries)
}

// ProbeAll returns the book moves for the position, sorted by weight
// (highest first) and filtered by MinWeight; it returns nil past
// MaxPly without touching the underlying map.
func (b *Book) ProbeAll(pos *board.Position) []BookEntry {
	if b == nil {
		return nil
	}
	if b.MaxPly > 0 && 2*(pos.FullMoveNumber-1)+int(pos.SideToMove) > b.MaxPly {
		return nil
	}

	key := pos.PolyglotHash()
	stored, ok := b.entries[key]
	if !ok {
		return nil
	}

	result := make([]BookEntry, 0, len(stored))
	for _, e := range stored {
		if e.Weight < b.MinWeight {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})

	return result
}

// SelectWeighted picks one entry by Polyglot weighted-random
// selection and resolves it against pos's legal moves so castling/en
// passant flags come out right. Shared by Book.Probe and
// CachedBook.Probe so both selection paths agree on tie-breaking.
func SelectWeighted(pos *board.Position, entries []BookEntry) (board.Move, bool) {
	if len(entries) == 0 {
		return board.NoMove, false
	}

	var total uint32
	for _, e := range entries {
		total += uint32(e.Weight)
	}
	if total == 0 {
		return verifyAndConvert(pos, entries[0].Move), true
	}

	r := rand.Uint32() % total
	var cumulative uint32
	for _, e := range entries {
		cumulative += uint32(e.Weight)
		if r < cumulative {
			return verifyAndConvert(pos, e.Move), true
		}
	}
	return verifyAndConvert(pos, entries[0].Move), true
}

// verifyAndConvert ensures the move is legal and adjusts flags if needed.
func verifyAndConvert(pos *board.Position, move board.Move) board.Move {
	// Find the matching legal move to get correct flags (castling, en passant, etc.)
	legalMoves := pos.GenerateLegalMoves()
	from := move.From()
	to := move.To()

	for i := 0; i < legalMoves.Len(); i++ {
		lm := legalMoves.Get(i)
		if lm.From() == from && lm.To() == to {
			// For promotions, match the promotion piece
			if move.IsPromotion() && lm.IsPromotion() {
				if move.Promotion() == lm.Promotion() {
					return lm
				}
			} else if !move.IsPromotion() && !lm.IsPromotion() {
				return lm
			}
		}
	}

	return board.NoMove
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
