package book

import (
	"chessforge/board"
	"chessforge/internal/store"
)

// CachedBook fronts a Book with a persistent Store so repeated probes
// of the same position (common in the first dozen opening moves of
// many games) skip re-deriving the weighted entry list from the
// in-memory Polyglot index.
type CachedBook struct {
	book  *Book
	store *store.Store
}

// NewCachedBook pairs a loaded book with a store for caching.
func NewCachedBook(b *Book, s *store.Store) *CachedBook {
	return &CachedBook{book: b, store: s}
}

// Probe returns a weighted-random book move for pos, populating the
// store's cache on a miss and reading from it on a hit.
func (c *CachedBook) Probe(pos *board.Position) (board.Move, bool) {
	if c.book == nil {
		return board.NoMove, false
	}
	if c.book.MaxPly > 0 && 2*(pos.FullMoveNumber-1)+int(pos.SideToMove) > c.book.MaxPly {
		return board.NoMove, false
	}

	key := pos.PolyglotHash()

	if cached, found, err := c.store.GetBookEntries(key); err == nil && found {
		return pickWeighted(pos, cached)
	}

	entries := c.book.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}

	cached := make([]store.CachedEntry, len(entries))
	for i, e := range entries {
		cached[i] = store.CachedEntry{Move: uint16(e.Move), Weight: e.Weight}
	}
	_ = c.store.PutBookEntries(key, cached)

	return pickWeighted(pos, cached)
}

func pickWeighted(pos *board.Position, entries []store.CachedEntry) (board.Move, bool) {
	converted := make([]BookEntry, len(entries))
	for i, e := range entries {
		converted[i] = BookEntry{Move: board.Move(e.Move), Weight: e.Weight}
	}
	return SelectWeighted(pos, converted)
}
