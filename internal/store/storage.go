package store

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// bookKeyPrefix namespaces Polyglot position-key lookups within the
// shared database so they never collide with a stats key.
const bookKeyPrefix = "book/"

const statsKey = "stats/ledger"

// CachedEntry is a single cached opening-book move for a position,
// mirroring internal/book.BookEntry without importing that package
// (Store has no reason to depend on the book format, only on the
// position key it is addressed by).
type CachedEntry struct {
	Move   uint16 `json:"move"`
	Weight uint16 `json:"weight"`
}

// SearchRecord is one completed root search's statistics, appended to
// the ledger after every completed search so post-game analysis (or a UCI
// "stats" extension) can review engine performance across a session.
type SearchRecord struct {
	FEN      string        `json:"fen"`
	Depth    int           `json:"depth"`
	Score    int           `json:"score"`
	Nodes    uint64        `json:"nodes"`
	Elapsed  time.Duration `json:"elapsed"`
	HashFull int           `json:"hash_full"`
	Finished time.Time     `json:"finished"`
}

// Store wraps BadgerDB as the engine's persistent cache.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the database under the engine's
// standard data directory.
func Open() (*Store, error) {
	dir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(dir)
}

// OpenAt opens the database at an explicit directory, used by tests
// so they never touch the real per-user data directory.
func OpenAt(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func bookKey(positionKey uint64) []byte {
	key := make([]byte, len(bookKeyPrefix)+8)
	copy(key, bookKeyPrefix)
	binary.BigEndian.PutUint64(key[len(bookKeyPrefix):], positionKey)
	return key
}

// PutBookEntries caches the book moves resolved for a Polyglot
// position key, so repeated probes of popular opening positions skip
// re-scanning the source book file.
func (s *Store) PutBookEntries(positionKey uint64, entries []CachedEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bookKey(positionKey), data)
	})
}

// GetBookEntries returns the cached entries for a position key, if any.
func (s *Store) GetBookEntries(positionKey uint64) ([]CachedEntry, bool, error) {
	var entries []CachedEntry
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bookKey(positionKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entries)
		})
	})
	return entries, found, err
}

// AppendSearchRecord adds one completed search's statistics to the
// ledger, keeping at most maxSearchHistory entries.
func (s *Store) AppendSearchRecord(rec SearchRecord) error {
	history, err := s.LoadSearchHistory()
	if err != nil {
		return err
	}

	history = append(history, rec)
	const maxSearchHistory = 1000
	if len(history) > maxSearchHistory {
		history = history[len(history)-maxSearchHistory:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(statsKey), data)
	})
}

// LoadSearchHistory returns every recorded search, oldest first.
func (s *Store) LoadSearchHistory() ([]SearchRecord, error) {
	var history []SearchRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(statsKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &history)
		})
	})
	return history, err
}
