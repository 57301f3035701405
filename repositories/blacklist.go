package repositories

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const blacklistPrefix = "blacklist:"

// BlacklistEntry bans one sender identifier across all platforms.
type BlacklistEntry struct {
	ID         uuid.UUID `json:"id"`
	Identifier string    `json:"identifier"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// BlacklistRepository stores banned sender ids. Lookup by identifier is a
// point read, so the pre-moderation check stays cheap.
type BlacklistRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBlacklistRepository(db *badger.DB, log *slog.Logger) *BlacklistRepository {
	return &BlacklistRepository{db: db, log: log}
}

func (r *BlacklistRepository) Add(identifier, reason string) error {
	entry := BlacklistEntry{
		ID:         uuid.New(),
		Identifier: strings.TrimSpace(identifier),
		Reason:     reason,
		At:         time.Now().UTC(),
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blacklistPrefix+entry.Identifier), value)
	})
}

func (r *BlacklistRepository) Remove(identifier string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(blacklistPrefix + strings.TrimSpace(identifier)))
	})
}

// Contains reports whether the sender is banned.
func (r *BlacklistRepository) Contains(identifier string) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(blacklistPrefix + strings.TrimSpace(identifier)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (r *BlacklistRepository) All() ([]BlacklistEntry, error) {
	var entries []BlacklistEntry
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(blacklistPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix([]byte(blacklistPrefix)); it.Next() {
			var entry BlacklistEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}
