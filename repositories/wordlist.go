package repositories

import (
	"encoding/binary"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const wordPrefix = "word:"

// WordRepository stores the raw keyword rule strings that feed the local
// matcher. Entries are the full rule expressions ("a&b~c"), one key per
// rule, with their last-update timestamp as value.
type WordRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewWordRepository(db *badger.DB, log *slog.Logger) *WordRepository {
	return &WordRepository{db: db, log: log}
}

// Add upserts a rule string, refreshing its timestamp.
func (r *WordRepository) Add(word string) error {
	word = strings.TrimSpace(word)
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, uint64(time.Now().Unix()))
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(wordPrefix+word), value)
	})
}

func (r *WordRepository) Delete(word string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(wordPrefix + strings.TrimSpace(word)))
	})
}

// All returns every stored rule string in key order, which keeps reloads
// deterministic.
func (r *WordRepository) All() ([]string, error) {
	var words []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(wordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix([]byte(wordPrefix)); it.Next() {
			words = append(words, strings.TrimPrefix(string(it.Item().Key()), wordPrefix))
		}
		return nil
	})
	return words, err
}

// Search filters stored rule strings by substring, the way the review UI
// narrows long lists.
func (r *WordRepository) Search(term string) ([]string, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, word := range all {
		if strings.Contains(word, term) {
			matches = append(matches, word)
		}
	}
	return matches, nil
}

func (r *WordRepository) Count() (int, error) {
	all, err := r.All()
	return len(all), err
}
