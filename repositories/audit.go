package repositories

import (
	"censor-lab/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const auditPrefix = "audit:"

const defaultAuditPageSize = 50

// maxExcerptRunes bounds what gets persisted from the original payload;
// image payloads are referenced, never stored inline.
const maxExcerptRunes = 256

// ContributorRecord is the JSON-friendly form of a provider verdict.
type ContributorRecord struct {
	Provider   string          `json:"provider"`
	Matched    bool            `json:"matched"`
	Category   domain.Category `json:"category"`
	Confidence float64         `json:"confidence"`
	Error      string          `json:"error,omitempty"`
}

// AuditEntry is one persisted moderation decision, contributors included,
// for later review.
type AuditEntry struct {
	ID           uuid.UUID           `json:"id"`
	At           time.Time           `json:"at"`
	Platform     string              `json:"platform"`
	SenderID     string              `json:"sender_id"`
	ChatID       string              `json:"chat_id"`
	Kind         domain.ContentKind  `json:"kind"`
	Excerpt      string              `json:"excerpt"`
	Matched      bool                `json:"matched"`
	Category     domain.Category     `json:"category"`
	Confidence   float64             `json:"confidence"`
	Action       domain.Action       `json:"action"`
	Contributors []ContributorRecord `json:"contributors"`
}

// FromRecord converts a finished moderation record into its audit form.
func FromRecord(rec domain.ModerationRecord) AuditEntry {
	entry := AuditEntry{
		ID:         uuid.New(),
		At:         rec.Verdict.DecidedAt,
		Platform:   rec.Item.Source.Platform,
		SenderID:   rec.Item.Source.SenderID,
		ChatID:     rec.Item.Source.ChatID,
		Kind:       rec.Item.Kind,
		Excerpt:    excerpt(rec.Item),
		Matched:    rec.Verdict.Matched,
		Category:   rec.Verdict.Category,
		Confidence: rec.Verdict.Confidence,
		Action:     rec.Action.Action,
	}
	for _, c := range rec.Verdict.Contributors {
		record := ContributorRecord{
			Provider:   c.Provider,
			Matched:    c.Matched,
			Category:   c.Category,
			Confidence: c.Confidence,
		}
		if c.Err != nil {
			record.Error = c.Err.Error()
		}
		entry.Contributors = append(entry.Contributors, record)
	}
	return entry
}

func excerpt(item domain.ContentItem) string {
	if item.Kind == domain.KindImageBase64 {
		return fmt.Sprintf("[inline image, %d bytes]", len(item.Payload))
	}
	runes := []rune(item.Payload)
	if len(runes) > maxExcerptRunes {
		return string(runes[:maxExcerptRunes])
	}
	return item.Payload
}

// AuditRepository persists audit entries in BadgerDB and mirrors their
// searchable fields into a Bluge index. Keys embed a zero-padded timestamp
// so reverse iteration yields newest entries first.
type AuditRepository struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
	limit *int
}

func NewAuditRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger, limit *int) *AuditRepository {
	return &AuditRepository{db: db, index: index, log: log, limit: limit}
}

func auditKey(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s%020d:%s", auditPrefix, at.UnixNano(), id)
}

// Store writes the entry and indexes its excerpt and source fields.
func (r *AuditRepository) Store(entry AuditEntry) error {
	key := auditKey(entry.At, entry.ID)
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil {
		return err
	}

	doc := bluge.NewDocument(key).
		AddField(bluge.NewTextField("excerpt", entry.Excerpt)).
		AddField(bluge.NewKeywordField("sender", entry.SenderID)).
		AddField(bluge.NewKeywordField("category", string(entry.Category))).
		AddField(bluge.NewKeywordField("action", string(entry.Action)))
	if err := r.index.Update(doc.ID(), doc); err != nil {
		// The badger record is the source of truth; a lagging index only
		// degrades search.
		r.log.Error("Audit index update failed", "key", key, "error", err)
	}
	return nil
}

// List pages through entries newest-first. The returned cursor is the key to
// resume from, nil when the log is exhausted.
func (r *AuditRepository) List(cursor *string) ([]AuditEntry, *string, error) {
	limit := defaultAuditPageSize
	if r.limit != nil {
		limit = *r.limit
	}

	var (
		entries []AuditEntry
		next    *string
	)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(auditPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// 0xff sorts after every key sharing the prefix.
		seek := append([]byte(auditPrefix), 0xff)
		if cursor != nil {
			seek = []byte(*cursor)
		}

		for it.Seek(seek); it.ValidForPrefix([]byte(auditPrefix)); it.Next() {
			item := it.Item()
			if cursor != nil && string(item.Key()) == *cursor {
				continue
			}
			if len(entries) == limit {
				// next already holds the last appended key; the resume
				// path skips it, so the following entry opens the page.
				return nil
			}
			var entry AuditEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
			key := string(item.Key())
			next = &key
		}
		next = nil
		return nil
	})
	return entries, next, err
}

// Search runs a full-text match over the indexed excerpts and loads the
// matching entries from badger.
func (r *AuditRepository) Search(ctx context.Context, term string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}

	reader, err := r.index.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewMatchQuery(strings.TrimSpace(term)).SetField("excerpt")
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var keys []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	entries := make([]AuditEntry, 0, len(keys))
	err = r.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if err != nil {
				// Index may reference an entry pruned from badger.
				r.log.Warn("Indexed audit entry missing", "key", key)
				continue
			}
			var entry AuditEntry
			if err := item.Value(func(val []byte) error {
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
