package workers

import (
	"censor-lab/repositories"
	"censor-lab/rules"
	"context"
	"log/slog"
	"strings"
	"time"
)

// WordSyncWorker periodically rebuilds the rule set from the word
// repository and swaps it into the matcher. Operators edit the stored list
// while the engine runs; the swap is atomic, in-flight evaluations keep
// their snapshot.
type WordSyncWorker struct {
	repo          *repositories.WordRepository
	matcher       *rules.Matcher
	interval      time.Duration
	caseSensitive bool
	log           *slog.Logger

	lastFingerprint string
}

func NewWordSyncWorker(repo *repositories.WordRepository, matcher *rules.Matcher,
	interval time.Duration, caseSensitive bool, log *slog.Logger) *WordSyncWorker {
	return &WordSyncWorker{
		repo:          repo,
		matcher:       matcher,
		interval:      interval,
		caseSensitive: caseSensitive,
		log:           log,
	}
}

func (w *WordSyncWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.sync(); err != nil {
				w.log.Error("Word sync failed", "error", err)
			}
		}
	}
}

func (w *WordSyncWorker) sync() error {
	words, err := w.repo.All()
	if err != nil {
		return err
	}

	// All() returns key order, so the joined list is a stable fingerprint.
	fingerprint := strings.Join(words, "\n")
	if fingerprint == w.lastFingerprint {
		return nil
	}

	compiled, err := rules.CompileSet(words, false, w.log)
	if err != nil {
		return err
	}
	set, err := rules.NewRuleSet(compiled, w.caseSensitive)
	if err != nil {
		return err
	}

	w.matcher.Swap(set)
	w.lastFingerprint = fingerprint
	return nil
}
