package sink

import (
	"censor-lab/domain"
	"censor-lab/repositories"
	"context"
	"log/slog"
)

// AuditSink persists every finished moderation record, matched or not, so
// the review surface can reconstruct any decision later.
type AuditSink struct {
	repo *repositories.AuditRepository
	log  *slog.Logger
}

func NewAuditSink(repo *repositories.AuditRepository, log *slog.Logger) *AuditSink {
	return &AuditSink{repo: repo, log: log}
}

func (s *AuditSink) Consume(_ context.Context, rec domain.ModerationRecord) error {
	return s.repo.Store(repositories.FromRecord(rec))
}
