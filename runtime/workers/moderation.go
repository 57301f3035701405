package workers

import (
	"censor-lab/censor"
	"censor-lab/contract"
	"censor-lab/decision"
	"censor-lab/domain"
	"censor-lab/repositories"
	"context"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
)

// ModerationWorker drains the content channel: blacklist pre-check, flow
// evaluation, policy decision, then fan-out of the finished record to every
// sink (audit store, adapter gateway). One worker per goroutine; run several
// under the supervisor to raise throughput.
type ModerationWorker struct {
	flow        *censor.Flow
	dispatcher  *decision.Dispatcher
	blacklist   *repositories.BlacklistRepository
	items       chan domain.ContentItem
	sinks       []contract.EventSink
	sinkTimeout time.Duration
	log         *slog.Logger
}

func NewModerationWorker(
	flow *censor.Flow,
	dispatcher *decision.Dispatcher,
	blacklist *repositories.BlacklistRepository,
	items chan domain.ContentItem,
	sinks []contract.EventSink,
	sinkTimeout time.Duration,
	log *slog.Logger,
) *ModerationWorker {
	return &ModerationWorker{
		flow:        flow,
		dispatcher:  dispatcher,
		blacklist:   blacklist,
		items:       items,
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
		log:         log,
	}
}

func (w *ModerationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case item, ok := <-w.items:
			if !ok {
				w.log.Debug("Content channel closed")
				return nil
			}
			w.moderate(ctx, item)
		}
	}
}

func (w *ModerationWorker) moderate(ctx context.Context, item domain.ContentItem) {
	if item.Kind == domain.KindText {
		info := whatlanggo.Detect(item.Payload)
		w.log.Debug("Moderating text",
			"lang", info.Lang.Iso6391(),
			"sender", item.Source.SenderID)
	}

	verdict, banned := w.blacklistVerdict(item)
	if !banned {
		verdict = w.flow.Evaluate(ctx, item)
	}

	record := domain.ModerationRecord{
		Item:    item,
		Verdict: verdict,
		Action:  w.dispatcher.Decide(verdict),
	}

	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, record); err != nil {
			w.log.Error("Sink failed", "error", err)
		}
		cancel()
	}
}

// blacklistVerdict short-cuts moderation for banned senders: their content
// is blocked outright, with a synthetic contributor for the audit trail.
func (w *ModerationWorker) blacklistVerdict(item domain.ContentItem) (domain.Verdict, bool) {
	if w.blacklist == nil || item.Source.SenderID == "" {
		return domain.Verdict{}, false
	}
	banned, err := w.blacklist.Contains(item.Source.SenderID)
	if err != nil {
		w.log.Error("Blacklist lookup failed", "sender", item.Source.SenderID, "error", err)
		return domain.Verdict{}, false
	}
	if !banned {
		return domain.Verdict{}, false
	}

	w.log.Info("Blacklisted sender", "sender", item.Source.SenderID)
	return decision.Aggregate([]domain.ProviderVerdict{{
		Provider:   "blacklist",
		Matched:    true,
		Category:   domain.CategoryAbuse,
		Confidence: 1,
		Raw:        item.Source.SenderID,
	}}), true
}
