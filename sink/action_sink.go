package sink

import (
	"censor-lab/contract"
	"censor-lab/domain"
	"censor-lab/observability"
	"context"
	"log/slog"
)

// ActionSink forwards enforcement requests to the chat adapter. When the
// platform lacks a capability (mute on a platform without it, say) the
// request degrades to a logged no-op instead of failing the pipeline.
type ActionSink struct {
	gateway    contract.AdapterGateway
	monitoring *observability.Monitoring
	log        *slog.Logger
}

func NewActionSink(gateway contract.AdapterGateway, monitoring *observability.Monitoring, log *slog.Logger) *ActionSink {
	return &ActionSink{gateway: gateway, monitoring: monitoring, log: log}
}

func (s *ActionSink) Consume(ctx context.Context, rec domain.ModerationRecord) error {
	if rec.Action.Action == domain.ActionIgnore {
		return nil
	}

	if !s.gateway.Supports(rec.Action.Action) {
		s.log.Warn("Adapter lacks action capability, degrading to log",
			"action", rec.Action.Action,
			"platform", rec.Item.Source.Platform,
			"sender", rec.Item.Source.SenderID,
			"category", rec.Verdict.Category)
		return nil
	}

	if err := s.gateway.Execute(ctx, rec); err != nil {
		return err
	}
	s.monitoring.IncrActions()
	return nil
}
