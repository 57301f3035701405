package sink

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"censor-lab/domain"
	"censor-lab/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	supported map[domain.Action]bool
	executed  []domain.ModerationRecord
	fail      error
}

func (g *fakeGateway) Supports(action domain.Action) bool { return g.supported[action] }

func (g *fakeGateway) Execute(_ context.Context, rec domain.ModerationRecord) error {
	if g.fail != nil {
		return g.fail
	}
	g.executed = append(g.executed, rec)
	return nil
}

func record(action domain.Action) domain.ModerationRecord {
	return domain.ModerationRecord{
		Item:    domain.ContentItem{Kind: domain.KindText, Payload: "text"},
		Verdict: domain.Verdict{Matched: true, Category: domain.CategorySpam, Confidence: 0.9},
		Action:  domain.ActionRequest{Action: action},
	}
}

func TestActionSink(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("Ignore is a no-op", func(t *testing.T) {
		req := require.New(t)
		gateway := &fakeGateway{supported: map[domain.Action]bool{domain.ActionDelete: true}}
		sink := NewActionSink(gateway, observability.NewMonitoring(log, time.Minute), log)

		req.NoError(sink.Consume(context.Background(), record(domain.ActionIgnore)))
		req.Empty(gateway.executed)
	})

	t.Run("Supported action executes", func(t *testing.T) {
		req := require.New(t)
		gateway := &fakeGateway{supported: map[domain.Action]bool{domain.ActionDelete: true}}
		monitoring := observability.NewMonitoring(log, time.Minute)
		sink := NewActionSink(gateway, monitoring, log)

		req.NoError(sink.Consume(context.Background(), record(domain.ActionDelete)))
		req.Len(gateway.executed, 1)
		req.Equal(domain.ActionDelete, gateway.executed[0].Action.Action)
	})

	t.Run("Unsupported action degrades to log", func(t *testing.T) {
		req := require.New(t)
		gateway := &fakeGateway{supported: map[domain.Action]bool{}}
		sink := NewActionSink(gateway, observability.NewMonitoring(log, time.Minute), log)

		req.NoError(sink.Consume(context.Background(), record(domain.ActionMute)))
		req.Empty(gateway.executed)
	})

	t.Run("Gateway error surfaces", func(t *testing.T) {
		req := require.New(t)
		gateway := &fakeGateway{
			supported: map[domain.Action]bool{domain.ActionKick: true},
			fail:      fmt.Errorf("adapter unreachable"),
		}
		sink := NewActionSink(gateway, observability.NewMonitoring(log, time.Minute), log)

		req.Error(sink.Consume(context.Background(), record(domain.ActionKick)))
	})
}
