package decision

import (
	"log/slog"
	"testing"
	"time"

	"censor-lab/domain"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Decide(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	dispatcher, err := NewDispatcher([]PolicyTier{
		{Category: domain.CategoryPorn, MinConfidence: 0.8, Action: domain.ActionMute},
		{Category: domain.CategorySpam, MinConfidence: 0.9, Action: domain.ActionDelete},
	}, 10*time.Minute, log)
	req.NoError(err)

	tests := []struct {
		name    string
		verdict domain.Verdict
		action  domain.Action
	}{
		{
			name:    "Above threshold triggers the tier",
			verdict: domain.Verdict{Matched: true, Category: domain.CategoryPorn, Confidence: 0.9},
			action:  domain.ActionMute,
		},
		{
			name:    "Below threshold falls through to ignore",
			verdict: domain.Verdict{Matched: true, Category: domain.CategoryPorn, Confidence: 0.5},
			action:  domain.ActionIgnore,
		},
		{
			name:    "Exactly at threshold triggers",
			verdict: domain.Verdict{Matched: true, Category: domain.CategorySpam, Confidence: 0.9},
			action:  domain.ActionDelete,
		},
		{
			name:    "Unmatched verdict is ignored",
			verdict: domain.Verdict{Matched: false, Category: domain.CategoryNone},
			action:  domain.ActionIgnore,
		},
		{
			name:    "Category without a tier is ignored",
			verdict: domain.Verdict{Matched: true, Category: domain.CategoryAbuse, Confidence: 1},
			action:  domain.ActionIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.action, dispatcher.Decide(tt.verdict).Action)
		})
	}
}

func TestDispatcher_MuteCarriesDuration(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	dispatcher, err := NewDispatcher([]PolicyTier{
		{Category: domain.CategoryAbuse, MinConfidence: 0.5, Action: domain.ActionMute},
	}, 42*time.Minute, log)
	req.NoError(err)

	request := dispatcher.Decide(domain.Verdict{
		Matched: true, Category: domain.CategoryAbuse, Confidence: 0.6,
	})
	req.Equal(domain.ActionMute, request.Action)
	req.Equal(42*time.Minute, request.MuteDuration)
}

func TestDispatcher_OverlappingTiersPickStrictest(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	dispatcher, err := NewDispatcher([]PolicyTier{
		{Category: domain.CategoryPorn, MinConfidence: 0.5, Action: domain.ActionWarn},
		{Category: domain.CategoryPorn, MinConfidence: 0.9, Action: domain.ActionKick},
	}, time.Minute, log)
	req.NoError(err)

	high := dispatcher.Decide(domain.Verdict{Matched: true, Category: domain.CategoryPorn, Confidence: 0.95})
	req.Equal(domain.ActionKick, high.Action)

	low := dispatcher.Decide(domain.Verdict{Matched: true, Category: domain.CategoryPorn, Confidence: 0.6})
	req.Equal(domain.ActionWarn, low.Action)
}

func TestNewDispatcher_RejectsInvalidTiers(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	tests := []struct {
		name string
		tier PolicyTier
	}{
		{
			name: "Unknown category",
			tier: PolicyTier{Category: "gossip", MinConfidence: 0.5, Action: domain.ActionWarn},
		},
		{
			name: "None category",
			tier: PolicyTier{Category: domain.CategoryNone, MinConfidence: 0.5, Action: domain.ActionWarn},
		},
		{
			name: "Unknown action",
			tier: PolicyTier{Category: domain.CategorySpam, MinConfidence: 0.5, Action: "shame"},
		},
		{
			name: "Confidence out of range",
			tier: PolicyTier{Category: domain.CategorySpam, MinConfidence: 1.5, Action: domain.ActionWarn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispatcher([]PolicyTier{tt.tier}, time.Minute, log)
			req.Error(err)
		})
	}
}

func TestParseTiers(t *testing.T) {
	req := require.New(t)

	tiers, err := ParseTiers("porn:0.8:mute, spam:0.9:delete")
	req.NoError(err)
	req.Equal([]PolicyTier{
		{Category: domain.CategoryPorn, MinConfidence: 0.8, Action: domain.ActionMute},
		{Category: domain.CategorySpam, MinConfidence: 0.9, Action: domain.ActionDelete},
	}, tiers)

	_, err = ParseTiers("porn:0.8")
	req.Error(err)

	_, err = ParseTiers("porn:high:mute")
	req.Error(err)

	empty, err := ParseTiers("")
	req.NoError(err)
	req.Empty(empty)
}
