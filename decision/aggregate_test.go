package decision

import (
	"fmt"
	"testing"

	"censor-lab/domain"

	"github.com/stretchr/testify/require"
)

func TestAggregate_HighestConfidenceWins(t *testing.T) {
	req := require.New(t)

	verdict := Aggregate([]domain.ProviderVerdict{
		{Provider: "local", Matched: true, Category: domain.CategorySpam, Confidence: 0.6},
		{Provider: "aliyun-text", Matched: true, Category: domain.CategoryPorn, Confidence: 0.9},
		{Provider: "llm", Matched: false, Category: domain.CategoryNone, Confidence: 0},
	})

	req.True(verdict.Matched)
	req.Equal(domain.CategoryPorn, verdict.Category)
	req.InDelta(0.9, verdict.Confidence, 1e-9)
	req.Len(verdict.Contributors, 3)
}

func TestAggregate_TieBreaksOnEarliestContributor(t *testing.T) {
	req := require.New(t)

	verdict := Aggregate([]domain.ProviderVerdict{
		{Provider: "aliyun-text", Matched: true, Category: domain.CategoryPolitics, Confidence: 0.8},
		{Provider: "tencent-image", Matched: true, Category: domain.CategoryAbuse, Confidence: 0.8},
	})

	req.True(verdict.Matched)
	req.Equal(domain.CategoryPolitics, verdict.Category)
}

func TestAggregate_ErroredContributorsNeverDecide(t *testing.T) {
	req := require.New(t)

	verdict := Aggregate([]domain.ProviderVerdict{
		{Provider: "aliyun-text", Matched: true, Category: domain.CategoryPorn, Confidence: 0.99,
			Err: fmt.Errorf("timeout")},
		{Provider: "llm", Matched: true, Category: domain.CategorySpam, Confidence: 0.7},
	})

	req.True(verdict.Matched)
	req.Equal(domain.CategorySpam, verdict.Category)
	req.InDelta(0.7, verdict.Confidence, 1e-9)
	// The errored verdict stays in the record for audit.
	req.Len(verdict.Contributors, 2)
	req.Error(verdict.Contributors[0].Err)
}

func TestAggregate_NothingMatched(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name         string
		contributors []domain.ProviderVerdict
	}{
		{name: "No contributors at all"},
		{
			name: "Only unmatched and errored",
			contributors: []domain.ProviderVerdict{
				{Provider: "local", Matched: false},
				{Provider: "llm", Matched: true, Confidence: 0.9, Err: fmt.Errorf("boom")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Aggregate(tt.contributors)
			req.False(verdict.Matched)
			req.Equal(domain.CategoryNone, verdict.Category)
			req.Zero(verdict.Confidence)
		})
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	req := require.New(t)

	contributors := []domain.ProviderVerdict{
		{Provider: "local", Matched: true, Category: domain.CategoryOther, Confidence: 1},
		{Provider: "llm", Matched: true, Category: domain.CategorySpam, Confidence: 1},
	}

	first := Aggregate(contributors)
	second := Aggregate(contributors)
	req.Equal(first.Category, second.Category)
	req.Equal(first.Confidence, second.Confidence)
	req.Equal(first.Contributors, second.Contributors)
}

func TestAggregate_PanicsOnOutOfRangeConfidence(t *testing.T) {
	require.Panics(t, func() {
		Aggregate([]domain.ProviderVerdict{
			{Provider: "broken", Matched: true, Category: domain.CategorySpam, Confidence: 1.7},
		})
	})
}
