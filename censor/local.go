package censor

import (
	"censor-lab/domain"
	"censor-lab/rules"
	"context"
	"log/slog"
)

// LocalProvider exposes the keyword rule matcher through the Provider
// interface so its verdict aggregates like any remote contributor. It is
// pure and in-process; the flow always runs it synchronously for text.
type LocalProvider struct {
	matcher  *rules.Matcher
	category domain.Category
	log      *slog.Logger
}

// NewLocalProvider wraps a matcher. Keyword rules carry no category of their
// own, so a hit reports the configured category (CategoryOther by default)
// at full confidence: a curated keyword match is definitive.
func NewLocalProvider(matcher *rules.Matcher, category domain.Category, log *slog.Logger) *LocalProvider {
	if category == "" {
		category = domain.CategoryOther
	}
	return &LocalProvider{matcher: matcher, category: category, log: log}
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Capabilities() []domain.ContentKind {
	return []domain.ContentKind{domain.KindText}
}

func (p *LocalProvider) Classify(_ context.Context, item domain.ContentItem) domain.ProviderVerdict {
	rule, ok := p.matcher.Match(item.Payload)
	if !ok {
		return domain.ProviderVerdict{Provider: p.Name(), Category: domain.CategoryNone}
	}
	p.log.Debug("Local rule hit", "rule", rule.Source)
	return domain.ProviderVerdict{
		Provider:   p.Name(),
		Matched:    true,
		Category:   p.category,
		Confidence: 1,
		Raw:        rule.Source,
	}
}
