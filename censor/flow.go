package censor

import (
	"censor-lab/contract"
	"censor-lab/decision"
	"censor-lab/domain"
	"censor-lab/errors"
	"censor-lab/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

// Flow selects the providers able to handle a content item, fans the calls
// out concurrently under one evaluation deadline and folds the results into
// a single verdict. The local matcher runs synchronously first: it is cheap,
// in-process and can short-circuit a round of remote calls.
type Flow struct {
	log            *slog.Logger
	local          *LocalProvider
	remotes        []contract.Provider
	deadline       time.Duration
	shortCircuitAt float64
	monitoring     *observability.Monitoring
}

// NewFlow wires the evaluation pipeline. shortCircuitAt above 1 disables
// short-circuiting, which tests rely on for determinism. Having neither a
// local matcher nor any remote provider is a startup misconfiguration.
func NewFlow(log *slog.Logger, local *LocalProvider, remotes []contract.Provider,
	deadline time.Duration, shortCircuitAt float64, monitoring *observability.Monitoring) (*Flow, error) {

	if local == nil && len(remotes) == 0 {
		return nil, errors.ErrNoUsableProvider
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("evaluation deadline must be positive, got %v", deadline)
	}
	return &Flow{
		log:            log,
		local:          local,
		remotes:        remotes,
		deadline:       deadline,
		shortCircuitAt: shortCircuitAt,
		monitoring:     monitoring,
	}, nil
}

type indexedVerdict struct {
	index   int
	verdict domain.ProviderVerdict
}

// Evaluate runs the moderation round for one content item. It never fails:
// provider errors ride inside contributors and a deadline expiry simply
// drops the providers that did not answer in time. Contributor order always
// mirrors configuration order, independent of completion order, so
// aggregation tie-breaks stay deterministic.
func (f *Flow) Evaluate(ctx context.Context, item domain.ContentItem) domain.Verdict {
	ctx, cancel := context.WithTimeout(ctx, f.deadline)
	defer cancel()

	f.monitoring.IncrEvaluations()

	var contributors []domain.ProviderVerdict

	if f.local != nil && item.Kind == domain.KindText {
		verdict := f.local.Classify(ctx, item)
		contributors = append(contributors, verdict)
		if f.shortCircuits(verdict) {
			f.log.Debug("Short-circuit on local match", "rule", verdict.Raw)
			return f.finish(item, contributors)
		}
	}

	applicable := lo.Filter(f.remotes, func(p contract.Provider, _ int) bool {
		return lo.Contains(p.Capabilities(), item.Kind)
	})

	// Buffered so an abandoned provider can still deliver and terminate
	// its goroutine; the result is simply never read.
	results := make(chan indexedVerdict, len(applicable))
	slots := make([]*domain.ProviderVerdict, len(applicable))

	for i, provider := range applicable {
		go func(i int, p contract.Provider) {
			results <- indexedVerdict{index: i, verdict: safeClassify(ctx, p, item)}
		}(i, provider)
	}

	outstanding := len(applicable)
collect:
	for outstanding > 0 {
		select {
		case <-ctx.Done():
			// Whoever has not answered is abandoned; completed verdicts
			// still contribute.
			f.monitoring.IncrTimeouts()
			f.log.Warn("Evaluation deadline elapsed",
				"outstanding", outstanding, "kind", item.Kind)
			break collect
		case r := <-results:
			outstanding--
			verdict := r.verdict
			slots[r.index] = &verdict
			if verdict.Failed() {
				f.monitoring.IncrProviderErrors()
			}
			if f.shortCircuits(verdict) {
				f.log.Debug("Short-circuit on provider match",
					"provider", verdict.Provider, "confidence", verdict.Confidence)
				break collect
			}
		}
	}

	for _, slot := range slots {
		if slot != nil {
			contributors = append(contributors, *slot)
		}
	}
	return f.finish(item, contributors)
}

func (f *Flow) shortCircuits(v domain.ProviderVerdict) bool {
	return !v.Failed() && v.Matched && v.Confidence >= f.shortCircuitAt
}

func (f *Flow) finish(item domain.ContentItem, contributors []domain.ProviderVerdict) domain.Verdict {
	verdict := decision.Aggregate(contributors)
	if verdict.Matched {
		f.monitoring.IncrMatches()
		f.log.Info("Content matched",
			"kind", item.Kind,
			"category", verdict.Category,
			"confidence", verdict.Confidence,
			"contributors", len(verdict.Contributors))
	}
	return verdict
}

// safeClassify guards the flow against a panicking provider implementation,
// the same way rule execution is fenced in moderation engines.
func safeClassify(ctx context.Context, p contract.Provider, item domain.ContentItem) (verdict domain.ProviderVerdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = failedVerdict(p.Name(),
				errors.NewProviderError(p.Name(), errors.FailureProtocol,
					fmt.Errorf("classify panic: %v", r)))
		}
	}()
	return p.Classify(ctx, item)
}
