package decision

import (
	"censor-lab/domain"
	"fmt"
	"time"
)

// Aggregate folds provider verdicts into one decision.
//
// The verdict matches iff at least one error-free contributor matched; its
// category and confidence come from the matched contributor with the highest
// confidence, earliest contributor winning ties (contributor order mirrors
// provider configuration order by construction). Errored contributors are
// kept in the record for audit but never influence the outcome.
func Aggregate(contributors []domain.ProviderVerdict) domain.Verdict {
	verdict := domain.Verdict{
		Category:     domain.CategoryNone,
		Contributors: contributors,
		DecidedAt:    time.Now().UTC(),
	}

	best := -1
	for i, c := range contributors {
		if c.Failed() || !c.Matched {
			continue
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			// Providers normalize confidence before this point; an out of
			// range value is a programming error, not a moderation outcome.
			panic(fmt.Sprintf("aggregation invariant violated: %s confidence %v",
				c.Provider, c.Confidence))
		}
		if best == -1 || c.Confidence > contributors[best].Confidence {
			best = i
		}
	}

	if best >= 0 {
		verdict.Matched = true
		verdict.Category = contributors[best].Category
		verdict.Confidence = contributors[best].Confidence
	}
	return verdict
}
