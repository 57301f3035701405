package decision

import (
	"censor-lab/domain"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PolicyTier maps one (category, minimum confidence) pair to an action.
type PolicyTier struct {
	Category      domain.Category
	MinConfidence float64
	Action        domain.Action
}

// Dispatcher turns verdicts into abstract enforcement requests through a
// configured tier table. It decides, it never executes; execution belongs to
// the chat adapter behind contract.AdapterGateway.
type Dispatcher struct {
	tiers        []PolicyTier
	muteDuration time.Duration
	log          *slog.Logger
}

// NewDispatcher validates and orders the tiers: within a category the most
// demanding tier is checked first, so overlapping thresholds resolve to the
// strictest applicable action.
func NewDispatcher(tiers []PolicyTier, muteDuration time.Duration, log *slog.Logger) (*Dispatcher, error) {
	for _, tier := range tiers {
		if !domain.ValidCategory(tier.Category) || tier.Category == domain.CategoryNone {
			return nil, fmt.Errorf("policy tier: invalid category %q", tier.Category)
		}
		if !domain.ValidAction(tier.Action) {
			return nil, fmt.Errorf("policy tier: invalid action %q", tier.Action)
		}
		if tier.MinConfidence < 0 || tier.MinConfidence > 1 {
			return nil, fmt.Errorf("policy tier: confidence %v out of range", tier.MinConfidence)
		}
	}

	ordered := make([]PolicyTier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinConfidence > ordered[j].MinConfidence
	})

	return &Dispatcher{tiers: ordered, muteDuration: muteDuration, log: log}, nil
}

// Decide maps a verdict to an action request. Ignore is the safe default:
// unmatched verdicts and verdicts no tier covers fall through to it.
func (d *Dispatcher) Decide(verdict domain.Verdict) domain.ActionRequest {
	if !verdict.Matched {
		return domain.ActionRequest{Action: domain.ActionIgnore}
	}
	for _, tier := range d.tiers {
		if tier.Category != verdict.Category || verdict.Confidence < tier.MinConfidence {
			continue
		}
		request := domain.ActionRequest{Action: tier.Action}
		if tier.Action == domain.ActionMute {
			request.MuteDuration = d.muteDuration
		}
		return request
	}
	d.log.Debug("No policy tier matched, ignoring",
		"category", verdict.Category, "confidence", verdict.Confidence)
	return domain.ActionRequest{Action: domain.ActionIgnore}
}

// ParseTiers reads the compact configuration form
// "category:minConfidence:action" joined with commas, e.g.
// "porn:0.8:mute,spam:0.9:delete".
func ParseTiers(raw string) ([]PolicyTier, error) {
	var tiers []PolicyTier
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("policy entry %q: want category:confidence:action", entry)
		}
		confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("policy entry %q: %w", entry, err)
		}
		tiers = append(tiers, PolicyTier{
			Category:      domain.Category(strings.TrimSpace(parts[0])),
			MinConfidence: confidence,
			Action:        domain.Action(strings.TrimSpace(parts[2])),
		})
	}
	return tiers, nil
}
