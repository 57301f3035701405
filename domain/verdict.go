package domain

import "time"

// Category is the closed set of violation classes shared by all providers.
type Category string

const (
	CategoryNone     Category = "none"
	CategoryPorn     Category = "porn"
	CategoryPolitics Category = "politics"
	CategoryAbuse    Category = "abuse"
	CategorySpam     Category = "spam"
	CategoryOther    Category = "other"
)

// Categories lists every valid category, CategoryNone included.
func Categories() []Category {
	return []Category{CategoryNone, CategoryPorn, CategoryPolitics, CategoryAbuse, CategorySpam, CategoryOther}
}

// ValidCategory reports whether c belongs to the closed enum.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryNone, CategoryPorn, CategoryPolitics, CategoryAbuse, CategorySpam, CategoryOther:
		return true
	}
	return false
}

// ProviderVerdict is the raw classification result of one backend.
// A failed call carries Err with Matched=false and Confidence=0 so it can be
// audited without influencing the decision.
type ProviderVerdict struct {
	Provider   string
	Matched    bool
	Category   Category
	Confidence float64
	Raw        string
	Err        error
}

// Failed reports whether the provider call itself failed.
func (v ProviderVerdict) Failed() bool { return v.Err != nil }

// Verdict is the aggregated decision for one content item.
// Contributors keep the configured provider order, never completion order.
type Verdict struct {
	Matched      bool
	Category     Category
	Confidence   float64
	Contributors []ProviderVerdict
	DecidedAt    time.Time
}
