package rules

import (
	"log/slog"
	"sync/atomic"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// RuleSet is an immutable compiled snapshot of rules sharing one
// Aho-Corasick automaton. Every distinct token of every rule is a machine
// pattern, so token presence for the whole set costs a single scan of the
// text. Never mutated after construction; replaced wholesale on reload.
type RuleSet struct {
	rules         []Rule
	caseSensitive bool
	machine       *goahocorasick.Machine
}

// NewRuleSet builds the automaton over all distinct tokens of the rules.
func NewRuleSet(rules []Rule, caseSensitive bool) (*RuleSet, error) {
	s := &RuleSet{rules: rules, caseSensitive: caseSensitive}

	var tokens []string
	for _, rule := range rules {
		tokens = append(tokens, rule.Include...)
		for _, group := range rule.ExcludeGroups {
			tokens = append(tokens, group...)
		}
	}
	tokens = lo.Uniq(lo.Map(tokens, func(token string, _ int) string {
		return s.fold(token)
	}))

	if len(tokens) == 0 {
		return s, nil
	}

	patterns := make([][]rune, len(tokens))
	for i, token := range tokens {
		patterns[i] = []rune(token)
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	s.machine = machine
	return s, nil
}

// Rules returns the compiled rules in source order.
func (s *RuleSet) Rules() []Rule { return s.rules }

func (s *RuleSet) Len() int { return len(s.rules) }

// Match returns the first rule in order that triggers on text.
//
// A rule triggers when every include token occurs as a substring and no
// exclude group has all of its tokens present: a fully present group is an
// allowlist condition that vetoes the rule. Empty text never matches.
func (s *RuleSet) Match(text string) (Rule, bool) {
	if text == "" || s.machine == nil {
		return Rule{}, false
	}

	present := s.presentTokens(text)

	for _, rule := range s.rules {
		if !s.allPresent(rule.Include, present) {
			continue
		}
		vetoed := false
		for _, group := range rule.ExcludeGroups {
			if s.allPresent(group, present) {
				vetoed = true
				break
			}
		}
		if vetoed {
			continue
		}
		return rule, true
	}
	return Rule{}, false
}

// presentTokens runs the shared automaton once and collects which patterns
// occur in the text.
func (s *RuleSet) presentTokens(text string) map[string]struct{} {
	corpus := []rune(text)
	if !s.caseSensitive {
		for i, r := range corpus {
			corpus[i] = unicode.ToLower(r)
		}
	}

	terms := s.machine.MultiPatternSearch(corpus, false)
	present := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		present[string(term.Word)] = struct{}{}
	}
	return present
}

func (s *RuleSet) allPresent(tokens []string, present map[string]struct{}) bool {
	for _, token := range tokens {
		if _, ok := present[s.fold(token)]; !ok {
			return false
		}
	}
	return true
}

func (s *RuleSet) fold(token string) string {
	if s.caseSensitive {
		return token
	}
	folded := []rune(token)
	for i, r := range folded {
		folded[i] = unicode.ToLower(r)
	}
	return string(folded)
}

// Matcher exposes the active RuleSet behind an atomic pointer so concurrent
// evaluations always see a complete snapshot, old or new, never a mix.
type Matcher struct {
	set atomic.Pointer[RuleSet]
	log *slog.Logger
}

func NewMatcher(set *RuleSet, log *slog.Logger) *Matcher {
	m := &Matcher{log: log}
	m.set.Store(set)
	return m
}

// Swap replaces the active snapshot. In-flight matches keep the old one.
func (m *Matcher) Swap(set *RuleSet) {
	old := m.set.Swap(set)
	m.log.Info("Rule set swapped", "old_rules", old.Len(), "new_rules", set.Len())
}

// Snapshot returns the currently active set.
func (m *Matcher) Snapshot() *RuleSet { return m.set.Load() }

// Match evaluates text against the active snapshot.
func (m *Matcher) Match(text string) (Rule, bool) {
	return m.set.Load().Match(text)
}
