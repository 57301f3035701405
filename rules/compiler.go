package rules

import (
	"censor-lab/errors"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

// Rule is one compiled keyword expression.
//
// Grammar: the raw string is split on '~'; the first segment holds the
// include tokens (all required), every following segment is one exclude
// group (a group whose tokens are ALL present vetoes the rule). Tokens
// inside a segment are joined with '&'.
//
//	"refund&crypto~support&ticket" => include {refund, crypto},
//	                                  exclude groups [{support, ticket}]
type Rule struct {
	Source        string
	Include       []string
	ExcludeGroups [][]string
}

// Compile parses a single rule string. It is pure and idempotent: compiling
// the same string twice yields equal rules.
func Compile(raw string) (Rule, error) {
	return compileAt(raw, -1)
}

func compileAt(raw string, index int) (Rule, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Rule{}, &errors.ParseError{Rule: raw, Index: index, Reason: "empty rule string"}
	}

	segments := strings.Split(trimmed, "~")

	include := compileSegment(segments[0])
	if len(include) == 0 {
		return Rule{}, &errors.ParseError{Rule: raw, Index: index, Reason: "empty include segment"}
	}

	var groups [][]string
	for _, segment := range segments[1:] {
		group := compileSegment(segment)
		if len(group) == 0 {
			return Rule{}, &errors.ParseError{Rule: raw, Index: index, Reason: "empty exclude group"}
		}
		groups = append(groups, group)
	}

	return Rule{Source: trimmed, Include: include, ExcludeGroups: groups}, nil
}

// compileSegment splits on '&', trims tokens and collapses duplicates while
// preserving first appearance order for diagnostics.
func compileSegment(segment string) []string {
	parts := strings.Split(segment, "&")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return lo.Uniq(tokens)
}

// CompileSet compiles an ordered list of rule strings.
// In strict mode the first bad rule fails the whole set; otherwise bad rules
// are logged and skipped, which matches how word lists are curated by hand.
func CompileSet(raws []string, strict bool, log *slog.Logger) ([]Rule, error) {
	compiled := make([]Rule, 0, len(raws))
	for i, raw := range raws {
		rule, err := compileAt(raw, i)
		if err != nil {
			if strict {
				return nil, err
			}
			log.Warn("Skipping malformed rule", "error", err)
			continue
		}
		compiled = append(compiled, rule)
	}
	return compiled, nil
}
