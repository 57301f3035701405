package rules

import (
	"log/slog"
	"testing"

	"censor-lab/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestCompile_IncludeAndExcludeGroups(t *testing.T) {
	req := require.New(t)

	rule, err := Compile("A&B~C&D&E~F&G&H&I&J")
	req.NoError(err)
	req.Equal([]string{"A", "B"}, rule.Include)
	req.Equal([][]string{{"C", "D", "E"}, {"F", "G", "H", "I", "J"}}, rule.ExcludeGroups)
}

func TestCompile_Idempotent(t *testing.T) {
	req := require.New(t)

	first, err := Compile("  refund & crypto ~ support&ticket ")
	req.NoError(err)
	second, err := Compile("  refund & crypto ~ support&ticket ")
	req.NoError(err)
	req.Equal(first, second)
}

func TestCompile_Normalization(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name    string
		raw     string
		include []string
		groups  [][]string
	}{
		{
			name:    "Duplicates collapse, order preserved",
			raw:     "spam&ad&spam",
			include: []string{"spam", "ad"},
		},
		{
			name:    "Tokens are trimmed",
			raw:     " buy now &  cheap ",
			include: []string{"buy now", "cheap"},
		},
		{
			name:    "No exclude group",
			raw:     "casino",
			include: []string{"casino"},
		},
		{
			name:    "Single exclude group",
			raw:     "pills~pharmacy&prescription",
			include: []string{"pills"},
			groups:  [][]string{{"pharmacy", "prescription"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Compile(tt.raw)
			req.NoError(err)
			req.Equal(tt.include, rule.Include)
			req.Equal(tt.groups, rule.ExcludeGroups)
		})
	}
}

func TestCompile_Malformed(t *testing.T) {
	req := require.New(t)

	for _, raw := range []string{"", "   ", "~a", "&&&", "a~~b", "a~ & "} {
		_, err := Compile(raw)
		req.Error(err, "raw=%q", raw)
		var parseErr *errors.ParseError
		req.ErrorAs(err, &parseErr, "raw=%q", raw)
	}
}

func TestCompileSet_LenientSkipsBadRules(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	compiled, err := CompileSet([]string{"good&rule", "~broken", "another"}, false, log)
	req.NoError(err)
	req.Len(compiled, 2)
	req.Equal("good&rule", compiled[0].Source)
	req.Equal("another", compiled[1].Source)
}

func TestCompileSet_StrictFailsWholeSet(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	_, err := CompileSet([]string{"good", "~broken"}, true, log)
	req.Error(err)

	var parseErr *errors.ParseError
	req.ErrorAs(err, &parseErr)
	req.Equal(1, parseErr.Index)
}
