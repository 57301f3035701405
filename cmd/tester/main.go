package main

import (
	"bufio"
	"censor-lab/censor"
	"censor-lab/decision"
	"censor-lab/domain"
	"censor-lab/internal"
	"censor-lab/rules"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Offline rule debugger: compiles a rule file, runs sample lines through
// the local matcher and the policy table, and prints the outcome. No remote
// provider is touched, which makes it safe to iterate on word lists.
func main() {
	rulesPath := flag.String("rules", "rules.txt", "path to the rule file, one expression per line")
	policy := flag.String("policy", "other:0.5:delete", "policy table, category:confidence:action entries")
	caseSensitive := flag.Bool("case", false, "case sensitive matching")
	flag.Parse()

	if err := run(*rulesPath, *policy, *caseSensitive, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(rulesPath, policy string, caseSensitive bool, samples []string) error {
	log := logs.GetLoggerFromLevel(slog.LevelWarn)

	raws, err := internal.LoadRuleStrings(rulesPath)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	compiled, err := rules.CompileSet(raws, false, log)
	if err != nil {
		return err
	}
	set, err := rules.NewRuleSet(compiled, caseSensitive)
	if err != nil {
		return err
	}
	matcher := rules.NewMatcher(set, log)
	local := censor.NewLocalProvider(matcher, domain.CategoryOther, log)

	tiers, err := decision.ParseTiers(policy)
	if err != nil {
		return err
	}
	dispatcher, err := decision.NewDispatcher(tiers, 10*time.Minute, log)
	if err != nil {
		return err
	}

	color.Cyan.Printf("Loaded %d rules from %s\n\n", set.Len(), rulesPath)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Text", "Matched", "Rule", "Category", "Action"})
	table.SetAutoWrapText(false)

	for _, sample := range collectSamples(samples) {
		item := domain.ContentItem{Kind: domain.KindText, Payload: sample}
		contributor := local.Classify(context.Background(), item)
		verdict := decision.Aggregate([]domain.ProviderVerdict{contributor})
		action := dispatcher.Decide(verdict)

		matched := color.Green.Sprint("clean")
		rule := "-"
		if verdict.Matched {
			matched = color.Red.Sprint("MATCH")
			rule = contributor.Raw
		}
		table.Append([]string{
			truncate(sample, 48),
			matched,
			rule,
			string(verdict.Category),
			string(action.Action),
		})
	}
	table.Render()
	return nil
}

// collectSamples uses the CLI args when given, otherwise reads stdin lines.
func collectSamples(args []string) []string {
	if len(args) > 0 {
		return args
	}
	var samples []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			samples = append(samples, line)
		}
	}
	return samples
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
