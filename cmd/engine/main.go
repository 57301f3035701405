package main

import (
	"bufio"
	"censor-lab/censor"
	"censor-lab/contract"
	"censor-lab/decision"
	"censor-lab/domain"
	"censor-lab/internal"
	"censor-lab/observability"
	"censor-lab/repositories"
	"censor-lab/rules"
	"censor-lab/runtime/workers"
	"censor-lab/sink"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the engine lifecycle and
// centralizes error reporting so deferred cleanup always executes.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge index...")
		_ = blugeWriter.Close()
	}()

	wordRepo := repositories.NewWordRepository(db, log)
	auditRepo := repositories.NewAuditRepository(db, blugeWriter, log, &config.AuditPageSize)
	var blacklistRepo *repositories.BlacklistRepository
	if config.EnableBlacklist {
		blacklistRepo = repositories.NewBlacklistRepository(db, log)
	}

	// 3. Rule set: file-provided rules are seeded into the repository so
	// the sync worker owns a single source of truth afterwards.
	if config.RulesFilepath != "" {
		seeds, err := internal.LoadRuleStrings(config.RulesFilepath)
		if err != nil {
			return fmt.Errorf("loading rules file: %w", err)
		}
		for _, seed := range seeds {
			if err := wordRepo.Add(seed); err != nil {
				return fmt.Errorf("seeding rule %q: %w", seed, err)
			}
		}
	}

	raws, err := wordRepo.All()
	if err != nil {
		return fmt.Errorf("loading stored rules: %w", err)
	}
	compiled, err := rules.CompileSet(raws, config.RulesStrict, log)
	if err != nil {
		return fmt.Errorf("compiling rules: %w", err)
	}
	ruleSet, err := rules.NewRuleSet(compiled, config.CaseSensitive)
	if err != nil {
		return fmt.Errorf("building rule set: %w", err)
	}
	matcher := rules.NewMatcher(ruleSet, log)
	log.Info("Rule set loaded", "rules", ruleSet.Len())

	// 4. Providers & flow
	monitoring := observability.NewMonitoring(log, config.MetricInterval)
	local := censor.NewLocalProvider(matcher, domain.CategoryOther, log)
	remotes, err := buildProviders(config, log)
	if err != nil {
		return err
	}
	flow, err := censor.NewFlow(log, local, remotes,
		config.EvaluationTimeout, config.ShortCircuitThreshold, monitoring)
	if err != nil {
		return fmt.Errorf("flow setup: %w", err)
	}

	tiers, err := decision.ParseTiers(config.PolicyTable)
	if err != nil {
		return fmt.Errorf("policy table: %w", err)
	}
	dispatcher, err := decision.NewDispatcher(tiers, config.MuteDuration, log)
	if err != nil {
		return fmt.Errorf("policy table: %w", err)
	}

	// 5. Pipeline: workers feed the sinks with finished records.
	items := make(chan domain.ContentItem, config.BufferSize)
	sinks := []contract.EventSink{
		sink.NewAuditSink(auditRepo, log),
		sink.NewActionSink(&logGateway{log: log}, monitoring, log),
	}

	sup := workers.NewSupervisor(log, config.RestartInterval)
	for i := 0; i < config.NumberOfWorkers; i++ {
		sup.Add(workers.NewModerationWorker(
			flow, dispatcher, blacklistRepo, items, sinks, config.SinkTimeout, log))
	}
	sup.Add(workers.NewWordSyncWorker(wordRepo, matcher, config.WordSyncInterval, config.CaseSensitive, log))
	sup.Add(monitoring)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stand-in adapter feed: each stdin line becomes one text item.
	go feedStdin(ctx, items, log)

	log.Info("Starting moderation engine", "workers", config.NumberOfWorkers, "at", time.Now().UTC())
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

// buildProviders wires the remote backends named in PROVIDERS, preserving
// the configured order because aggregation tie-breaks depend on it.
func buildProviders(config internal.Config, log *slog.Logger) ([]contract.Provider, error) {
	policy := censor.RetryPolicy{
		MaxRetries: config.ProviderRetries,
		Backoff:    config.ProviderRetryBackoff,
	}
	aliyun := censor.AliyunConfig{
		KeyID:         config.AliyunKeyID,
		KeySecret:     config.AliyunKeySecret,
		TextEndpoint:  config.AliyunTextEndpoint,
		ImageEndpoint: config.AliyunImageEndpoint,
		Timeout:       config.ProviderTimeout,
	}

	var providers []contract.Provider
	for _, name := range config.ProviderNames() {
		switch name {
		case "aliyun-text":
			providers = append(providers, censor.NewAliyunTextProvider(aliyun, policy, log))
		case "aliyun-image":
			providers = append(providers, censor.NewAliyunImageProvider(aliyun, policy, log))
		case "tencent-image":
			providers = append(providers, censor.NewTencentImageProvider(censor.TencentConfig{
				SecretID:  config.TencentSecretID,
				SecretKey: config.TencentSecretKey,
				Endpoint:  config.TencentEndpoint,
				Timeout:   config.ProviderTimeout,
			}, policy, log))
		case "llm":
			providers = append(providers, censor.NewLLMProvider(censor.LLMConfig{
				BaseURL: config.LLMBaseURL,
				APIKey:  config.LLMAPIKey,
				Model:   config.LLMModel,
				Timeout: config.ProviderTimeout,
			}, policy, log))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return providers, nil
}

func feedStdin(ctx context.Context, items chan<- domain.ContentItem, log *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		item := domain.ContentItem{
			Kind:    domain.KindText,
			Payload: scanner.Text(),
			Source:  domain.Source{Platform: "stdin", SenderID: "operator", ChatID: "console"},
		}
		select {
		case <-ctx.Done():
			return
		case items <- item:
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("Stdin feed stopped", "error", err)
	}
}

// logGateway is the default adapter: it supports nothing destructive and
// logs what a real platform adapter would execute.
type logGateway struct {
	log *slog.Logger
}

func (g *logGateway) Supports(action domain.Action) bool {
	return action == domain.ActionWarn || action == domain.ActionDelete
}

func (g *logGateway) Execute(_ context.Context, rec domain.ModerationRecord) error {
	g.log.Info("Action request",
		"action", rec.Action.Action,
		"platform", rec.Item.Source.Platform,
		"sender", rec.Item.Source.SenderID,
		"category", rec.Verdict.Category,
		"confidence", rec.Verdict.Confidence)
	return nil
}
