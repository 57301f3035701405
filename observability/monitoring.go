package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Monitoring aggregates engine counters. All increments are atomic so
// concurrent evaluations can share one instance. A nil *Monitoring is a
// valid no-op receiver, which keeps wiring optional in tests.
type Monitoring struct {
	log      *slog.Logger
	interval time.Duration

	evaluations    uint64
	matches        uint64
	providerErrors uint64
	timeouts       uint64
	actions        uint64
}

func NewMonitoring(log *slog.Logger, interval time.Duration) *Monitoring {
	return &Monitoring{log: log, interval: interval}
}

func (m *Monitoring) IncrEvaluations() {
	if m != nil {
		atomic.AddUint64(&m.evaluations, 1)
	}
}

func (m *Monitoring) IncrMatches() {
	if m != nil {
		atomic.AddUint64(&m.matches, 1)
	}
}

func (m *Monitoring) IncrProviderErrors() {
	if m != nil {
		atomic.AddUint64(&m.providerErrors, 1)
	}
}

func (m *Monitoring) IncrTimeouts() {
	if m != nil {
		atomic.AddUint64(&m.timeouts, 1)
	}
}

func (m *Monitoring) IncrActions() {
	if m != nil {
		atomic.AddUint64(&m.actions, 1)
	}
}

// Snapshot returns the current counters for logs or a debug endpoint.
func (m *Monitoring) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any{
		"evaluations":     atomic.LoadUint64(&m.evaluations),
		"matches":         atomic.LoadUint64(&m.matches),
		"provider_errors": atomic.LoadUint64(&m.providerErrors),
		"timeouts":        atomic.LoadUint64(&m.timeouts),
		"actions":         atomic.LoadUint64(&m.actions),
	}
}

// Run implements contract.Worker: it periodically logs the counters together
// with the process footprint.
func (m *Monitoring) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := m.Snapshot()
			if mem, err := p.MemoryInfo(); err == nil {
				stats["rss_mb"] = mem.RSS / 1024 / 1024
			}
			if cpu, err := p.CPUPercent(); err == nil {
				stats["cpu_percent"] = cpu
			}
			m.log.Info("Moderation engine stats", "stats", stats)
		}
	}
}
