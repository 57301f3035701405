package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type scriptedWorker struct {
	runs   atomic.Int32
	script func(run int32, ctx context.Context) error
}

func (w *scriptedWorker) Run(ctx context.Context) error {
	return w.script(w.runs.Add(1), ctx)
}

func TestSupervisor_RestartsCrashedWorker(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	worker := &scriptedWorker{script: func(run int32, _ context.Context) error {
		if run < 3 {
			return fmt.Errorf("crash %d", run)
		}
		return nil
	}}

	sup := NewSupervisor(log, 10*time.Millisecond)
	sup.Add(worker)
	sup.Run(context.Background())

	req.Equal(int32(3), worker.runs.Load())
}

func TestSupervisor_RecoversPanics(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	worker := &scriptedWorker{script: func(run int32, _ context.Context) error {
		if run == 1 {
			panic("worker exploded")
		}
		return nil
	}}

	sup := NewSupervisor(log, 10*time.Millisecond)
	sup.Add(worker)
	sup.Run(context.Background())

	req.Equal(int32(2), worker.runs.Load())
}

func TestSupervisor_StopCancelsLongRunners(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	worker := &scriptedWorker{script: func(_ int32, ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	sup := NewSupervisor(log, 10*time.Millisecond)
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return worker.runs.Load() == 1 },
		time.Second, 5*time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	req.Equal(int32(1), worker.runs.Load())
}
