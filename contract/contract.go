package contract

import (
	"censor-lab/domain"
	"context"
	"reflect"
)

// Provider is one moderation backend. Classify never fails past its
// boundary: transport, auth and protocol failures are captured into the
// verdict so one broken backend cannot abort a decision.
type Provider interface {
	Name() string
	Capabilities() []domain.ContentKind
	Classify(ctx context.Context, item domain.ContentItem) domain.ProviderVerdict
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives finished moderation records (audit store, adapter, ...).
type EventSink interface {
	Consume(ctx context.Context, rec domain.ModerationRecord) error
}

// AdapterGateway is the boundary to the chat platform. An adapter that lacks
// a capability (say mute on a platform without it) reports it through
// Supports so the caller can degrade to a logged no-op.
type AdapterGateway interface {
	Supports(action domain.Action) bool
	Execute(ctx context.Context, rec domain.ModerationRecord) error
}
