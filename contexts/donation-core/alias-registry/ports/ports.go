package ports

import (
	"context"
	"time"

	"cascade/internal/shared/events"
	"cascade/internal/shared/kv"
)

type Store = kv.Store

type Write = kv.Write

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type Authorizer interface {
	RequireAuth(ctx context.Context, principal string) error
}

type EventEnvelope = events.Envelope

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}
