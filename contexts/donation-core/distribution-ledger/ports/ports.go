package ports

import (
	"context"
	"math/big"
	"time"

	"cascade/internal/shared/events"
	"cascade/internal/shared/kv"
)

const (
	// BPSBase is 100% expressed in basis points. Allows fractional
	// percentages (e.g. 3050 = 30.50%).
	BPSBase uint32 = 10_000

	// MaxRules caps the size of an identifier's rule set.
	MaxRules = 10
)

// Rule forwards a share of a distributed pool to another registered
// identifier. Shares are expressed in basis points of the pool snapshot.
type Rule struct {
	Recipient string `json:"recipient"`
	ShareBPS  uint32 `json:"share_bps"`
}

// Store is the persistent namespace holding owners, rule sets and all
// funding counters. See kv.Store for the atomicity contract.
type Store = kv.Store

// Write is one staged mutation committed through Store.Apply.
type Write = kv.Write

// AssetTransfer is the external atomic debit/credit primitive between two
// ledger-visible accounts. A returned error means no funds moved.
type AssetTransfer interface {
	Transfer(ctx context.Context, asset string, from string, to string, amount *big.Int) error
}

// Authorizer proves that the asserted caller identity is genuine. A nil
// Authorizer on the service means identity was verified upstream.
type Authorizer interface {
	RequireAuth(ctx context.Context, principal string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, envelope EventEnvelope) error
}
