package kv

import "context"

// Retention window applied to every written key, expressed in ledger units
// (one unit is roughly five seconds on the reference host). Writes extend a
// key's retention to RetentionExtension whenever it has dropped below
// RetentionThreshold, so active identifiers never expire while inactive data
// ages out after about a year.
const (
	RetentionThreshold = 518_400
	RetentionExtension = 6_307_200
)

// Write is one staged mutation of the shared storage namespace. A nil Value
// deletes the key.
type Write struct {
	Key   string
	Value []byte
}

// Store is the durable key-value namespace shared by all ledger components.
// Apply commits every write of a call atomically and refreshes the retention
// window of each written key; a failed Apply leaves the namespace untouched.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Has(ctx context.Context, key string) (bool, error)
	Apply(ctx context.Context, writes []Write) error
}
