package memory

import (
	"context"
	"strings"
	"sync"

	domainerrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	"cascade/contexts/donation-core/distribution-ledger/ports"
)

// StaticAuthorizer verifies every asserted identity except those explicitly
// denied. Production wiring swaps in the platform's identity verifier.
type StaticAuthorizer struct {
	mu     sync.RWMutex
	denied map[string]bool
}

func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{denied: make(map[string]bool)}
}

func (a *StaticAuthorizer) RequireAuth(_ context.Context, principal string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.denied[strings.TrimSpace(principal)] {
		return domainerrors.ErrUnauthorized
	}
	return nil
}

func (a *StaticAuthorizer) Deny(principal string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.denied[strings.TrimSpace(principal)] = true
}

var _ ports.Authorizer = (*StaticAuthorizer)(nil)
