package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	domainerrors "cascade/contexts/donation-core/alias-registry/domain/errors"
	"cascade/contexts/donation-core/alias-registry/ports"
	"cascade/internal/shared/kv"

	"github.com/google/uuid"
)

// Store backs the alias registry in tests and the in-memory module. In
// production wiring the registry shares the ledger's store instead.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
	outbox  []ports.EventEnvelope
}

func NewStore() *Store {
	return &Store{entries: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *Store) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[key]
	return ok, nil
}

func (s *Store) Apply(_ context.Context, writes []kv.Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, write := range writes {
		if write.Key == "" {
			return domainerrors.ErrInvalidInput
		}
		if write.Value == nil {
			delete(s.entries, write.Key)
			continue
		}
		s.entries[write.Key] = append([]byte(nil), write.Value...)
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = uuid.NewString()
	}
	if _, err := json.Marshal(envelope); err != nil {
		return err
	}
	s.outbox = append(s.outbox, envelope)
	return nil
}

// Appended returns the recorded envelopes, oldest first.
func (s *Store) Appended() []ports.EventEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]ports.EventEnvelope(nil), s.outbox...)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Store = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
