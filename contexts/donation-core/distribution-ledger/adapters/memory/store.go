package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	domainerrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	"cascade/contexts/donation-core/distribution-ledger/ports"
	"cascade/internal/shared/kv"

	"github.com/google/uuid"
)

// Store is the in-memory ledger namespace plus outbox, used by tests and the
// in-memory module wiring. Apply commits under one lock, so a call's writes
// are never observed half-applied.
type Store struct {
	mu sync.RWMutex

	entries   map[string][]byte
	retention map[string]int64
	ledgerSeq int64
	outbox    map[string]outboxRecord
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

func NewStore() *Store {
	return &Store{
		entries:   make(map[string][]byte),
		retention: make(map[string]int64),
		outbox:    make(map[string]outboxRecord),
	}
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

	s.ledgerSeq++
	for _, write := range writes {
		if write.Key == "" {
			return domainerrors.ErrInvalidInput
		}
		if write.Value == nil {
			delete(s.entries, write.Key)
			delete(s.retention, write.Key)
			continue
		}
		s.entries[write.Key] = append([]byte(nil), write.Value...)
		if s.retention[write.Key]-s.ledgerSeq < kv.RetentionThreshold {
			s.retention[write.Key] = s.ledgerSeq + kv.RetentionExtension
		}
	}
	return nil
}

// RetentionLedger reports the ledger unit a key is retained until; zero means
// the key is absent. Exercised by adapter tests.
func (s *Store) RetentionLedger(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.retention[key]
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := envelope.EventID

	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.Message.Payload, payload) {
			return domainerrors.ErrInvalidInput
		}
		return nil
	}

	s.outbox[outboxID] = outboxRecord{
		Message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAtUTC.UTC(),
		},
		Status: outboxStatusPending,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.Status == outboxStatusPending {
			items = append(items, row.Message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrInvalidInput
	}
	ts := publishedAt.UTC()
	row.Status = outboxStatusPublished
	row.PublishedAt = &ts
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Store = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
