package memory

import (
	"context"
	"testing"
	"time"

	"cascade/contexts/donation-core/distribution-ledger/ports"
	"cascade/internal/shared/kv"
)

func TestApplyWritesAndDeletes(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Apply(ctx, []kv.Write{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	value, found, err := store.Get(ctx, "a")
	if err != nil || !found || string(value) != "1" {
		t.Fatalf("get a = %q found=%v err=%v", value, found, err)
	}
	has, err := store.Has(ctx, "b")
	if err != nil || !has {
		t.Fatalf("has b = %v err=%v", has, err)
	}

	// nil value is a delete.
	if err := store.Apply(ctx, []kv.Write{{Key: "a", Value: nil}}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, found, _ := store.Get(ctx, "a"); found {
		t.Fatal("deleted key still present")
	}
	if store.RetentionLedger("a") != 0 {
		t.Fatal("deleted key still retained")
	}
}

func TestApplyRefreshesRetention(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Apply(ctx, []kv.Write{{Key: "k", Value: []byte("v")}}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	first := store.RetentionLedger("k")
	if first != 1+kv.RetentionExtension {
		t.Fatalf("retention after first write = %d, want %d", first, 1+kv.RetentionExtension)
	}

	// The remaining lifetime is far above the threshold, so a second write
	// soon after does not move the horizon.
	if err := store.Apply(ctx, []kv.Write{{Key: "k", Value: []byte("v2")}}); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if got := store.RetentionLedger("k"); got != first {
		t.Fatalf("retention moved on an early rewrite: %d -> %d", first, got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Apply(ctx, []kv.Write{{Key: "k", Value: []byte("abc")}}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	value, _, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	value[0] = 'x'

	again, _, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	for i, eventType := range []string{"identifier.registered", "donation.received"} {
		if err := store.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:        string(rune('a' + i)),
			EventType:      eventType,
			SourceService:  "distribution-ledger",
			OccurredAtUTC:  base.Add(time.Duration(i) * time.Second),
			EntityType:     "identifier",
			EntityID:       "alice",
			PartitionKey:   "alice",
			PayloadVersion: 1,
		}); err != nil {
			t.Fatalf("append %s failed: %v", eventType, err)
		}
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d messages, want 2", len(pending))
	}
	if pending[0].EventType != "identifier.registered" {
		t.Fatalf("pending not ordered by creation time: first is %s", pending[0].EventType)
	}

	// Re-appending the same envelope is idempotent.
	if err := store.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:        "a",
		EventType:      "identifier.registered",
		SourceService:  "distribution-ledger",
		OccurredAtUTC:  base,
		EntityType:     "identifier",
		EntityID:       "alice",
		PartitionKey:   "alice",
		PayloadVersion: 1,
	}); err != nil {
		t.Fatalf("idempotent re-append failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("re-append duplicated a message: %d pending", len(pending))
	}

	if err := store.MarkOutboxPublished(ctx, pending[0].OutboxID, base.Add(time.Minute)); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "donation.received" {
		t.Fatalf("unexpected pending set after publish: %+v", pending)
	}
}
