package application

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	domainerrors "cascade/contexts/donation-core/alias-registry/domain/errors"
	"cascade/contexts/donation-core/alias-registry/ports"
)

// Service is the bidirectional nickname <-> principal registry. One active
// nickname per principal; rebinding releases the old nickname in the same
// atomic commit.
type Service struct {
	Store  ports.Store
	Auth   ports.Authorizer
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger

	mu sync.Mutex
}

func (s *Service) SetNickname(ctx context.Context, caller string, nickname string) error {
	caller = strings.TrimSpace(caller)
	nickname = strings.TrimSpace(nickname)
	if caller == "" || nickname == "" {
		return domainerrors.ErrInvalidInput
	}
	if s.Auth != nil {
		if err := s.Auth.RequireAuth(ctx, caller); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, found, err := s.Store.Get(ctx, keyNicknameOwner(nickname)); err != nil {
		return err
	} else if found {
		if string(raw) == caller {
			return nil
		}
		return domainerrors.ErrAliasTaken
	}

	writes := []ports.Write{
		{Key: keyNickname(caller), Value: []byte(nickname)},
		{Key: keyNicknameOwner(nickname), Value: []byte(caller)},
	}
	if raw, found, err := s.Store.Get(ctx, keyNickname(caller)); err != nil {
		return err
	} else if found {
		// Release the caller's previous nickname in the same commit.
		writes = append(writes, ports.Write{Key: keyNicknameOwner(string(raw)), Value: nil})
	}
	if err := s.Store.Apply(ctx, writes); err != nil {
		return err
	}

	if s.Outbox != nil {
		eventID := ""
		if s.IDGen != nil {
			var err error
			if eventID, err = s.IDGen.NewID(ctx); err != nil {
				return err
			}
		}
		if err := s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:        eventID,
			EventType:      "nickname.set",
			SourceService:  "alias-registry",
			OccurredAtUTC:  s.now(),
			EntityType:     "principal",
			EntityID:       caller,
			PartitionKey:   caller,
			PayloadVersion: 1,
			Payload: map[string]any{
				"principal": caller,
				"nickname":  nickname,
			},
		}); err != nil {
			return err
		}
	}
	resolveLogger(s.Logger).Info("nickname set",
		"event", "alias_nickname_set",
		"module", "donation-core/alias-registry",
		"layer", "application",
		"principal", caller,
		"nickname", nickname,
	)
	return nil
}

// GetNickname resolves a principal's active nickname; absence is a normal
// not-found result, never an error.
func (s *Service) GetNickname(ctx context.Context, principal string) (string, bool, error) {
	raw, found, err := s.Store.Get(ctx, keyNickname(strings.TrimSpace(principal)))
	if err != nil || !found {
		return "", false, err
	}
	return string(raw), true, nil
}

func (s *Service) GetNicknameOwner(ctx context.Context, nickname string) (string, bool, error) {
	raw, found, err := s.Store.Get(ctx, keyNicknameOwner(strings.TrimSpace(nickname)))
	if err != nil || !found {
		return "", false, err
	}
	return string(raw), true, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Alias keys share the ledger namespace; components are length-prefixed like
// every other key in it.
func keyNickname(principal string) string {
	return "nickname|" + strconv.Itoa(len(principal)) + ":" + principal
}

func keyNicknameOwner(nickname string) string {
	return "nickname_owner|" + strconv.Itoa(len(nickname)) + ":" + nickname
}
