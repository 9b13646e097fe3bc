package application

import (
	"context"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	domainerrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	"cascade/contexts/donation-core/distribution-ledger/ports"
)

// Service is the distribution ledger: identifier ownership, per-identifier
// forwarding rules, funding counters, and the distribute/claim engines.
// Mutating entry points are serialized by an internal mutex and commit all of
// their writes through a single Store.Apply, so a failed call never leaves
// partially-updated counters.
type Service struct {
	Store                       ports.Store
	Transfers                   ports.AssetTransfer
	Auth                        ports.Authorizer
	Outbox                      ports.OutboxWriter
	Clock                       ports.Clock
	IDGen                       ports.IDGenerator
	CustodialAccount            string
	StrictRecipientRegistration bool
	Logger                      *slog.Logger

	mu sync.Mutex
}

func (s *Service) RegisterIdentifier(ctx context.Context, caller string, id string) error {
	caller = strings.TrimSpace(caller)
	id = strings.TrimSpace(id)
	if caller == "" || id == "" {
		return domainerrors.ErrInvalidInput
	}
	if err := s.requireAuth(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.Store.Has(ctx, keyOwner(id))
	if err != nil {
		return err
	}
	if exists {
		return domainerrors.ErrAlreadyRegistered
	}

	emptyRules, err := encodeRules(nil)
	if err != nil {
		return err
	}
	if err := s.Store.Apply(ctx, []ports.Write{
		{Key: keyOwner(id), Value: []byte(caller)},
		{Key: keyRules(id), Value: emptyRules},
	}); err != nil {
		return err
	}

	if err := s.emit(ctx, "identifier.registered", id, map[string]any{
		"identifier": id,
		"owner":      caller,
	}); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("identifier registered",
		"event", "ledger_identifier_registered",
		"module", "donation-core/distribution-ledger",
		"layer", "application",
		"identifier", id,
		"owner", caller,
	)
	return nil
}

func (s *Service) TransferOwnership(ctx context.Context, caller string, id string, newOwner string) error {
	caller = strings.TrimSpace(caller)
	id = strings.TrimSpace(id)
	newOwner = strings.TrimSpace(newOwner)
	if caller == "" || id == "" || newOwner == "" {
		return domainerrors.ErrInvalidInput
	}
	if err := s.requireAuth(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.assertOwner(ctx, caller, id); err != nil {
		return err
	}
	if err := s.Store.Apply(ctx, []ports.Write{
		{Key: keyOwner(id), Value: []byte(newOwner)},
	}); err != nil {
		return err
	}

	if err := s.emit(ctx, "ownership.transferred", id, map[string]any{
		"identifier": id,
		"old_owner":  caller,
		"new_owner":  newOwner,
	}); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("identifier ownership transferred",
		"event", "ledger_ownership_transferred",
		"module", "donation-core/distribution-ledger",
		"layer", "application",
		"identifier", id,
		"old_owner", caller,
		"new_owner", newOwner,
	)
	return nil
}

func (s *Service) SetRules(ctx context.Context, caller string, id string, rules []ports.Rule) error {
	caller = strings.TrimSpace(caller)
	id = strings.TrimSpace(id)
	if caller == "" || id == "" {
		return domainerrors.ErrInvalidInput
	}
	if err := s.requireAuth(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.assertOwner(ctx, caller, id); err != nil {
		return err
	}
	normalized, err := s.validateRules(ctx, id, rules)
	if err != nil {
		return err
	}

	encoded, err := encodeRules(normalized)
	if err != nil {
		return err
	}
	if err := s.Store.Apply(ctx, []ports.Write{
		{Key: keyRules(id), Value: encoded},
	}); err != nil {
		return err
	}

	ruleMap := make(map[string]uint32, len(normalized))
	for _, rule := range normalized {
		ruleMap[rule.Recipient] = rule.ShareBPS
	}
	if err := s.emit(ctx, "rules.set", id, map[string]any{
		"identifier": id,
		"rules":      ruleMap,
	}); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("forwarding rules set",
		"event", "ledger_rules_set",
		"module", "donation-core/distribution-ledger",
		"layer", "application",
		"identifier", id,
		"rule_count", len(normalized),
	)
	return nil
}

func (s *Service) Donate(
	ctx context.Context,
	caller string,
	id string,
	asset string,
	amount *big.Int,
	donorOverride string,
) error {
	caller = strings.TrimSpace(caller)
	id = strings.TrimSpace(id)
	asset = strings.TrimSpace(asset)
	donorOverride = strings.TrimSpace(donorOverride)
	if caller == "" || id == "" || asset == "" {
		return domainerrors.ErrInvalidInput
	}
	if amount == nil || amount.Sign() <= 0 {
		return domainerrors.ErrInvalidAmount
	}
	if err := s.requireAuth(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	registered, err := s.Store.Has(ctx, keyOwner(id))
	if err != nil {
		return err
	}
	if !registered {
		return domainerrors.ErrNotFound
	}

	donor := donorOverride
	if donor == "" {
		donor = caller
	}

	// The transfer is all-or-nothing: a failure here aborts the call before
	// any counter is touched.
	if err := s.Transfers.Transfer(ctx, asset, caller, s.CustodialAccount, amount); err != nil {
		return err
	}

	var writes []ports.Write
	for _, key := range []string{
		keyPool(id, asset),
		keyTotalReceived(id, asset),
		keyDonorToIdentifier(donor, id, asset),
		keyDonorTotal(donor, asset),
		keyGrandTotal(asset),
	} {
		writes, err = s.stageAdd(ctx, writes, key, amount)
		if err != nil {
			return err
		}
	}
	if err := s.Store.Apply(ctx, writes); err != nil {
		return err
	}

	if err := s.emit(ctx, "donation.received", id, map[string]any{
		"identifier": id,
		"donor":      donor,
		"asset":      asset,
		"amount":     amount.String(),
	}); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("donation received",
		"event", "ledger_donation_received",
		"module", "donation-core/distribution-ledger",
		"layer", "application",
		"identifier", id,
		"donor", donor,
		"asset", asset,
		"amount", amount.String(),
	)
	return nil
}

// Distribute consumes the identifier's pool for one asset: each rule's share
// of the pool snapshot is forwarded to the recipient's pool and the remainder
// becomes the owner's unclaimed balance. One hop per call; freshly credited
// downstream pools need their own Distribute call.
func (s *Service) Distribute(ctx context.Context, id string, asset string, minDistribution *big.Int) error {
	id = strings.TrimSpace(id)
	asset = strings.TrimSpace(asset)
	if id == "" || asset == "" {
		return domainerrors.ErrInvalidInput
	}
	if minDistribution != nil && minDistribution.Sign() < 0 {
		return domainerrors.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.distributeLocked(ctx, id, asset, minDistribution)
}

func (s *Service) Claim(ctx context.Context, caller string, id string, asset string, to string) (*big.Int, error) {
	caller = strings.TrimSpace(caller)
	id = strings.TrimSpace(id)
	asset = strings.TrimSpace(asset)
	to = strings.TrimSpace(to)
	if caller == "" || id == "" || asset == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if err := s.requireAuth(ctx, caller); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.assertOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.claimLocked(ctx, caller, id, asset, to)
}

// DistributeAndClaim runs one distribution hop and then claims the owner's
// remainder in a single serialized call. When the whole pool cascades away it
// returns zero successfully; a failed distribution step fails the composite.
func (s *Service) DistributeAndClaim(
	ctx context.Context,
	caller string,
	id string,
	asset string,
	to string,
	minDistribution *big.Int,
) (*big.Int, error) {
	caller = strings.TrimSpace(caller)
	id = strings.TrimSpace(id)
	asset = strings.TrimSpace(asset)
	to = strings.TrimSpace(to)
	if caller == "" || id == "" || asset == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if minDistribution != nil && minDistribution.Sign() < 0 {
		return nil, domainerrors.ErrInvalidInput
	}
	if err := s.requireAuth(ctx, caller); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.assertOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	if err := s.distributeLocked(ctx, id, asset, minDistribution); err != nil {
		return nil, err
	}

	unclaimed, err := s.readAmount(ctx, keyUnclaimed(id, asset))
	if err != nil {
		return nil, err
	}
	if unclaimed.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return s.claimLocked(ctx, caller, id, asset, to)
}

func (s *Service) distributeLocked(ctx context.Context, id string, asset string, minDistribution *big.Int) error {
	registered, err := s.Store.Has(ctx, keyOwner(id))
	if err != nil {
		return err
	}
	if !registered {
		return domainerrors.ErrNotFound
	}

	rawRules, found, err := s.Store.Get(ctx, keyRules(id))
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrRulesNotSet
	}
	rules, err := decodeRules(rawRules)
	if err != nil {
		return err
	}

	pool, err := s.readAmount(ctx, keyPool(id, asset))
	if err != nil {
		return err
	}
	if pool.Sign() == 0 {
		return domainerrors.ErrNothingToDistribute
	}

	// All share math uses this frozen snapshot; shares are independent of
	// each other, so enumeration order cannot change any outcome.
	snapshot := new(big.Int).Set(pool)
	bpsBase := big.NewInt(int64(ports.BPSBase))
	totalShared := big.NewInt(0)
	var writes []ports.Write

	for _, rule := range rules {
		forwarded := new(big.Int).Mul(snapshot, big.NewInt(int64(rule.ShareBPS)))
		forwarded.Quo(forwarded, bpsBase)
		if forwarded.Sign() == 0 {
			continue
		}
		if minDistribution != nil && forwarded.Cmp(minDistribution) < 0 {
			// Below the dust threshold the whole share stays with the
			// origin's owner; it is never partially applied.
			continue
		}

		totalShared.Add(totalShared, forwarded)
		for _, key := range []string{
			keyPool(rule.Recipient, asset),
			keyTotalReceived(rule.Recipient, asset),
			keyTotalReceivedFromCascade(rule.Recipient, asset),
		} {
			writes, err = s.stageAdd(ctx, writes, key, forwarded)
			if err != nil {
				return err
			}
		}
	}

	ownerShare := new(big.Int).Sub(snapshot, totalShared)
	if totalShared.Sign() > 0 {
		writes, err = s.stageAdd(ctx, writes, keyTotalForwarded(id, asset), totalShared)
		if err != nil {
			return err
		}
	}
	if ownerShare.Sign() > 0 {
		writes, err = s.stageAdd(ctx, writes, keyUnclaimed(id, asset), ownerShare)
		if err != nil {
			return err
		}
	}
	// The pool is fully disposed of: zeroed, not deleted.
	writes = append(writes, ports.Write{Key: keyPool(id, asset), Value: encodeAmount(big.NewInt(0))})

	if err := s.Store.Apply(ctx, writes); err != nil {
		return err
	}

	if err := s.emit(ctx, "distribution.completed", id, map[string]any{
		"identifier": id,
		"asset":      asset,
		"pool":       snapshot.String(),
	}); err != nil {
		return err
	}
	ResolveLogger(s.Logger).Info("pool distributed",
		"event", "ledger_pool_distributed",
		"module", "donation-core/distribution-ledger",
		"layer", "application",
		"identifier", id,
		"asset", asset,
		"pool", snapshot.String(),
		"forwarded", totalShared.String(),
		"owner_share", ownerShare.String(),
	)
	return nil
}

func (s *Service) claimLocked(ctx context.Context, caller string, id string, asset string, to string) (*big.Int, error) {
	unclaimed, err := s.readAmount(ctx, keyUnclaimed(id, asset))
	if err != nil {
		return nil, err
	}
	if unclaimed.Sign() == 0 {
		return nil, domainerrors.ErrNothingToDistribute
	}

	recipient := to
	if recipient == "" {
		recipient = caller
	}

	if err := s.Transfers.Transfer(ctx, asset, s.CustodialAccount, recipient, unclaimed); err != nil {
		return nil, err
	}

	writes, err := s.stageAdd(ctx, nil, keyPaidTo(recipient, asset), unclaimed)
	if err != nil {
		return nil, err
	}
	writes = append(writes, ports.Write{Key: keyUnclaimed(id, asset), Value: encodeAmount(big.NewInt(0))})
	if err := s.Store.Apply(ctx, writes); err != nil {
		return nil, err
	}

	if err := s.emit(ctx, "funds.claimed", id, map[string]any{
		"identifier": id,
		"recipient":  recipient,
		"asset":      asset,
		"amount":     unclaimed.String(),
	}); err != nil {
		return nil, err
	}
	ResolveLogger(s.Logger).Info("unclaimed funds withdrawn",
		"event", "ledger_funds_claimed",
		"module", "donation-core/distribution-ledger",
		"layer", "application",
		"identifier", id,
		"recipient", recipient,
		"asset", asset,
		"amount", unclaimed.String(),
	)
	return unclaimed, nil
}

func (s *Service) GetPool(ctx context.Context, id string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyPool(strings.TrimSpace(id), strings.TrimSpace(asset)))
}

func (s *Service) GetUnclaimed(ctx context.Context, id string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyUnclaimed(strings.TrimSpace(id), strings.TrimSpace(asset)))
}

func (s *Service) GetTotalReceived(ctx context.Context, id string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyTotalReceived(strings.TrimSpace(id), strings.TrimSpace(asset)))
}

func (s *Service) GetTotalReceivedFromCascade(ctx context.Context, id string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyTotalReceivedFromCascade(strings.TrimSpace(id), strings.TrimSpace(asset)))
}

func (s *Service) GetTotalForwarded(ctx context.Context, id string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyTotalForwarded(strings.TrimSpace(id), strings.TrimSpace(asset)))
}

func (s *Service) GetDonorToIdentifier(ctx context.Context, donor string, id string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyDonorToIdentifier(strings.TrimSpace(donor), strings.TrimSpace(id), strings.TrimSpace(asset)))
}

func (s *Service) GetDonorTotal(ctx context.Context, donor string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyDonorTotal(strings.TrimSpace(donor), strings.TrimSpace(asset)))
}

func (s *Service) GetGrandTotal(ctx context.Context, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyGrandTotal(strings.TrimSpace(asset)))
}

func (s *Service) GetPaidTo(ctx context.Context, principal string, asset string) (*big.Int, error) {
	return s.readAmount(ctx, keyPaidTo(strings.TrimSpace(principal), strings.TrimSpace(asset)))
}

func (s *Service) GetOwner(ctx context.Context, id string) (string, bool, error) {
	raw, found, err := s.Store.Get(ctx, keyOwner(strings.TrimSpace(id)))
	if err != nil || !found {
		return "", false, err
	}
	return string(raw), true, nil
}

func (s *Service) GetRules(ctx context.Context, id string) ([]ports.Rule, error) {
	raw, found, err := s.Store.Get(ctx, keyRules(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	if !found {
		return []ports.Rule{}, nil
	}
	return decodeRules(raw)
}

func (s *Service) validateRules(ctx context.Context, id string, rules []ports.Rule) ([]ports.Rule, error) {
	if len(rules) > ports.MaxRules {
		return nil, domainerrors.ErrTooManyRules
	}

	normalized := make([]ports.Rule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	var total uint32
	for _, rule := range rules {
		recipient := strings.TrimSpace(rule.Recipient)
		if recipient == "" || seen[recipient] {
			return nil, domainerrors.ErrInvalidInput
		}
		seen[recipient] = true
		if recipient == id {
			return nil, domainerrors.ErrSelfReference
		}
		if s.StrictRecipientRegistration {
			registered, err := s.Store.Has(ctx, keyOwner(recipient))
			if err != nil {
				return nil, err
			}
			if !registered {
				return nil, domainerrors.ErrRecipientNotRegistered
			}
		}
		if rule.ShareBPS == 0 || rule.ShareBPS > ports.BPSBase {
			return nil, domainerrors.ErrInvalidPercentage
		}
		total = saturatingAddBPS(total, rule.ShareBPS)
		if total > ports.BPSBase {
			return nil, domainerrors.ErrRulesExceedMax
		}
		normalized = append(normalized, ports.Rule{Recipient: recipient, ShareBPS: rule.ShareBPS})
	}
	return normalized, nil
}

// Saturating so a crafted sum cannot wrap past the 100% cap.
func saturatingAddBPS(total, share uint32) uint32 {
	if total > math.MaxUint32-share {
		return math.MaxUint32
	}
	return total + share
}

func (s *Service) assertOwner(ctx context.Context, caller string, id string) error {
	raw, found, err := s.Store.Get(ctx, keyOwner(id))
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrNotFound
	}
	if string(raw) != caller {
		return domainerrors.ErrNotOwner
	}
	return nil
}

func (s *Service) requireAuth(ctx context.Context, principal string) error {
	if s.Auth == nil {
		return nil
	}
	return s.Auth.RequireAuth(ctx, principal)
}

func (s *Service) readAmount(ctx context.Context, key string) (*big.Int, error) {
	raw, found, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeAmount(raw, found)
}

func (s *Service) stageAdd(ctx context.Context, writes []ports.Write, key string, delta *big.Int) ([]ports.Write, error) {
	current, err := s.readAmount(ctx, key)
	if err != nil {
		return nil, err
	}
	return append(writes, ports.Write{
		Key:   key,
		Value: encodeAmount(new(big.Int).Add(current, delta)),
	}), nil
}

func (s *Service) emit(ctx context.Context, eventType string, entityID string, payload map[string]any) error {
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.newID(ctx)
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  "distribution-ledger",
		OccurredAtUTC:  s.now(),
		EntityType:     "identifier",
		EntityID:       entityID,
		PartitionKey:   entityID,
		PayloadVersion: 1,
		Payload:        payload,
	})
}

// Outbox adapters assign an id themselves when the envelope carries none.
func (s *Service) newID(ctx context.Context) (string, error) {
	if s.IDGen == nil {
		return "", nil
	}
	return s.IDGen.NewID(ctx)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
