package memory

import (
	"context"
	"math/big"
	"strings"
	"sync"

	domainerrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	"cascade/contexts/donation-core/distribution-ledger/ports"
)

// Bank is an in-memory stand-in for the external asset rail. A transfer
// either debits and credits atomically or fails without moving funds.
type Bank struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int // asset -> account -> balance
}

func NewBank() *Bank {
	return &Bank{
		balances: make(map[string]map[string]*big.Int),
	}
}

func (b *Bank) Transfer(_ context.Context, asset string, from string, to string, amount *big.Int) error {
	asset = strings.TrimSpace(asset)
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if asset == "" || from == "" || to == "" || amount == nil || amount.Sign() <= 0 {
		return domainerrors.ErrTransferFailed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	source := b.balance(asset, from)
	if source.Cmp(amount) < 0 {
		return domainerrors.ErrTransferFailed
	}
	source.Sub(source, amount)
	b.balance(asset, to).Add(b.balance(asset, to), amount)
	return nil
}

// Mint funds an account out of thin air. Test and bootstrap helper.
func (b *Bank) Mint(asset string, account string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.balance(asset, account).Add(b.balance(asset, account), amount)
}

func (b *Bank) Balance(asset string, account string) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return new(big.Int).Set(b.balance(asset, account))
}

func (b *Bank) balance(asset string, account string) *big.Int {
	accounts, ok := b.balances[asset]
	if !ok {
		accounts = make(map[string]*big.Int)
		b.balances[asset] = accounts
	}
	balance, ok := accounts[account]
	if !ok {
		balance = big.NewInt(0)
		accounts[account] = balance
	}
	return balance
}

var _ ports.AssetTransfer = (*Bank)(nil)
