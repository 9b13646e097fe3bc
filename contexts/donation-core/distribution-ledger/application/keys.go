package application

import (
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	domainerrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	"cascade/contexts/donation-core/distribution-ledger/ports"
)

// Storage keys are a kind tag followed by length-prefixed components, so
// identifiers containing separator characters cannot collide.
func storageKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, part := range parts {
		b.WriteString("|")
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteString(":")
		b.WriteString(part)
	}
	return b.String()
}

func keyOwner(id string) string {
	return storageKey("owner", id)
}

func keyRules(id string) string {
	return storageKey("rules", id)
}

func keyPool(id, asset string) string {
	return storageKey("pool", id, asset)
}

func keyUnclaimed(id, asset string) string {
	return storageKey("unclaimed", id, asset)
}

func keyTotalReceived(id, asset string) string {
	return storageKey("total_received", id, asset)
}

func keyTotalReceivedFromCascade(id, asset string) string {
	return storageKey("cascade_received", id, asset)
}

func keyTotalForwarded(id, asset string) string {
	return storageKey("total_forwarded", id, asset)
}

func keyDonorToIdentifier(donor, id, asset string) string {
	return storageKey("donor_identifier", donor, id, asset)
}

func keyDonorTotal(donor, asset string) string {
	return storageKey("donor_total", donor, asset)
}

func keyGrandTotal(asset string) string {
	return storageKey("grand_total", asset)
}

func keyPaidTo(principal, asset string) string {
	return storageKey("paid_to", principal, asset)
}

// Amounts are serialized as decimal strings; an absent key reads as zero.
func encodeAmount(amount *big.Int) []byte {
	if amount == nil {
		return []byte("0")
	}
	return []byte(amount.String())
}

func decodeAmount(raw []byte, found bool) (*big.Int, error) {
	if !found || len(raw) == 0 {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, domainerrors.ErrInvalidInput
	}
	return amount, nil
}

func encodeRules(rules []ports.Rule) ([]byte, error) {
	if rules == nil {
		rules = []ports.Rule{}
	}
	return json.Marshal(rules)
}

func decodeRules(raw []byte) ([]ports.Rule, error) {
	var rules []ports.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, domainerrors.ErrInvalidInput
	}
	return rules, nil
}
