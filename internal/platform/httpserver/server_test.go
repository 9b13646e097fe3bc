package httpserver

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	aliasregistry "cascade/contexts/donation-core/alias-registry"
	distributionledger "cascade/contexts/donation-core/distribution-ledger"
	ledgerhttp "cascade/contexts/donation-core/distribution-ledger/transport/http"
)

func newTestServer(t *testing.T) (*httptest.Server, distributionledger.Module) {
	t.Helper()
	ledger := distributionledger.NewInMemoryModule(nil, "ledger-custody")
	alias := aliasregistry.NewInMemoryModule(nil)
	server := httptest.NewServer(New(ledger, alias, nil, ":0").Handler())
	t.Cleanup(server.Close)
	return server, ledger
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request failed: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response failed: %v", err)
		}
	}
	return resp.StatusCode
}

func TestLedgerEndToEndOverHTTP(t *testing.T) {
	server, ledger := newTestServer(t)
	base := server.URL

	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers",
		ledgerhttp.RegisterRequest{Caller: "owner_a", Identifier: "alice"}, nil); status != http.StatusOK {
		t.Fatalf("register alice = %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers",
		ledgerhttp.RegisterRequest{Caller: "owner_b", Identifier: "bob"}, nil); status != http.StatusOK {
		t.Fatalf("register bob = %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers",
		ledgerhttp.RegisterRequest{Caller: "owner_c", Identifier: "alice"}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate register = %d, want 409", status)
	}

	if status := doJSON(t, http.MethodPut, base+"/v1/ledger/identifiers/alice/rules",
		ledgerhttp.SetRulesRequest{
			Caller: "owner_a",
			Rules:  []ledgerhttp.RuleDTO{{Recipient: "bob", ShareBPS: 4000}},
		}, nil); status != http.StatusOK {
		t.Fatalf("set rules = %d", status)
	}
	if status := doJSON(t, http.MethodPut, base+"/v1/ledger/identifiers/alice/rules",
		ledgerhttp.SetRulesRequest{
			Caller: "owner_a",
			Rules:  []ledgerhttp.RuleDTO{{Recipient: "alice", ShareBPS: 100}},
		}, nil); status != http.StatusUnprocessableEntity {
		t.Fatalf("self-referencing rules = %d, want 422", status)
	}

	ledger.Bank.Mint("token", "donor_d", big.NewInt(1000))
	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers/alice/donations",
		ledgerhttp.DonateRequest{Caller: "donor_d", Asset: "token", Amount: "1000"}, nil); status != http.StatusOK {
		t.Fatalf("donate = %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers/alice/donations",
		ledgerhttp.DonateRequest{Caller: "donor_d", Asset: "token", Amount: "not-a-number"}, nil); status != http.StatusBadRequest {
		t.Fatalf("malformed amount = %d, want 400", status)
	}

	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers/alice/distributions",
		ledgerhttp.DistributeRequest{Asset: "token"}, nil); status != http.StatusOK {
		t.Fatalf("distribute = %d", status)
	}

	var pool ledgerhttp.AmountResponse
	if status := doJSON(t, http.MethodGet,
		base+"/v1/ledger/identifiers/bob/pool?asset=token", nil, &pool); status != http.StatusOK {
		t.Fatalf("bob pool read = %d", status)
	}
	if pool.Amount != "400" {
		t.Fatalf("bob pool = %s, want 400", pool.Amount)
	}
	if status := doJSON(t, http.MethodGet,
		base+"/v1/ledger/identifiers/bob/pool", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("pool read without asset = %d, want 400", status)
	}

	var claimed ledgerhttp.AmountResponse
	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers/alice/claims",
		ledgerhttp.ClaimRequest{Caller: "owner_a", Asset: "token"}, &claimed); status != http.StatusOK {
		t.Fatalf("claim = %d", status)
	}
	if claimed.Amount != "600" {
		t.Fatalf("claimed = %s, want 600", claimed.Amount)
	}
	if status := doJSON(t, http.MethodPost, base+"/v1/ledger/identifiers/alice/claims",
		ledgerhttp.ClaimRequest{Caller: "owner_b", Asset: "token"}, nil); status != http.StatusForbidden {
		t.Fatalf("claim by non-owner = %d, want 403", status)
	}

	var grand ledgerhttp.AmountResponse
	if status := doJSON(t, http.MethodGet,
		base+"/v1/ledger/assets/token/grand-total", nil, &grand); status != http.StatusOK {
		t.Fatalf("grand total read = %d", status)
	}
	if grand.Amount != "1000" {
		t.Fatalf("grand total = %s, want 1000", grand.Amount)
	}
}

func TestAliasEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL

	if status := doJSON(t, http.MethodPost, base+"/v1/aliases",
		map[string]string{"caller": "principal_a", "nickname": "alice"}, nil); status != http.StatusOK {
		t.Fatalf("set nickname = %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/v1/aliases",
		map[string]string{"caller": "principal_b", "nickname": "alice"}, nil); status != http.StatusConflict {
		t.Fatalf("taken nickname = %d, want 409", status)
	}

	var owner struct {
		Principal string `json:"principal"`
		Found     bool   `json:"found"`
	}
	if status := doJSON(t, http.MethodGet, base+"/v1/aliases/alice", nil, &owner); status != http.StatusOK {
		t.Fatalf("nickname owner read = %d", status)
	}
	if !owner.Found || owner.Principal != "principal_a" {
		t.Fatalf("nickname owner = %+v", owner)
	}

	var nickname struct {
		Nickname string `json:"nickname"`
		Found    bool   `json:"found"`
	}
	if status := doJSON(t, http.MethodGet, base+"/v1/principals/principal_a/nickname", nil, &nickname); status != http.StatusOK {
		t.Fatalf("nickname read = %d", status)
	}
	if !nickname.Found || nickname.Nickname != "alice" {
		t.Fatalf("nickname = %+v", nickname)
	}
}
