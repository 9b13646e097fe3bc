package application

import (
	"math/big"
	"testing"
)

func TestStorageKeysDoNotCollideOnSeparatorCharacters(t *testing.T) {
	// Without length prefixes these two pairs would build the same key.
	if keyPool("a|b", "c") == keyPool("a", "b|c") {
		t.Fatal("pool keys collide across component boundaries")
	}
	if keyDonorToIdentifier("d", "a:b", "c") == keyDonorToIdentifier("d", "a", "b:c") {
		t.Fatal("donor keys collide across component boundaries")
	}
	if keyOwner("alice") == keyRules("alice") {
		t.Fatal("owner and rules keys share a namespace")
	}
}

func TestAmountCodec(t *testing.T) {
	amount, err := decodeAmount(encodeAmount(big.NewInt(123456789)), true)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if amount.Cmp(big.NewInt(123456789)) != 0 {
		t.Fatalf("round trip = %s", amount.String())
	}

	huge, _ := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	back, err := decodeAmount(encodeAmount(huge), true)
	if err != nil {
		t.Fatalf("decode of large amount failed: %v", err)
	}
	if back.Cmp(huge) != 0 {
		t.Fatalf("large round trip = %s", back.String())
	}

	absent, err := decodeAmount(nil, false)
	if err != nil {
		t.Fatalf("decode of absent value failed: %v", err)
	}
	if absent.Sign() != 0 {
		t.Fatalf("absent key decoded to %s, want 0", absent.String())
	}

	if _, err := decodeAmount([]byte("not-a-number"), true); err == nil {
		t.Fatal("garbage value decoded without error")
	}
}
