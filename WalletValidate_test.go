package main

import "testing"

func TestValidateWalletAddressAcceptsKnownP2PKH(t *testing.T) {
	// The genesis block's coinbase payout address.
	if err := ValidateWalletAddress("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"); err != nil {
		t.Errorf("expected a well-formed P2PKH address to validate, got: %v", err)
	}
}

func TestValidateWalletAddressRejectsGarbage(t *testing.T) {
	for _, addr := range []string{"", "   ", "not-an-address", "1A1zP1eP5QGefi2DMPTfTL5SLmv7Divf"} {
		if err := ValidateWalletAddress(addr); err == nil {
			t.Errorf("expected %q to fail validation", addr)
		}
	}
}
