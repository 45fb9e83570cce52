package main

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ValidateWalletAddress decodes addr as a mainnet Bitcoin address, rejecting
// anything that is not a well-formed P2PKH/P2SH/segwit destination. The
// miner only ever places this address into the generation transaction's
// output script, never spends from it, so decode success is sufficient
// grounds to proceed (spec.md §7: an invalid wallet is a config-time error).
func ValidateWalletAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("empty address")
	}

	decoded, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams)
	if err != nil {
		return err
	}
	if !decoded.IsForNet(&chaincfg.MainNetParams) {
		return fmt.Errorf("address %s is not a mainnet address", addr)
	}
	return nil
}
