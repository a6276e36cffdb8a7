package types

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Chain names the base ledger an asset is anchored to. Values match
// the btcd chaincfg network names.
type Chain string

const (
	Mainnet Chain = "mainnet"
	Testnet Chain = "testnet3"
	Regtest Chain = "regtest"
	Signet  Chain = "signet"
)

var chainParams = map[Chain]*chaincfg.Params{
	Mainnet: &chaincfg.MainNetParams,
	Testnet: &chaincfg.TestNet3Params,
	Regtest: &chaincfg.RegressionNetParams,
	Signet:  &chaincfg.SigNetParams,
}

// ParseChain resolves a chain by name. "testnet" is accepted as an
// alias for testnet3.
func ParseChain(name string) (Chain, error) {
	if name == "testnet" {
		return Testnet, nil
	}
	c := Chain(name)
	if _, ok := chainParams[c]; !ok {
		return "", fmt.Errorf("unknown chain %q", name)
	}
	return c, nil
}

// Params returns the btcd network parameters for the chain.
func (c Chain) Params() (*chaincfg.Params, error) {
	p, ok := chainParams[c]
	if !ok {
		return nil, fmt.Errorf("unknown chain %q", string(c))
	}
	return p, nil
}

// Valid reports whether the chain is a known network.
func (c Chain) Valid() bool {
	_, ok := chainParams[c]
	return ok
}

// String returns the chain name.
func (c Chain) String() string {
	return string(c)
}
