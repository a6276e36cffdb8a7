// Package fungible derives and maintains the client-side view of a
// fungible asset: its supply, its inflation rights and the allocations
// known to this node.
//
// An Asset is not safe for concurrent use. Callers that share one
// between goroutines must serialise writers; internal/registry does so.
package fungible

import (
	"fmt"
	"slices"
	"time"

	"github.com/Klingon-tech/klingnet-rgb/pkg/amount"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Asset is the aggregate state of one fungible asset contract.
type Asset struct {
	id             types.ContractID
	ticker         string
	name           string
	description    *string
	supply         Supply
	chain          types.Chain
	fractionalBits uint8
	date           time.Time

	knownIssues      []Issue
	knownInflation   map[types.Outpoint]amount.Amount
	unknownInflation amount.Amount
	knownAllocations map[types.Outpoint][]Allocation
}

// ID returns the contract id of the asset.
func (a *Asset) ID() types.ContractID { return a.id }

// Ticker returns the short ticker symbol.
func (a *Asset) Ticker() string { return a.ticker }

// Name returns the full asset name.
func (a *Asset) Name() string { return a.name }

// Description returns the contract text, if the genesis declared one.
func (a *Asset) Description() (string, bool) {
	if a.description == nil {
		return "", false
	}
	return *a.description, true
}

// Supply returns a copy of the supply summary.
func (a *Asset) Supply() Supply { return a.supply.clone() }

// Chain returns the network the asset is issued on.
func (a *Asset) Chain() types.Chain { return a.chain }

// FractionalBits returns the asset precision.
func (a *Asset) FractionalBits() uint8 { return a.fractionalBits }

// Date returns the genesis timestamp.
func (a *Asset) Date() time.Time { return a.date }

// KnownIssues returns the issues known for the asset, oldest first.
func (a *Asset) KnownIssues() []Issue {
	out := make([]Issue, len(a.knownIssues))
	for i, is := range a.knownIssues {
		out[i] = is.clone()
	}
	return out
}

// KnownInflation returns the inflation capacity bound to an outpoint.
func (a *Asset) KnownInflation(op types.Outpoint) (amount.Amount, bool) {
	v, ok := a.knownInflation[op]
	return v, ok
}

// KnownInflationOutpoints returns the outpoints holding known inflation
// rights, in outpoint order.
func (a *Asset) KnownInflationOutpoints() []types.Outpoint {
	return sortedKeys(a.knownInflation)
}

// UnknownInflation returns the upper bound of inflation capacity whose
// seal or amount is hidden.
func (a *Asset) UnknownInflation() amount.Amount { return a.unknownInflation }

// Amount returns v as an amount at the asset precision.
func (a *Asset) Amount(v uint64) amount.Amount {
	return amount.FromAtomic(a.fractionalBits, v)
}

// Allocations returns the allocations bound to an outpoint. The second
// result is false when no bucket exists, which differs from an empty
// bucket left behind by RemoveAllocation.
func (a *Asset) Allocations(op types.Outpoint) ([]Allocation, bool) {
	bucket, ok := a.knownAllocations[op]
	if !ok {
		return nil, false
	}
	return slices.Clone(bucket), true
}

// KnownAllocationOutpoints returns every outpoint with a bucket, in
// outpoint order.
func (a *Asset) KnownAllocationOutpoints() []types.Outpoint {
	return sortedKeys(a.knownAllocations)
}

// AddAllocation binds a new allocation to an outpoint. It returns false
// if an identical allocation is already present.
func (a *Asset) AddAllocation(op types.Outpoint, nodeID types.NodeID, index uint16, value contract.RevealedValue) bool {
	alloc := Allocation{NodeID: nodeID, Index: index, Outpoint: op, Value: value}
	bucket := a.bucket(op)
	if slices.Contains(bucket, alloc) {
		return false
	}
	a.knownAllocations[op] = append(bucket, alloc)
	return true
}

// RemoveAllocation removes the first allocation equal to the arguments.
// It returns false if none was found. The bucket stays in place even
// when it becomes empty.
func (a *Asset) RemoveAllocation(op types.Outpoint, nodeID types.NodeID, index uint16, value contract.RevealedValue) bool {
	alloc := Allocation{NodeID: nodeID, Index: index, Outpoint: op, Value: value}
	bucket := a.bucket(op)
	i := slices.Index(bucket, alloc)
	if i < 0 {
		return false
	}
	a.knownAllocations[op] = slices.Delete(bucket, i, i+1)
	return true
}

func (a *Asset) bucket(op types.Outpoint) []Allocation {
	bucket, ok := a.knownAllocations[op]
	if !ok {
		bucket = []Allocation{}
		a.knownAllocations[op] = bucket
	}
	return bucket
}

// AddIssue applies a secondary issuance transition to the supply.
//
// Reconciling a secondary issue against the spent inflation right and
// the unknown inflation bound is not defined yet, so this always fails
// with ErrIssueApplicationUnsupported and leaves the asset untouched.
func (a *Asset) AddIssue(t *contract.Transition) (Supply, error) {
	if t == nil {
		return a.Supply(), fmt.Errorf("add issue: nil transition: %w", ErrIssueApplicationUnsupported)
	}
	return a.Supply(), fmt.Errorf("add issue %s: %w", t.NodeID(), ErrIssueApplicationUnsupported)
}

// CheckPrecision verifies that every amount held by the asset carries
// the asset precision.
func (a *Asset) CheckPrecision() error {
	check := func(what string, v amount.Amount) error {
		if !v.SamePrecision(amount.Zero(a.fractionalBits)) {
			return fmt.Errorf("%s: %w: %d != %d", what, amount.ErrPrecisionMismatch, v.FractionalBits(), a.fractionalBits)
		}
		return nil
	}
	if err := check("known circulating", a.supply.KnownCirculating); err != nil {
		return err
	}
	if err := check("max cap", a.supply.MaxCap); err != nil {
		return err
	}
	if err := check("unknown inflation", a.unknownInflation); err != nil {
		return err
	}
	for i, is := range a.knownIssues {
		if err := check(fmt.Sprintf("issue %d", i), is.Amount); err != nil {
			return err
		}
	}
	for op, v := range a.knownInflation {
		if err := check("inflation "+op.String(), v); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the asset.
func (a *Asset) Clone() *Asset {
	c := *a
	if a.description != nil {
		d := *a.description
		c.description = &d
	}
	c.supply = a.supply.clone()
	c.knownIssues = a.KnownIssues()
	c.knownInflation = make(map[types.Outpoint]amount.Amount, len(a.knownInflation))
	for op, v := range a.knownInflation {
		c.knownInflation[op] = v
	}
	c.knownAllocations = make(map[types.Outpoint][]Allocation, len(a.knownAllocations))
	for op, bucket := range a.knownAllocations {
		c.knownAllocations[op] = slices.Clone(bucket)
	}
	return &c
}

func sortedKeys[V any](m map[types.Outpoint]V) []types.Outpoint {
	keys := make([]types.Outpoint, 0, len(m))
	for op := range m {
		keys = append(keys, op)
	}
	slices.SortFunc(keys, types.Outpoint.Compare)
	return keys
}
