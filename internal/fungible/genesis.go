package fungible

import (
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-rgb/pkg/amount"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Genesis is a validated genesis commitment. *contract.Genesis
// implements it.
type Genesis interface {
	SchemaID() types.SchemaID
	ContractID() types.ContractID
	NodeID() types.NodeID
	Chain() types.Chain
	Metadata() contract.Metadata
	OwnedRights(rt schema.OwnedRightsType) []contract.OwnedState
	HasRights(rt schema.OwnedRightsType) bool
}

// disclosure is how much of an owned state this node can see.
type disclosure uint8

const (
	disclosedFully     disclosure = iota // seal and amount
	disclosedAmount                      // amount only
	disclosedNothing                     // no amount
)

func classify(s contract.OwnedState) disclosure {
	switch s.(type) {
	case contract.Revealed:
		return disclosedFully
	case contract.ConfidentialSeal:
		return disclosedAmount
	case contract.ConfidentialAmount, contract.Confidential:
		// A known seal without its amount gives no bound on capacity.
		return disclosedNothing
	default:
		panic(fmt.Sprintf("fungible: unhandled owned state %T", s))
	}
}

// FromGenesis derives the initial state of an asset from its genesis.
// A nil schema selects schema.Fungible(). On failure no asset is
// returned and the error is a *Error.
func FromGenesis(g Genesis, s *schema.Schema) (*Asset, error) {
	if s == nil {
		s = schema.Fungible()
	}
	if got, want := g.SchemaID(), s.ID(); got != want {
		return nil, schemaMismatch(fmt.Errorf("%w: %s != %s", schema.ErrWrongSchemaID, got, want))
	}

	meta := g.Metadata()
	for _, f := range s.Fields {
		if f.Occurrences.Required() && len(meta[f.Type]) == 0 {
			return nil, missingField(f.Type)
		}
	}
	bits, ok := first(meta.U8(schema.Precision))
	if !ok {
		return nil, missingField(schema.Precision)
	}
	issued, ok := first(meta.U64(schema.IssuedSupply))
	if !ok {
		return nil, missingField(schema.IssuedSupply)
	}
	ticker, ok := first(meta.Strings(schema.Ticker))
	if !ok {
		return nil, missingField(schema.Ticker)
	}
	name, ok := first(meta.Strings(schema.Name))
	if !ok {
		return nil, missingField(schema.Name)
	}
	ts, ok := first(meta.I64(schema.Timestamp))
	if !ok {
		return nil, missingField(schema.Timestamp)
	}

	a := &Asset{
		id:               g.ContractID(),
		ticker:           ticker,
		name:             name,
		chain:            g.Chain(),
		fractionalBits:   bits,
		date:             time.Unix(ts, 0).UTC(),
		knownInflation:   make(map[types.Outpoint]amount.Amount),
		unknownInflation: amount.Zero(bits),
		knownAllocations: make(map[types.Outpoint][]Allocation),
	}
	if desc, ok := first(meta.Strings(schema.ContractText)); ok {
		a.description = &desc
	}

	inflation := g.OwnedRights(schema.Inflation)
	confidential := false
	for i, st := range inflation {
		switch classify(st) {
		case disclosedFully:
			r := st.(contract.Revealed)
			op, err := r.Seal.Outpoint()
			if err != nil {
				return nil, invalidSeal(schema.Inflation, i, err)
			}
			a.knownInflation[op] = amount.FromAtomic(bits, r.Value.Value)
		case disclosedAmount:
			v, _ := contract.KnownValue(st)
			a.unknownInflation = a.unknownInflation.SaturatingAdd(amount.FromAtomic(bits, v))
		case disclosedNothing:
			confidential = true
		}
	}
	if confidential {
		a.unknownInflation = amount.Max(bits)
	}

	// Allocations take the contract id as their node id.
	nodeID := types.NodeID(g.ContractID())
	for i, st := range g.OwnedRights(schema.Assets) {
		r, ok := st.(contract.Revealed)
		if !ok {
			continue
		}
		op, err := r.Seal.Outpoint()
		if err != nil {
			return nil, invalidSeal(schema.Assets, i, err)
		}
		a.AddAllocation(op, nodeID, uint16(i), r.Value)
	}

	issuedAmount := amount.FromAtomic(bits, issued)
	maxCap := issuedAmount
	if g.HasRights(schema.Inflation) {
		maxCap = amount.Zero(bits)
		for _, st := range inflation {
			if v, ok := contract.KnownValue(st); ok {
				maxCap = maxCap.SaturatingAdd(amount.FromAtomic(bits, v))
			}
		}
	}

	a.knownIssues = []Issue{{
		ID:      g.NodeID(),
		AssetID: g.ContractID(),
		Amount:  issuedAmount,
	}}
	a.supply = Supply{
		KnownCirculating: issuedAmount,
		MaxCap:           maxCap,
	}
	return a, nil
}

func first[T any](vs []T) (T, bool) {
	if len(vs) == 0 {
		var zero T
		return zero, false
	}
	return vs[0], true
}
