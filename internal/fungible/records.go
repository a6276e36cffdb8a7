package fungible

import (
	"github.com/Klingon-tech/klingnet-rgb/pkg/amount"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Allocation is one unit of asset ownership. NodeID and Index identify
// the assignment that created it; Outpoint is the output it is currently
// bound to, copied for lookup.
type Allocation struct {
	NodeID   types.NodeID
	Index    uint16
	Outpoint types.Outpoint
	Value    contract.RevealedValue
}

// Issue records one issuance event.
type Issue struct {
	ID      types.NodeID
	AssetID types.ContractID
	Amount  amount.Amount
	// Origin is the output whose spending authorized a secondary
	// issuance. Nil for the primary issuance in genesis.
	Origin *types.Outpoint
}

// IsPrimary reports whether the issue was made by the genesis.
func (i Issue) IsPrimary() bool { return i.Origin == nil }

// IsSecondary reports whether the issue spent an inflation right.
func (i Issue) IsSecondary() bool { return i.Origin != nil }

func (i Issue) clone() Issue {
	if i.Origin != nil {
		o := *i.Origin
		i.Origin = &o
	}
	return i
}

// Supply is the issuance bookkeeping of an asset.
type Supply struct {
	// KnownCirculating sums the issues whose origin and amount are known.
	KnownCirculating amount.Amount
	// IsIssuedKnown is nil while it cannot be determined whether every
	// issue is known.
	IsIssuedKnown *bool
	// MaxCap is the most that can ever be issued.
	MaxCap amount.Amount
}

// TotalCirculating returns the circulating supply. The second result is
// false when the total cannot be computed from the data available; it
// must not be read as zero.
func (s Supply) TotalCirculating() (amount.Amount, bool) {
	if s.IsIssuedKnown == nil || !*s.IsIssuedKnown {
		return amount.Amount{}, false
	}
	return s.KnownCirculating, true
}

func (s Supply) clone() Supply {
	if s.IsIssuedKnown != nil {
		v := *s.IsIssuedKnown
		s.IsIssuedKnown = &v
	}
	return s
}
