// Package issuer builds genesis commitments for new fungible assets.
package issuer

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/Klingon-tech/klingnet-rgb/internal/log"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Limits on issue requests.
const (
	MaxTickerLen = 8
	MaxPrecision = 18
)

// Request validation errors.
var (
	ErrInvalidTicker  = errors.New("ticker must be 1-8 ASCII letters or digits")
	ErrEmptyName      = errors.New("asset name is empty")
	ErrNoAllocations  = errors.New("at least one allocation is required")
	ErrZeroAmount     = errors.New("amount must be positive")
	ErrPrecision      = errors.New("precision exceeds maximum")
	ErrSupplyOverflow = errors.New("issued supply overflows")
	ErrDuplicateSeal  = errors.New("outpoint used twice")
)

// Allocation assigns an atomic amount to an outpoint at issue.
type Allocation struct {
	Outpoint types.Outpoint
	Amount   uint64
}

// Inflation grants the owner of an outpoint the right to issue up to
// Amount more atomic units.
type Inflation struct {
	Outpoint types.Outpoint
	Amount   uint64
}

// Request describes a new asset.
type Request struct {
	Chain       types.Chain
	Ticker      string
	Name        string
	Description string // optional
	Precision   uint8
	Allocations []Allocation
	Inflation   []Inflation
	// Confidential hides the seals of the inflation rights.
	Confidential bool
	// Timestamp defaults to the current time.
	Timestamp time.Time
}

// Issuer turns requests into genesis commitments.
type Issuer struct {
	rand io.Reader
	now  func() time.Time
}

// New creates an issuer drawing blinding factors from crypto/rand.
func New() *Issuer {
	return &Issuer{rand: rand.Reader, now: time.Now}
}

// Validate checks a request without building it. It returns the issued
// supply.
func (req *Request) Validate() (uint64, error) {
	if !validTicker(req.Ticker) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTicker, req.Ticker)
	}
	if req.Name == "" {
		return 0, ErrEmptyName
	}
	if req.Precision > MaxPrecision {
		return 0, fmt.Errorf("%w: %d > %d", ErrPrecision, req.Precision, MaxPrecision)
	}
	if !req.Chain.Valid() {
		return 0, fmt.Errorf("unknown chain %q", string(req.Chain))
	}
	if len(req.Allocations) == 0 {
		return 0, ErrNoAllocations
	}

	seen := make(map[types.Outpoint]bool)
	var supply uint64
	for i, a := range req.Allocations {
		if a.Amount == 0 {
			return 0, fmt.Errorf("allocation %d: %w", i, ErrZeroAmount)
		}
		if seen[a.Outpoint] {
			return 0, fmt.Errorf("allocation %d: %w: %s", i, ErrDuplicateSeal, a.Outpoint)
		}
		seen[a.Outpoint] = true
		if supply > math.MaxUint64-a.Amount {
			return 0, ErrSupplyOverflow
		}
		supply += a.Amount
	}
	for i, inf := range req.Inflation {
		if inf.Amount == 0 {
			return 0, fmt.Errorf("inflation %d: %w", i, ErrZeroAmount)
		}
	}
	return supply, nil
}

// Build validates a request and creates its genesis.
func (is *Issuer) Build(req Request) (*contract.Genesis, error) {
	supply, err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("issue %s: %w", req.Ticker, err)
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = is.now()
	}

	meta := contract.Metadata{}
	meta.Add(schema.Ticker, contract.StringValue(req.Ticker))
	meta.Add(schema.Name, contract.StringValue(req.Name))
	if req.Description != "" {
		meta.Add(schema.ContractText, contract.StringValue(req.Description))
	}
	meta.Add(schema.Precision, contract.U8Value(req.Precision))
	meta.Add(schema.IssuedSupply, contract.U64Value(supply))
	meta.Add(schema.Timestamp, contract.I64Value(ts.Unix()))

	rights := contract.OwnedRights{}
	for _, a := range req.Allocations {
		st, err := is.revealed(a.Outpoint, a.Amount)
		if err != nil {
			return nil, err
		}
		rights[schema.Assets] = append(rights[schema.Assets], st)
	}
	for _, inf := range req.Inflation {
		st, err := is.revealed(inf.Outpoint, inf.Amount)
		if err != nil {
			return nil, err
		}
		var owned contract.OwnedState = st
		if req.Confidential {
			owned = st.ConcealSeal()
		}
		rights[schema.Inflation] = append(rights[schema.Inflation], owned)
	}

	g, err := contract.NewGenesis(schema.FungibleID(), req.Chain, meta, rights)
	if err != nil {
		return nil, err
	}
	log.Issuer.Debug().
		Str("ticker", req.Ticker).
		Str("contract", g.ContractID().String()).
		Int("allocations", len(req.Allocations)).
		Int("inflation", len(req.Inflation)).
		Msg("Genesis built")
	return g, nil
}

func (is *Issuer) revealed(op types.Outpoint, v uint64) (contract.Revealed, error) {
	var buf [8 + types.HashSize]byte
	if _, err := io.ReadFull(is.rand, buf[:]); err != nil {
		return contract.Revealed{}, fmt.Errorf("blinding: %w", err)
	}
	var blinding types.Hash
	copy(blinding[:], buf[8:])
	return contract.Revealed{
		Seal:  contract.TxOutpointSeal(op, binary.LittleEndian.Uint64(buf[:8])),
		Value: contract.RevealedValue{Value: v, Blinding: blinding},
	}, nil
}

func validTicker(s string) bool {
	if len(s) == 0 || len(s) > MaxTickerLen {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
