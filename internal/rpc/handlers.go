package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-rgb/internal/fungible"
	"github.com/Klingon-tech/klingnet-rgb/internal/issuer"
	"github.com/Klingon-tech/klingnet-rgb/internal/registry"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// ── fungible_* ──────────────────────────────────────────────────────────

func (s *Server) handleFungibleIssue(req *Request) (interface{}, *Error) {
	var params IssueParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	network := s.network
	if params.Network != "" {
		chain, err := types.ParseChain(params.Network)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
		}
		if chain != s.network {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("node serves %s, not %s", s.network, chain)}
		}
		network = chain
	}

	allocs, rpcErr := parseSeals("allocations", params.Allocations)
	if rpcErr != nil {
		return nil, rpcErr
	}
	inflation, rpcErr := parseSeals("inflation", params.Inflation)
	if rpcErr != nil {
		return nil, rpcErr
	}

	ir := issuer.Request{
		Chain:        network,
		Ticker:       params.Ticker,
		Name:         params.Name,
		Description:  params.Description,
		Precision:    params.Precision,
		Confidential: params.Confidential,
	}
	for _, a := range allocs {
		ir.Allocations = append(ir.Allocations, issuer.Allocation{Outpoint: a.op, Amount: a.amount})
	}
	for _, a := range inflation {
		ir.Inflation = append(ir.Inflation, issuer.Inflation{Outpoint: a.op, Amount: a.amount})
	}
	if params.Timestamp != 0 {
		ir.Timestamp = time.Unix(params.Timestamp, 0)
	}

	g, err := s.issuer.Build(ir)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	asset, err := s.registry.Derive(g)
	if err != nil {
		return nil, registryError(err)
	}
	s.logger.Info().Str("contract", asset.ID().String()).Str("ticker", asset.Ticker()).Msg("Asset issued")
	return assetResult(asset), nil
}

func (s *Server) handleFungibleTransfer(req *Request) (interface{}, *Error) {
	var params TransferParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseContractID(params.ContractID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if !s.registry.Has(id) {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("asset %s not found", id)}
	}
	return nil, &Error{
		Code:    CodeUnsupported,
		Message: "transfers need an on-chain witness transaction, which this node does not construct",
	}
}

func (s *Server) handleFungibleImportGenesis(req *Request) (interface{}, *Error) {
	var params ImportGenesisParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	g, rpcErr := s.decodeGenesis(params.Genesis)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, err := s.registry.Derive(g)
	if err != nil {
		return nil, registryError(err)
	}
	return assetResult(asset), nil
}

func (s *Server) handleFungibleImportGenesisBatch(req *Request) (interface{}, *Error) {
	var params ImportGenesisBatchParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.Genesis) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "at least one genesis required"}
	}
	gs := make([]*contract.Genesis, len(params.Genesis))
	for i, h := range params.Genesis {
		g, rpcErr := s.decodeGenesis(h)
		if rpcErr != nil {
			rpcErr.Message = fmt.Sprintf("genesis %d: %s", i, rpcErr.Message)
			return nil, rpcErr
		}
		gs[i] = g
	}
	assets, err := s.registry.DeriveAll(gs)
	if err != nil {
		return nil, registryError(err)
	}
	out := make([]*AssetResult, len(assets))
	for i, a := range assets {
		out[i] = assetResult(a)
	}
	return out, nil
}

// decodeGenesis parses a hex encoded genesis issued on the served network.
func (s *Server) decodeGenesis(h string) (*contract.Genesis, *Error) {
	data, err := hex.DecodeString(h)
	if err != nil || len(data) == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "genesis must be non-empty hex"}
	}
	g, err := contract.DecodeGenesis(data)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	if g.Chain() != s.network {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("genesis is for %s, node serves %s", g.Chain(), s.network)}
	}
	return g, nil
}

// ── asset_* ─────────────────────────────────────────────────────────────

func (s *Server) handleAssetList(_ *Request) (interface{}, *Error) {
	assets := s.registry.List()
	out := make([]AssetSummary, len(assets))
	for i, a := range assets {
		sup := a.Supply()
		out[i] = AssetSummary{
			ContractID:       a.ID().String(),
			Ticker:           a.Ticker(),
			Name:             a.Name(),
			Chain:            a.Chain().String(),
			Precision:        a.FractionalBits(),
			KnownCirculating: sup.KnownCirculating,
			MaxCap:           sup.MaxCap,
		}
	}
	return out, nil
}

func (s *Server) handleAssetGet(req *Request) (interface{}, *Error) {
	var params ContractIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseContractID(params.ContractID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, err := s.registry.Get(id)
	if err != nil {
		return nil, registryError(err)
	}
	return assetResult(asset), nil
}

func (s *Server) handleAssetAllocations(req *Request) (interface{}, *Error) {
	var params AllocationsParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseContractID(params.ContractID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	op, err := types.ParseOutpoint(params.Outpoint)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid outpoint: %v", err)}
	}
	asset, err := s.registry.Get(id)
	if err != nil {
		return nil, registryError(err)
	}
	bucket, ok := asset.Allocations(op)
	return &AllocationListResult{
		Outpoint:    op.String(),
		Known:       ok,
		Allocations: allocationResults(bucket),
	}, nil
}

func (s *Server) handleAssetAddAllocation(req *Request) (interface{}, *Error) {
	return s.changeAllocation(req, (*fungible.Asset).AddAllocation)
}

func (s *Server) handleAssetRemoveAllocation(req *Request) (interface{}, *Error) {
	return s.changeAllocation(req, (*fungible.Asset).RemoveAllocation)
}

type allocationOp func(*fungible.Asset, types.Outpoint, types.NodeID, uint16, contract.RevealedValue) bool

func (s *Server) changeAllocation(req *Request, apply allocationOp) (interface{}, *Error) {
	var params AllocationChangeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseContractID(params.ContractID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	op, err := types.ParseOutpoint(params.Outpoint)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid outpoint: %v", err)}
	}
	nodeHash, err := types.HexToHash(params.NodeID)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid node_id: must be 32-byte hex"}
	}
	var blinding types.Hash
	if params.Blinding != "" {
		if blinding, err = types.HexToHash(params.Blinding); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "invalid blinding: must be 32-byte hex"}
		}
	}

	var changed bool
	err = s.registry.Update(id, func(a *fungible.Asset) error {
		changed = apply(a, op, types.NodeID(nodeHash), params.Index, contract.RevealedValue{Value: params.Amount, Blinding: blinding})
		return nil
	})
	if err != nil {
		return nil, registryError(err)
	}
	return &ChangedResult{Changed: changed}, nil
}

// ── helpers ─────────────────────────────────────────────────────────────

type seal struct {
	op     types.Outpoint
	amount uint64
}

func parseSeals(field string, params []SealParam) ([]seal, *Error) {
	out := make([]seal, len(params))
	for i, p := range params {
		op, err := types.ParseOutpoint(p.Outpoint)
		if err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("%s[%d]: invalid outpoint: %v", field, i, err)}
		}
		out[i] = seal{op: op, amount: p.Amount}
	}
	return out, nil
}

func parseContractID(s string) (types.ContractID, *Error) {
	if s == "" {
		return types.ContractID{}, &Error{Code: CodeInvalidParams, Message: "contract_id is required"}
	}
	id, err := types.HexToContractID(s)
	if err != nil {
		return types.ContractID{}, &Error{Code: CodeInvalidParams, Message: "invalid contract_id: must be 32-byte hex"}
	}
	return id, nil
}

// registryError maps registry and derivation failures to RPC errors.
func registryError(err error) *Error {
	var derr *fungible.Error
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, registry.ErrExists):
		return &Error{Code: CodeExists, Message: err.Error()}
	case errors.As(err, &derr):
		return &Error{Code: CodeDerivation, Message: err.Error(), Data: derr.Kind.String()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

func assetResult(a *fungible.Asset) *AssetResult {
	sup := a.Supply()
	res := &AssetResult{
		ContractID:       a.ID().String(),
		Ticker:           a.Ticker(),
		Name:             a.Name(),
		Chain:            a.Chain().String(),
		Precision:        a.FractionalBits(),
		Date:             a.Date().Unix(),
		Supply:           SupplyResult{KnownCirculating: sup.KnownCirculating, IsIssuedKnown: sup.IsIssuedKnown, MaxCap: sup.MaxCap},
		UnknownInflation: a.UnknownInflation(),
		Issues:           []IssueResult{},
		KnownInflation:   []InflationResult{},
		Allocations:      []AllocationResult{},
	}
	if d, ok := a.Description(); ok {
		res.Description = d
	}
	if total, ok := sup.TotalCirculating(); ok {
		res.Supply.TotalCirculating = &total
	}
	for _, is := range a.KnownIssues() {
		ir := IssueResult{ID: is.ID.String(), Amount: is.Amount, Primary: is.IsPrimary()}
		if is.Origin != nil {
			ir.Origin = is.Origin.String()
		}
		res.Issues = append(res.Issues, ir)
	}
	for _, op := range a.KnownInflationOutpoints() {
		v, _ := a.KnownInflation(op)
		res.KnownInflation = append(res.KnownInflation, InflationResult{Outpoint: op.String(), Amount: v})
	}
	for _, op := range a.KnownAllocationOutpoints() {
		bucket, _ := a.Allocations(op)
		res.Allocations = append(res.Allocations, allocationResults(bucket)...)
	}
	return res
}

func allocationResults(bucket []fungible.Allocation) []AllocationResult {
	out := make([]AllocationResult, len(bucket))
	for i, al := range bucket {
		out[i] = AllocationResult{
			NodeID:   al.NodeID.String(),
			Index:    al.Index,
			Outpoint: al.Outpoint.String(),
			Amount:   al.Value.Value,
			Blinding: al.Value.Blinding.String(),
		}
	}
	return out
}
