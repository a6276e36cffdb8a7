package rpcclient

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/Klingon-tech/klingnet-rgb/internal/rpc"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
)

// Runtime is the command façade over a running rgbd node. Each method is
// one request/reply exchange.
type Runtime struct {
	client *Client
}

// NewRuntime wraps a client.
func NewRuntime(c *Client) *Runtime {
	return &Runtime{client: c}
}

// Connect creates a runtime for the endpoint with the default timeout.
func Connect(endpoint string) *Runtime {
	return NewRuntime(New(endpoint))
}

// Issue creates a new asset and returns its derived state.
func (r *Runtime) Issue(ctx context.Context, p rpc.IssueParam) (*rpc.AssetResult, error) {
	var res rpc.AssetResult
	if err := r.client.CallContext(ctx, "fungible_issue", p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Transfer requests a transfer of asset units.
func (r *Runtime) Transfer(ctx context.Context, p rpc.TransferParam) error {
	return r.client.CallContext(ctx, "fungible_transfer", p, nil)
}

// ImportGenesis registers an asset from its genesis.
func (r *Runtime) ImportGenesis(ctx context.Context, g *contract.Genesis) (*rpc.AssetResult, error) {
	return r.ImportGenesisHex(ctx, hex.EncodeToString(g.Encode()))
}

// ImportGenesisHex registers an asset from a hex encoded genesis.
func (r *Runtime) ImportGenesisHex(ctx context.Context, genesis string) (*rpc.AssetResult, error) {
	var res rpc.AssetResult
	if err := r.client.CallContext(ctx, "fungible_importGenesis", rpc.ImportGenesisParam{Genesis: genesis}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ImportGenesisBatch registers several assets from hex encoded genesis
// commitments. Either all of them are registered or none is.
func (r *Runtime) ImportGenesisBatch(ctx context.Context, genesis []string) ([]rpc.AssetResult, error) {
	var res []rpc.AssetResult
	if err := r.client.CallContext(ctx, "fungible_importGenesisBatch", rpc.ImportGenesisBatchParam{Genesis: genesis}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// List returns a summary of every known asset.
func (r *Runtime) List(ctx context.Context) ([]rpc.AssetSummary, error) {
	var res []rpc.AssetSummary
	if err := r.client.CallContext(ctx, "asset_list", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Get returns the full state of one asset.
func (r *Runtime) Get(ctx context.Context, contractID string) (*rpc.AssetResult, error) {
	var res rpc.AssetResult
	if err := r.client.CallContext(ctx, "asset_get", rpc.ContractIDParam{ContractID: contractID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Allocations returns the allocations bound to an outpoint.
func (r *Runtime) Allocations(ctx context.Context, contractID, outpoint string) (*rpc.AllocationListResult, error) {
	var res rpc.AllocationListResult
	p := rpc.AllocationsParam{ContractID: contractID, Outpoint: outpoint}
	if err := r.client.CallContext(ctx, "asset_allocations", p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AddAllocation records an allocation. It reports whether the asset changed.
func (r *Runtime) AddAllocation(ctx context.Context, p rpc.AllocationChangeParam) (bool, error) {
	return r.change(ctx, "asset_addAllocation", p)
}

// RemoveAllocation forgets an allocation. It reports whether the asset changed.
func (r *Runtime) RemoveAllocation(ctx context.Context, p rpc.AllocationChangeParam) (bool, error) {
	return r.change(ctx, "asset_removeAllocation", p)
}

func (r *Runtime) change(ctx context.Context, method string, p rpc.AllocationChangeParam) (bool, error) {
	var res rpc.ChangedResult
	if err := r.client.CallContext(ctx, method, p, &res); err != nil {
		return false, err
	}
	return res.Changed, nil
}

// IsCode reports whether err is an RPC error with the given code.
func IsCode(err error, code int) bool {
	var rerr *RPCError
	return errors.As(err, &rerr) && rerr.Code == code
}
