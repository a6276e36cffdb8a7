package rpc

import (
	"github.com/Klingon-tech/klingnet-rgb/pkg/amount"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeExists         = -32001
	CodeDerivation     = -32002
	CodeUnsupported    = -32003
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// SealParam names an outpoint and an atomic amount.
type SealParam struct {
	Outpoint string `json:"outpoint"` // txid:vout
	Amount   uint64 `json:"amount"`
}

// IssueParam is used by fungible_issue.
type IssueParam struct {
	Network      string      `json:"network,omitempty"` // defaults to the node network
	Ticker       string      `json:"ticker"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Precision    uint8       `json:"precision"`
	Allocations  []SealParam `json:"allocations"`
	Inflation    []SealParam `json:"inflation,omitempty"`
	Confidential bool        `json:"confidential,omitempty"`
	Timestamp    int64       `json:"timestamp,omitempty"` // unix seconds, 0 = now
}

// TransferParam is used by fungible_transfer.
type TransferParam struct {
	ContractID string      `json:"contract_id"`
	Inputs     []string    `json:"inputs"`
	Outputs    []SealParam `json:"outputs"`
}

// ImportGenesisParam is used by fungible_importGenesis.
type ImportGenesisParam struct {
	Genesis string `json:"genesis"` // hex CBOR
}

// ImportGenesisBatchParam is used by fungible_importGenesisBatch.
type ImportGenesisBatchParam struct {
	Genesis []string `json:"genesis"` // hex CBOR each
}

// ContractIDParam is used by endpoints that take a single contract id.
type ContractIDParam struct {
	ContractID string `json:"contract_id"`
}

// AllocationsParam is used by asset_allocations.
type AllocationsParam struct {
	ContractID string `json:"contract_id"`
	Outpoint   string `json:"outpoint"`
}

// AllocationChangeParam is used by asset_addAllocation and
// asset_removeAllocation.
type AllocationChangeParam struct {
	ContractID string `json:"contract_id"`
	Outpoint   string `json:"outpoint"`
	NodeID     string `json:"node_id"`
	Index      uint16 `json:"index"`
	Amount     uint64 `json:"amount"`
	Blinding   string `json:"blinding,omitempty"` // 32-byte hex, zero if empty
}

// ── Result types ────────────────────────────────────────────────────────

// SupplyResult reports the supply of an asset. TotalCirculating is
// omitted while it cannot be determined.
type SupplyResult struct {
	KnownCirculating amount.Amount  `json:"known_circulating"`
	IsIssuedKnown    *bool          `json:"is_issued_known"`
	TotalCirculating *amount.Amount `json:"total_circulating,omitempty"`
	MaxCap           amount.Amount  `json:"max_cap"`
}

// IssueResult describes one issue.
type IssueResult struct {
	ID      string        `json:"id"`
	Amount  amount.Amount `json:"amount"`
	Primary bool          `json:"primary"`
	Origin  string        `json:"origin,omitempty"`
}

// InflationResult is a known inflation right.
type InflationResult struct {
	Outpoint string        `json:"outpoint"`
	Amount   amount.Amount `json:"amount"`
}

// AllocationResult describes one allocation.
type AllocationResult struct {
	NodeID   string `json:"node_id"`
	Index    uint16 `json:"index"`
	Outpoint string `json:"outpoint"`
	Amount   uint64 `json:"amount"`
	Blinding string `json:"blinding"`
}

// AssetResult is the full view of an asset.
type AssetResult struct {
	ContractID       string             `json:"contract_id"`
	Ticker           string             `json:"ticker"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	Chain            string             `json:"chain"`
	Precision        uint8              `json:"precision"`
	Date             int64              `json:"date"`
	Supply           SupplyResult       `json:"supply"`
	Issues           []IssueResult      `json:"issues"`
	KnownInflation   []InflationResult  `json:"known_inflation"`
	UnknownInflation amount.Amount      `json:"unknown_inflation"`
	Allocations      []AllocationResult `json:"allocations"`
}

// AssetSummary is one entry of asset_list.
type AssetSummary struct {
	ContractID       string        `json:"contract_id"`
	Ticker           string        `json:"ticker"`
	Name             string        `json:"name"`
	Chain            string        `json:"chain"`
	Precision        uint8         `json:"precision"`
	KnownCirculating amount.Amount `json:"known_circulating"`
	MaxCap           amount.Amount `json:"max_cap"`
}

// AllocationListResult is returned by asset_allocations.
type AllocationListResult struct {
	Outpoint    string             `json:"outpoint"`
	Known       bool               `json:"known"` // false if no bucket exists
	Allocations []AllocationResult `json:"allocations"`
}

// ChangedResult reports whether a mutation changed the asset.
type ChangedResult struct {
	Changed bool `json:"changed"`
}
