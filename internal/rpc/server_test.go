package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"testing"

	"github.com/Klingon-tech/klingnet-rgb/config"
	"github.com/Klingon-tech/klingnet-rgb/internal/issuer"
	klog "github.com/Klingon-tech/klingnet-rgb/internal/log"
	"github.com/Klingon-tech/klingnet-rgb/internal/registry"
	"github.com/Klingon-tech/klingnet-rgb/internal/stash"
	"github.com/Klingon-tech/klingnet-rgb/internal/storage"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

const (
	ownerOutpoint = "1111111111111111111111111111111111111111111111111111111111111111:0"
	otherOutpoint = "2222222222222222222222222222222222222222222222222222222222222222:1"
)

// testEnv holds all components for an RPC test.
type testEnv struct {
	server   *Server
	registry *registry.Registry
	url      string
}

func setupTestEnv(t *testing.T, rpcCfg ...config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	reg := registry.New(stash.New(storage.NewMemory()))
	srv := New("127.0.0.1:0", types.Regtest, reg, issuer.New(), rpcCfg...)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server:   srv,
		registry: reg,
		url:      fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

func decodeResult(t *testing.T, resp Response, target interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func expectError(t *testing.T, resp Response, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %d (%s), want %d", resp.Error.Code, resp.Error.Message, code)
	}
}

func issueParam() IssueParam {
	return IssueParam{
		Ticker:      "TST",
		Name:        "Test asset",
		Precision:   2,
		Allocations: []SealParam{{Outpoint: ownerOutpoint, Amount: 1000}},
		Inflation:   []SealParam{{Outpoint: otherOutpoint, Amount: 500}},
		Timestamp:   1_700_000_000,
	}
}

func issue(t *testing.T, env *testEnv) AssetResult {
	t.Helper()
	var asset AssetResult
	decodeResult(t, rpcCall(t, env.url, "fungible_issue", issueParam()), &asset)
	return asset
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_FungibleIssue(t *testing.T) {
	env := setupTestEnv(t)
	asset := issue(t, env)

	if asset.Ticker != "TST" || asset.Precision != 2 || asset.Chain != "regtest" {
		t.Errorf("asset = %s@%d on %s", asset.Ticker, asset.Precision, asset.Chain)
	}
	if asset.Date != 1_700_000_000 {
		t.Errorf("date = %d", asset.Date)
	}
	if got := asset.Supply.KnownCirculating.Atomic(); got != 1000 {
		t.Errorf("known_circulating = %d, want 1000", got)
	}
	if asset.Supply.TotalCirculating != nil || asset.Supply.IsIssuedKnown != nil {
		t.Error("total circulating should be absent after issue")
	}
	if got := asset.Supply.MaxCap.Atomic(); got != 500 {
		t.Errorf("max_cap = %d, want 500", got)
	}
	if len(asset.Issues) != 1 || !asset.Issues[0].Primary {
		t.Errorf("issues = %+v, want one primary", asset.Issues)
	}
	if len(asset.KnownInflation) != 1 || asset.KnownInflation[0].Outpoint != otherOutpoint {
		t.Errorf("known_inflation = %+v", asset.KnownInflation)
	}
	if len(asset.Allocations) != 1 || asset.Allocations[0].Amount != 1000 {
		t.Errorf("allocations = %+v", asset.Allocations)
	}
	if asset.Allocations[0].NodeID != asset.ContractID {
		t.Errorf("allocation node_id = %s, want contract id", asset.Allocations[0].NodeID)
	}
	if env.registry.Len() != 1 {
		t.Errorf("registry len = %d, want 1", env.registry.Len())
	}
}

func TestRPC_FungibleIssue_Invalid(t *testing.T) {
	env := setupTestEnv(t)

	p := issueParam()
	p.Ticker = ""
	expectError(t, rpcCall(t, env.url, "fungible_issue", p), CodeInvalidParams)

	p = issueParam()
	p.Allocations[0].Outpoint = "nope"
	expectError(t, rpcCall(t, env.url, "fungible_issue", p), CodeInvalidParams)

	p = issueParam()
	p.Network = "mainnet"
	expectError(t, rpcCall(t, env.url, "fungible_issue", p), CodeInvalidParams)

	expectError(t, rpcCall(t, env.url, "fungible_issue", nil), CodeInvalidParams)
}

func TestRPC_FungibleTransfer_Unsupported(t *testing.T) {
	env := setupTestEnv(t)
	asset := issue(t, env)

	resp := rpcCall(t, env.url, "fungible_transfer", TransferParam{
		ContractID: asset.ContractID,
		Inputs:     []string{ownerOutpoint},
		Outputs:    []SealParam{{Outpoint: otherOutpoint, Amount: 10}},
	})
	expectError(t, resp, CodeUnsupported)

	resp = rpcCall(t, env.url, "fungible_transfer", TransferParam{ContractID: types.ContractID{9}.String()})
	expectError(t, resp, CodeNotFound)
}

func testGenesis(t *testing.T, schemaID types.SchemaID, chain types.Chain) *contract.Genesis {
	t.Helper()
	meta := contract.Metadata{}
	meta.Add(schema.Ticker, contract.StringValue("IMP"))
	meta.Add(schema.Name, contract.StringValue("Imported"))
	meta.Add(schema.Precision, contract.U8Value(0))
	meta.Add(schema.IssuedSupply, contract.U64Value(42))
	meta.Add(schema.Timestamp, contract.I64Value(1))
	g, err := contract.NewGenesis(schemaID, chain, meta, nil)
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	return g
}

func TestRPC_FungibleImportGenesis(t *testing.T) {
	env := setupTestEnv(t)
	g := testGenesis(t, schema.FungibleID(), types.Regtest)
	param := ImportGenesisParam{Genesis: hex.EncodeToString(g.Encode())}

	var asset AssetResult
	decodeResult(t, rpcCall(t, env.url, "fungible_importGenesis", param), &asset)
	if asset.ContractID != g.ContractID().String() {
		t.Errorf("contract_id = %s, want %s", asset.ContractID, g.ContractID())
	}
	if got := asset.Supply.MaxCap.Atomic(); got != 42 {
		t.Errorf("max_cap = %d, want issued supply 42", got)
	}

	expectError(t, rpcCall(t, env.url, "fungible_importGenesis", param), CodeExists)
}

func TestRPC_FungibleImportGenesis_Rejected(t *testing.T) {
	env := setupTestEnv(t)

	wrongSchema := testGenesis(t, types.SchemaID{1}, types.Regtest)
	resp := rpcCall(t, env.url, "fungible_importGenesis", ImportGenesisParam{Genesis: hex.EncodeToString(wrongSchema.Encode())})
	expectError(t, resp, CodeDerivation)
	if resp.Error != nil && resp.Error.Data != "schema mismatch" {
		t.Errorf("error data = %v, want schema mismatch", resp.Error.Data)
	}

	wrongChain := testGenesis(t, schema.FungibleID(), types.Mainnet)
	resp = rpcCall(t, env.url, "fungible_importGenesis", ImportGenesisParam{Genesis: hex.EncodeToString(wrongChain.Encode())})
	expectError(t, resp, CodeInvalidParams)

	resp = rpcCall(t, env.url, "fungible_importGenesis", ImportGenesisParam{Genesis: "zz"})
	expectError(t, resp, CodeInvalidParams)
	resp = rpcCall(t, env.url, "fungible_importGenesis", ImportGenesisParam{Genesis: "ff00"})
	expectError(t, resp, CodeInvalidParams)

	if env.registry.Len() != 0 {
		t.Errorf("registry len = %d, want 0", env.registry.Len())
	}
}

func TestRPC_FungibleImportGenesisBatch(t *testing.T) {
	env := setupTestEnv(t)
	first := testGenesis(t, schema.FungibleID(), types.Regtest)
	meta := contract.Metadata{}
	meta.Add(schema.Ticker, contract.StringValue("TWO"))
	meta.Add(schema.Name, contract.StringValue("Second"))
	meta.Add(schema.Precision, contract.U8Value(3))
	meta.Add(schema.IssuedSupply, contract.U64Value(7))
	meta.Add(schema.Timestamp, contract.I64Value(2))
	second, err := contract.NewGenesis(schema.FungibleID(), types.Regtest, meta, nil)
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	param := ImportGenesisBatchParam{Genesis: []string{
		hex.EncodeToString(first.Encode()),
		hex.EncodeToString(second.Encode()),
	}}

	var assets []AssetResult
	decodeResult(t, rpcCall(t, env.url, "fungible_importGenesisBatch", param), &assets)
	if len(assets) != 2 {
		t.Fatalf("len = %d, want 2", len(assets))
	}
	if assets[1].ContractID != second.ContractID().String() {
		t.Errorf("contract_id = %s, want %s", assets[1].ContractID, second.ContractID())
	}
	if env.registry.Len() != 2 {
		t.Errorf("registry len = %d, want 2", env.registry.Len())
	}

	expectError(t, rpcCall(t, env.url, "fungible_importGenesisBatch", param), CodeExists)
}

func TestRPC_FungibleImportGenesisBatch_Rejected(t *testing.T) {
	env := setupTestEnv(t)
	good := hex.EncodeToString(testGenesis(t, schema.FungibleID(), types.Regtest).Encode())
	wrongSchema := hex.EncodeToString(testGenesis(t, types.SchemaID{1}, types.Regtest).Encode())

	tests := []struct {
		name    string
		genesis []string
		code    int
	}{
		{"empty", nil, CodeInvalidParams},
		{"bad hex", []string{good, "zz"}, CodeInvalidParams},
		{"wrong schema", []string{good, wrongSchema}, CodeDerivation},
		{"repeated", []string{good, good}, CodeExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpcCall(t, env.url, "fungible_importGenesisBatch", ImportGenesisBatchParam{Genesis: tt.genesis})
			expectError(t, resp, tt.code)
			if env.registry.Len() != 0 {
				t.Errorf("registry len = %d, want 0", env.registry.Len())
			}
		})
	}
}

func TestRPC_AssetListGet(t *testing.T) {
	env := setupTestEnv(t)
	issued := issue(t, env)

	var list []AssetSummary
	decodeResult(t, rpcCall(t, env.url, "asset_list", nil), &list)
	if len(list) != 1 || list[0].ContractID != issued.ContractID {
		t.Fatalf("asset_list = %+v", list)
	}

	var got AssetResult
	decodeResult(t, rpcCall(t, env.url, "asset_get", ContractIDParam{ContractID: issued.ContractID}), &got)
	if got.Name != "Test asset" {
		t.Errorf("name = %q", got.Name)
	}

	expectError(t, rpcCall(t, env.url, "asset_get", ContractIDParam{ContractID: types.ContractID{9}.String()}), CodeNotFound)
	expectError(t, rpcCall(t, env.url, "asset_get", ContractIDParam{ContractID: "xyz"}), CodeInvalidParams)
	expectError(t, rpcCall(t, env.url, "asset_get", ContractIDParam{}), CodeInvalidParams)
}

func TestRPC_AssetAllocations(t *testing.T) {
	env := setupTestEnv(t)
	asset := issue(t, env)

	var res AllocationListResult
	decodeResult(t, rpcCall(t, env.url, "asset_allocations", AllocationsParam{ContractID: asset.ContractID, Outpoint: ownerOutpoint}), &res)
	if !res.Known || len(res.Allocations) != 1 {
		t.Errorf("allocations at owner = %+v", res)
	}

	decodeResult(t, rpcCall(t, env.url, "asset_allocations", AllocationsParam{ContractID: asset.ContractID, Outpoint: otherOutpoint}), &res)
	if res.Known || len(res.Allocations) != 0 {
		t.Errorf("allocations at unknown outpoint = %+v", res)
	}
}

func TestRPC_AssetAddRemoveAllocation(t *testing.T) {
	env := setupTestEnv(t)
	asset := issue(t, env)
	change := AllocationChangeParam{
		ContractID: asset.ContractID,
		Outpoint:   otherOutpoint,
		NodeID:     types.NodeID{7}.String(),
		Index:      3,
		Amount:     250,
	}

	steps := []struct {
		method  string
		changed bool
	}{
		{"asset_addAllocation", true},
		{"asset_addAllocation", false},
		{"asset_removeAllocation", true},
		{"asset_removeAllocation", false},
	}
	for i, step := range steps {
		var res ChangedResult
		decodeResult(t, rpcCall(t, env.url, step.method, change), &res)
		if res.Changed != step.changed {
			t.Errorf("step %d %s: changed = %v, want %v", i, step.method, res.Changed, step.changed)
		}
	}

	// The emptied bucket stays visible.
	var res AllocationListResult
	decodeResult(t, rpcCall(t, env.url, "asset_allocations", AllocationsParam{ContractID: asset.ContractID, Outpoint: otherOutpoint}), &res)
	if !res.Known || len(res.Allocations) != 0 {
		t.Errorf("emptied bucket = %+v, want known and empty", res)
	}

	bad := change
	bad.NodeID = "00"
	expectError(t, rpcCall(t, env.url, "asset_addAllocation", bad), CodeInvalidParams)
	bad = change
	bad.Blinding = "zz"
	expectError(t, rpcCall(t, env.url, "asset_addAllocation", bad), CodeInvalidParams)
	bad = change
	bad.ContractID = types.ContractID{9}.String()
	expectError(t, rpcCall(t, env.url, "asset_removeAllocation", bad), CodeNotFound)
}

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)
	expectError(t, rpcCall(t, env.url, "chain_getInfo", nil), CodeMethodNotFound)
}

func TestRPC_InvalidRequests(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	expectError(t, rpcResp, CodeInvalidRequest)

	for body, code := range map[string]int{
		`not json`: CodeParseError,
		`{"jsonrpc":"1.0","method":"asset_list","id":1}`: CodeInvalidRequest,
	} {
		resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte(body)))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		var rpcResp Response
		json.NewDecoder(resp.Body).Decode(&rpcResp)
		resp.Body.Close()
		expectError(t, rpcResp, code)
	}
}

func TestRPC_AllowedIPs(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{AllowedIPs: []string{"10.0.0.0/8"}})
	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestRPC_CORS(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{CORSOrigins: []string{"https://wallet.example"}})
	req, _ := http.NewRequest(http.MethodOptions, env.url, nil)
	req.Header.Set("Origin", "https://wallet.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://wallet.example" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestParsePrefixes(t *testing.T) {
	got := parsePrefixes([]string{"127.0.0.1", "10.1.2.3/8", "::1", "bogus", "::ffff:192.168.0.1"})
	want := []string{"127.0.0.1/32", "10.0.0.0/8", "::1/128", "192.168.0.1/32"}
	if len(got) != len(want) {
		t.Fatalf("parsePrefixes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("prefix[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	s := &Server{allowed: got}
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.200.0.1", true},
		{"::ffff:10.0.0.9", true},
		{"11.0.0.1", false},
		{"::2", false},
	}
	for _, tt := range tests {
		if got := s.ipAllowed(netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("ipAllowed(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
