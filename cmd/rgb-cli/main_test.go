package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Klingon-tech/klingnet-rgb/internal/issuer"
	klog "github.com/Klingon-tech/klingnet-rgb/internal/log"
	"github.com/Klingon-tech/klingnet-rgb/internal/registry"
	"github.com/Klingon-tech/klingnet-rgb/internal/rpc"
	"github.com/Klingon-tech/klingnet-rgb/internal/stash"
	"github.com/Klingon-tech/klingnet-rgb/internal/storage"
	"github.com/Klingon-tech/klingnet-rgb/pkg/amount"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

const txid = "8888888888888888888888888888888888888888888888888888888888888888"

func TestParseSeal(t *testing.T) {
	tests := []struct {
		in      string
		want    rpc.SealParam
		wantErr bool
	}{
		{in: txid + ":1=500", want: rpc.SealParam{Outpoint: txid + ":1", Amount: 500}},
		{in: txid + ":0=0", want: rpc.SealParam{Outpoint: txid + ":0", Amount: 0}},
		{in: txid + ":1", wantErr: true},
		{in: txid + ":1=-3", wantErr: true},
		{in: "zz:1=5", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSeal(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSeal(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseSeal(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	// 1050 = 0b10000011010: integer 1050>>2 = 262, remainder 2.
	if got := display(amount.FromAtomic(2, 1050)); got != "262.02" {
		t.Errorf("display = %q, want 262.02", got)
	}
	if got := display(amount.FromAtomic(0, 7)); got != "7" {
		t.Errorf("display = %q, want 7", got)
	}
}

func startServer(t *testing.T) string {
	t.Helper()
	klog.Init("error", false, "")
	reg := registry.New(stash.New(storage.NewMemory()))
	srv := rpc.New("127.0.0.1:0", types.Mainnet, reg, issuer.New())
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return fmt.Sprintf("http://%s/", srv.Addr())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_IssueListGet(t *testing.T) {
	endpoint := startServer(t)

	out, err := execute(t, "--rpc", endpoint, "--json", "issue",
		"--ticker", "CLI", "--name", "Cli coin", "--precision", "1",
		"--alloc", txid+":0=40", "--inflation", txid+":1=60")
	if err != nil {
		t.Fatalf("issue: %v\n%s", err, out)
	}
	var asset rpc.AssetResult
	if err := json.Unmarshal([]byte(out), &asset); err != nil {
		t.Fatalf("decode issue output: %v\n%s", err, out)
	}
	if asset.Ticker != "CLI" || asset.Supply.MaxCap.Atomic() != 60 {
		t.Errorf("issued %s with max cap %v", asset.Ticker, asset.Supply.MaxCap)
	}

	out, err = execute(t, "--rpc", endpoint, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "CLI") || !strings.Contains(out, asset.ContractID) {
		t.Errorf("list output missing asset:\n%s", out)
	}

	out, err = execute(t, "--rpc", endpoint, "get", asset.ContractID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, want := range []string{"Ticker:       CLI", "Total:        unknown", txid + ":0"} {
		if !strings.Contains(out, want) {
			t.Errorf("get output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "--rpc", endpoint, "allocations", asset.ContractID, txid+":5")
	if err != nil {
		t.Fatalf("allocations: %v", err)
	}
	if !strings.Contains(out, "No allocations known") {
		t.Errorf("allocations output = %q", out)
	}
}

func TestCLI_AddAllocation(t *testing.T) {
	endpoint := startServer(t)

	out, err := execute(t, "--rpc", endpoint, "--json", "issue",
		"--ticker", "ADD", "--name", "Add", "--alloc", txid+":0=1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	var asset rpc.AssetResult
	if err := json.Unmarshal([]byte(out), &asset); err != nil {
		t.Fatalf("decode: %v", err)
	}

	args := []string{"--rpc", endpoint, "add-allocation", asset.ContractID, txid + ":9",
		"--node-id", asset.ContractID, "--index", "4", "--amount", "77"}
	out, err = execute(t, args...)
	if err != nil || strings.TrimSpace(out) != "Changed" {
		t.Errorf("first add = %q, %v", out, err)
	}
	out, err = execute(t, args...)
	if err != nil || strings.TrimSpace(out) != "Unchanged" {
		t.Errorf("second add = %q, %v", out, err)
	}

	args[2] = "remove-allocation"
	out, err = execute(t, args...)
	if err != nil || strings.TrimSpace(out) != "Changed" {
		t.Errorf("remove = %q, %v", out, err)
	}
}

func TestCLI_TransferUnsupported(t *testing.T) {
	endpoint := startServer(t)
	_, err := execute(t, "--rpc", endpoint, "transfer", types.ContractID{}.String())
	if err == nil {
		t.Fatal("expected transfer to fail")
	}
}

func TestCLI_IssueRequiresTicker(t *testing.T) {
	if _, err := execute(t, "--rpc", "http://127.0.0.1:1/", "issue", "--name", "x", "--alloc", txid+":0=1"); err == nil {
		t.Fatal("expected missing ticker error")
	}
}

func genesisHex(t *testing.T, ticker string) string {
	t.Helper()
	meta := contract.Metadata{}
	meta.Add(schema.Ticker, contract.StringValue(ticker))
	meta.Add(schema.Name, contract.StringValue(ticker))
	meta.Add(schema.Precision, contract.U8Value(0))
	meta.Add(schema.IssuedSupply, contract.U64Value(5))
	meta.Add(schema.Timestamp, contract.I64Value(0))
	g, err := contract.NewGenesis(schema.FungibleID(), types.Mainnet, meta, nil)
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	return hex.EncodeToString(g.Encode())
}

func TestCLI_ImportBatch(t *testing.T) {
	endpoint := startServer(t)

	path := filepath.Join(t.TempDir(), "second.hex")
	if err := os.WriteFile(path, []byte(genesisHex(t, "TWO")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--rpc", endpoint, "import", genesisHex(t, "ONE"), "@"+path)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	for _, want := range []string{"Ticker:       ONE", "Ticker:       TWO"} {
		if !strings.Contains(out, want) {
			t.Errorf("import output missing %q:\n%s", want, out)
		}
	}

	// Already registered: the whole batch is refused.
	if _, err := execute(t, "--rpc", endpoint, "import", genesisHex(t, "NEW"), genesisHex(t, "ONE")); err == nil {
		t.Error("import of a known genesis succeeded")
	}
	out, err = execute(t, "--rpc", endpoint, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out, "NEW") {
		t.Errorf("refused batch left NEW registered:\n%s", out)
	}
}

func TestReadGenesisArg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.hex")
	if err := os.WriteFile(path, []byte("  abcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "abcd", want: "abcd"},
		{in: "@" + path, want: "abcd"},
		{in: "@" + path + ".missing", wantErr: true},
	}
	for _, tt := range tests {
		got, err := readGenesisArg(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("readGenesisArg(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("readGenesisArg(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
