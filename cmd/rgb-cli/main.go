// rgb-cli is a command-line client for interacting with an rgbd node.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-rgb/config"
	"github.com/Klingon-tech/klingnet-rgb/internal/rpc"
	"github.com/Klingon-tech/klingnet-rgb/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the global flags shared by every command.
type cli struct {
	endpoint string
	network  string
	timeout  time.Duration
	json     bool
}

// runtime connects to the configured node. An explicit --rpc wins over
// the default endpoint of --network.
func (c *cli) runtime() (*rpcclient.Runtime, error) {
	endpoint := c.endpoint
	if endpoint == "" {
		chain, err := types.ParseChain(c.network)
		if err != nil {
			return nil, err
		}
		endpoint = config.Default(chain).RPCEndpoint()
	}
	return rpcclient.NewRuntime(rpcclient.NewWithTimeout(endpoint, c.timeout)), nil
}

// context returns a context bounded by the command timeout.
func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.timeout)
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "rgb-cli",
		Short:         "Command-line client for rgbd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.endpoint, "rpc", "", "RPC endpoint (default: the local node of --network)")
	pf.StringVar(&c.network, "network", string(types.Mainnet), "mainnet, testnet, regtest or signet")
	pf.DurationVar(&c.timeout, "timeout", rpcclient.DefaultTimeout, "request timeout")
	pf.BoolVar(&c.json, "json", false, "print raw JSON results")

	root.AddCommand(
		newIssueCmd(c),
		newTransferCmd(c),
		newImportCmd(c),
		newListCmd(c),
		newGetCmd(c),
		newAllocationsCmd(c),
		newAllocationChangeCmd(c, "add-allocation", "Record an allocation on an asset"),
		newAllocationChangeCmd(c, "remove-allocation", "Forget an allocation of an asset"),
	)
	return root
}

// parseSeal parses "txid:vout=amount".
func parseSeal(s string) (rpc.SealParam, error) {
	i := strings.LastIndexByte(s, '=')
	if i < 0 {
		return rpc.SealParam{}, fmt.Errorf("seal %q: expected txid:vout=amount", s)
	}
	op, err := types.ParseOutpoint(s[:i])
	if err != nil {
		return rpc.SealParam{}, fmt.Errorf("seal %q: %w", s, err)
	}
	amt, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return rpc.SealParam{}, fmt.Errorf("seal %q: invalid amount: %w", s, err)
	}
	return rpc.SealParam{Outpoint: op.String(), Amount: amt}, nil
}

func parseSeals(in []string) ([]rpc.SealParam, error) {
	out := make([]rpc.SealParam, 0, len(in))
	for _, s := range in {
		p, err := parseSeal(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
