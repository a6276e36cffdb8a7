package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-rgb/internal/rpc"
	"github.com/Klingon-tech/klingnet-rgb/pkg/amount"
)

func newIssueCmd(c *cli) *cobra.Command {
	var (
		p           rpc.IssueParam
		allocations []string
		inflation   []string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new fungible asset",
		Example: `  rgb-cli issue --ticker USDT --name "Tether" --precision 8 \
    --alloc 5ad3...e1:0=100000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if p.Allocations, err = parseSeals(allocations); err != nil {
				return err
			}
			if p.Inflation, err = parseSeals(inflation); err != nil {
				return err
			}
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			asset, err := rt.Issue(ctx, p)
			if err != nil {
				return err
			}
			return c.printAsset(cmd.OutOrStdout(), asset)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Ticker, "ticker", "", "asset ticker")
	f.StringVar(&p.Name, "name", "", "asset name")
	f.StringVar(&p.Description, "description", "", "contract text")
	f.Uint8Var(&p.Precision, "precision", 0, "fractional bits")
	f.StringArrayVar(&allocations, "alloc", nil, "allocation txid:vout=atomic (repeatable)")
	f.StringArrayVar(&inflation, "inflation", nil, "inflation right txid:vout=atomic (repeatable)")
	f.BoolVar(&p.Confidential, "confidential", false, "conceal the seals of inflation rights")
	f.Int64Var(&p.Timestamp, "timestamp", 0, "issuance time in unix seconds (default now)")
	cmd.MarkFlagRequired("ticker")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("alloc")
	return cmd
}

func newTransferCmd(c *cli) *cobra.Command {
	var (
		inputs  []string
		outputs []string
	)
	cmd := &cobra.Command{
		Use:   "transfer <contract-id>",
		Short: "Transfer asset units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outs, err := parseSeals(outputs)
			if err != nil {
				return err
			}
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			return rt.Transfer(ctx, rpc.TransferParam{ContractID: args[0], Inputs: inputs, Outputs: outs})
		},
	}
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "spent outpoint txid:vout (repeatable)")
	cmd.Flags().StringArrayVar(&outputs, "output", nil, "new allocation txid:vout=atomic (repeatable)")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <genesis-hex | @file>...",
		Short: "Import assets from their genesis",
		Long:  "Import one asset, or several at once. A batch is registered only if every genesis is accepted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch := make([]string, len(args))
			for i, arg := range args {
				genesis, err := readGenesisArg(arg)
				if err != nil {
					return err
				}
				batch[i] = genesis
			}
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			if len(batch) == 1 {
				asset, err := rt.ImportGenesisHex(ctx, batch[0])
				if err != nil {
					return err
				}
				return c.printAsset(cmd.OutOrStdout(), asset)
			}
			assets, err := rt.ImportGenesisBatch(ctx, batch)
			if err != nil {
				return err
			}
			for i := range assets {
				if err := c.printAsset(cmd.OutOrStdout(), &assets[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// readGenesisArg returns the hex genesis named by arg, reading it from a
// file when arg starts with "@".
func readGenesisArg(arg string) (string, error) {
	path, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return arg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			assets, err := rt.List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.json {
				return printJSON(out, assets)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TICKER\tNAME\tCIRCULATING\tMAX CAP\tCONTRACT")
			for _, a := range assets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Ticker, a.Name, display(a.KnownCirculating), display(a.MaxCap), a.ContractID)
			}
			return tw.Flush()
		},
	}
}

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <contract-id>",
		Short: "Show the state of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			asset, err := rt.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return c.printAsset(cmd.OutOrStdout(), asset)
		},
	}
}

func newAllocationsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "allocations <contract-id> <txid:vout>",
		Short: "Show the allocations bound to an outpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			res, err := rt.Allocations(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.json {
				return printJSON(out, res)
			}
			if !res.Known {
				fmt.Fprintf(out, "No allocations known at %s\n", res.Outpoint)
				return nil
			}
			printAllocations(out, res.Allocations)
			return nil
		},
	}
}

func newAllocationChangeCmd(c *cli, use, short string) *cobra.Command {
	var p rpc.AllocationChangeParam
	cmd := &cobra.Command{
		Use:   use + " <contract-id> <txid:vout>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.ContractID, p.Outpoint = args[0], args[1]
			rt, err := c.runtime()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			change := rt.AddAllocation
			if use == "remove-allocation" {
				change = rt.RemoveAllocation
			}
			changed, err := change(ctx, p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if c.json {
				return printJSON(out, rpc.ChangedResult{Changed: changed})
			}
			if changed {
				fmt.Fprintln(out, "Changed")
			} else {
				fmt.Fprintln(out, "Unchanged")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.NodeID, "node-id", "", "node that created the allocation (32-byte hex)")
	f.Uint16Var(&p.Index, "index", 0, "index of the right within the node")
	f.Uint64Var(&p.Amount, "amount", 0, "atomic amount")
	f.StringVar(&p.Blinding, "blinding", "", "amount blinding (32-byte hex)")
	cmd.MarkFlagRequired("node-id")
	return cmd
}

// ── Output ──────────────────────────────────────────────────────────────

// display renders an amount as an exact decimal.
func display(a amount.Amount) string {
	return a.Decimal().String()
}

func (c *cli) printAsset(w io.Writer, a *rpc.AssetResult) error {
	if c.json {
		return printJSON(w, a)
	}
	fmt.Fprintf(w, "Contract:     %s\n", a.ContractID)
	fmt.Fprintf(w, "Ticker:       %s\n", a.Ticker)
	fmt.Fprintf(w, "Name:         %s\n", a.Name)
	if a.Description != "" {
		fmt.Fprintf(w, "Description:  %s\n", a.Description)
	}
	fmt.Fprintf(w, "Chain:        %s\n", a.Chain)
	fmt.Fprintf(w, "Precision:    %d\n", a.Precision)
	fmt.Fprintf(w, "Circulating:  %s (known)\n", display(a.Supply.KnownCirculating))
	if a.Supply.TotalCirculating != nil {
		fmt.Fprintf(w, "Total:        %s\n", display(*a.Supply.TotalCirculating))
	} else {
		fmt.Fprintln(w, "Total:        unknown")
	}
	fmt.Fprintf(w, "Max cap:      %s\n", display(a.Supply.MaxCap))
	if a.UnknownInflation.IsMax() {
		fmt.Fprintln(w, "Hidden infl.: unbounded")
	} else {
		fmt.Fprintf(w, "Hidden infl.: %s\n", display(a.UnknownInflation))
	}
	for _, infl := range a.KnownInflation {
		fmt.Fprintf(w, "Inflation:    %s %s\n", infl.Outpoint, display(infl.Amount))
	}
	if len(a.Allocations) > 0 {
		fmt.Fprintln(w)
		printAllocations(w, a.Allocations)
	}
	return nil
}

func printAllocations(w io.Writer, allocs []rpc.AllocationResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTPOINT\tAMOUNT\tNODE\tINDEX")
	for _, al := range allocs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", al.Outpoint, al.Amount, al.NodeID, al.Index)
	}
	tw.Flush()
}
