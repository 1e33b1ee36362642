package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/rpc"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage the public RPCs used without a wallet",
}

// rpcChain resolves an optional chain argument, defaulting to the target.
func rpcChain(args []string) (string, chain.Descriptor, error) {
	if len(args) == 0 {
		return targetChain()
	}
	d, err := chain.NewRegistry().GetByName(args[0])
	if err != nil {
		return "", chain.Descriptor{}, fmt.Errorf("chain %q: %w", args[0], err)
	}
	return args[0], d, nil
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <chain> <url>",
	Short: "Add a custom RPC URL for a chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url, err := rpcChainURL(args)
		if err != nil {
			return err
		}
		if err := cfg.AddRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(name), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <chain> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url, err := rpcChainURL(args)
		if err != nil {
			return err
		}
		if err := cfg.RemoveRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed RPC for %s: %s", ui.ChainName(name), url)))
		return nil
	},
}

func rpcChainURL(args []string) (string, string, error) {
	name, _, err := rpcChain(args[:1])
	return name, args[1], err
}

var rpcListCmd = &cobra.Command{
	Use:   "list [chain]",
	Short: "List RPCs for a chain in the order they are tried",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, d, err := rpcChain(args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s", d.ChainName)))
		custom := cfg.GetRPCs(name)
		if len(custom) > 0 {
			fmt.Fprintln(out, ui.StyleHeader.Render("Custom RPCs:"))
			for _, r := range custom {
				fmt.Fprintf(out, "  %s\n", r)
			}
		}
		fmt.Fprintln(out, ui.StyleHeader.Render("Built-in RPCs:"))
		for _, r := range d.RPCURLs {
			fmt.Fprintf(out, "  %s\n", r)
		}
		fmt.Fprintln(out, ui.Meta("Selection: "+cfg.RPCAlgorithm))
		return nil
	},
}

var rpcBenchmarkCmd = &cobra.Command{
	Use:     "benchmark [chain]",
	Aliases: []string{"best"},
	Short:   "Benchmark every RPC for a chain and show which one would be used",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, d, err := rpcChain(args)
		if err != nil {
			return err
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}

		results, err := ui.Spin(fmt.Sprintf("Benchmarking %s RPCs...", d.ChainName), func() ([]rpc.BenchmarkResult, error) {
			ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
			defer cancel()
			return rpc.Benchmark(ctx, rpc.Candidates(d, cfg.GetRPCs(name)), d.ID(), rpc.DefaultProbeTimeout), nil
		})
		if err != nil {
			return err
		}

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 40},
			{Title: "Latency", Width: 10, Right: true},
			{Title: "Block #", Width: 12, Right: true},
			{Title: "Status", Width: 16},
		})
		for _, r := range results {
			status := ui.Success("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			block := fmt.Sprintf("%d", r.BlockNumber)
			switch {
			case errors.Is(r.Err, rpc.ErrWrongChain):
				status = ui.Err("wrong chain")
			case r.Err != nil:
				status = ui.Err("down")
				latency, block = "-", "-"
			}
			t.AddRow(ui.Row{r.URL, latency, block, status})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		best, err := rpc.NewPicker(algo).Pick(rpc.ResultsToEndpoints(results))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s picks %s", algo, ui.Val(best.URL))))
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm <fastest|round-robin|failover>",
	Short: "Set the RPC selection algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set("rpc_algorithm", args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC algorithm set to %q", args[0])))
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchmarkCmd, rpcAlgorithmCmd)
}
