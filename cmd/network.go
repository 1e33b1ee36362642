package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Supported networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the supported networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		slug, _, err := targetChain()
		if err != nil {
			return err
		}

		t := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Name", Width: 20},
			{Title: "Display", Width: 20},
			{Title: "Chain ID", Width: 10},
			{Title: "Currency", Width: 10},
		})
		for _, name := range reg.Names() {
			d, _ := reg.GetByName(name)
			marker := ""
			if name == slug {
				marker = ui.StyleSuccess.Render("●")
			}
			t.AddRow(ui.Row{
				marker,
				ui.ChainName(name),
				d.ChainName,
				d.ID().String(),
				d.NativeCurrency.Symbol,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d networks, target %s", len(reg.Names()), slug)))
		return nil
	},
}

var networkShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a network's parameters (default: the target)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, d, err := targetChain()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			slug = args[0]
			if d, err = chain.NewRegistry().GetByName(slug); err != nil {
				return fmt.Errorf("chain %q: %w", slug, err)
			}
		}

		pairs := [][2]string{
			{"Name", ui.ChainName(slug)},
			{"Display", d.ChainName},
			{"Chain ID", fmt.Sprintf("%s (%s)", d.ID(), d.ChainID)},
			{"Currency", fmt.Sprintf("%s (%s, %d decimals)", d.NativeCurrency.Symbol, d.NativeCurrency.Name, d.NativeCurrency.Decimals)},
			{"RPC", strings.Join(d.RPCURLs, ", ")},
			{"Explorer", strings.Join(d.BlockExplorerURLs, ", ")},
		}
		if custom := cfg.GetRPCs(slug); len(custom) > 0 {
			pairs = append(pairs, [2]string{"Custom RPC", strings.Join(custom, ", ")})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock(d.ChainName, pairs))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkShowCmd)
}
