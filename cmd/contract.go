package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/config"
	csync "github.com/Mohsinsiddi/cryptopet/internal/sync"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var contractSyncSource string

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Manage pet contract deployments per network",
}

// ── contract list ─────────────────────────────────────────────────────────────

var contractListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known deployments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadDeployments()
		if err != nil {
			return err
		}
		slug, _, err := targetChain()
		if err != nil {
			return err
		}

		t := ui.NewTable([]ui.Column{
			{Title: "", Width: 2},
			{Title: "Network", Width: 20},
			{Title: "Address", Width: 44},
		})
		for _, d := range reg.All() {
			marker := ""
			if d.Chain == slug {
				marker = ui.StyleSuccess.Render("●")
			}
			t.AddRow(ui.Row{marker, ui.ChainName(d.Chain), ui.Addr(d.Address)})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		if cfg.ContractAddress != "" {
			fmt.Fprintln(out, ui.Warn("contract_address in config overrides these: "+cfg.ContractAddress))
		}
		if sc, err := cfg.LoadSync(); err == nil && sc.Source != "" {
			last := sc.LastSynced
			if last == "" {
				last = "never"
			}
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("Sync source: %s (last synced %s)", sc.Source, last)))
		}
		return nil
	},
}

// ── contract set / remove ─────────────────────────────────────────────────────

var contractSetCmd = &cobra.Command{
	Use:   "set <network> <address>",
	Short: "Record the pet contract address on a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug, address := args[0], args[1]
		if _, err := chain.NewRegistry().GetByName(slug); err != nil {
			return fmt.Errorf("chain %q: %w", slug, err)
		}
		reg, err := loadDeployments()
		if err != nil {
			return err
		}
		if err := reg.Set(slug, address); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		addr, _ := reg.Get(slug)
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Pet contract on %s set to %s", ui.ChainName(slug), ui.Addr(addr.Hex()))))
		return nil
	},
}

var contractRemoveCmd = &cobra.Command{
	Use:   "remove <network>",
	Short: "Forget the recorded deployment on a network",
	Long: `Forget the recorded deployment on a network. Built-in deployments come
back on the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadDeployments()
		if err != nil {
			return err
		}
		if err := reg.Remove(args[0]); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Deployment on %s removed.", ui.ChainName(args[0]))))
		return nil
	},
}

// ── contract sync ─────────────────────────────────────────────────────────────

var contractSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Update deployments from a remote manifest",
	Long: `Fetch a deployments manifest and record the CryptoPet address for every
supported network in it. The manifest looks like:

  {"contracts": {"CryptoPet": {"sepolia": {"address": "0x...", "abi_url": "https://..."}}}}

When abi_url is present the ABI must carry the pet methods, otherwise the
entry is skipped. --source saves the manifest URL for later runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadDeployments()
		if err != nil {
			return err
		}
		syncer := csync.New(cfg, reg, log)
		if contractSyncSource != "" {
			if err := syncer.SetSource(contractSyncSource); err != nil {
				return err
			}
		}

		res, err := ui.Spin("Syncing deployments...", func() (*csync.Result, error) {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*config.SyncTimeout)
			defer cancel()
			return syncer.Run(ctx)
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, d := range res.Updated {
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("%-20s %s", d.Chain, ui.Addr(d.Address))))
		}
		skipped := make([]string, 0, len(res.Skipped))
		for slug := range res.Skipped {
			skipped = append(skipped, slug)
		}
		sort.Strings(skipped)
		for _, slug := range skipped {
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("%-20s skipped: %s", slug, res.Skipped[slug])))
		}
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d updated, %d skipped", len(res.Updated), len(res.Skipped))))
		return nil
	},
}

func init() {
	contractSyncCmd.Flags().StringVar(&contractSyncSource, "source", "", "manifest URL (saved for later runs)")
	contractCmd.AddCommand(contractListCmd, contractSetCmd, contractRemoveCmd, contractSyncCmd)
}
