package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup wizard",
	Long:  "Pick the target network and RPC selection, and optionally create a wallet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Banner())

		result, err := ui.RunWizard(chain.NewRegistry().Names())
		if err != nil {
			return err
		}
		if result.Cancelled {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}

		if result.TargetChain != "" {
			if err := cfg.Set("target_chain", result.TargetChain); err != nil {
				return err
			}
		}
		if result.RPCAlgorithm != "" {
			if err := cfg.Set("rpc_algorithm", result.RPCAlgorithm); err != nil {
				return err
			}
		}

		if result.WalletName != "" {
			mgr, err := newWalletManager()
			if err != nil {
				return err
			}
			w, err := mgr.Generate(result.WalletName)
			if err != nil {
				fmt.Fprintln(out, ui.Warn(fmt.Sprintf("Could not create wallet: %v", err)))
			} else {
				if err := mgr.SetDefault(w.Name); err != nil {
					return err
				}
				cfg.DefaultWallet = w.Name
				fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q created: %s", w.Name, ui.Addr(w.Address))))
				fmt.Fprintln(out, ui.Hint("Fund it with test ETH from a Sepolia faucet before minting."))
			}
		}

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintln(out, ui.Success("cryptopet configured! Run `cryptopet connect` next."))
		return nil
	},
}
