package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/ui"
	"github.com/Mohsinsiddi/cryptopet/internal/wallet"
)

var (
	walletKeyFlag       string
	walletRemoveYesFlag bool
	walletRevokeAllFlag bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the built-in wallet's accounts and permissions",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an account (a new key, or an existing one with --key)",
	Long: `Add an account to the built-in wallet. Without --key a fresh key is
generated. Keys are kept in the OS keychain; on headless Linux the encrypted
file backend in the config directory is used, unlocked by $` + wallet.PasswordEnv + `.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}

		var w *wallet.Wallet
		if walletKeyFlag != "" {
			w, err = mgr.AddWithKey(name, walletKeyFlag)
		} else {
			w, err = mgr.Generate(name)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q added: %s", name, ui.Addr(w.Address))))
		if w.IsDefault {
			fmt.Fprintln(out, ui.Meta("It is the default account."))
		} else {
			fmt.Fprintln(out, ui.Hint(fmt.Sprintf("Set as default with: cryptopet wallet use %s", name)))
		}
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		wallets := mgr.List()
		out := cmd.OutOrStdout()

		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Create one with: cryptopet wallet add myWallet"))
			return nil
		}

		perms := wallet.NewPermissions(cfg.PermissionsPath())
		granted := make(map[string]bool)
		for _, origin := range perms.Origins() {
			for _, a := range perms.Authorized(origin) {
				granted[a.Hex()] = true
			}
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Connected", Width: 10},
			{Title: "Default", Width: 8},
		})
		for _, w := range wallets {
			def, conn := "", ""
			if w.IsDefault {
				def = ui.StyleSuccess.Render("✓")
			}
			if granted[w.Addr().Hex()] {
				conn = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Row{ui.Val(w.Name), ui.Addr(w.Address), conn, def})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			wallets := mgr.List()
			items := make([]ui.PickerItem, len(wallets))
			for i, w := range wallets {
				items[i] = ui.PickerItem{Label: w.Name, SubLabel: ui.TruncateAddr(w.Address), Value: w.Name, Current: w.IsDefault}
			}
			if name, err = ui.PickItem("Default Wallet", items); err != nil {
				return err
			}
			if name == "" {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
				return nil
			}
		}

		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an account and its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		w, err := mgr.Get(name)
		if err != nil {
			return err
		}
		if !walletRemoveYesFlag && !ui.ConfirmDanger(fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
			return nil
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		if err := wallet.NewPermissions(cfg.PermissionsPath()).RevokeAddress(w.Addr()); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletRevokeCmd = &cobra.Command{
	Use:   "revoke [origin]",
	Short: "Revoke connection permissions",
	Long: `Forget which accounts an origin may use, so the next connect prompts
again. The origin defaults to this CLI (` + wallet.DefaultOrigin + `).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		perms := wallet.NewPermissions(cfg.PermissionsPath())
		out := cmd.OutOrStdout()
		if walletRevokeAllFlag {
			if err := perms.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success("All permissions revoked."))
			return nil
		}

		origin := wallet.DefaultOrigin
		if len(args) == 1 {
			origin = args[0]
		}
		if len(perms.Authorized(origin)) == 0 {
			fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%s has no permissions.", origin)))
			return nil
		}
		if err := perms.Revoke(origin); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Permissions for %s revoked.", origin)))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "import this hex private key instead of generating one")
	walletRemoveCmd.Flags().BoolVarP(&walletRemoveYesFlag, "yes", "y", false, "skip confirmation")
	walletRevokeCmd.Flags().BoolVar(&walletRevokeAllFlag, "all", false, "revoke every origin")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletUseCmd, walletRemoveCmd, walletRevokeCmd)
}
