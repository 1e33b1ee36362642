package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard for your pets",
	Long: `Open a live dashboard showing your pets. Stats refresh every
watch_interval seconds (see 'cryptopet config set watch_interval').

Keyboard controls:
  ← → / h l   switch pet
  f           feed the selected pet
  p           play with the selected pet
  r           refresh now
  o           open the last transaction in the explorer
  q           quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, withKeyApprovals())
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.ensureAccount(ctx); err != nil {
			return err
		}

		header := fmt.Sprintf("%s  ·  %s", ui.TruncateAddr(a.store.Snapshot().Address.Hex()), a.target.ChainName)
		return ui.RunDashboard(ui.NewDashboardModel(ctx, a.pets, cfg.Interval(), header, a.explorer()))
	},
}
