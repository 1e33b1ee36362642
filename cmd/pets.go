package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var petsOwnerFlag string

var petsCmd = &cobra.Command{
	Use:   "pets",
	Short: "List your pets",
	Long: `List the pets owned by the connected account.

With --owner the pets of any address, or ENS name on Ethereum and Sepolia,
are listed through the read provider, no wallet needed:

  cryptopet pets --no-wallet --owner 0xAbc...
  cryptopet pets --no-wallet --owner alice.eth`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		list := a.pets
		if petsOwnerFlag != "" {
			owner, err := a.resolveOwner(ctx, petsOwnerFlag)
			if err != nil {
				return err
			}
			log.Debug("listing pets of", zap.String("owner", owner.Hex()))
			list = pets.NewSynchronizer(func() pets.Binding {
				return pets.Binding{Facade: a.store.Facade(), Owner: owner, Connected: true}
			}, pets.NewMetadataResolver(cfg.IPFSGateway, nil, log), log)
			defer list.Close()
		} else if err := a.ensureAccount(ctx); err != nil {
			return err
		}

		spin := ui.NewSpinner("Loading pets...")
		spin.Start()
		fetchCtx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
		err = list.Fetch(fetchCtx)
		cancel()
		spin.Stop()
		if err != nil {
			return err
		}

		records := list.Pets()
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, ui.Info("No pets yet."))
			if petsOwnerFlag == "" {
				fmt.Fprintln(out, ui.Hint("Mint one with: cryptopet mint <name>"))
			}
			return nil
		}
		fmt.Fprintln(out, ui.PetTable(records, list.Selected().ID))
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d pet(s)", len(records))))
		return nil
	},
}

var petsShowCmd = &cobra.Command{
	Use:   "show <petId>",
	Short: "Show one pet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		r, err := ui.Spin("Reading pet...", func() (pets.Record, error) {
			ctx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
			defer cancel()
			return a.pets.Read(ctx, args[0])
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.PetCard(r, time.Now()))
		return nil
	},
}

func init() {
	petsCmd.Flags().StringVar(&petsOwnerFlag, "owner", "", "list the pets of this address instead")
	petsCmd.AddCommand(petsShowCmd)
}
