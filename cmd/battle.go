package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/battle"
	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var battleAutoFlag bool

var battleCmd = &cobra.Command{
	Use:   "battle <petId> <opponentId>",
	Short: "Battle one of your pets against any other pet",
	Long: `Fight a turn-based battle between your pet and any pet on the contract.

Battles are played locally and nothing is written on-chain. Use the arrow
keys or 1-4 to pick a move; --auto plays random moves and prints the log.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.ensureAccount(ctx); err != nil {
			return err
		}
		if err := a.fetch(ctx); err != nil {
			return err
		}
		player, ok := a.pets.Lookup(args[0])
		if !ok {
			return fmt.Errorf("%w: #%s is not one of yours", pets.ErrPetNotFound, args[0])
		}

		b, err := ui.Spin("Finding opponent...", func() (*battle.Battle, error) {
			ctx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
			defer cancel()
			return battle.NewArena(a.store.Facade(), nil, log).Start(ctx, player, args[1])
		})
		if err != nil {
			return err
		}

		if !battleAutoFlag {
			return ui.RunBattle(b)
		}
		return autoBattle(cmd, b)
	},
}

func autoBattle(cmd *cobra.Command, b *battle.Battle) error {
	for !b.Over() {
		var err error
		if b.Turn() == battle.Player {
			_, err = b.PlayerMove(rand.IntN(len(b.Player().Moves)))
		} else {
			_, err = b.OpponentMove()
		}
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, line := range b.Log() {
		fmt.Fprintln(out, "  "+line)
	}
	if winner, _ := b.Winner(); winner == battle.Player {
		fmt.Fprintln(out, ui.Success("You win!"))
	} else {
		fmt.Fprintln(out, ui.Warn("You lost."))
	}
	return nil
}

func init() {
	battleCmd.Flags().BoolVar(&battleAutoFlag, "auto", false, "play random moves without the interactive arena")
}
