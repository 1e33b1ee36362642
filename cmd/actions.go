package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

var mintCmd = &cobra.Command{
	Use:   "mint <name>",
	Short: "Mint a new pet",
	Long: `Mint a pet with the given name. The contract's mint price is paid from the
connected account; the wallet shows the amount before signing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := strings.Join(args, " ")
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.ensureAccount(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if price, err := a.store.Facade().MintPrice(ctx); err == nil {
			c := a.target.NativeCurrency
			fmt.Fprintf(out, "  %s  %s\n", ui.Meta("Mint price:"), ui.Val(ui.FormatAmount(price, c.Decimals, c.Symbol)))
		}

		receipt, err := a.pets.Mint(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s minted!", ui.Val(strings.TrimSpace(name)))))
		printReceipt(out, a, receipt)
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed <petId>",
	Short: "Feed a pet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return interact(cmd, args[0], "Fed", true)
	},
}

var playCmd = &cobra.Command{
	Use:   "play <petId>",
	Short: "Play with a pet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return interact(cmd, args[0], "Played with", false)
	},
}

// interact runs feed or play on one of the account's pets and prints the
// updated card.
func interact(cmd *cobra.Command, id, verb string, feed bool) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.ensureAccount(ctx); err != nil {
		return err
	}

	action := a.pets.Play
	if feed {
		action = a.pets.Feed
	}
	receipt, err := action(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pet, ok := a.pets.Lookup(id)
	name := "pet #" + id
	if ok {
		name = pet.Name
	}
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s %s", verb, ui.Val(name))))
	printReceipt(out, a, receipt)
	if ok {
		fmt.Fprintln(out, ui.PetCard(pet, time.Now()))
	}
	return nil
}

func printReceipt(out io.Writer, a *app, r *types.Receipt) {
	if r == nil {
		return
	}
	fmt.Fprintf(out, "  %s  %s\n", ui.Meta("Tx   :"), ui.Addr(r.TxHash.Hex()))
	if r.BlockNumber != nil {
		fmt.Fprintf(out, "  %s  %s\n", ui.Meta("Block:"), ui.Val(r.BlockNumber.String()))
	}
	if url := a.target.TxURL(r.TxHash.Hex()); url != "" {
		fmt.Fprintf(out, "  %s  %s\n", ui.Meta("View :"), url)
	}
}
