package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/config"
	"github.com/Mohsinsiddi/cryptopet/internal/logging"
	"github.com/Mohsinsiddi/cryptopet/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/cryptopet/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir    string
	cfg       *config.Config
	log       *zap.Logger
	verbose   bool
	chainFlag string
	noWallet  bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "cryptopet",
	Short: "Raise NFT pets on-chain",
	Long: `cryptopet connects a wallet to the CryptoPet contract and lets you mint,
feed, play with and battle your pets from the terminal.

The built-in wallet keeps keys in the OS keychain and asks before every
connection, network switch and transaction. Without a wallet (--no-wallet)
pets are read through a public RPC and nothing can be sent.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		if log, err = logging.New(level); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command. Ctrl+C cancels in-flight requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvDir+" or ~/.cryptopet)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&chainFlag, "chain", "", "target network for this run (overrides target_chain)")
	rootCmd.PersistentFlags().BoolVar(&noWallet, "no-wallet", false, "read-only: use a public RPC instead of the wallet")

	// Register all sub-commands.
	rootCmd.AddCommand(
		initCmd,
		connectCmd,
		statusCmd,
		petsCmd,
		mintCmd,
		feedCmd,
		playCmd,
		battleCmd,
		watchCmd,
		networkCmd,
		walletCmd,
		rpcCmd,
		contractCmd,
		configCmd,
	)
}
