package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "triviapool",
		Short: "CLI tool for the triviapool escrow API",
		Long: `triviapool is a CLI tool for interacting with the trivia prize pool JSON API.

Administrators log in with the deployment key to open, start, complete and
cancel sessions. Participants act through --as, which names the ledger
account used for joining and approving the escrow.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			logger := slog.New(slog.DiscardHandler)
			if cfg.Verbose {
				logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			client = NewClient(cfg.ServerURL, cfg.Token, cfg.As, logger)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: TRIVIAPOOL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Administrator session token (env: TRIVIAPOOL_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: TRIVIAPOOL_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.As, "as", cfg.As, "Participant address to act as (env: TRIVIAPOOL_AS)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Log requests to stderr")

	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newAdminCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newLedgerCmd())
	rootCmd.AddCommand(newEventsCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
