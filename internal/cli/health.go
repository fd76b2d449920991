package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the administrator, escrow account and entry fee",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result InfoResult
			if err := client.Get(cmd.Context(), "/api/v1/info", &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}
