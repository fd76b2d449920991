package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and fund token accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "balance <address>",
		Short: "Show an account's token balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result BalanceResult
			if err := client.Get(cmd.Context(), "/api/v1/ledger/balances/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "allowance <owner>",
		Short: "Show how much the escrow account may pull from an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AllowanceResult
			if err := client.Get(cmd.Context(), "/api/v1/ledger/allowances/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "approve <amount>",
		Short: "Allow the escrow account to pull tokens from --as (dev ledger only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.As == "" {
				return fmt.Errorf("--as is required to approve")
			}

			var result AllowanceResult
			body := map[string]string{"amount": args[0]}
			if err := client.Post(cmd.Context(), "/api/v1/ledger/approve", body, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "mint <address> <amount>",
		Short: "Credit new tokens to an account (administrator, dev ledger only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result BalanceResult
			body := map[string]string{"to": args[0], "amount": args[1]}
			if err := client.Post(cmd.Context(), "/api/v1/ledger/mint", body, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	})

	return cmd
}
