package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/triviapool/internal/services/auth"
)

func newLoginCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the administrator and save the session token",
		Long: `Exchange the administrator key for a session token. The token is written
to the token file and used by later commands.

The key is read from --key, or from the first line of stdin when omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				var err error
				if key, err = readLine(cmd); err != nil {
					return err
				}
			}

			var result AuthResult
			body := map[string]string{"key": key}
			if err := client.Post(cmd.Context(), "/api/v1/auth/login", body, &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Administrator key")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the administrator session and forget the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token != "" {
				if err := client.Post(cmd.Context(), "/api/v1/auth/logout", nil, nil); err != nil {
					var apiErr *APIError
					// An expired token still gets cleared locally
					if !errors.As(err, &apiErr) || apiErr.Code != "UNAUTHORIZED" {
						return err
					}
				}
			}

			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			outputFor(cmd).PrintMessage("Logged out")
			return nil
		},
	}
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash-key [key]",
		Short: "Print the bcrypt hash of an administrator key for TRIVIAPOOL_ADMIN_KEY_HASH",
		Args:  cobra.MaximumNArgs(1),
		// Runs locally, no server needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				if key, err = readLine(cmd); err != nil {
					return err
				}
			}

			hash, err := auth.HashKey(key)
			if err != nil {
				return err
			}

			outputFor(cmd).PrintMessage(hash)
			return nil
		},
	})

	return cmd
}

func readLine(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("no key given: %w", err)
		}
		return "", errors.New("no key given")
	}
	return line, nil
}
