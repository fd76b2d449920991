package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Create, join and settle trivia sessions",
	}

	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionJoinCmd())
	cmd.AddCommand(newSessionActionCmd("start", "Close entry and start play (administrator)"))
	cmd.AddCommand(newSessionCompleteCmd())
	cmd.AddCommand(newSessionActionCmd("cancel", "Cancel a session and refund entries (administrator)"))
	cmd.AddCommand(newSessionActionCmd("retry", "Retry failed payouts or refunds (administrator)"))
	cmd.AddCommand(newSessionAddressesCmd("participants", "List participants in join order"))
	cmd.AddCommand(newSessionAddressesCmd("winners", "List winners in rank order"))
	cmd.AddCommand(newSessionStateCmd())
	cmd.AddCommand(newSessionPoolCmd())
	cmd.AddCommand(newSessionMemberCmd())

	return cmd
}

func newSessionCreateCmd() *cobra.Command {
	var maxParticipants uint32

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Open a new session (administrator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"title":            args[0],
				"max_participants": maxParticipants,
			}

			var result Session
			if err := client.Post(cmd.Context(), "/api/v1/sessions", body, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().Uint32Var(&maxParticipants, "max", 10, "Maximum number of participants")

	return cmd
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SessionList
			if err := client.Get(cmd.Context(), "/api/v1/sessions", &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sessionPath(args[0], "")
			if err != nil {
				return err
			}

			var result Session
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}

func newSessionJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <id>",
		Short: "Pay the entry fee and join a session as --as",
		Long: `Join an open session. The participant named by --as must have approved
the escrow account for at least the entry fee (see "ledger approve").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.As == "" {
				return fmt.Errorf("--as is required to join")
			}
			return postSessionAction(cmd, args[0], "join", nil)
		},
	}
}

func newSessionActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postSessionAction(cmd, args[0], action, nil)
		},
	}
}

func newSessionCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id> <winner>...",
		Short: "Declare winners in rank order and pay out the pool (administrator)",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string][]string{"winners": args[1:]}
			return postSessionAction(cmd, args[0], "complete", body)
		},
	}
}

func newSessionAddressesCmd(kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sessionPath(args[0], kind)
			if err != nil {
				return err
			}

			var result AddressList
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}

func newSessionStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <id>",
		Short: "Show a session's lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sessionPath(args[0], "state")
			if err != nil {
				return err
			}

			var result StateResult
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}

func newSessionPoolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool <id>",
		Short: "Show a session's prize pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sessionPath(args[0], "pool")
			if err != nil {
				return err
			}

			var result PoolResult
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}

func newSessionMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "member <id> <address>",
		Short: "Check whether an address joined a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sessionPath(args[0], "members/"+url.PathEscape(args[1]))
			if err != nil {
				return err
			}

			var result MembershipResult
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			outputFor(cmd).Print(result)
			return nil
		},
	}
}

func postSessionAction(cmd *cobra.Command, id, action string, body any) error {
	path, err := sessionPath(id, action)
	if err != nil {
		return err
	}

	var result Session
	if err := client.Post(cmd.Context(), path, body, &result); err != nil {
		return err
	}

	outputFor(cmd).Print(result)
	return nil
}

// sessionPath validates the id locally so typos never reach the server
func sessionPath(id, suffix string) (string, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	path := "/api/v1/sessions/" + strconv.FormatUint(n, 10)
	if suffix != "" {
		path += "/" + suffix
	}
	return path, nil
}
