package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newResetAttemptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-attempt <user-id>",
		Short: "Delete a student's attempt so they can retake the quiz",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			userID, err := strconv.Atoi(args[0])
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			if err := a.attempts.Reset(cmd.Context(), userID); err != nil {
				return fmt.Errorf("reset attempt: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attempt of user %d reset\n", userID)
			return nil
		}),
	}
}
