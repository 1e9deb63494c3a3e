package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const minPasswordLength = 6

func newCreateAdminCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  "Create an administrator account. The password is read from the terminal, or from the first line of stdin when it is not a terminal.",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			u, err := a.users.CreateAdmin(cmd.Context(), strings.TrimSpace(name), strings.TrimSpace(email), password)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin '%s' (%s) created with ID %d\n", u.Name, u.Email, u.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace the password of an account",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := a.users.SetPassword(cmd.Context(), strings.TrimSpace(email), password); err != nil {
				return fmt.Errorf("set password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readPassword prompts on a terminal without echo and falls back to one
// line of in for scripted use.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	var password string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = string(b)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return password, nil
}
