package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hitoq/hitoq/internal/identity"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Resolve a GitHub token to a local user",
		Long: `Prompts for a GitHub token (input is hidden on a terminal), asks GitHub
who owns it, and prints the local user with the same user name. This is the
same mapping the API uses in github auth mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(cmd)
			if err != nil {
				return err
			}

			token, err := readToken(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("no token given")
			}

			resolver := identity.GitHubResolver{DB: gormDB, BaseURL: cfg.Auth.GitHubAPIURL}
			ctx := context.Background()
			login, err := resolver.Login(ctx, token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GitHub login: %s\n", login)

			userID, err := identity.LookupUserName(gormDB, login)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Local user:   %s\n", userID)
			return nil
		},
	}
}

// readToken reads one line from in. When in is a terminal the prompt goes
// to prompt and echo is disabled.
func readToken(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "GitHub token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
