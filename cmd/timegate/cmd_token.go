package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/timegate/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signed API token",
	Args:  cobra.NoArgs,
	RunE:  runTokenIssue,
}

var (
	tokenSubject string
	tokenScopes  []string
	tokenTTL     time.Duration
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "Token subject, shown in server logs")
	tokenIssueCmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{auth.ScopeRead}, "Granted scopes: read, reload")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cfg.JWTSigningKey == "" {
		return errors.New("TIMEGATE_JWT_SIGNING_KEY is not set")
	}
	if tokenTTL <= 0 {
		return errors.New("--ttl must be positive")
	}
	for _, scope := range tokenScopes {
		if scope != auth.ScopeRead && scope != auth.ScopeReload {
			return fmt.Errorf("unknown scope %q (want %s)", scope, strings.Join([]string{auth.ScopeRead, auth.ScopeReload}, ", "))
		}
	}

	token, err := auth.Issue([]byte(cfg.JWTSigningKey), tokenSubject, tokenScopes, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
