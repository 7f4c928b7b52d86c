package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hacker0x01/h1ql/internal/cli/config"
)

// RewriteOptions holds options for the rewrite command.
type RewriteOptions struct {
	Subject string
	Attrs   []string
	Input   string
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand() *cobra.Command {
	opts := &RewriteOptions{}

	cmd := &cobra.Command{
		Use:   "rewrite [SQL]",
		Short: "Rewrite a query with authorization predicates",
		Long: `Parse a query, reject anything outside the accepted subset, and
rewrite every table and column access with the predicates the policy
file registers for the requester. The rewritten SQL is printed to
stdout and is safe to hand to a database.`,
		Example: `  # Rewrite with requester attributes
  h1ql rewrite --subject user:7 --attr team_id=42 "SELECT id FROM reports"

  # Read SQL from a file
  h1ql rewrite --subject user:7 --input query.sql

  # Pipe SQL in
  echo "SELECT id FROM reports" | h1ql rewrite --subject user:7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Subject, "subject", "s", "", "Requester subject identifier")
	cmd.Flags().StringArrayVarP(&opts.Attrs, "attr", "a", nil, "Requester attribute as name=value (repeatable)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runRewrite(cmd *cobra.Command, args []string, opts *RewriteOptions) error {
	cfg := config.FromContext(cmd.Context())
	logger := loggerFor(cmd, cfg)

	sqlText, err := readSQL(cmd, args, opts.Input)
	if err != nil {
		return err
	}
	req, err := parseRequester(opts.Subject, opts.Attrs)
	if err != nil {
		return err
	}

	eng, snap, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	res, err := eng.Rewrite(cmd.Context(), sqlText, req)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "policy snapshot %s (%d tables)\n", snap.Version(), snap.Len())
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.SQL)
	return nil
}
