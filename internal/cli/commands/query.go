package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hacker0x01/h1ql/internal/cli/config"
	"github.com/Hacker0x01/h1ql/pkg/adapter"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Subject string
	Attrs   []string
	Input   string
	Format  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Rewrite a query and execute it against the configured executor",
		Long: `Rewrite a query with the requester's authorization predicates and run
the rewritten SQL against the executor configured in h1ql.yaml.

The executor only ever sees the rewritten statement.`,
		Example: `  # Run against the configured executor, tabular output
  h1ql query --subject user:7 --attr team_id=42 "SELECT id, title FROM reports"

  # Machine-readable output
  h1ql query --subject user:7 "SELECT count(*) FROM reports" --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryCmd(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Subject, "subject", "s", "", "Requester subject identifier")
	cmd.Flags().StringArrayVarP(&opts.Attrs, "attr", "a", nil, "Requester attribute as name=value (repeatable)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv")

	return cmd
}

func runQueryCmd(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cfg := config.FromContext(cmd.Context())
	logger := loggerFor(cmd, cfg)
	ctx := cmd.Context()

	if cfg.Executor.Type == "" {
		return fmt.Errorf("no executor configured; set executor.type in h1ql.yaml")
	}

	sqlText, err := readSQL(cmd, args, opts.Input)
	if err != nil {
		return err
	}
	req, err := parseRequester(opts.Subject, opts.Attrs)
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	res, err := eng.Rewrite(ctx, sqlText, req)
	if err != nil {
		return err
	}
	logger.Debug("executing rewritten query", "sql", res.SQL)

	exec, err := adapter.New(cfg.Executor, logger)
	if err != nil {
		return err
	}
	if err := exec.Connect(ctx, cfg.Executor); err != nil {
		return fmt.Errorf("failed to connect executor: %w", err)
	}
	defer func() { _ = exec.Close() }()

	rows, err := exec.Query(ctx, res.SQL)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	cols, records, err := rows.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	return renderResults(cmd.OutOrStdout(), cols, records, opts.Format)
}
