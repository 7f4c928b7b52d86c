package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Hacker0x01/h1ql/internal/cli/config"
	"github.com/Hacker0x01/h1ql/pkg/policy"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate policy files",
	}

	cmd.AddCommand(newPolicyLintCommand())
	cmd.AddCommand(newPolicyShowCommand())

	return cmd
}

func newPolicyLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint [path]",
		Short: "Validate a policy file",
		Long: `Load a policy file and report the first conflict found: duplicate
resources, unparsable or mutating predicates, unknown redactions, or
rule sets that could never grant access.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FromContext(cmd.Context()).PolicyPath
			if len(args) > 0 {
				path = args[0]
			}

			snap, err := policy.Load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			rules := 0
			for _, entry := range snap.Entries() {
				rules += len(entry.RowRules) + len(entry.ColumnRules)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d tables, %d rules)\n", path, snap.Len(), rules)
			return nil
		},
	}
}

// policySummary is the yaml shape `policy show` renders.
type policySummary struct {
	Version string         `yaml:"version"`
	Tables  []tableSummary `yaml:"tables"`
}

type tableSummary struct {
	Resource string          `yaml:"resource"`
	Public   bool            `yaml:"public,omitempty"`
	Rows     []rowSummary    `yaml:"rows,omitempty"`
	Columns  []columnSummary `yaml:"columns,omitempty"`
}

type rowSummary struct {
	Name       string   `yaml:"name"`
	Predicate  string   `yaml:"predicate"`
	Attributes []string `yaml:"attributes,omitempty"`
}

type columnSummary struct {
	Column     string   `yaml:"column"`
	Redaction  string   `yaml:"redaction"`
	Predicate  string   `yaml:"predicate"`
	Attributes []string `yaml:"attributes,omitempty"`
}

func newPolicyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [path]",
		Short: "Print the loaded policy snapshot",
		Long:  `Load a policy file and print the registered rules it resolves to.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FromContext(cmd.Context()).PolicyPath
			if len(args) > 0 {
				path = args[0]
			}

			snap, err := policy.Load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			summary := policySummary{Version: snap.Version()}
			for _, entry := range snap.Entries() {
				ts := tableSummary{
					Resource: entry.Resource.String(),
					Public:   entry.Public,
				}
				for _, rule := range entry.RowRules {
					ts.Rows = append(ts.Rows, rowSummary{
						Name:       rule.Name,
						Predicate:  rule.Raw,
						Attributes: rule.Attributes,
					})
				}
				for _, rule := range entry.ColumnRules {
					ts.Columns = append(ts.Columns, columnSummary{
						Column:     rule.Column,
						Redaction:  rule.Redaction.String(),
						Predicate:  rule.Raw,
						Attributes: rule.Attributes,
					})
				}
				summary.Tables = append(summary.Tables, ts)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer func() { _ = enc.Close() }()
			return enc.Encode(summary)
		},
	}
}
