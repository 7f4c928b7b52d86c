// Package cli provides the command-line interface for h1ql.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/Hacker0x01/h1ql/internal/cli/commands"
	"github.com/Hacker0x01/h1ql/internal/cli/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "h1ql",
		Short: "h1ql - policy-enforcing SQL rewriter",
		Long: `h1ql turns untrusted SQL into SQL that is safe to run.

Incoming queries are parsed, restricted to a non-mutating subset, and
rewritten so every table and column access carries the authorization
predicates registered for the requester. The output is plain SQL a
regular database can execute.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cmd.SetContext(config.NewContext(cmd.Context(), cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Policy-enforcing SQL rewriter
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./h1ql.yaml)")
	rootCmd.PersistentFlags().String("policies", "", "Path to the policy YAML file")
	rootCmd.PersistentFlags().Int("cache-size", 0, "Rewrite cache size per policy snapshot")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRewriteCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewPolicyCommand())
	rootCmd.AddCommand(commands.NewServeCommand())

	return rootCmd
}
