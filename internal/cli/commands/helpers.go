// Package commands implements the h1ql subcommands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hacker0x01/h1ql/internal/cli/config"
	"github.com/Hacker0x01/h1ql/pkg/authz"
	"github.com/Hacker0x01/h1ql/pkg/h1ql"
	"github.com/Hacker0x01/h1ql/pkg/policy"

	// Registered executor adapters.
	_ "github.com/Hacker0x01/h1ql/pkg/adapters/duckdb"
	_ "github.com/Hacker0x01/h1ql/pkg/adapters/postgres"
	_ "github.com/Hacker0x01/h1ql/pkg/adapters/sqlite"
)

// loggerFor builds the CLI logger. Diagnostics go to stderr so stdout
// stays clean for piped query output.
func loggerFor(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// buildEngine loads the policy file and assembles a rewrite engine over a
// static snapshot of it.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*h1ql.Engine, *policy.Snapshot, error) {
	snap, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading policies from %s: %w", cfg.PolicyPath, err)
	}
	eng := h1ql.New(h1ql.StaticSnapshot(snap),
		h1ql.WithLogger(logger),
		h1ql.WithFunctions(cfg.Functions...),
		h1ql.WithCacheSize(cfg.CacheSize),
	)
	return eng, snap, nil
}

// parseRequester builds the requester from --subject and repeated
// --attr name=value flags. Values are coerced to bool, integer, or float
// when they parse as one, and kept as strings otherwise.
func parseRequester(subject string, attrs []string) (authz.Requester, error) {
	req := authz.Requester{Subject: subject}
	if len(attrs) > 0 {
		req.Attributes = make(map[string]any, len(attrs))
	}
	for _, kv := range attrs {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return authz.Requester{}, fmt.Errorf("invalid attribute %q; expected name=value", kv)
		}
		req.Attributes[name] = coerceValue(raw)
	}
	return req, nil
}

func coerceValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// readSQL resolves the query text from, in order, positional arguments,
// an --input file, or piped stdin.
func readSQL(cmd *cobra.Command, args []string, inputPath string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case inputPath != "":
		content, err := os.ReadFile(inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	default:
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return "", fmt.Errorf("no SQL given; pass it as an argument, via --input, or on stdin")
		}
		return string(content), nil
	}
}
