// Package config loads CLI configuration for h1ql.
package config

import (
	"context"

	"github.com/Hacker0x01/h1ql/pkg/adapter"
)

// Config holds all CLI configuration options.
type Config struct {
	// PolicyPath is the YAML policy file the rewriter loads rules from.
	PolicyPath string `koanf:"policies"`
	// Listen is the address the HTTP server binds to.
	Listen string `koanf:"listen"`
	// CacheSize bounds the rewrite cache per policy snapshot.
	CacheSize int `koanf:"cache_size"`
	// Functions extends the whitelisted function set.
	Functions []string `koanf:"functions"`
	Verbose   bool     `koanf:"verbose"`
	// Executor describes the optional backing database queries run against.
	Executor adapter.Config `koanf:"executor"`
}

// Default configuration values.
const (
	DefaultPolicyPath = "policies.yaml"
	DefaultListen     = ":8080"
	DefaultCacheSize  = 4096
)

type ctxKey struct{}

// NewContext returns a context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the config stored by NewContext. Commands invoked
// outside the root command's pre-run get the defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}
	return &Config{
		PolicyPath: DefaultPolicyPath,
		Listen:     DefaultListen,
		CacheSize:  DefaultCacheSize,
	}
}
