// Package h1ql wires the query-safety pipeline: parse the SQL, restrict
// it to the safe subset, apply the active policy snapshot for the
// requester, and emit canonical query text.
package h1ql

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Hacker0x01/h1ql/pkg/authz"
	"github.com/Hacker0x01/h1ql/pkg/emit"
	"github.com/Hacker0x01/h1ql/pkg/parse"
	"github.com/Hacker0x01/h1ql/pkg/policy"
	"github.com/Hacker0x01/h1ql/pkg/restrict"
)

// SnapshotProvider yields the policy snapshot to authorize against.
// *policy.Store implements it; a fixed snapshot can be adapted with
// StaticSnapshot.
type SnapshotProvider interface {
	Current() *policy.Snapshot
}

type staticProvider struct {
	snap *policy.Snapshot
}

func (p staticProvider) Current() *policy.Snapshot { return p.snap }

// StaticSnapshot adapts a fixed snapshot into a SnapshotProvider.
func StaticSnapshot(snap *policy.Snapshot) SnapshotProvider {
	return staticProvider{snap: snap}
}

// Result is a successful rewrite.
type Result struct {
	// SQL is the canonical authorized query text. Identical inputs under
	// the same snapshot produce byte-identical SQL.
	SQL string
	// SnapshotVersion identifies the snapshot the rewrite was computed
	// against.
	SnapshotVersion string
}

// Engine runs the pipeline. It is safe for concurrent use; concurrent
// identical rewrites are deduplicated and memoized per snapshot version.
type Engine struct {
	provider   SnapshotProvider
	restrictor *restrict.Restrictor
	authorizer *authz.Authorizer
	logger     *slog.Logger

	group singleflight.Group
	cache *rewriteCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for pipeline tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFunctions extends the whitelist of callable functions.
func WithFunctions(names ...string) Option {
	return func(e *Engine) {
		e.restrictor = restrict.New(restrict.WithFunctions(names...))
	}
}

// WithCacheSize bounds the rewrite memoization cache. Zero disables it.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cache = newRewriteCache(n)
	}
}

const defaultCacheSize = 4096

// New creates an Engine over the given snapshot provider.
func New(provider SnapshotProvider, opts ...Option) *Engine {
	e := &Engine{
		provider:   provider,
		restrictor: restrict.New(),
		authorizer: authz.New(),
		logger:     slog.New(slog.DiscardHandler),
		cache:      newRewriteCache(defaultCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	// The authorizer shares the engine logger so a single handler sees
	// the whole pipeline.
	e.authorizer = authz.New(authz.WithLogger(e.logger))
	return e
}

// Rewrite runs the full pipeline for one query. Errors are typed per
// stage: *parse.ParseError, *restrict.UnsupportedConstructError, and
// *authz.ContextError.
func (e *Engine) Rewrite(ctx context.Context, sql string, req authz.Requester) (Result, error) {
	snap := e.provider.Current()
	if snap == nil {
		return Result{}, fmt.Errorf("no policy snapshot loaded")
	}

	key := fingerprint(snap.Version(), sql, req)
	if cached, ok := e.cache.get(snap.Version(), key); ok {
		return Result{SQL: cached, SnapshotVersion: snap.Version()}, nil
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		out, err := e.rewrite(ctx, sql, snap, req)
		if err != nil {
			return nil, err
		}
		e.cache.put(snap.Version(), key, out)
		return out, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{SQL: v.(string), SnapshotVersion: snap.Version()}, nil
}

func (e *Engine) rewrite(ctx context.Context, sql string, snap *policy.Snapshot, req authz.Requester) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	parsed, err := parse.Parse(sql)
	if err != nil {
		e.logger.Debug("parse rejected query", "error", err)
		return "", err
	}

	stmt, err := e.restrictor.Restrict(parsed)
	if err != nil {
		e.logger.Debug("restriction rejected query", "error", err)
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	authorized, err := e.authorizer.Authorize(stmt, snap, req)
	if err != nil {
		e.logger.Info("authorization rejected query",
			"requester", req.Subject, "snapshot", snap.Version(), "error", err)
		return "", err
	}

	out := emit.Emit(authorized)
	e.logger.Debug("rewrote query",
		"requester", req.Subject, "snapshot", snap.Version(), "bytes", len(out))
	return out, nil
}

// Validate runs only the parse and restriction stages, reporting whether
// the SQL belongs to the accepted subset.
func (e *Engine) Validate(sql string) error {
	parsed, err := parse.Parse(sql)
	if err != nil {
		return err
	}
	_, err = e.restrictor.Restrict(parsed)
	return err
}
