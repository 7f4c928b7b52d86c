package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current policy snapshot and swaps it atomically on
// reload. Readers never block behind a reload.
type Store struct {
	cur    atomic.Pointer[Snapshot]
	logger *slog.Logger
}

// NewStore creates a store seeded with the given snapshot. A nil logger
// discards log output.
func NewStore(snap *Snapshot, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{logger: logger}
	s.cur.Store(snap)
	return s
}

// Current returns the snapshot in effect. The snapshot is immutable and
// remains valid after later replacements.
func (s *Store) Current() *Snapshot {
	return s.cur.Load()
}

// Replace installs a new snapshot.
func (s *Store) Replace(snap *Snapshot) {
	old := s.cur.Swap(snap)
	if old != nil {
		s.logger.Info("policy snapshot replaced",
			"old_version", old.Version(),
			"new_version", snap.Version(),
			"resources", snap.Len())
	}
}

// Watch reloads the policy file whenever it changes, until ctx ends.
// A reload that fails keeps the last good snapshot in place.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create policy watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors commonly replace the file, which
	// drops a watch placed on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	s.logger.Info("watching policy file", "path", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			snap, err := Load(path)
			if err != nil {
				s.logger.Error("policy reload failed, keeping last good snapshot",
					"path", target, "error", err)
				continue
			}
			s.Replace(snap)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("policy watcher error", "error", err)
		}
	}
}
