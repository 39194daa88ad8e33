package builder

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ChangeSource yields batches of changed paths in the source directory.
// Implementations own their debouncing; Next blocks until a batch is ready
// or the context ends.
type ChangeSource interface {
	Next(ctx context.Context) ([]string, error)
	Close() error
}

const debounceWindow = 500 * time.Millisecond

// fsnotifySource batches inotify events: the first event opens a debounce
// window and everything arriving inside it joins the same batch, so a bulk
// file copy triggers one rebuild instead of dozens.
type fsnotifySource struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewNotifySource watches paths with the platform file notification API.
// Directories and single files may be mixed.
func NewNotifySource(paths []string, logger zerolog.Logger) (ChangeSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return &fsnotifySource{
		watcher: watcher,
		logger:  logger.With().Str("component", "watch").Logger(),
	}, nil
}

func (s *fsnotifySource) Next(ctx context.Context) ([]string, error) {
	changed := make(map[string]bool)
	var window <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil, ctx.Err()
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			changed[event.Name] = true
			if window == nil {
				window = time.After(debounceWindow)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil, ctx.Err()
			}
			s.logger.Warn().Err(err).Msg("watch error")

		case <-window:
			return sortedKeys(changed), nil
		}
	}
}

func (s *fsnotifySource) Close() error {
	return s.watcher.Close()
}

// pollSource diffs directory snapshots on an interval, for filesystems
// where inotify is unavailable (network mounts, some containers).
type pollSource struct {
	dir      string
	interval time.Duration
	previous map[string]time.Time
}

// NewPollSource watches dir by polling modification times.
func NewPollSource(dir string, interval time.Duration) ChangeSource {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &pollSource{
		dir:      dir,
		interval: interval,
		previous: snapshot(dir),
	}
}

func (s *pollSource) Next(ctx context.Context) ([]string, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			current := snapshot(s.dir)
			changed := diffSnapshots(s.previous, current)
			s.previous = current
			if len(changed) > 0 {
				return changed, nil
			}
		}
	}
}

func (s *pollSource) Close() error { return nil }

func snapshot(dir string) map[string]time.Time {
	result := make(map[string]time.Time)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return result
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result[filepath.Join(dir, entry.Name())] = info.ModTime()
	}
	return result
}

func diffSnapshots(previous, current map[string]time.Time) []string {
	changed := make(map[string]bool)
	for path, mtime := range current {
		if prev, ok := previous[path]; !ok || !mtime.Equal(prev) {
			changed[path] = true
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			changed[path] = true
		}
	}
	return sortedKeys(changed)
}

func sortedKeys(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for key := range set {
		result = append(result, key)
	}
	sort.Strings(result)
	return result
}

// Watch runs an initial build, then rebuilds after every change batch until
// the context ends. Build failures are logged and the loop continues, so a
// half-saved asset edit never kills the session.
func (b *Builder) Watch(ctx context.Context, source ChangeSource) error {
	defer source.Close()

	if _, err := b.Build(ctx); err != nil {
		b.logger.Error().Err(err).Msg("initial build failed")
	}

	for {
		changed, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		b.logger.Info().Int("files", len(changed)).Msg("source changed; rebuilding")
		for _, path := range changed {
			b.logger.Debug().Str("file", filepath.Base(path)).Msg("changed")
		}

		if _, err := b.Build(ctx); err != nil {
			b.logger.Error().Err(err).Msg("rebuild failed")
		}
	}
}
