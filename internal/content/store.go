package content

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Store serves the current Site and swaps it when the content file changes.
type Store struct {
	path    string
	current atomic.Pointer[Site]
	logger  *slog.Logger

	// Pattern selects which file names in the content directory trigger a
	// reload. It defaults to the content file's own name.
	Pattern  string
	Debounce time.Duration
}

// NewStore loads path (or the embedded default when empty).
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	site, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		path:     path,
		logger:   logger,
		Debounce: defaultDebounce,
	}
	if path != "" {
		s.Pattern = filepath.Base(path)
	}
	s.current.Store(site)
	return s, nil
}

// NewStaticStore wraps an already loaded site. Watch is a no-op on it.
func NewStaticStore(site *Site) *Store {
	s := &Store{logger: slog.Default()}
	s.current.Store(site)
	return s
}

// Site returns the current content.
func (s *Store) Site() *Site { return s.current.Load() }

// Reload re-reads the content file. On error the previous content is kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	site, err := Load(s.path)
	if err != nil {
		return err
	}
	s.current.Store(site)
	return nil
}

// Watch reloads content whenever a matching file in the content directory is
// written, until ctx is done. Bursts of events are coalesced.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating content watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace files, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.logger.Info("Watching content", slog.String("path", s.path))

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pattern = s.Pattern
	)
	if pattern == "" {
		pattern = filepath.Base(s.path)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if match, _ := doublestar.Match(pattern, filepath.Base(ev.Name)); !match {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.Debounce)
			} else {
				timer.Reset(s.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("Keeping previous content", slog.String("error", err.Error()))
				continue
			}
			s.logger.Info("Reloaded content", slog.String("path", s.path))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Content watcher error", slog.String("error", err.Error()))
		}
	}
}
