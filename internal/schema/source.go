package schema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 100 * time.Millisecond

// Source holds the current template of one file and reloads it on change.
type Source struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	tpl       *core.Template
	listeners []func(*core.Template)
}

// Open loads the template at path.
func Open(path string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Source{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Static wraps an in-memory template. Reload and Watch are no-ops.
func Static(tpl *core.Template) *Source {
	return &Source{tpl: tpl, logger: slog.New(slog.DiscardHandler)}
}

// Path returns the watched file, or "" for a static source.
func (s *Source) Path() string { return s.path }

// Template returns the current template.
func (s *Source) Template() *core.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tpl
}

// OnReload registers fn to run after every successful reload.
func (s *Source) OnReload(fn func(*core.Template)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the file. On error the previous template stays current.
func (s *Source) Reload() error {
	if s.path == "" {
		return nil
	}
	tpl, err := Load(s.path, s.logger)
	if err != nil {
		return err
	}
	if err := Validate(tpl); err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}

	s.mu.Lock()
	s.tpl = tpl
	listeners := append([]func(*core.Template){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(tpl)
	}
	return nil
}

// Watch reloads the template whenever its file is written, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	target := filepath.Clean(s.path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := s.Reload(); err != nil {
					s.logger.Error("template reload failed", "path", s.path, "error", err)
					return
				}
				s.logger.Info("template reloaded", "path", s.path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
