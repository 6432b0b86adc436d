package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rs/zerolog"
	xlog "github.com/tessro/onetap/internal/log"
)

const reloadDebounce = 250 * time.Millisecond

// Holder holds the live configuration and reloads it when the file changes.
type Holder struct {
	mu      sync.RWMutex
	current *Config
	hash    uint64
	path    string
	logger  zerolog.Logger

	listenersMu sync.Mutex
	listeners   []func(*Config)
}

// NewHolder creates a holder for a config loaded from path. An empty path
// disables watching.
func NewHolder(initial *Config, path string) *Holder {
	return &Holder{
		current: initial,
		hash:    hashConfig(initial),
		path:    path,
		logger:  xlog.WithComponent("config"),
	}
}

// Get returns the current configuration. Callers must not modify it.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers fn to run after every successful reload that changed
// the configuration.
func (h *Holder) OnReload(fn func(*Config)) {
	h.listenersMu.Lock()
	h.listeners = append(h.listeners, fn)
	h.listenersMu.Unlock()
}

// Reload reads and validates the file. On failure the current configuration
// is kept. It reports whether the configuration changed.
func (h *Holder) Reload() (bool, error) {
	next, err := LoadFrom(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load configuration")
		return false, fmt.Errorf("load config: %w", err)
	}
	if err := next.Validate(); err != nil {
		h.logger.Error().Err(err).Str("event", "config.validation_failed").Msg("new configuration failed validation")
		return false, fmt.Errorf("validate config: %w", err)
	}

	sum := hashConfig(next)

	h.mu.Lock()
	if sum != 0 && sum == h.hash {
		h.mu.Unlock()
		h.logger.Debug().Str("event", "config.reload_unchanged").Msg("configuration unchanged")
		return false, nil
	}
	h.current = next
	h.hash = sum
	h.mu.Unlock()

	h.listenersMu.Lock()
	listeners := append([]func(*Config){}, h.listeners...)
	h.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}

	h.logger.Info().
		Str("event", "config.reload_success").
		Int("tiles", len(next.Tiles)).
		Str("mode", next.Mode).
		Msg("configuration reloaded")
	return true, nil
}

// Watch reloads the configuration whenever its file is written, until ctx is
// done. The directory is watched because atomic saves replace the file.
func (h *Holder) Watch(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("no config file to watch")
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}
	name := filepath.Clean(h.path)

	h.logger.Info().Str("event", "config.watcher_started").Str("path", h.path).Msg("watching config file for changes")

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
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				_, _ = h.Reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	sum, err := hashstructure.Hash(cfg, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return sum
}
