package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"dynosched/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	watchDebounce       = 250 * time.Millisecond
	watchRestartBackoff = 5 * time.Second
)

// Watcher reloads a config file when it changes on disk and hands valid
// configurations whose app set differs from the previous one to onChange.
type Watcher struct {
	path     string
	onChange func(*Config)
	debounce time.Duration

	mu   sync.Mutex
	last []AppSchedule
}

// NewWatcher creates a watcher for path. current is the configuration the
// caller is already running with.
func NewWatcher(path string, current *Config, onChange func(*Config)) *Watcher {
	w := &Watcher{path: path, onChange: onChange, debounce: watchDebounce}
	if current != nil {
		w.last = append([]AppSchedule(nil), current.Apps...)
	}
	return w
}

// Watch blocks until ctx is done. The directory is watched rather than the
// file so editors that replace the file by rename are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.reload)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("Config watcher started", zap.String("dir", dir), zap.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					schedule()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				logger.Warn("Config watch error", zap.Error(err), zap.String("dir", dir))
			}
		}

		_ = fw.Close()
		logger.Warn("Config watcher stopped; restarting", zap.Duration("backoff", watchRestartBackoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watchRestartBackoff):
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		logger.Warn("Config reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	if err := cfg.ValidateConfig(); err != nil {
		logger.Warn("Config reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	unchanged := reflect.DeepEqual(w.last, cfg.Apps)
	if !unchanged {
		w.last = append([]AppSchedule(nil), cfg.Apps...)
	}
	w.mu.Unlock()
	if unchanged {
		logger.Debug("Config unchanged; skipping reload", zap.String("path", w.path))
		return
	}

	logger.Info("Config changed", zap.String("path", w.path), zap.Int("apps", len(cfg.Apps)))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
