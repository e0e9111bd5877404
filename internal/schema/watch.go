package schema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Reload rebuilds the model from path and publishes it. On any error the holder keeps the
// previous model.
func Reload(path string, reg *Registry, holder *Holder) (*Model, error) {
	m, err := Load(path, reg)
	if err != nil {
		return nil, err
	}
	holder.Swap(m)
	return m, nil
}

// Watch reloads the schema at path whenever the file is written or replaced, until ctx is
// done. The parent directory is watched so editors that save by rename are seen.
func Watch(ctx context.Context, path string, reg *Registry, holder *Holder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	logger.Info("watching schema", "path", target)

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			m, err := Reload(target, reg, holder)
			if err != nil {
				logger.Error("schema reload failed, keeping previous model", "path", target, "error", err)
				continue
			}
			logger.Info("schema reloaded", "path", target, "checksum", m.Checksum())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("schema watcher error", "error", err)
		}
	}
}
