package notification

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
)

// CatalogWatcher reloads a TemplateCatalog when its file changes.
type CatalogWatcher struct {
	catalog  *TemplateCatalog
	path     string
	watcher  *fsnotify.Watcher
	onReload func(error)
}

// NewCatalogWatcher watches path for changes. The directory is watched
// rather than the file so editors that replace the file by rename are
// still seen.
func NewCatalogWatcher(catalog *TemplateCatalog, path string) (*CatalogWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid template path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch template path: %w", err)
	}
	return &CatalogWatcher{catalog: catalog, path: absPath, watcher: watcher}, nil
}

// OnReload registers a callback invoked after each reload attempt.
func (w *CatalogWatcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Run processes file events until ctx is done or the watcher is closed.
// A file that fails to load leaves the previous templates in place.
func (w *CatalogWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Add(logging.Component("template_watcher")).
				Add(logging.ErrorField(err)).
				Msg("template watcher error")
		}
	}
}

func (w *CatalogWatcher) reload() {
	err := w.catalog.Load(w.path)
	if err != nil {
		logging.Error().
			Add(logging.Component("template_watcher")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("template reload failed, keeping previous templates")
	} else {
		logging.Info().
			Add(logging.Component("template_watcher")).
			Add(logging.Str("path", w.path)).
			Msg("templates reloaded")
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

// Close stops watching.
func (w *CatalogWatcher) Close() error {
	return w.watcher.Close()
}
