package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last file event before the
// site model is reloaded.
const DefaultDebounce = 500 * time.Millisecond

// SiteWatcher reloads the site model into a SiteStore when contenttypes.yml or
// taxonomy.yml change. Editors often write a file in several steps, so reloads
// are debounced.
type SiteWatcher struct {
	dir       string
	store     *SiteStore
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	callbacks []func(*Site)

	mu       sync.Mutex
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSiteWatcher starts watching dir. Close stops the watcher goroutine.
func NewSiteWatcher(dir string, store *SiteStore, logger *zap.Logger, debounce time.Duration) (*SiteWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory rather than the files so that rename-over-write
	// saves are still seen.
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &SiteWatcher{
		dir:      dir,
		store:    store,
		logger:   logger,
		watcher:  fsWatcher,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Site configuration hot reloading enabled", zap.String("dir", dir))
	return w, nil
}

// OnChange registers a callback run after every successful reload.
func (w *SiteWatcher) OnChange(callback func(*Site)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

func (w *SiteWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isSiteFile(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.logger.Debug("Site configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Info("Stopping site configuration watcher")
			return
		}
	}
}

// reload keeps the previous model when the new files do not parse.
func (w *SiteWatcher) reload() {
	site, err := LoadSite(w.dir)
	if err != nil {
		w.logger.Error("Invalid site configuration after change, keeping previous", zap.Error(err))
		return
	}
	w.store.Store(site)

	w.mu.Lock()
	callbacks := make([]func(*Site), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()
	for _, cb := range callbacks {
		cb(site)
	}

	w.logger.Info("Site configuration reloaded",
		zap.Int("content_types", len(site.ContentTypes)),
		zap.Int("taxonomies", len(site.Taxonomies)),
	)
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *SiteWatcher) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
	return nil
}

func isSiteFile(path string) bool {
	switch filepath.Base(path) {
	case ContentTypesFile, TaxonomyFile:
		return true
	}
	return false
}
