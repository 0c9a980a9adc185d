package credentials

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/dogkop/pkg/logging"
)

const (
	// DefaultWatchInterval is the polling interval used when fsnotify is unavailable.
	DefaultWatchInterval = 30 * time.Second

	// DefaultDebounceInterval is the time to wait after the last file change
	// before the keys are reloaded.
	DefaultDebounceInterval = 500 * time.Millisecond

	// secretDataLink is the symlink Kubernetes swaps when a mounted Secret changes.
	secretDataLink = "..data"
)

// WatcherConfig holds configuration for the key watcher.
type WatcherConfig struct {
	// Dir is the directory containing the key files.
	Dir string

	// Store receives the reloaded keys.
	Store *Store

	// WatchInterval is the fallback polling interval when fsnotify is not available.
	WatchInterval time.Duration

	// DebounceInterval delays reloads so a rotation of both files triggers one reload.
	DebounceInterval time.Duration

	// OnReload is called after a reload attempt with its error, if any.
	OnReload func(error)
}

// Watcher reloads the keys in a Store when the key files change.
// It uses fsnotify with a fallback to polling where fsnotify is unavailable.
type Watcher struct {
	mu sync.Mutex

	config WatcherConfig

	// fsWatcher is the fsnotify watcher (nil when polling)
	fsWatcher *fsnotify.Watcher

	stopCh  chan struct{}
	running bool

	// lastModTimes tracks the last modification times for fallback polling
	lastModTimes map[string]time.Time

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a new key watcher.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	dir, err := ValidateDir(config.Dir)
	if err != nil {
		return nil, err
	}
	config.Dir = dir

	if config.WatchInterval == 0 {
		config.WatchInterval = DefaultWatchInterval
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = DefaultDebounceInterval
	}

	return &Watcher{
		config:       config,
		lastModTimes: make(map[string]time.Time),
	}, nil
}

// Start begins watching the key directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("CredentialsWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges(w.stopCh)
		return nil
	}

	if err := watcher.Add(w.config.Dir); err != nil {
		logging.Warn("CredentialsWatcher", "Failed to watch credentials directory, falling back to polling: %v", err)
		_ = watcher.Close()
		go w.pollForChanges(w.stopCh)
		return nil
	}
	w.fsWatcher = watcher

	// Channels are captured under the lock so Stop cannot race with the reader
	go w.processEvents(w.stopCh, watcher.Events, watcher.Errors)

	logging.Info("CredentialsWatcher", "Started watching credentials directory for key rotation")
	return nil
}

// processEvents handles fsnotify events.
func (w *Watcher) processEvents(stopCh <-chan struct{}, eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("CredentialsWatcher", err, "fsnotify error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isRelevantFile(filepath.Base(event.Name)) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("CredentialsWatcher", "Key file changed: %s", filepath.Base(event.Name))
	w.triggerReloadDebounced()
}

func isRelevantFile(name string) bool {
	return name == DefaultAPIKeyFile || name == DefaultAppKeyFile || name == secretDataLink
}

// triggerReloadDebounced reloads after the debounce period has passed without changes.
func (w *Watcher) triggerReloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.DebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()

		if running {
			w.reload()
		}
	})
}

// reload reads the key files into the store. Invalid or partial files leave the
// current keys in place.
func (w *Watcher) reload() {
	apiKey, appKey, err := LoadDir(w.config.Dir)
	if err == nil && w.config.Store != nil {
		err = w.config.Store.Set(apiKey, appKey)
	}

	if err != nil {
		logging.Warn("CredentialsWatcher", "Keeping current Datadog keys, reload failed: %v", err)
	} else {
		logging.Info("CredentialsWatcher", "Reloaded Datadog keys")
	}

	if w.config.OnReload != nil {
		w.config.OnReload(err)
	}
}

// pollForChanges implements fallback polling when fsnotify is not available.
func (w *Watcher) pollForChanges(stopCh <-chan struct{}) {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	w.checkForChanges()

	for {
		select {
		case <-stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("CredentialsWatcher", "Key file changes detected via polling")
				w.triggerReloadDebounced()
			}
		}
	}
}

// checkForChanges reports whether any key file has a newer modification time.
func (w *Watcher) checkForChanges() bool {
	changed := false

	for _, name := range []string{DefaultAPIKeyFile, DefaultAppKeyFile} {
		file := filepath.Join(w.config.Dir, name)
		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		modTime := info.ModTime()
		if last, ok := w.lastModTimes[file]; ok && modTime.After(last) {
			changed = true
		}
		w.lastModTimes[file] = modTime
	}

	return changed
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("CredentialsWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("CredentialsWatcher", "Stopped credentials watcher")
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
