package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher monitors the .env file for changes and republishes the reloadable
// defaults through a callback.
type Watcher struct {
	mu       sync.Mutex
	config   *Config
	envPath  string
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onReload func(Defaults)
}

// NewWatcher creates a watcher for the config's .env file. onReload is
// invoked with the fresh defaults after every successful reload.
func NewWatcher(cfg *Config, onReload func(Defaults)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		config:   cfg,
		envPath:  cfg.EnvPath(),
		watcher:  watcher,
		stopChan: make(chan struct{}),
		onReload: onReload,
	}, nil
}

// Start begins watching the data directory for .env changes.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.envPath)); err != nil {
		return err
	}
	go w.watchForChanges()
	log.Info().Str("env_path", w.envPath).Msg("Started watching config file for changes")
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	select {
	case <-w.stopChan:
		return
	default:
		close(w.stopChan)
	}
	w.watcher.Close()
}

// Reload manually triggers a config reload (e.g. from SIGHUP).
func (w *Watcher) Reload() {
	w.reload()
}

func (w *Watcher) watchForChanges() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != ".env" && event.Name != w.envPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Debounce so the writer finishes before we read.
			time.Sleep(100 * time.Millisecond)
			log.Info().Str("event", event.Op.String()).Msg("Detected .env file change")
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Config watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	fresh, err := w.config.Reload()
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload configuration; keeping previous values")
		return
	}
	w.config = fresh

	log.Info().
		Int("queue_limit", fresh.QueueLimit).
		Dur("track_length_limit", fresh.TrackLengthLimit).
		Int("admins", len(fresh.AdminIDs)).
		Msg("Reloaded platform defaults")

	if w.onReload != nil {
		w.onReload(fresh.Defaults())
	}
}
