package config

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-gfx/engine/core"
)

// Watcher reloads a configuration file whenever it is written and hands the
// result to a callback. Invalid files are logged and skipped, the last good
// configuration stays current.
type Watcher struct {
	path     string
	onChange func(*Config)

	mutex   sync.RWMutex
	current *Config

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	closed   bool
}

// Watch starts watching the directory containing path, so editors that
// replace the file on save are still seen.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.Errorf("config_watch", core.ErrUnknown, "%v", err)
	}
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		fsWatch.Close()
		return nil, core.Errorf("config_watch", core.ErrUnknown, "%v", err)
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		current:  cfg,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Current returns the last configuration that loaded and validated.
func (w *Watcher) Current() *Config {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.current
}

func (w *Watcher) start() {
	defer close(w.stopped)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err.Error())

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		core.LogWarn("ignoring configuration change: %v", err)
		return
	}
	w.mutex.Lock()
	w.current = cfg
	w.mutex.Unlock()
	core.LogInfo("configuration `%s` reloaded", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.closed {
		w.mutex.Unlock()
		return nil
	}
	w.closed = true
	w.mutex.Unlock()

	close(w.done)
	<-w.stopped
	if err := w.fsnotify.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return core.Errorf("config_watch_close", core.ErrUnknown, "%v", err)
	}
	return nil
}
