// Package watcher reports edits to the layout file so the form can reload
// it in place.
package watcher

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/depositform/internal/log"
)

// Config holds watcher settings.
type Config struct {
	Path string
	// Debounce is how long the file must stay quiet before a change is
	// reported.
	Debounce time.Duration
}

// DefaultConfig watches path with a 300ms debounce.
func DefaultConfig(path string) Config {
	return Config{Path: path, Debounce: 300 * time.Millisecond}
}

// Watcher signals when the layout file's content changes. Events that
// leave the content as it was, such as a save without edits, are dropped.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration

	changes  chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	digest []byte
}

// New creates a watcher for cfg.Path. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		path:     filepath.Clean(cfg.Path),
		debounce: cfg.Debounce,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the file's directory, since editors often replace files by
// rename. The returned channel holds at most one pending signal.
func (w *Watcher) Start() (<-chan struct{}, error) {
	w.digest = fileDigest(w.path)

	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go w.loop()

	log.Debug(log.CatLayout, "Watching layout", "path", w.path)
	return w.changes, nil
}

// Stop ends the watch. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.check()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatLayout, "Layout watcher error", err, "path", w.path)

		case <-w.done:
			return
		}
	}
}

// check signals when the content differs from the last seen digest.
func (w *Watcher) check() {
	d := fileDigest(w.path)
	if d == nil || bytes.Equal(d, w.digest) {
		log.Debug(log.CatLayout, "Layout event without content change", "path", w.path)
		return
	}
	w.digest = d

	select {
	case w.changes <- struct{}{}:
		log.Info(log.CatLayout, "Layout changed on disk", "path", w.path)
	default:
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

// fileDigest hashes the file at path, or returns nil when it cannot be read
// (for example midway through a replace).
func fileDigest(path string) []byte {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user config
	if err != nil {
		return nil
	}
	sum := sha256.Sum256(data)
	return sum[:]
}
