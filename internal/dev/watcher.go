package dev

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/interactivity/internal/source"
)

// WatcherConfig configures the page watcher.
type WatcherConfig struct {
	// Root is the pages directory.
	Root string

	// Ignore patterns to skip (globs or path segments).
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"tmp",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls a pages directory and reports changed pages by name.
type Watcher struct {
	config     WatcherConfig
	onChange   func([]string)
	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	timestamps map[string]time.Time
}

// NewWatcher creates a new page watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 250 * time.Millisecond
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnore
	}

	return &Watcher{
		config:     config,
		timestamps: make(map[string]time.Time),
	}
}

// OnChange sets the callback for changed pages. Names are slash separated
// and relative to the root, as returned by source.Dir.List.
func (w *Watcher) OnChange(fn func(pages []string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.scan(false)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.scan(true)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

func (w *Watcher) markStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// scan walks the root, updates timestamps and, when report is set, calls
// the callback with every added, modified or deleted page.
func (w *Watcher) scan(report bool) {
	seen := make(map[string]time.Time)
	filepath.WalkDir(w.config.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != w.config.Root && w.shouldIgnore(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.shouldIgnore(p) || !strings.EqualFold(filepath.Ext(p), source.PageExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.config.Root, p)
		if err != nil {
			return nil
		}
		seen[filepath.ToSlash(rel)] = info.ModTime()
		return nil
	})

	w.mu.Lock()
	var changed []string
	for name, mod := range seen {
		if last, ok := w.timestamps[name]; !ok || mod.After(last) {
			changed = append(changed, name)
		}
	}
	for name := range w.timestamps {
		if _, ok := seen[name]; !ok {
			changed = append(changed, name)
		}
	}
	w.timestamps = seen
	callback := w.onChange
	w.mu.Unlock()

	if !report || callback == nil || len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	callback(changed)
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if name == pattern {
			return true
		}

		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := path.Match(pattern, name); matched {
				return true
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(p, segment string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// watchable reports whether location is a local directory that can be polled.
func watchable(location string) bool {
	if source.IsS3(location) {
		return false
	}
	info, err := os.Stat(location)
	return err == nil && info.IsDir()
}
