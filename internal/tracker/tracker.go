// Package tracker reports which files in a working directory changed while a
// session was running.
package tracker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/balkashynov/pomo/internal/logging"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
	".git":         true,
}

// Tracker takes snapshots of a directory tree.
type Tracker struct {
	// Ignore holds extra glob patterns, matched against base names and
	// slash-separated relative paths. Patterns from the directory's
	// .gitignore are added per snapshot.
	Ignore []string
	// Watch enables an fsnotify watcher alongside the mtime comparison.
	Watch bool
	Log   *slog.Logger
}

// Snapshot is the state of a directory at session start.
type Snapshot struct {
	dir      string
	mtimes   map[string]time.Time
	patterns []string
	log      *slog.Logger

	mu     sync.Mutex
	events map[string]struct{}

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Take records the modification time of every tracked file under dir.
// A missing directory yields an empty snapshot.
func (t *Tracker) Take(ctx context.Context, dir string) (*Snapshot, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	log := t.Log
	if log == nil {
		log = logging.Discard()
	}

	s := &Snapshot{
		dir:    abs,
		mtimes: make(map[string]time.Time),
		events: make(map[string]struct{}),
		log:    log,
	}
	s.patterns = append(append([]string(nil), t.Ignore...), readIgnoreFile(filepath.Join(abs, ".gitignore"))...)

	if err := s.walk(func(rel string, info fs.FileInfo) {
		s.mtimes[rel] = info.ModTime()
	}); err != nil {
		return nil, err
	}

	if t.Watch {
		s.startWatcher(ctx)
	}
	return s, nil
}

// Dir is the absolute directory the snapshot covers.
func (s *Snapshot) Dir() string { return s.dir }

// Modified lists files created or modified since the snapshot, relative to
// its directory, oldest change first.
func (s *Snapshot) Modified() ([]string, error) {
	type change struct {
		rel   string
		mtime time.Time
	}
	found := make(map[string]time.Time)

	err := s.walk(func(rel string, info fs.FileInfo) {
		before, seen := s.mtimes[rel]
		if !seen || info.ModTime().After(before) {
			found[rel] = info.ModTime()
		}
	})
	if err != nil {
		return nil, err
	}

	// The watcher catches writes that left the mtime unchanged at the
	// filesystem's resolution.
	s.mu.Lock()
	for rel := range s.events {
		if _, ok := found[rel]; ok {
			continue
		}
		info, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(rel)))
		if err != nil || info.IsDir() {
			continue
		}
		found[rel] = info.ModTime()
	}
	s.mu.Unlock()

	changes := make([]change, 0, len(found))
	for rel, mtime := range found {
		changes = append(changes, change{rel, mtime})
	}
	sort.Slice(changes, func(i, j int) bool {
		if !changes[i].mtime.Equal(changes[j].mtime) {
			return changes[i].mtime.Before(changes[j].mtime)
		}
		return changes[i].rel < changes[j].rel
	})

	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.rel
	}
	return out, nil
}

// Close stops the watcher. Safe to call more than once.
func (s *Snapshot) Close() error {
	var err error
	s.once.Do(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		<-s.done
		err = s.watcher.Close()
	})
	return err
}

// walk visits every tracked regular file, passing its slash-separated
// relative path. Unreadable entries are skipped.
func (s *Snapshot) walk(visit func(rel string, info fs.FileInfo)) error {
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.dir {
				return err
			}
			return nil
		}
		if path == s.dir {
			return nil
		}
		rel := s.rel(path)
		if d.IsDir() {
			if s.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || s.skipFile(d.Name(), rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		visit(rel, info)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Snapshot) rel(path string) string {
	r, err := filepath.Rel(s.dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(r)
}

func (s *Snapshot) skipDir(name, rel string) bool {
	return strings.HasPrefix(name, ".") || skipDirs[name] || s.ignored(name, rel)
}

func (s *Snapshot) skipFile(name, rel string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") || s.ignored(name, rel)
}

func (s *Snapshot) ignored(name, rel string) bool {
	for _, pattern := range s.patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *Snapshot) startWatcher(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Debug("file watcher unavailable", "dir", s.dir, "err", err)
		return
	}
	s.addTree(w, s.dir)

	wctx, cancel := context.WithCancel(ctx)
	s.watcher, s.cancel, s.done = w, cancel, make(chan struct{})
	go s.watch(wctx)
}

// addTree watches dir and every tracked directory below it.
func (s *Snapshot) addTree(w *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != s.dir && s.skipDir(d.Name(), s.rel(path)) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			s.log.Debug("cannot watch directory", "dir", path, "err", err)
		}
		return nil
	})
}

func (s *Snapshot) watch(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			rel := s.rel(event.Name)
			if info.IsDir() {
				if event.Has(fsnotify.Create) && !s.skipDir(info.Name(), rel) {
					s.addTree(s.watcher, event.Name)
				}
				continue
			}
			if s.skipFile(info.Name(), rel) || underSkippedDir(rel) {
				continue
			}
			s.mu.Lock()
			s.events[rel] = struct{}{}
			s.mu.Unlock()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Debug("file watcher error", "dir", s.dir, "err", err)
		}
	}
}

// underSkippedDir reports whether any parent segment of rel is hidden or skipped.
func underSkippedDir(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, p := range parts[:len(parts)-1] {
		if strings.HasPrefix(p, ".") || skipDirs[p] {
			return true
		}
	}
	return false
}

// readIgnoreFile reads gitignore-style patterns. Negations are not supported
// and are dropped; a missing file yields nothing.
func readIgnoreFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		line = strings.TrimSuffix(line, "/")
		if line != "" {
			patterns = append(patterns, line)
		}
	}
	return patterns
}

// Format joins up to max paths for display, summarizing the rest.
func Format(files []string, max int) string {
	if len(files) <= max || max <= 0 {
		return strings.Join(files, ", ")
	}
	return fmt.Sprintf("%s, ... and %d more", strings.Join(files[:max], ", "), len(files)-max)
}
