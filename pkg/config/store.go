package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store owns the persisted Settings and notifies subscribers on change.
// It is constructed once at startup and passed by handle to every consumer;
// consumers read snapshots via Current rather than holding references into
// the store's state.
type Store struct {
	path        string
	mu          sync.RWMutex
	settings    Settings
	subscribers []func(Settings)
}

// NewStore creates a store backed by the JSON file at path.
// If path is empty, defaults to ~/.surf/config.json. A missing file is not an
// error; defaults apply until the first Save.
func NewStore(path string) (*Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".surf", "config.json")
	}

	s := &Store{
		path:     path,
		settings: DefaultSettings(),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the settings file from disk, replacing the in-memory state.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file yet: keep defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	settings.Normalize()

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Save writes the current settings to disk atomically (temp file + rename).
func (s *Store) Save() error {
	s.mu.RLock()
	settings := s.settings.Clone()
	s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp config file: %w", err)
	}
	return nil
}

// Current returns a snapshot of the settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Update applies fn to a copy of the settings, persists the result, and
// notifies subscribers.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	next := s.settings.Clone()
	fn(&next)
	next.Normalize()
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// Subscribe registers a callback invoked with a settings snapshot after every
// change, whether from Update or from an on-disk reload.
func (s *Store) Subscribe(fn func(Settings)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := append(([]func(Settings))(nil), s.subscribers...)
	snapshot := s.settings.Clone()
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Watch reloads the settings whenever the backing file changes on disk and
// notifies subscribers. It blocks until ctx is canceled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors and atomic saves
	// replace the file, which would orphan a file-level watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Load(); err != nil {
				// A partially-written file can fail to parse; keep the
				// previous settings and wait for the next event.
				continue
			}
			s.notify()
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
