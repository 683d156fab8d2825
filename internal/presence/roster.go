package presence

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dounie/opshub/internal/domain"
)

type rosterFile struct {
	Users []domain.User `yaml:"users"`
}

// LoadRoster reads a YAML roster of the form
//
//	users:
//	  - id: maria
//	    username: Maria
//	    role: manager
//
// Every entry must be a valid user.
func LoadRoster(fs afero.Fs, path string) ([]domain.User, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	for i := range roster.Users {
		if err := roster.Users[i].Validate(); err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
	}
	return roster.Users, nil
}

// ApplyRoster loads the roster at path and registers every user in it.
func (t *Tracker) ApplyRoster(fs afero.Fs, path string) (int, error) {
	users, err := LoadRoster(fs, path)
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		if _, err := t.RegisterUser(u); err != nil {
			return 0, err
		}
	}
	t.logger.Info("Roster applied", "path", path, "users", len(users))
	return len(users), nil
}

// WatchRoster re-applies the roster whenever the file changes, until ctx is
// canceled. The parent directory is watched so editors that replace the
// file are seen too. A roster that fails to load leaves the previous one in
// place.
func (t *Tracker) WatchRoster(ctx context.Context, fs afero.Fs, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create roster watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch roster %s: %w", path, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				if _, err := t.ApplyRoster(fs, path); err != nil {
					t.logger.Warn("Roster reload failed", "path", path, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.logger.Warn("Roster watcher error", "error", err)
			}
		}
	}()
	return nil
}
