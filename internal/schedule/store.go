package schedule

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store holds the named bell schedules, persisted as a YAML mapping of
// schedule name to HH:MM list. The file is rewritten wholesale on every
// mutation; a failed write rolls the in-memory state back.
type Store struct {
	mu        sync.RWMutex
	path      string
	schedules map[string][]string
}

// Load reads the schedule file. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{
		path:      path,
		schedules: make(map[string][]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read schedules: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.schedules); err != nil {
		return nil, fmt.Errorf("failed to parse schedules: %w", err)
	}
	if s.schedules == nil {
		s.schedules = make(map[string][]string)
	}
	return s, nil
}

// Names lists schedule names in stable order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.schedules))
	for name := range s.schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the times saved under name
func (s *Store) Get(name string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	times, ok := s.schedules[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(times))
	copy(out, times)
	return out, true
}

// Create adds or replaces a schedule and persists
func (s *Store) Create(name string, times []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.schedules[name]
	s.schedules[name] = times
	if err := s.persistLocked(); err != nil {
		if existed {
			s.schedules[name] = prev
		} else {
			delete(s.schedules, name)
		}
		return fmt.Errorf("failed to persist schedules: %w", err)
	}
	return nil
}

// Rename moves a schedule to a new name and persists
func (s *Store) Rename(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	times, ok := s.schedules[oldName]
	if !ok {
		return fmt.Errorf("schedule %q not found", oldName)
	}
	displaced, hadNew := s.schedules[newName]
	delete(s.schedules, oldName)
	s.schedules[newName] = times
	if err := s.persistLocked(); err != nil {
		s.schedules[oldName] = times
		if hadNew {
			s.schedules[newName] = displaced
		} else {
			delete(s.schedules, newName)
		}
		return fmt.Errorf("failed to persist schedules: %w", err)
	}
	return nil
}

// Delete removes a schedule and persists; deleting a missing name is a
// no-op
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.schedules[name]
	if !existed {
		return nil
	}
	delete(s.schedules, name)
	if err := s.persistLocked(); err != nil {
		s.schedules[name] = prev
		return fmt.Errorf("failed to persist schedules: %w", err)
	}
	return nil
}

func (s *Store) persistLocked() error {
	data, err := yaml.Marshal(s.schedules)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
