package store

import (
	"fmt"
	"sort"
	"sync"

	"vsched/internal/sched"
)

// MemoryStore is an in-memory ProjectStore for tests and throwaway runs.
// It hands out clones so callers never alias its internal state.
type MemoryStore struct {
	mu       sync.Mutex
	projects map[string]*sched.Project

	// FailSaves, when positive, makes that many subsequent Save calls fail.
	// Used by tests to exercise persistence-failure handling.
	FailSaves int

	// Saves counts successful Save calls.
	Saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*sched.Project)}
}

func (s *MemoryStore) Create(project *sched.Project) error {
	name, err := NormalizeName(project.Name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[name]; ok {
		return fmt.Errorf("%s: %w", name, sched.ErrProjectExists)
	}
	s.projects[name] = project.Clone()
	return nil
}

func (s *MemoryStore) Load(name string) (*sched.Project, error) {
	key, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, sched.ErrProjectNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Save(project *sched.Project) error {
	name, err := NormalizeName(project.Name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves > 0 {
		s.FailSaves--
		return fmt.Errorf("save failed (injected)")
	}
	s.projects[name] = project.Clone()
	s.Saves++
	return nil
}

func (s *MemoryStore) Delete(name string) error {
	key, err := NormalizeName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, key)
	return nil
}

func (s *MemoryStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.projects))
	for name := range s.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }

// Compile-time check that MemoryStore implements sched.ProjectStore
var _ sched.ProjectStore = (*MemoryStore)(nil)
