package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"vsched/internal/sched"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// NormalizeName maps a raw project name to a filesystem-safe identifier:
// runs of unsafe characters become "-", leading/trailing dashes are trimmed.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("project name cannot be empty: %w", sched.ErrInvalidConfig)
	}
	normalized := strings.Trim(unsafeNameChars.ReplaceAllString(name, "-"), "-")
	if normalized == "" {
		return "", fmt.Errorf("project name %q has no letters or numbers: %w", name, sched.ErrInvalidConfig)
	}
	return normalized, nil
}

// FileStore persists each project as one JSON document under dir. Saves go
// through a temp file in the same directory followed by a rename, so a reader
// never observes a partially written project.
type FileStore struct {
	dir string
}

// NewFileStore creates the projects directory if needed and returns a store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating projects directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) (string, error) {
	safe, err := NormalizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, safe+".json"), nil
}

// Create stores a new project. Returns sched.ErrProjectExists if one with
// the same (normalized) name already exists.
func (s *FileStore) Create(project *sched.Project) error {
	path, err := s.path(project.Name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", project.Name, sched.ErrProjectExists)
	}
	return s.write(path, project)
}

// Load reads a project from disk.
func (s *FileStore) Load(name string) (*sched.Project, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, sched.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	var project sched.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("decoding project %s: %w", name, err)
	}
	if project.Uploads == nil {
		project.Uploads = make(map[string]sched.UploadRecord)
	}
	return &project, nil
}

// Save atomically replaces the stored state for the project.
func (s *FileStore) Save(project *sched.Project) error {
	path, err := s.path(project.Name)
	if err != nil {
		return err
	}
	return s.write(path, project)
}

// Delete removes a project file. Missing files are a no-op.
func (s *FileStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting project file: %w", err)
	}
	return nil
}

// List returns the stored project names in lexicographic order.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading projects directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Close() error { return nil }

// write marshals the project and replaces the destination atomically via a
// temp file and rename in the same directory.
func (s *FileStore) write(destPath string, project *sched.Project) error {
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing project: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("replacing project file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileStore implements sched.ProjectStore
var _ sched.ProjectStore = (*FileStore)(nil)
