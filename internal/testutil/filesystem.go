package testutil

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"

	"vsched/internal/sched"
)

// MockFilesystemManager is an in-memory sched.FilesystemManager. Files are
// keyed by absolute path; FindMedia lists the direct children of a directory
// in lexicographic name order, matching the real implementation.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string][]byte

	// Removed records paths deleted via Remove, in order.
	Removed []string

	// FailOpen, when set, makes Open fail for the named path.
	FailOpen map[string]error
}

var _ sched.FilesystemManager = (*MockFilesystemManager)(nil)

func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:    make(map[string][]byte),
		FailOpen: make(map[string]error),
	}
}

// AddMedia places a file with the given content under dir.
func (m *MockFilesystemManager) AddMedia(dir, name string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := filepath.Join(dir, name)
	m.files[path] = append([]byte(nil), content...)
	return path
}

func (m *MockFilesystemManager) ResolveDir(rawPath string) (string, error) {
	if rawPath == "" {
		return "", fmt.Errorf("empty path")
	}
	if !filepath.IsAbs(rawPath) {
		return "/" + rawPath, nil
	}
	return rawPath, nil
}

func (m *MockFilesystemManager) FindMedia(dir string) ([]sched.MediaFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []sched.MediaFile
	for path, content := range m.files {
		if filepath.Dir(path) != dir {
			continue
		}
		found = append(found, sched.MediaFile{
			Path: path,
			Name: filepath.Base(path),
			Size: int64(len(content)),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailOpen[path]; ok {
		return nil, err
	}
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MockFilesystemManager) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	delete(m.files, path)
	m.Removed = append(m.Removed, path)
	return nil
}

// Exists reports whether the mock still holds the given path.
func (m *MockFilesystemManager) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}
