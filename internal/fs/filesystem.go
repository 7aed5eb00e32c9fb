package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vsched/internal/sched"
)

// DefaultExtensions are the media file extensions recognized when the config
// does not override them.
var DefaultExtensions = []string{".mp4", ".mov", ".mkv", ".webm"}

// OSFilesystemManager is the real filesystem implementation of
// sched.FilesystemManager. It performs actual filesystem operations using
// the os package.
type OSFilesystemManager struct {
	extensions map[string]struct{}
}

// NewOSFilesystemManager creates a filesystem manager recognizing the given
// extensions (lowercase, with leading dot). An empty list falls back to
// DefaultExtensions.
func NewOSFilesystemManager(extensions []string) *OSFilesystemManager {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return &OSFilesystemManager{extensions: set}
}

// ResolveDir validates that rawPath is an existing directory and returns its
// absolute path.
func (m *OSFilesystemManager) ResolveDir(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", absPath)
	}
	return absPath, nil
}

// FindMedia lists regular files directly under dir with recognized
// extensions, ordered lexicographically by name.
func (m *OSFilesystemManager) FindMedia(dir string) ([]sched.MediaFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var files []sched.MediaFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, ok := m.extensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		files = append(files, sched.MediaFile{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
			Size: info.Size(),
		})
	}

	// ReadDir already sorts by filename; keep the ordering contract explicit.
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove deletes a file.
func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

// Compile-time check that OSFilesystemManager implements sched.FilesystemManager
var _ sched.FilesystemManager = (*OSFilesystemManager)(nil)
