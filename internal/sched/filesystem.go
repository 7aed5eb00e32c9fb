package sched

import "io"

// MediaFile describes a discovered candidate file.
type MediaFile struct {
	Path string // absolute path
	Name string // base name, used for deterministic ordering
	Size int64
}

// FilesystemManager abstracts file discovery and access so the engine can be
// tested without touching the real filesystem.
type FilesystemManager interface {
	// ResolveDir validates a raw path and returns it as an absolute directory path.
	ResolveDir(rawPath string) (string, error)

	// FindMedia discovers media files directly under dir (non-recursive),
	// filtered to recognized extensions and ordered lexicographically by name.
	// The order must be stable across invocations for an unchanged listing.
	FindMedia(dir string) ([]MediaFile, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Remove deletes a file.
	Remove(path string) error
}
