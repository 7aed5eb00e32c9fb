package fs_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"vsched/internal/fs"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestOSFilesystemManager_FindMedia(t *testing.T) {
	t.Run("filters by extension case-insensitively", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "a.mp4", "a")
		writeFile(t, dir, "b.MOV", "b")
		writeFile(t, dir, "notes.txt", "n")
		writeFile(t, dir, "thumb.jpg", "t")

		m := fs.NewOSFilesystemManager(nil)
		files, err := m.FindMedia(dir)
		if err != nil {
			t.Fatalf("FindMedia() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("got %d files, want 2: %+v", len(files), files)
		}
		if files[0].Name != "a.mp4" || files[1].Name != "b.MOV" {
			t.Errorf("names = %s, %s", files[0].Name, files[1].Name)
		}
	})

	t.Run("does not recurse into subdirectories", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "top.mp4", "t")
		sub := filepath.Join(dir, "nested")
		if err := os.Mkdir(sub, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		writeFile(t, sub, "deep.mp4", "d")

		m := fs.NewOSFilesystemManager(nil)
		files, err := m.FindMedia(dir)
		if err != nil {
			t.Fatalf("FindMedia() error = %v", err)
		}
		if len(files) != 1 || files[0].Name != "top.mp4" {
			t.Errorf("files = %+v, want just top.mp4", files)
		}
	})

	t.Run("orders lexicographically with sizes", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "c.mp4", "ccc")
		writeFile(t, dir, "a.mp4", "a")
		writeFile(t, dir, "b.mp4", "bb")

		m := fs.NewOSFilesystemManager(nil)
		files, err := m.FindMedia(dir)
		if err != nil {
			t.Fatalf("FindMedia() error = %v", err)
		}
		wantNames := []string{"a.mp4", "b.mp4", "c.mp4"}
		wantSizes := []int64{1, 2, 3}
		for i := range wantNames {
			if files[i].Name != wantNames[i] || files[i].Size != wantSizes[i] {
				t.Errorf("files[%d] = %+v, want %s/%d", i, files[i], wantNames[i], wantSizes[i])
			}
		}
	})

	t.Run("honors a custom extension list", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "a.avi", "a")
		writeFile(t, dir, "b.mp4", "b")

		m := fs.NewOSFilesystemManager([]string{".avi"})
		files, err := m.FindMedia(dir)
		if err != nil {
			t.Fatalf("FindMedia() error = %v", err)
		}
		if len(files) != 1 || files[0].Name != "a.avi" {
			t.Errorf("files = %+v, want just a.avi", files)
		}
	})
}

func TestOSFilesystemManager_ResolveDir(t *testing.T) {
	t.Run("resolves an existing directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		m := fs.NewOSFilesystemManager(nil)

		got, err := m.ResolveDir(dir)
		if err != nil {
			t.Fatalf("ResolveDir() error = %v", err)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("ResolveDir() = %q, want absolute", got)
		}
	})

	t.Run("rejects files and missing paths", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		file := writeFile(t, dir, "a.mp4", "a")
		m := fs.NewOSFilesystemManager(nil)

		if _, err := m.ResolveDir(file); err == nil {
			t.Error("expected error for file path")
		}
		if _, err := m.ResolveDir(filepath.Join(dir, "missing")); err == nil {
			t.Error("expected error for missing path")
		}
	})
}

func TestOSFilesystemManager_OpenAndRemove(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "a.mp4", "payload")
	m := fs.NewOSFilesystemManager(nil)

	r, err := m.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}

	if err := m.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after Remove")
	}
}
