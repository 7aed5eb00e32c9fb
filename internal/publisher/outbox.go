package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"vsched/internal/sched"
)

// OutboxPublisher "publishes" by dropping files into a local outbox tree,
// one directory per publish day, alongside a JSON sidecar describing the
// submission. A separate delivery process (or a human) drains the outbox.
//
//	<root>/
//	  2026-09-01/
//	    clip.mp4
//	    clip.mp4.meta.json
type OutboxPublisher struct {
	root  string
	idgen sched.IDGenerator
}

// outboxMeta is the sidecar document written next to each dropped file.
type outboxMeta struct {
	RemoteID    string    `json:"remote_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// NewOutboxPublisher creates the outbox root if needed.
func NewOutboxPublisher(root string, idgen sched.IDGenerator) (*OutboxPublisher, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating outbox directory: %w", err)
	}
	return &OutboxPublisher{root: root, idgen: idgen}, nil
}

// Submit copies the file into the outbox day directory for its slot and
// writes the metadata sidecar. The generated remote ID is returned.
func (p *OutboxPublisher) Submit(ctx context.Context, filePath string, meta sched.Metadata, scheduledAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &sched.PublishError{Transient: true, Msg: "submission cancelled", Err: err}
	}

	dayDir := filepath.Join(p.root, scheduledAt.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0755); err != nil {
		return "", &sched.PublishError{Transient: true, Msg: "creating outbox day directory", Err: err}
	}

	destPath := filepath.Join(dayDir, filepath.Base(filePath))
	if err := p.copyFile(filePath, destPath); err != nil {
		return "", &sched.PublishError{Transient: true, Msg: "copying into outbox", Err: err}
	}

	remoteID := p.idgen.New()
	sidecar := outboxMeta{
		RemoteID:    remoteID,
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
		ScheduledAt: scheduledAt.UTC(),
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return "", &sched.PublishError{Msg: "encoding sidecar", Err: err}
	}
	if err := os.WriteFile(destPath+".meta.json", data, 0644); err != nil {
		return "", &sched.PublishError{Transient: true, Msg: "writing sidecar", Err: err}
	}

	return remoteID, nil
}

// ValidateSetup verifies the outbox root exists and is a directory.
func (p *OutboxPublisher) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("outbox root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("outbox root is not a directory: %s", p.root)
	}
	return nil
}

// copyFile copies src to dest via a temp file and rename so a partially
// copied file is never visible in the outbox.
func (p *OutboxPublisher) copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
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

	if _, err := io.Copy(tmpFile, in); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copying data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that OutboxPublisher implements sched.Publisher
var _ sched.Publisher = (*OutboxPublisher)(nil)
