package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vsched/internal/sched"
)

// Submission records one Submit call against a MemoryPublisher.
type Submission struct {
	FilePath    string
	Meta        sched.Metadata
	ScheduledAt time.Time
	RemoteID    string
}

// MemoryPublisher is an in-memory Publisher for tests. Failures can be
// injected per file path.
type MemoryPublisher struct {
	mu          sync.Mutex
	counter     int
	Submissions []Submission
	failures    map[string]error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{failures: make(map[string]error)}
}

// FailWith makes Submit return err for the given file path.
func (p *MemoryPublisher) FailWith(filePath string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[filePath] = err
}

func (p *MemoryPublisher) Submit(_ context.Context, filePath string, meta sched.Metadata, scheduledAt time.Time) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.failures[filePath]; ok {
		return "", err
	}

	p.counter++
	remoteID := fmt.Sprintf("remote-%d", p.counter)
	p.Submissions = append(p.Submissions, Submission{
		FilePath:    filePath,
		Meta:        meta,
		ScheduledAt: scheduledAt,
		RemoteID:    remoteID,
	})
	return remoteID, nil
}

func (p *MemoryPublisher) ValidateSetup(context.Context) error { return nil }

// Compile-time check that MemoryPublisher implements sched.Publisher
var _ sched.Publisher = (*MemoryPublisher)(nil)
