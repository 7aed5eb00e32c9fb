package sched

import (
	"context"
	"time"
)

// Publisher is the remote publishing service. Submissions are the only
// operations expected to block on network I/O; the engine invokes them one at
// a time, synchronously with state persistence.
type Publisher interface {
	// Submit uploads the file with the given metadata, scheduled to publish at
	// scheduledAt, and returns the remote identifier assigned by the service.
	// Failures are reported as *PublishError where the transient/permanent
	// distinction is known.
	Submit(ctx context.Context, filePath string, meta Metadata, scheduledAt time.Time) (string, error)

	// ValidateSetup verifies the publisher is reachable and properly configured.
	ValidateSetup(ctx context.Context) error
}
