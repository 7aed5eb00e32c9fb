package publisher

import (
	"context"
	"fmt"

	"vsched/internal/config"
	"vsched/internal/sched"
	"vsched/internal/secrets"
)

// NewPublisherFromConfig creates a Publisher implementation based on the
// publisher config type. creds is optional and only consulted by backends
// that authenticate (currently s3).
func NewPublisherFromConfig(ctx context.Context, cfg config.PublisherConfig, idgen sched.IDGenerator, creds *secrets.Credentials) (sched.Publisher, error) {
	switch cfg.Type {
	case "outbox", "":
		if cfg.OutboxDir == "" {
			return nil, fmt.Errorf("outbox publisher requires outbox_dir to be set")
		}
		return NewOutboxPublisher(cfg.OutboxDir, idgen)
	case "s3":
		return NewS3Publisher(ctx, cfg, creds)
	case "memory":
		return NewMemoryPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown publisher type: %s", cfg.Type)
	}
}
