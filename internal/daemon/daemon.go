// Package daemon runs unattended upload passes on a cron schedule.
package daemon

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"vsched/internal/sched"
)

// Runner executes one live upload pass for a single project.
type Runner interface {
	Upload(ctx context.Context, project string) error
}

// Daemon triggers the runner for each configured project whenever the cron
// schedule fires. Projects run sequentially inside a tick; a failure in one
// project is logged and does not stop the others.
type Daemon struct {
	spec     string
	projects []string
	runner   Runner
	logger   sched.Logger
	c        *cron.Cron
}

// New validates the cron spec and project list and returns a Daemon ready to
// Run. The spec uses the standard five-field cron format, plus descriptors
// like @daily.
func New(spec string, projects []string, runner Runner, logger sched.Logger) (*Daemon, error) {
	if spec == "" {
		return nil, fmt.Errorf("daemon cron spec is empty: %w", sched.ErrInvalidConfig)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("daemon has no projects configured: %w", sched.ErrInvalidConfig)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing cron spec %q: %w", spec, sched.ErrInvalidConfig)
	}
	if logger == nil {
		logger = sched.NewNopLogger()
	}
	return &Daemon{
		spec:     spec,
		projects: projects,
		runner:   runner,
		logger:   logger,
	}, nil
}

// Run starts the cron loop and blocks until ctx is cancelled. A tick that is
// still running when ctx is cancelled finishes its current project first.
func (d *Daemon) Run(ctx context.Context) error {
	d.c = cron.New()
	_, err := d.c.AddFunc(d.spec, func() {
		d.tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling upload job: %w", err)
	}

	d.logger.Info("daemon started", "spec", d.spec, "projects", len(d.projects))
	d.c.Start()
	<-ctx.Done()

	stopCtx := d.c.Stop()
	<-stopCtx.Done()
	d.logger.Info("daemon stopped")
	return nil
}

func (d *Daemon) tick(ctx context.Context) {
	for _, name := range d.projects {
		if ctx.Err() != nil {
			return
		}
		d.logger.Info("scheduled upload starting", "project", name)
		if err := d.runner.Upload(ctx, name); err != nil {
			d.logger.Error("scheduled upload failed", "project", name, "error", err)
			continue
		}
		d.logger.Info("scheduled upload finished", "project", name)
	}
}
