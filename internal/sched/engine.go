package sched

import (
	"context"
	"fmt"
	"time"
)

// ItemState tracks a plan item through submission.
type ItemState string

const (
	ItemPending    ItemState = "pending"
	ItemSubmitting ItemState = "submitting"
	ItemSubmitted  ItemState = "submitted"
	ItemFailed     ItemState = "failed"
)

// PlanItem is one newly discovered file zipped with its assigned publish slot.
type PlanItem struct {
	File        MediaFile
	Fingerprint string
	ScheduledAt time.Time
	State       ItemState
	RemoteID    string
	Err         error
}

// Plan is the ephemeral result of one planning pass. Nothing in it is
// persisted until a submission succeeds.
type Plan struct {
	Project    string
	Items      []PlanItem
	Duplicates []Candidate
}

// Summary reports the outcome of a live run.
type Summary struct {
	Submitted  int
	Duplicates int
	Failed     int
}

// PlanOptions are per-run overrides for planning. Zero values fall back to
// the project's stored preferences.
type PlanOptions struct {
	Directory string
	PerDay    int
	StartDate string // "", "today", or YYYY-MM-DD
}

// ExecuteOptions control a live run.
type ExecuteOptions struct {
	// ContinueOnError keeps submitting remaining items after a publish
	// failure instead of halting the run.
	ContinueOnError bool

	// Throttle is an optional delay between consecutive submissions.
	Throttle time.Duration
}

// CleanupOptions control removal of local files that are already uploaded.
type CleanupOptions struct {
	Directory string
	DryRun    bool
}

// CleanupReport lists the files eligible for (or removed by) a cleanup pass.
type CleanupReport struct {
	Files      []MediaFile
	TotalBytes int64
	Deleted    int
}

// Engine orchestrates discovery, deduplication, slot allocation, and
// submission for a single project. Runs are strictly sequential: the state
// update for item i is durable before item i+1 is submitted, so persisted
// state is always a true prefix of what was actually submitted.
type Engine struct {
	store     ProjectStore
	publisher Publisher
	fsmgr     FilesystemManager
	logger    Logger
	clock     Clock
}

// NewEngine creates an Engine with the provided collaborators.
func NewEngine(store ProjectStore, publisher Publisher, fsmgr FilesystemManager, logger Logger, clock Clock) *Engine {
	return &Engine{
		store:     store,
		publisher: publisher,
		fsmgr:     fsmgr,
		logger:    logger,
		clock:     clock,
	}
}

// Plan discovers files, partitions them against the project's processed set,
// and assigns one slot per new file, seeded from the project's cursor. It
// never mutates the project or contacts the publisher, so planning twice over
// an unchanged directory and state yields identical plans.
func (e *Engine) Plan(project *Project, opts PlanOptions) (*Plan, error) {
	dir := opts.Directory
	if dir == "" {
		dir = project.Directory
	}
	if dir == "" {
		return nil, fmt.Errorf("no upload directory set for project %s: %w", project.Name, ErrInvalidConfig)
	}
	absDir, err := e.fsmgr.ResolveDir(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}

	perDay := opts.PerDay
	if perDay == 0 {
		perDay = project.PerDay
	}
	alloc, err := NewAllocator(perDay, project.DayStart, project.Timezone)
	if err != nil {
		return nil, err
	}
	startDate, err := ParseStartDate(opts.StartDate)
	if err != nil {
		return nil, err
	}

	files, err := e.fsmgr.FindMedia(absDir)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	part, err := NewDeduper(e.fsmgr).Partition(project, files)
	if err != nil {
		return nil, err
	}

	slots, err := alloc.Slots(e.clock.Now(), startDate, len(part.New), project.Cursor, project.ReservedSlots())
	if err != nil {
		return nil, fmt.Errorf("allocating slots: %w", err)
	}

	plan := &Plan{Project: project.Name, Duplicates: part.Duplicates}
	for i, c := range part.New {
		plan.Items = append(plan.Items, PlanItem{
			File:        c.File,
			Fingerprint: c.Fingerprint,
			ScheduledAt: slots[i],
			State:       ItemPending,
		})
	}

	e.logger.Info("plan built",
		"project", project.Name,
		"discovered", len(files),
		"new", len(plan.Items),
		"duplicates", len(plan.Duplicates),
	)
	return plan, nil
}

// Execute drives a live run over the plan, one item at a time. After each
// successful submission the upload record is appended, the cursor advanced,
// and the project saved before the next item is touched; a crash mid-run
// loses at most the in-flight item. Publish failures leave the item's
// fingerprint unrecorded so a later run classifies the file as new again.
//
// The returned summary reflects what actually happened even when an error is
// also returned.
func (e *Engine) Execute(ctx context.Context, project *Project, plan *Plan, meta *Metadata, opts ExecuteOptions) (*Summary, error) {
	resolved, err := e.resolveMetadata(project, meta)
	if err != nil {
		return &Summary{Duplicates: len(plan.Duplicates)}, err
	}

	// Remember the metadata so interrupted runs resume without re-entry.
	project.Metadata = resolved
	if err := e.store.Save(project); err != nil {
		return &Summary{Duplicates: len(plan.Duplicates)}, fmt.Errorf("saving project settings: %w", err)
	}

	summary := &Summary{Duplicates: len(plan.Duplicates)}
	for i := range plan.Items {
		item := &plan.Items[i]

		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}

		item.State = ItemSubmitting
		e.logger.Info("submitting",
			"project", project.Name,
			"file", item.File.Name,
			"scheduled_at", item.ScheduledAt.UTC().Format(time.RFC3339),
		)

		remoteID, err := e.publisher.Submit(ctx, item.File.Path, *resolved, item.ScheduledAt)
		if err != nil {
			item.State = ItemFailed
			item.Err = err
			summary.Failed++
			e.logger.Error("submission failed", "file", item.File.Name, "error", err)
			if opts.ContinueOnError {
				continue
			}
			return summary, fmt.Errorf("submitting %s: %w", item.File.Name, err)
		}

		project.RecordUpload(UploadRecord{
			Fingerprint: item.Fingerprint,
			SourcePath:  item.File.Path,
			Size:        item.File.Size,
			RemoteID:    remoteID,
			ScheduledAt: item.ScheduledAt,
			SubmittedAt: e.clock.Now().UTC(),
		})
		if err := e.store.Save(project); err != nil {
			// The item was submitted but not persisted; abort before
			// anything else diverges further from durable state.
			return summary, fmt.Errorf("persisting state after %s: %w", item.File.Name, err)
		}

		item.State = ItemSubmitted
		item.RemoteID = remoteID
		summary.Submitted++
		e.logger.Info("submitted", "file", item.File.Name, "remote_id", remoteID)

		if opts.Throttle > 0 && i < len(plan.Items)-1 {
			select {
			case <-ctx.Done():
				return summary, fmt.Errorf("run interrupted: %w", ctx.Err())
			case <-time.After(opts.Throttle):
			}
		}
	}

	return summary, nil
}

// Cleanup finds local files whose content is already recorded as uploaded
// and, unless DryRun is set, deletes them. Matching is by content
// fingerprint, so renamed copies of uploaded files are still recognized.
func (e *Engine) Cleanup(project *Project, opts CleanupOptions) (*CleanupReport, error) {
	dir := opts.Directory
	if dir == "" {
		dir = project.Directory
	}
	if dir == "" {
		return nil, fmt.Errorf("no upload directory set for project %s: %w", project.Name, ErrInvalidConfig)
	}
	absDir, err := e.fsmgr.ResolveDir(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}

	files, err := e.fsmgr.FindMedia(absDir)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	report := &CleanupReport{}
	for _, f := range files {
		sum, _, err := FingerprintFile(e.fsmgr, f.Path)
		if err != nil {
			return nil, err
		}
		if !project.IsProcessed(sum) {
			continue
		}
		report.Files = append(report.Files, f)
		report.TotalBytes += f.Size
	}

	if opts.DryRun {
		return report, nil
	}

	for _, f := range report.Files {
		if err := e.fsmgr.Remove(f.Path); err != nil {
			e.logger.Warn("failed to delete file", "path", f.Path, "error", err)
			continue
		}
		report.Deleted++
	}
	e.logger.Info("cleanup complete", "project", project.Name, "deleted", report.Deleted)
	return report, nil
}

// resolveMetadata picks the run override if given, else the project default.
// A title is required; everything else is optional.
func (e *Engine) resolveMetadata(project *Project, override *Metadata) (*Metadata, error) {
	meta := override
	if meta == nil {
		meta = project.Metadata
	}
	if meta == nil || meta.Title == "" {
		return nil, fmt.Errorf("no metadata title set for project %s (pass one per run or store a default): %w", project.Name, ErrInvalidConfig)
	}
	return meta, nil
}
