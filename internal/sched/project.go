package sched

import (
	"sort"
	"time"
)

// Metadata is the title/description/tags triple applied uniformly to every
// item in a plan. A project may carry a default; a run may override it.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UploadRecord is created exactly once, when a file is first successfully
// submitted. Identity is the content fingerprint; SourcePath is informational
// only and may point to a file that has since been moved or deleted.
type UploadRecord struct {
	Fingerprint string    `json:"fingerprint"`
	SourcePath  string    `json:"source_path"`
	Size        int64     `json:"size"`
	RemoteID    string    `json:"remote_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Project is the durable per-project state: identity, scheduling preferences,
// the processed set, and the scheduling cursor. It is owned exclusively by its
// ProjectStore entry and mutated only by successful submissions (and by
// explicit settings updates).
type Project struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Scheduling preferences.
	Directory string `json:"directory,omitempty"`
	Timezone  string `json:"timezone"`
	PerDay    int    `json:"per_day"`
	DayStart  string `json:"day_start"` // local time "HH:MM"

	// Default metadata applied to all uploads, if set.
	Metadata *Metadata `json:"metadata,omitempty"`

	// Uploads maps content fingerprint to the upload record.
	// A fingerprint present here is never resubmitted.
	Uploads map[string]UploadRecord `json:"uploads"`

	// Cursor is the last-assigned publish slot, nil when nothing has been
	// scheduled yet. Resuming from it keeps slots evenly spaced across runs.
	Cursor *time.Time `json:"cursor,omitempty"`
}

// NewProject creates a project with default scheduling preferences.
func NewProject(name string, clock Clock) *Project {
	return &Project{
		Name:      name,
		CreatedAt: clock.Now().UTC(),
		Timezone:  "UTC",
		PerDay:    1,
		DayStart:  "09:00",
		Uploads:   make(map[string]UploadRecord),
	}
}

// IsProcessed reports whether content with the given fingerprint has already
// been uploaded for this project.
func (p *Project) IsProcessed(fingerprint string) bool {
	_, ok := p.Uploads[fingerprint]
	return ok
}

// RecordUpload appends an upload record and advances the scheduling cursor to
// the record's slot. It must only be called after the submission succeeded.
func (p *Project) RecordUpload(rec UploadRecord) {
	if p.Uploads == nil {
		p.Uploads = make(map[string]UploadRecord)
	}
	p.Uploads[rec.Fingerprint] = rec
	t := rec.ScheduledAt
	p.Cursor = &t
}

// ReservedSlots returns the set of publish slots already assigned to uploads,
// keyed by RFC3339 UTC. The allocator skips these so no two items in a
// project ever share a slot.
func (p *Project) ReservedSlots() map[string]struct{} {
	reserved := make(map[string]struct{}, len(p.Uploads))
	for _, rec := range p.Uploads {
		reserved[rec.ScheduledAt.UTC().Format(time.RFC3339)] = struct{}{}
	}
	return reserved
}

// SortedUploads returns upload records ordered by submission time, then by
// fingerprint for stability.
func (p *Project) SortedUploads() []UploadRecord {
	recs := make([]UploadRecord, 0, len(p.Uploads))
	for _, rec := range p.Uploads {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].SubmittedAt.Equal(recs[j].SubmittedAt) {
			return recs[i].SubmittedAt.Before(recs[j].SubmittedAt)
		}
		return recs[i].Fingerprint < recs[j].Fingerprint
	})
	return recs
}

// Clone returns a deep copy. Stores hand out clones so callers never alias
// the store's own state.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Uploads = make(map[string]UploadRecord, len(p.Uploads))
	for k, v := range p.Uploads {
		cp.Uploads[k] = v
	}
	if p.Cursor != nil {
		t := *p.Cursor
		cp.Cursor = &t
	}
	if p.Metadata != nil {
		m := *p.Metadata
		m.Tags = append([]string(nil), p.Metadata.Tags...)
		cp.Metadata = &m
	}
	return &cp
}
