package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"vsched/internal/config"
	"vsched/internal/fs"
	"vsched/internal/publisher"
	"vsched/internal/sched"
	"vsched/internal/secrets"
	"vsched/internal/store"
)

// App is the application layer between the CLI and the scheduling engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw project names and paths, and manages resource lifecycle on
// Close.
type App struct {
	cfg       *config.Config
	store     sched.ProjectStore
	publisher sched.Publisher
	fsmgr     sched.FilesystemManager
	engine    *sched.Engine
	clock     sched.Clock
	logger    sched.Logger
	logFile   *os.File
}

// Options carry optional collaborators the CLI provides.
type Options struct {
	// Passphrase is invoked when the publisher's stored credentials need to
	// be unlocked. Nil means no stored credentials are used.
	Passphrase func() (string, error)
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Plan", "Upload").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string, opts Options) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Media.Extensions)

	st, err := store.NewStoreFromConfig(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("creating project store: %w", err)
	}

	creds, err := loadCredentials(cfg.Publisher, opts)
	if err != nil {
		st.Close()
		return nil, err
	}

	pub, err := publisher.NewPublisherFromConfig(context.Background(), cfg.Publisher, sched.UUIDGenerator{}, creds)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating publisher: %w", err)
	}

	runID := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405Z"), operation)
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	engine := sched.NewEngine(st, pub, fsmgr, adapter, sched.RealClock{})

	return &App{
		cfg:       cfg,
		store:     st,
		publisher: pub,
		fsmgr:     fsmgr,
		engine:    engine,
		clock:     sched.RealClock{},
		logger:    adapter,
		logFile:   logFile,
	}, nil
}

// loadCredentials unlocks the stored publisher credentials when the config
// points at a credentials file and the CLI supplied a passphrase source.
func loadCredentials(cfg config.PublisherConfig, opts Options) (*secrets.Credentials, error) {
	if cfg.CredentialsPath == "" || opts.Passphrase == nil {
		return nil, nil
	}
	secretStore := secrets.NewStore(cfg.CredentialsPath)
	if !secretStore.Exists() {
		return nil, nil
	}

	passphrase, err := opts.Passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	creds, err := secretStore.Load(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking publisher credentials: %w", err)
	}
	return creds, nil
}

// ProjectSetup carries the initial preferences for a new project. Zero
// values fall back to the config's scheduling defaults.
type ProjectSetup struct {
	Directory   string
	Timezone    string
	PerDay      int
	DayStart    string
	Title       string
	Description string
	Tags        []string
}

// InitProject creates and stores a new project.
func (a *App) InitProject(name string, setup ProjectSetup) (*sched.Project, error) {
	p := sched.NewProject(name, a.clock)

	defaults := a.cfg.Scheduling
	if defaults.Timezone != "" {
		p.Timezone = defaults.Timezone
	}
	if defaults.PerDay > 0 {
		p.PerDay = defaults.PerDay
	}
	if defaults.DayStart != "" {
		p.DayStart = defaults.DayStart
	}
	if setup.Directory != "" {
		dir, err := a.fsmgr.ResolveDir(setup.Directory)
		if err != nil {
			return nil, fmt.Errorf("resolving upload directory: %w", err)
		}
		p.Directory = dir
	}
	if setup.Timezone != "" {
		p.Timezone = setup.Timezone
	}
	if setup.PerDay > 0 {
		p.PerDay = setup.PerDay
	}
	if setup.DayStart != "" {
		p.DayStart = setup.DayStart
	}
	if setup.Title != "" {
		p.Metadata = &sched.Metadata{
			Title:       setup.Title,
			Description: setup.Description,
			Tags:        setup.Tags,
		}
	}

	// Validate the scheduling preferences up front, before any I/O.
	if _, err := sched.NewAllocator(p.PerDay, p.DayStart, p.Timezone); err != nil {
		return nil, err
	}

	if err := a.store.Create(p); err != nil {
		return nil, err
	}
	a.logger.Info("project created", "project", p.Name)
	return p, nil
}

// ListProjects returns all project names.
func (a *App) ListProjects() ([]string, error) {
	return a.store.List()
}

// DeleteProject removes a project's stored state. Uploaded media is untouched.
func (a *App) DeleteProject(name string) error {
	if err := a.store.Delete(name); err != nil {
		return err
	}
	a.logger.Info("project deleted", "project", name)
	return nil
}

// ProjectLog returns the project's upload records in submission order.
func (a *App) ProjectLog(name string) ([]sched.UploadRecord, error) {
	p, err := a.store.Load(name)
	if err != nil {
		return nil, err
	}
	return p.SortedUploads(), nil
}

// Plan produces a dry-run schedule plan for the project. It performs no
// mutation and never contacts the publisher.
func (a *App) Plan(name string, opts sched.PlanOptions) (*sched.Plan, error) {
	p, err := a.store.Load(name)
	if err != nil {
		return nil, err
	}
	return a.engine.Plan(p, opts)
}

// Upload plans and then executes a live run for the project. The returned
// plan reflects per-item outcomes; the summary totals them.
func (a *App) Upload(ctx context.Context, name string, planOpts sched.PlanOptions, execOpts sched.ExecuteOptions, meta *sched.Metadata) (*sched.Plan, *sched.Summary, error) {
	p, err := a.store.Load(name)
	if err != nil {
		return nil, nil, err
	}

	plan, err := a.engine.Plan(p, planOpts)
	if err != nil {
		return nil, nil, err
	}

	if err := a.publisher.ValidateSetup(ctx); err != nil {
		return plan, nil, fmt.Errorf("publisher not ready: %w", err)
	}

	summary, err := a.engine.Execute(ctx, p, plan, meta, execOpts)
	return plan, summary, err
}

// Cleanup removes local files already recorded as uploaded for the project.
func (a *App) Cleanup(name string, opts sched.CleanupOptions) (*sched.CleanupReport, error) {
	p, err := a.store.Load(name)
	if err != nil {
		return nil, err
	}
	return a.engine.Cleanup(p, opts)
}

// ContinueOnError reports the configured failure policy for live runs.
func (a *App) ContinueOnError() bool {
	return a.cfg.Scheduling.OnError == "continue"
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing project store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
