package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"vsched/internal/sched"
	"vsched/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements sched.ProjectStore on SQLite. Each Save runs in a
// single transaction, which gives the atomic-replace guarantee: readers see
// either the pre-save or post-save state, never a partial one.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates it to
// the latest schema. path may be ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the store relies on. Exported for tests that need a raw connection.
func OpenConnection(path string) (*sql.DB, error) {
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys default to OFF in SQLite; uploads cascade on project delete.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) Create(project *sched.Project) error {
	name, err := NormalizeName(project.Name)
	if err != nil {
		return err
	}

	var exists bool
	if err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM projects WHERE name = ?)", name).Scan(&exists); err != nil {
		return fmt.Errorf("checking for existing project: %w", err)
	}
	if exists {
		return fmt.Errorf("%s: %w", name, sched.ErrProjectExists)
	}
	return s.Save(project)
}

func (s *SQLiteStore) Load(name string) (*sched.Project, error) {
	key, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	project := &sched.Project{Uploads: make(map[string]sched.UploadRecord)}
	var metaTitle, metaDescription, metaTags sql.NullString
	var cursor sql.NullTime

	err = s.db.QueryRow(`
		SELECT name, created_at, directory, timezone, per_day, day_start,
		       meta_title, meta_description, meta_tags, cursor
		FROM projects WHERE name = ?`, key,
	).Scan(
		&project.Name, &project.CreatedAt, &project.Directory, &project.Timezone,
		&project.PerDay, &project.DayStart,
		&metaTitle, &metaDescription, &metaTags, &cursor,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", name, sched.ErrProjectNotFound)
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	if metaTitle.Valid {
		meta := &sched.Metadata{Title: metaTitle.String, Description: metaDescription.String}
		if metaTags.String != "" {
			meta.Tags = strings.Split(metaTags.String, ",")
		}
		project.Metadata = meta
	}
	if cursor.Valid {
		t := cursor.Time.UTC()
		project.Cursor = &t
	}

	rows, err := s.db.Query(`
		SELECT fingerprint, source_path, size, remote_id, scheduled_at, submitted_at
		FROM uploads WHERE project_name = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("loading uploads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec sched.UploadRecord
		if err := rows.Scan(&rec.Fingerprint, &rec.SourcePath, &rec.Size,
			&rec.RemoteID, &rec.ScheduledAt, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning upload record: %w", err)
		}
		rec.ScheduledAt = rec.ScheduledAt.UTC()
		rec.SubmittedAt = rec.SubmittedAt.UTC()
		project.Uploads[rec.Fingerprint] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating upload records: %w", err)
	}

	return project, nil
}

func (s *SQLiteStore) Save(project *sched.Project) error {
	name, err := NormalizeName(project.Name)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var metaTitle, metaDescription, metaTags sql.NullString
	if project.Metadata != nil {
		metaTitle = sql.NullString{String: project.Metadata.Title, Valid: true}
		metaDescription = sql.NullString{String: project.Metadata.Description, Valid: true}
		metaTags = sql.NullString{String: strings.Join(project.Metadata.Tags, ","), Valid: true}
	}
	var cursor sql.NullTime
	if project.Cursor != nil {
		cursor = sql.NullTime{Time: project.Cursor.UTC(), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO projects (name, created_at, directory, timezone, per_day, day_start,
		                      meta_title, meta_description, meta_tags, cursor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		    directory = excluded.directory,
		    timezone = excluded.timezone,
		    per_day = excluded.per_day,
		    day_start = excluded.day_start,
		    meta_title = excluded.meta_title,
		    meta_description = excluded.meta_description,
		    meta_tags = excluded.meta_tags,
		    cursor = excluded.cursor`,
		name, project.CreatedAt.UTC(), project.Directory, project.Timezone,
		project.PerDay, project.DayStart, metaTitle, metaDescription, metaTags, cursor,
	)
	if err != nil {
		return fmt.Errorf("upserting project: %w", err)
	}

	// Upload records are immutable once written; only new fingerprints insert.
	for _, rec := range project.Uploads {
		_, err = tx.Exec(`
			INSERT INTO uploads (project_name, fingerprint, source_path, size, remote_id, scheduled_at, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(project_name, fingerprint) DO NOTHING`,
			name, rec.Fingerprint, rec.SourcePath, rec.Size,
			rec.RemoteID, rec.ScheduledAt.UTC(), rec.SubmittedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting upload record %s: %w", rec.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(name string) error {
	key, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM projects WHERE name = ?", key); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning project name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return names, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteStore implements sched.ProjectStore
var _ sched.ProjectStore = (*SQLiteStore)(nil)
