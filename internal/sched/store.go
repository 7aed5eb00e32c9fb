package sched

// ProjectStore provides durable storage for project state.
// Save must replace the stored state atomically with respect to process
// crash: a reader must never observe an upload record without a consistent
// cursor, or a partially written project.
type ProjectStore interface {
	// Create stores a new project. Returns ErrProjectExists if the name is taken.
	Create(project *Project) error

	// Load returns the project with the given name.
	// Returns ErrProjectNotFound if it does not exist.
	Load(name string) (*Project, error)

	// Save replaces the stored state for the project atomically.
	Save(project *Project) error

	// Delete removes a project. Deleting a missing project is a no-op.
	Delete(name string) error

	// List returns all project names in lexicographic order.
	List() ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
