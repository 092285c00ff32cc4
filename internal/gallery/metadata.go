package gallery

import "context"

// MetadataStore maps identifiers to file records.
//
// Insert is the atomic insert-if-absent primitive that arbitrates dedup
// races: the store's uniqueness constraint on identifier decides the winner,
// not application-level check-then-act logic.
type MetadataStore interface {
	// Get returns the record for identifier, or ErrNotFound.
	Get(ctx context.Context, identifier string) (*FileRecord, error)

	// Insert creates the record, or returns ErrConflict if a record with
	// the same identifier already exists.
	Insert(ctx context.Context, rec FileRecord) error

	// UpdateInfo replaces title and/or description on an existing record.
	// Nil pointers leave the corresponding field unchanged.
	UpdateInfo(ctx context.Context, identifier string, title, description *string) (*FileRecord, error)

	// Delete removes the record, or returns ErrNotFound.
	Delete(ctx context.Context, identifier string) error

	// List returns records matching opts, see ListOptions.
	List(ctx context.Context, opts ListOptions) ([]FileRecord, error)

	// Close releases the underlying connection.
	Close() error
}
