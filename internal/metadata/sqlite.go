package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"zengallery/internal/gallery"
	"zengallery/internal/metadata/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the MetadataStore interface using SQLite.
//
// The files table carries a primary key on identifier, which is the atomic
// insert-if-absent primitive dedup relies on: concurrent inserts of the same
// identifier are arbitrated by the database, not by application logic.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and migrates) a SQLite metadata database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating metadata database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw configured handle.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wait for writer locks instead of failing immediately under
	// concurrent uploads.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Get returns the record for identifier, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, identifier string) (*gallery.FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT identifier, title, description, mime_type, size, uploaded_at
		 FROM files WHERE identifier = ?`, identifier)

	var rec gallery.FileRecord
	err := row.Scan(&rec.Identifier, &rec.Title, &rec.Description, &rec.MimeType, &rec.Size, &rec.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: file %s", gallery.ErrNotFound, identifier)
		}
		return nil, fmt.Errorf("finding file record: %w", err)
	}
	return &rec, nil
}

// Insert creates the record, or returns ErrConflict when a record with the
// same identifier already exists.
func (s *SQLiteStore) Insert(ctx context.Context, rec gallery.FileRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO files (identifier, title, description, mime_type, size, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (identifier) DO NOTHING`,
		rec.Identifier, rec.Title, rec.Description, rec.MimeType, rec.Size, rec.UploadedAt)
	if err != nil {
		return fmt.Errorf("inserting file record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking insert result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: file %s", gallery.ErrConflict, rec.Identifier)
	}
	return nil
}

// UpdateInfo replaces title and/or description on an existing record.
// Nil pointers leave the corresponding field unchanged.
func (s *SQLiteStore) UpdateInfo(ctx context.Context, identifier string, title, description *string) (*gallery.FileRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT identifier, title, description, mime_type, size, uploaded_at
		 FROM files WHERE identifier = ?`, identifier)

	var rec gallery.FileRecord
	err = row.Scan(&rec.Identifier, &rec.Title, &rec.Description, &rec.MimeType, &rec.Size, &rec.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: file %s", gallery.ErrNotFound, identifier)
		}
		return nil, fmt.Errorf("finding file record: %w", err)
	}

	if title != nil {
		rec.Title = *title
	}
	if description != nil {
		rec.Description = *description
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE files SET title = ?, description = ? WHERE identifier = ?`,
		rec.Title, rec.Description, identifier)
	if err != nil {
		return nil, fmt.Errorf("updating file record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &rec, nil
}

// Delete removes the record, or returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, identifier string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE identifier = ?`, identifier)
	if err != nil {
		return fmt.Errorf("deleting file record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: file %s", gallery.ErrNotFound, identifier)
	}
	return nil
}

// List returns records matching opts: optional mime-type and free-text
// filters, sort by upload time or size, limit/offset pagination.
func (s *SQLiteStore) List(ctx context.Context, opts gallery.ListOptions) ([]gallery.FileRecord, error) {
	opts = opts.Normalize()

	var (
		conditions []string
		args       []any
	)
	if opts.MimeType != "" {
		conditions = append(conditions, "mime_type LIKE ?")
		args = append(args, "%"+opts.MimeType+"%")
	}
	if opts.Search != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT identifier, title, description, mime_type, size, uploaded_at FROM files`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Sort column and direction come from a validated enum, never from raw
	// client input.
	column := "uploaded_at"
	if opts.SortBy == gallery.SortBySize {
		column = "size"
	}
	direction := "DESC"
	if opts.Sort == gallery.SortAsc {
		direction = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", column, direction)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing file records: %w", err)
	}
	defer rows.Close()

	var records []gallery.FileRecord
	for rows.Next() {
		var rec gallery.FileRecord
		if err := rows.Scan(&rec.Identifier, &rec.Title, &rec.Description, &rec.MimeType, &rec.Size, &rec.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning file record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file records: %w", err)
	}

	return records, nil
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteStore implements the MetadataStore interface
var _ gallery.MetadataStore = (*SQLiteStore)(nil)
