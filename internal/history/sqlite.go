package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/clinical-scoring-engine/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite record store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY under
	// concurrent Save calls.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS calculation_records (
		id TEXT PRIMARY KEY,
		calculator_id TEXT NOT NULL,
		subject_id TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL DEFAULT '',
		inputs TEXT NOT NULL,
		result TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_calculator ON calculation_records(calculator_id);
	CREATE INDEX IF NOT EXISTS idx_records_subject ON calculation_records(subject_id, calculator_id);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON calculation_records(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

func sqlitePlaceholder(int) string { return "?" }

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Save appends a calculation record.
func (s *SQLiteStore) Save(ctx context.Context, rec *domain.CalculationRecord) error {
	inputs, result, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calculation_records (
			id, calculator_id, subject_id, author_id, inputs, result, severity, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.CalculatorID,
		rec.SubjectID,
		rec.AuthorID,
		string(inputs),
		string(result),
		string(rec.Result.Severity),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrDuplicateRecord)
	}
	return nil
}

// Get retrieves a record by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.CalculationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM calculation_records WHERE id = ?", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns matching records, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.CalculationRecord, error) {
	filter = filter.Normalized()
	where, args := whereClause(filter, sqlitePlaceholder)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM calculation_records"+where+
			" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.CalculationRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the number of records matching filter.
func (s *SQLiteStore) Count(ctx context.Context, filter domain.HistoryFilter) (int, error) {
	where, args := whereClause(filter, sqlitePlaceholder)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calculation_records"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return count, nil
}

// ExportJSON exports all matching records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer, filter domain.HistoryFilter) error {
	return ExportAll(ctx, s, writer, filter)
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
