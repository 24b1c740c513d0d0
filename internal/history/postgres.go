package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/clinical-scoring-engine/internal/domain"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL record store.
// It expects the calculation_records table to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL record store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// Save appends a calculation record.
func (s *PostgresStore) Save(ctx context.Context, rec *domain.CalculationRecord) error {
	inputs, result, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO calculation_records (
			id, calculator_id, subject_id, author_id, inputs, result, severity, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
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
		return fmt.Errorf("failed to save record: %w", err)
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
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.CalculationRecord, error) {
	query := "SELECT " + recordColumns + " FROM calculation_records WHERE id = $1"

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// List returns matching records, newest first.
func (s *PostgresStore) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.CalculationRecord, error) {
	filter = filter.Normalized()
	where, args := whereClause(filter, postgresPlaceholder)
	query := "SELECT " + recordColumns + " FROM calculation_records" + where +
		" ORDER BY created_at DESC, id DESC" +
		" LIMIT " + postgresPlaceholder(len(args)+1) +
		" OFFSET " + postgresPlaceholder(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
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
func (s *PostgresStore) Count(ctx context.Context, filter domain.HistoryFilter) (int, error) {
	where, args := whereClause(filter, postgresPlaceholder)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calculation_records"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// ExportJSON exports all matching records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer, filter domain.HistoryFilter) error {
	return ExportAll(ctx, s, writer, filter)
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
