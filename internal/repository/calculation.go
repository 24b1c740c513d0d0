package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
)

// CalculationRepository handles calculation record persistence on a pgx pool
type CalculationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewCalculationRepository creates a new calculation repository
func NewCalculationRepository(db *pgxpool.Pool, logger *logrus.Logger) *CalculationRepository {
	return &CalculationRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new calculation record. Records are never updated.
func (r *CalculationRepository) Create(ctx context.Context, rec *domain.CalculationRecord) error {
	if rec == nil {
		return fmt.Errorf("creating calculation: record is required")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return fmt.Errorf("encoding inputs: %w", err)
	}
	if rec.Inputs == nil {
		inputs = []byte("{}")
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	query := `
		INSERT INTO calculation_records (
			id, calculator_id, subject_id, author_id, inputs, result, severity, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.CalculatorID,
		rec.SubjectID,
		rec.AuthorID,
		inputs,
		result,
		string(rec.Result.Severity),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"record_id":     rec.ID,
			"calculator_id": rec.CalculatorID,
			"error":         err,
		}).Error("Failed to create calculation record")
		return fmt.Errorf("creating calculation record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("calculation record %s: %w", rec.ID, domain.ErrDuplicateRecord)
	}

	r.log.WithFields(logrus.Fields{
		"record_id":     rec.ID,
		"calculator_id": rec.CalculatorID,
		"severity":      rec.Result.Severity,
	}).Debug("Calculation record created")

	return nil
}

const selectRecord = `
		SELECT id, calculator_id, subject_id, author_id, inputs, result, created_at
		FROM calculation_records`

func scanRecord(row pgx.Row) (*domain.CalculationRecord, error) {
	var rec domain.CalculationRecord
	var inputs, result []byte

	if err := row.Scan(
		&rec.ID,
		&rec.CalculatorID,
		&rec.SubjectID,
		&rec.AuthorID,
		&inputs,
		&result,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
		return nil, fmt.Errorf("decoding inputs of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return nil, fmt.Errorf("decoding result of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// GetByID retrieves a calculation record by its ID
func (r *CalculationRepository) GetByID(ctx context.Context, id string) (*domain.CalculationRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, selectRecord+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("calculation record not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"record_id": id,
			"error":     err,
		}).Error("Failed to get calculation record by ID")
		return nil, fmt.Errorf("getting calculation record by ID: %w", err)
	}
	return rec, nil
}

// where renders the filter as a WHERE clause with numbered placeholders.
func where(filter domain.HistoryFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
		}
	}
	add("calculator_id", filter.CalculatorID)
	add("subject_id", filter.SubjectID)
	add("author_id", filter.AuthorID)
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List retrieves records matching filter, newest first
func (r *CalculationRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.CalculationRecord, error) {
	filter = filter.Normalized()
	clause, args := where(filter)
	query := selectRecord + clause +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"calculator_id": filter.CalculatorID,
			"subject_id":    filter.SubjectID,
			"error":         err,
		}).Error("Failed to list calculation records")
		return nil, fmt.Errorf("listing calculation records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.CalculationRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning calculation record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calculation records: %w", err)
	}

	return records, nil
}

// Count returns the number of records matching filter
func (r *CalculationRepository) Count(ctx context.Context, filter domain.HistoryFilter) (int, error) {
	clause, args := where(filter)

	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM calculation_records"+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting calculation records: %w", err)
	}
	return count, nil
}

// ListValues returns the plottable series of one calculator for one subject,
// oldest first, limited to the most recent limit points.
func (r *CalculationRepository) ListValues(ctx context.Context, calculatorID, subjectID string, limit int) ([]history.Point, error) {
	if limit <= 0 || limit > domain.MaxHistoryLimit {
		limit = domain.MaxHistoryLimit
	}

	query := `
		SELECT result, created_at FROM (
			SELECT result, created_at, id
			FROM calculation_records
			WHERE calculator_id = $1 AND subject_id = $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, calculatorID, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing values: %w", err)
	}
	defer rows.Close()

	points := make([]history.Point, 0)
	for rows.Next() {
		var raw []byte
		var at time.Time
		if err := rows.Scan(&raw, &at); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		var res domain.Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("decoding result: %w", err)
		}
		points = append(points, history.Point{
			Timestamp: at.UTC(),
			Value:     history.ValueOf(res),
			Severity:  res.Severity,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating values: %w", err)
	}
	return points, nil
}
