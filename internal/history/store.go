// Package history persists immutable calculation records and derives score
// trends from them.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/clinical-scoring-engine/internal/domain"
)

// Store defines the interface for calculation record storage. Records are
// append-only: saving an existing id fails with domain.ErrDuplicateRecord.
type Store interface {
	domain.RecordStore

	// ExportJSON writes every record matching filter to writer. Paging fields
	// of the filter are ignored.
	ExportJSON(ctx context.Context, writer io.Writer, filter domain.HistoryFilter) error
}

// ExportVersion is the format version written by ExportJSON.
const ExportVersion = "1.0"

// Export represents the JSON export format.
type Export struct {
	Version    string                      `json:"version"`
	ExportedAt time.Time                   `json:"exported_at"`
	Count      int                         `json:"count"`
	Records    []*domain.CalculationRecord `json:"records"`
}

// Lister is the read side ExportAll needs.
type Lister interface {
	List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.CalculationRecord, error)
}

// ExportAll pages through l and encodes all matching records as an Export.
func ExportAll(ctx context.Context, l Lister, writer io.Writer, filter domain.HistoryFilter) error {
	page := filter
	page.Limit = domain.MaxHistoryLimit
	page.Offset = 0

	var all []*domain.CalculationRecord
	for {
		records, err := l.List(ctx, page)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		all = append(all, records...)
		if len(records) < page.Limit {
			break
		}
		page.Offset += len(records)
	}

	export := &Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON appends the records of an Export read from reader. Records whose
// id already exists are skipped.
func ImportJSON(ctx context.Context, store domain.RecordStore, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		err := store.Save(ctx, rec)
		switch {
		case errors.Is(err, domain.ErrDuplicateRecord):
			skipped++
		case err != nil:
			return imported, skipped, fmt.Errorf("failed to save %s: %w", rec.ID, err)
		default:
			imported++
		}
	}

	return imported, skipped, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a CalculationRecord. Column order must match
// recordColumns.
func scanRecord(s scanner) (*domain.CalculationRecord, error) {
	rec := &domain.CalculationRecord{}
	var inputs, result []byte

	if err := s.Scan(
		&rec.ID, &rec.CalculatorID, &rec.SubjectID, &rec.AuthorID,
		&inputs, &result, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

const recordColumns = `id, calculator_id, subject_id, author_id, inputs, result, created_at`

// encodeRecord validates rec and returns its JSON columns.
func encodeRecord(rec *domain.CalculationRecord) (inputs, result []byte, err error) {
	if rec == nil {
		return nil, nil, fmt.Errorf("record is required")
	}
	if err := rec.Validate(); err != nil {
		return nil, nil, err
	}
	if rec.Inputs == nil {
		inputs = []byte("{}")
	} else if inputs, err = json.Marshal(rec.Inputs); err != nil {
		return nil, nil, fmt.Errorf("failed to encode inputs: %w", err)
	}
	if result, err = json.Marshal(rec.Result); err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return inputs, result, nil
}

// whereClause renders the filter conditions with placeholders produced by ph.
func whereClause(filter domain.HistoryFilter, ph func(n int) string) (string, []interface{}) {
	var clause string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		if clause == "" {
			clause = " WHERE "
		} else {
			clause += " AND "
		}
		clause += column + " = " + ph(len(args))
	}
	add("calculator_id", filter.CalculatorID)
	add("subject_id", filter.SubjectID)
	add("author_id", filter.AuthorID)
	return clause, args
}
