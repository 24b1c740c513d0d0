package repository

import (
	"context"
	"io"

	"github.com/clinical-scoring-engine/internal/database"
	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
)

// RecordStore exposes a CalculationRepository as a history.Store so the
// service layer can persist through the pgx pool.
type RecordStore struct {
	*CalculationRepository
	db *database.DB
}

var _ history.Store = (*RecordStore)(nil)

// NewRecordStore wraps db in a record store. Closing the store closes the pool.
func NewRecordStore(db *database.DB, repo *CalculationRepository) *RecordStore {
	return &RecordStore{CalculationRepository: repo, db: db}
}

// Save appends a record.
func (s *RecordStore) Save(ctx context.Context, rec *domain.CalculationRecord) error {
	return s.Create(ctx, rec)
}

// Get retrieves a record by id.
func (s *RecordStore) Get(ctx context.Context, id string) (*domain.CalculationRecord, error) {
	return s.GetByID(ctx, id)
}

// ExportJSON exports all matching records.
func (s *RecordStore) ExportJSON(ctx context.Context, writer io.Writer, filter domain.HistoryFilter) error {
	return history.ExportAll(ctx, s, writer, filter)
}

// Ping checks the pool.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Close closes the pool.
func (s *RecordStore) Close() error {
	s.db.Close()
	return nil
}
