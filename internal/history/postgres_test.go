package history

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-engine/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var mockColumns = []string{"id", "calculator_id", "subject_id", "author_id", "inputs", "result", "created_at"}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	store, err := NewPostgresStore(nil)
	assert.Nil(t, store)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	rec := newRecord("rec-1", "qsofa", "patient-1", 2, baseTime)

	mock.ExpectExec("INSERT INTO calculation_records").
		WithArgs("rec-1", "qsofa", "patient-1", "dr-martin", sqlmock.AnyArg(), sqlmock.AnyArg(), "high", baseTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO calculation_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Save(context.Background(), newRecord("rec-1", "qsofa", "", 2, baseTime))
	assert.ErrorIs(t, err, domain.ErrDuplicateRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO calculation_records").
		WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), newRecord("rec-1", "qsofa", "", 2, baseTime))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save record")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(mockColumns).AddRow(
		"rec-1", "glasgow", "patient-1", "dr-martin",
		[]byte(`{"eye":"4","verbal":"5","motor":"6"}`),
		[]byte(`{"value":15,"unit":"/15","interpretation":"Normal","normal_range":"15","severity":"normal"}`),
		baseTime,
	)
	mock.ExpectQuery(`SELECT .* FROM calculation_records WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "glasgow", got.CalculatorID)
	assert.Equal(t, "4", got.Inputs.Text("eye", ""))
	v, ok := got.Result.Value.Number()
	require.True(t, ok)
	assert.Equal(t, 15.0, v)
	assert.Equal(t, domain.SeverityNormal, got.Result.Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM calculation_records").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStore_ListAppliesFilterAndPaging(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(mockColumns).
		AddRow("b", "news", "patient-1", "", []byte(`{}`), []byte(`{"value":7,"unit":"","interpretation":"x","normal_range":"0"}`), baseTime).
		AddRow("a", "news", "patient-1", "", []byte(`{}`), []byte(`{"value":3,"unit":"","interpretation":"x","normal_range":"0"}`), baseTime)

	mock.ExpectQuery(`WHERE calculator_id = \$1 AND subject_id = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("news", "patient-1", domain.MaxHistoryLimit, 0).
		WillReturnRows(rows)

	got, err := store.List(context.Background(), domain.HistoryFilter{
		CalculatorID: "news",
		SubjectID:    "patient-1",
		Limit:        10000,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM calculation_records WHERE author_id = \$1`).
		WithArgs("dr-martin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := store.Count(context.Background(), domain.HistoryFilter{AuthorID: "dr-martin"})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
