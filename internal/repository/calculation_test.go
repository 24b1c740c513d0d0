package repository

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clinical-scoring-engine/internal/database"
	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(ctx, config, "../../migrations", logger))
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func newsRecord(subject string, score float64, sev domain.Severity, at time.Time) *domain.CalculationRecord {
	return &domain.CalculationRecord{
		ID:           uuid.New().String(),
		CalculatorID: "news",
		Inputs:       domain.NewInputs(map[string]any{"respiratory_rate": 22, "oxygen": true, "consciousness": "A"}),
		Result: domain.Result{
			Value:          domain.NumberValue(score),
			Unit:           "points",
			Interpretation: "Risque",
			NormalRange:    "0-4",
			Severity:       sev,
		},
		SubjectID: subject,
		AuthorID:  "nurse-1",
		CreatedAt: at,
	}
}

func TestCalculationRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCalculationRepository(db.Pool, testLogger())
	ctx := context.Background()

	rec := newsRecord("patient-1", 5, domain.SeverityHigh, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.CalculatorID, got.CalculatorID)
	assert.Equal(t, rec.Result, got.Result)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "A", got.Inputs.Text("consciousness", ""))
	assert.True(t, got.Inputs.Flag("oxygen"))

	err = repo.Create(ctx, rec)
	assert.ErrorIs(t, err, domain.ErrDuplicateRecord)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCalculationRepository_ListCountAndValues(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCalculationRepository(db.Pool, testLogger())
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	scores := []float64{2, 4, 7}
	for i, s := range scores {
		require.NoError(t, repo.Create(ctx, newsRecord("patient-1", s, domain.SeverityHigh, base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, repo.Create(ctx, newsRecord("patient-2", 1, domain.SeverityLow, base)))

	list, err := repo.List(ctx, domain.HistoryFilter{SubjectID: "patient-1"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	v, _ := list[0].Result.Value.Number()
	assert.Equal(t, 7.0, v, "newest first")

	count, err := repo.Count(ctx, domain.HistoryFilter{CalculatorID: "news"})
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	points, err := repo.ListValues(ctx, "news", "patient-1", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 4.0, points[0].Value, "most recent points, oldest first")
	assert.Equal(t, 7.0, points[1].Value)
}

func TestRecordStore_Export(t *testing.T) {
	db := setupTestDB(t)
	store := NewRecordStore(db, NewCalculationRepository(db.Pool, testLogger()))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, newsRecord(fmt.Sprintf("p-%d", i), float64(i), domain.SeverityLow, time.Now().UTC())))
	}
	require.NoError(t, store.Ping(ctx))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf, domain.HistoryFilter{}))

	var export history.Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, 3, export.Count)
}
