package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	litecfg "github.com/clinical-scoring-engine/internal/config"
	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/registry"
	"github.com/clinical-scoring-engine/internal/service"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newLite(t *testing.T, persist bool) *LiteServer {
	t.Helper()
	cfg := &litecfg.LiteConfig{
		DataDir:        t.TempDir(),
		CacheMaxItems:  100,
		PersistResults: persist,
		LogLevel:       "error",
	}
	server, err := NewLiteServer(cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	return server
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[len(result.Content)-1].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(nil, quietLogger(), Options{})
	assert.Error(t, err)
}

func TestNewServer(t *testing.T) {
	reg, err := registry.NewDefault()
	require.NoError(t, err)
	svc := service.NewScoringService(reg, quietLogger(), service.Options{})

	server, err := NewServer(svc, quietLogger(), Options{})

	require.NoError(t, err)
	assert.NotNil(t, server.MCPServer())
	assert.Equal(t, "clinical-scoring-engine", server.opts.Name)
}

func TestListTools(t *testing.T) {
	server := newLite(t, false)
	ctx := context.Background()

	result, out, err := server.handleListCategories(ctx, nil, ListCategoriesParams{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Len(t, out.(map[string]any)["categories"], 10)

	result, out, err = server.handleListCalculators(ctx, nil, ListCalculatorsParams{Category: "geriatrics"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.NotZero(t, out.(map[string]any)["count"])

	result, _, err = server.handleListCalculators(ctx, nil, ListCalculatorsParams{Category: "astrology"})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, out, err = server.handleGetCalculator(ctx, nil, GetCalculatorParams{CalculatorID: "news"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "news", out.(domain.CalculatorInfo).ID)

	result, _, err = server.handleGetCalculator(ctx, nil, GetCalculatorParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "calculator_id is required")
}

func TestComputeScoreTool(t *testing.T) {
	server := newLite(t, false)
	ctx := context.Background()

	result, out, err := server.handleComputeScore(ctx, nil, ComputeScoreParams{
		CalculatorID: "bmi",
		Inputs:       map[string]any{"weight": 70.0, "height": 175.0},
	})

	require.NoError(t, err)
	require.False(t, result.IsError)
	resp := out.(*service.ComputeResponse)
	assert.Equal(t, "22.9", resp.Result.Value.String())
	assert.False(t, resp.Persisted)

	summary := result.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, summary, "bmi: 22.9 kg/m²")

	var decoded service.ComputeResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &decoded))
	assert.Equal(t, resp.Result, decoded.Result)

	result, _, err = server.handleComputeScore(ctx, nil, ComputeScoreParams{CalculatorID: "nope"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), `unknown calculator "nope"`)
}

func TestComputeScorePersistence(t *testing.T) {
	server := newLite(t, true)
	ctx := context.Background()

	for _, flags := range []map[string]any{
		{"sbp_low": true},
		{"sbp_low": true, "rr_high": true, "altered_mental": true},
	} {
		_, out, err := server.handleComputeScore(ctx, nil, ComputeScoreParams{
			CalculatorID: "qsofa",
			Inputs:       flags,
			SubjectID:    "bed-4",
		})
		require.NoError(t, err)
		assert.True(t, out.(*service.ComputeResponse).Persisted)
	}

	no := false
	_, out, err := server.handleComputeScore(ctx, nil, ComputeScoreParams{CalculatorID: "qsofa", Persist: &no})
	require.NoError(t, err)
	assert.False(t, out.(*service.ComputeResponse).Persisted)

	result, out, err := server.handleCalculationHistory(ctx, nil, CalculationHistoryParams{SubjectID: "bed-4"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, 2, out.(*service.HistoryPage).Total)

	result, out, err = server.handleScoreTrend(ctx, nil, ScoreTrendParams{CalculatorID: "qsofa", SubjectID: "bed-4"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Len(t, out.(*history.Trend).Series, 2)

	result, _, err = server.handleScoreTrend(ctx, nil, ScoreTrendParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestExportImportHistory(t *testing.T) {
	source := newLite(t, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := source.handleComputeScore(ctx, nil, ComputeScoreParams{
			CalculatorID: "qsofa",
			Inputs:       map[string]any{"rr_high": i%2 == 0},
		})
		require.NoError(t, err)
	}

	result, out, err := source.handleExportHistory(ctx, nil, ExportHistoryParams{})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))
	export := out.(ExportHistoryResult)
	assert.Equal(t, 3, export.Count)
	_, err = os.Stat(export.FilePath)
	require.NoError(t, err)

	target := newLite(t, false)
	result, out, err = target.handleImportHistory(ctx, nil, ImportHistoryParams{FilePath: export.FilePath})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))
	assert.Equal(t, 3, out.(ImportHistoryResult).Imported)

	_, out, err = target.handleImportHistory(ctx, nil, ImportHistoryParams{FilePath: export.FilePath})
	require.NoError(t, err)
	assert.Equal(t, 3, out.(ImportHistoryResult).Skipped)

	result, _, err = target.handleImportHistory(ctx, nil, ImportHistoryParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHistoryToolsWithoutStore(t *testing.T) {
	reg, err := registry.NewDefault()
	require.NoError(t, err)
	server, err := NewServer(service.NewScoringService(reg, quietLogger(), service.Options{}), quietLogger(), Options{})
	require.NoError(t, err)

	result, _, err := server.handleCalculationHistory(context.Background(), nil, CalculationHistoryParams{})

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), service.ErrHistoryDisabled.Error())
}

func TestReadResources(t *testing.T) {
	server := newLite(t, false)

	result, err := server.readResource(categoriesURI)
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	var cats []domain.CategoryInfo
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &cats))
	assert.Len(t, cats, 10)

	result, err = server.readResource(calculatorURIPrefix + "bmi")
	require.NoError(t, err)
	assert.Equal(t, "scoring://calculators/bmi", result.Contents[0].URI)
	assert.Contains(t, result.Contents[0].Text, `"weight"`)
	assert.NotContains(t, result.Contents[0].Text, `"disclaimer"`)

	result, err = server.readResource(calculatorURIPrefix + "allred")
	require.NoError(t, err)
	var info domain.CalculatorInfo
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &info))
	assert.Contains(t, info.Disclaimer, "anatomo-pathologiste")

	_, err = server.readResource(calculatorURIPrefix + "nope")
	assert.Error(t, err)

	_, err = server.readResource("scoring://elsewhere")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInterpretPrompt(t *testing.T) {
	server := newLite(t, true)
	ctx := context.Background()

	for _, flags := range []map[string]any{{"sbp_low": true}, {"sbp_low": true, "rr_high": true}} {
		_, _, err := server.handleComputeScore(ctx, nil, ComputeScoreParams{
			CalculatorID: "qsofa",
			Inputs:       flags,
			SubjectID:    "bed-4",
		})
		require.NoError(t, err)
	}

	result, err := server.renderInterpretPrompt(ctx, map[string]string{"calculator_id": "qsofa", "subject_id": "bed-4"})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "- sbp_low (boolean)")
	assert.Contains(t, text, `subject_id "bed-4"`)
	assert.Contains(t, text, "2 saved")
	assert.Contains(t, text, "trend up")

	assert.NotContains(t, text, "Disclaimer")

	result, err = server.renderInterpretPrompt(ctx, map[string]string{"calculator_id": "ki67"})
	require.NoError(t, err)
	text = result.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Disclaimer to repeat with the result: Aide au calcul.")

	_, err = server.renderInterpretPrompt(ctx, map[string]string{})
	assert.Error(t, err)

	_, err = server.renderInterpretPrompt(ctx, map[string]string{"calculator_id": "nope"})
	assert.Error(t, err)
}
