package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/service"
)

// ListCategoriesParams defines parameters for list_categories
type ListCategoriesParams struct{}

// ListCalculatorsParams defines parameters for list_calculators
type ListCalculatorsParams struct {
	Category string `json:"category,omitempty" jsonschema:"category id such as cardiology; empty lists every calculator"`
}

// GetCalculatorParams defines parameters for get_calculator
type GetCalculatorParams struct {
	CalculatorID string `json:"calculator_id" jsonschema:"calculator id, e.g. qsofa"`
}

// ComputeScoreParams defines parameters for compute_score
type ComputeScoreParams struct {
	CalculatorID string         `json:"calculator_id" jsonschema:"calculator id, e.g. news"`
	Inputs       map[string]any `json:"inputs,omitempty" jsonschema:"field id to value; numbers, strings for select options, booleans for checkboxes"`
	SubjectID    string         `json:"subject_id,omitempty" jsonschema:"opaque patient or encounter reference stored with the record"`
	AuthorID     string         `json:"author_id,omitempty" jsonschema:"opaque clinician reference stored with the record"`
	Persist      *bool          `json:"persist,omitempty" jsonschema:"save the calculation to history"`
}

// CalculationHistoryParams defines parameters for calculation_history
type CalculationHistoryParams struct {
	CalculatorID string `json:"calculator_id,omitempty"`
	SubjectID    string `json:"subject_id,omitempty"`
	AuthorID     string `json:"author_id,omitempty"`
	Limit        int    `json:"limit,omitempty" jsonschema:"page size, at most 500"`
	Offset       int    `json:"offset,omitempty"`
}

// ScoreTrendParams defines parameters for score_trend
type ScoreTrendParams struct {
	CalculatorID string `json:"calculator_id"`
	SubjectID    string `json:"subject_id,omitempty"`
}

// ExportHistoryParams defines parameters for export_history
type ExportHistoryParams struct {
	CalculatorID string `json:"calculator_id,omitempty"`
	SubjectID    string `json:"subject_id,omitempty"`
}

// ExportHistoryResult defines the result of export_history
type ExportHistoryResult struct {
	FilePath string `json:"file_path"`
	Count    int    `json:"count"`
	Message  string `json:"message"`
}

// ImportHistoryParams defines parameters for import_history
type ImportHistoryParams struct {
	FilePath string `json:"file_path" jsonschema:"path of a file written by export_history"`
}

// ImportHistoryResult defines the result of import_history
type ImportHistoryResult struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

// registerTools adds every tool to the SDK server and returns the count.
func (s *Server) registerTools() int {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the clinical specialties of the scoring catalog with their calculator counts.",
	}, s.handleListCategories)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_calculators",
		Description: "List calculators with their input fields, optionally for one category.",
	}, s.handleListCalculators)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_calculator",
		Description: "Describe one calculator: name, description and the schema of every input field.",
	}, s.handleGetCalculator)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "compute_score",
		Description: "Compute a clinical score. Missing inputs fall back to their defaults; the result carries value, unit, interpretation, normal range and severity.",
	}, s.handleComputeScore)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "calculation_history",
		Description: "List saved calculations, newest first.",
	}, s.handleCalculationHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "score_trend",
		Description: "Show how a calculator's score evolved for a subject across saved calculations.",
	}, s.handleScoreTrend)

	count := 6
	if s.opts.History != nil && s.opts.ExportDir != "" {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "export_history",
			Description: "Export saved calculations to a JSON file for backup.",
		}, s.handleExportHistory)

		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "import_history",
			Description: "Import calculations from a JSON export. Records already present are skipped.",
		}, s.handleImportHistory)
		count += 2
	}
	return count
}

func (s *Server) handleListCategories(ctx context.Context, req *mcp.CallToolRequest, params ListCategoriesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_categories").Debug("Tool invoked")
	out := map[string]any{"categories": s.scoring.ListCategories()}
	return jsonResult(out), out, nil
}

func (s *Server) handleListCalculators(ctx context.Context, req *mcp.CallToolRequest, params ListCalculatorsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "list_calculators", "category": params.Category}).Debug("Tool invoked")

	calcs, err := s.scoring.ListCalculators(params.Category)
	if err != nil {
		return s.createErrorResult("Unknown category", err), nil, nil
	}
	out := map[string]any{"calculators": calcs, "count": len(calcs)}
	return jsonResult(out), out, nil
}

func (s *Server) handleGetCalculator(ctx context.Context, req *mcp.CallToolRequest, params GetCalculatorParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "get_calculator", "calculator_id": params.CalculatorID}).Debug("Tool invoked")

	if params.CalculatorID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("calculator_id is required")), nil, nil
	}
	info, err := s.scoring.GetCalculator(params.CalculatorID)
	if err != nil {
		return s.createErrorResult("Calculator not found", err), nil, nil
	}
	return jsonResult(info), info, nil
}

func (s *Server) handleComputeScore(ctx context.Context, req *mcp.CallToolRequest, params ComputeScoreParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "compute_score", "calculator_id": params.CalculatorID}).Debug("Tool invoked")

	if params.CalculatorID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("calculator_id is required")), nil, nil
	}

	persist := s.opts.PersistByDefault
	if params.Persist != nil {
		persist = *params.Persist
	}

	resp, err := s.scoring.Compute(ctx, service.ComputeRequest{
		CalculatorID: params.CalculatorID,
		Inputs:       domain.NewInputs(params.Inputs),
		SubjectID:    params.SubjectID,
		AuthorID:     params.AuthorID,
		Persist:      persist,
	})
	if err != nil {
		return s.createErrorResult("Computation failed", err), nil, nil
	}

	result := jsonResult(resp)
	result.Content = append([]mcp.Content{&mcp.TextContent{Text: summarize(resp)}}, result.Content...)
	return result, resp, nil
}

func (s *Server) handleCalculationHistory(ctx context.Context, req *mcp.CallToolRequest, params CalculationHistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "calculation_history").Debug("Tool invoked")

	page, err := s.scoring.History(ctx, domain.HistoryFilter{
		CalculatorID: params.CalculatorID,
		SubjectID:    params.SubjectID,
		AuthorID:     params.AuthorID,
		Limit:        params.Limit,
		Offset:       params.Offset,
	})
	if err != nil {
		return s.createErrorResult("History unavailable", err), nil, nil
	}
	return jsonResult(page), page, nil
}

func (s *Server) handleScoreTrend(ctx context.Context, req *mcp.CallToolRequest, params ScoreTrendParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "score_trend", "calculator_id": params.CalculatorID}).Debug("Tool invoked")

	if params.CalculatorID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("calculator_id is required")), nil, nil
	}
	trend, err := s.scoring.Trend(ctx, params.CalculatorID, params.SubjectID)
	if err != nil {
		return s.createErrorResult("Trend unavailable", err), nil, nil
	}
	return jsonResult(trend), trend, nil
}

func (s *Server) handleExportHistory(ctx context.Context, req *mcp.CallToolRequest, params ExportHistoryParams) (*mcp.CallToolResult, any, error) {
	if err := os.MkdirAll(s.opts.ExportDir, 0o755); err != nil {
		return s.createErrorResult("Failed to create export directory", err), nil, nil
	}

	filename := fmt.Sprintf("history_export_%s.json", time.Now().UTC().Format("20060102_150405.000"))
	filePath := filepath.Join(s.opts.ExportDir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return s.createErrorResult("Failed to create export file", err), nil, nil
	}
	defer file.Close()

	filter := domain.HistoryFilter{CalculatorID: params.CalculatorID, SubjectID: params.SubjectID}
	if err := s.opts.History.ExportJSON(ctx, file, filter); err != nil {
		s.logger.WithError(err).Error("Failed to export history")
		return s.createErrorResult("Failed to export history", err), nil, nil
	}

	count, _ := s.opts.History.Count(ctx, filter)
	out := ExportHistoryResult{
		FilePath: filePath,
		Count:    count,
		Message:  fmt.Sprintf("Exported %d calculations to %s", count, filePath),
	}
	return jsonResult(out), out, nil
}

func (s *Server) handleImportHistory(ctx context.Context, req *mcp.CallToolRequest, params ImportHistoryParams) (*mcp.CallToolResult, any, error) {
	if params.FilePath == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("file_path is required")), nil, nil
	}

	file, err := os.Open(params.FilePath)
	if err != nil {
		return s.createErrorResult("Failed to open import file", err), nil, nil
	}
	defer file.Close()

	imported, skipped, err := history.ImportJSON(ctx, s.opts.History, file)
	if err != nil {
		s.logger.WithError(err).WithField("file_path", params.FilePath).Error("Failed to import history")
		return s.createErrorResult("Failed to import history", err), nil, nil
	}

	out := ImportHistoryResult{
		Imported: imported,
		Skipped:  skipped,
		Message:  fmt.Sprintf("Imported %d calculations, skipped %d duplicates", imported, skipped),
	}
	return jsonResult(out), out, nil
}

// summarize renders a one-line, human readable result.
func summarize(resp *service.ComputeResponse) string {
	r := resp.Result
	text := fmt.Sprintf("%s: %s", resp.CalculatorID, r.Value.String())
	if r.Unit != "" {
		text += " " + r.Unit
	}
	text += fmt.Sprintf(" (%s) - %s", r.Severity, r.Interpretation)
	if r.NormalRange != "" {
		text += fmt.Sprintf(" [normal: %s]", r.NormalRange)
	}
	if resp.Warning != "" {
		text += "\nwarning: " + resp.Warning
	}
	return text
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// createErrorResult creates a tool error result. Tool errors are reported in
// the result so the model can read them.
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := message
	if err != nil {
		errorText = fmt.Sprintf("%s: %v", message, err)
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, service.ErrHistoryDisabled) {
			s.logger.WithError(err).Warn(message)
		}
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: errorText}},
	}
}
