package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/clinical-scoring-engine/internal/domain"
)

const interpretPromptName = "interpret_score"

func (s *Server) registerPrompts() int {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        interpretPromptName,
		Description: "Guided workflow to collect the inputs of a calculator, compute it and interpret the result",
		Arguments: []*mcp.PromptArgument{
			{Name: "calculator_id", Description: "Calculator to run, e.g. news or child_pugh", Required: true},
			{Name: "subject_id", Description: "Subject whose previous results should be compared"},
		},
	}, s.handleInterpretPrompt)
	return 1
}

func (s *Server) handleInterpretPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return s.renderInterpretPrompt(ctx, req.Params.Arguments)
}

func (s *Server) renderInterpretPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id := strings.TrimSpace(args["calculator_id"])
	if id == "" {
		return nil, fmt.Errorf("calculator_id is required")
	}
	info, err := s.scoring.GetCalculator(id)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(args["subject_id"])

	var b strings.Builder
	fmt.Fprintf(&b, "Compute the %s score (%s).\n%s\n", info.Name, info.ID, info.Description)
	if info.Disclaimer != "" {
		fmt.Fprintf(&b, "Disclaimer to repeat with the result: %s\n", info.Disclaimer)
	}
	b.WriteString("\n")
	b.WriteString("Collect these inputs from the clinical context. Fields left out take their default.\n")
	for _, f := range info.Fields {
		b.WriteString(describeField(f))
	}

	fmt.Fprintf(&b, "\nThen call compute_score with calculator_id %q", info.ID)
	if subject != "" {
		fmt.Fprintf(&b, " and subject_id %q", subject)
	}
	b.WriteString(". Report the value with its unit, the interpretation and the normal range, and flag the severity.\n")

	if subject != "" && s.scoring.HistoryEnabled() {
		trend, err := s.scoring.Trend(ctx, info.ID, subject)
		switch {
		case err != nil:
			s.logger.WithError(err).WithField("subject_id", subject).Warn("Could not load trend for prompt")
		case len(trend.Series) > 0:
			last := trend.Series[len(trend.Series)-1]
			fmt.Fprintf(&b, "\nPrevious results for %s: %d saved, latest %.4g (%s) on %s, trend %s.",
				subject, len(trend.Series), last.Value, last.Severity,
				last.Timestamp.Format("2006-01-02"), trend.Direction)
			b.WriteString(" Compare the new result with it.\n")
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Interpret %s", info.Name),
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: b.String()},
		}},
	}, nil
}

func describeField(f domain.FieldSchema) string {
	line := fmt.Sprintf("- %s (%s): %s", f.ID, f.Kind, f.Label)
	switch f.Kind {
	case domain.FieldSelect:
		opts := make([]string, len(f.Options))
		for i, o := range f.Options {
			opts[i] = fmt.Sprintf("%s=%s", o.Value, o.Label)
		}
		line += " [" + strings.Join(opts, "; ") + "]"
		if f.Default != "" {
			line += ", default " + f.Default
		}
	case domain.FieldNumber:
		if f.Min != nil && f.Max != nil {
			line += fmt.Sprintf(", usual range %g to %g", *f.Min, *f.Max)
		}
	}
	return line + "\n"
}
