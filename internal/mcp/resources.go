package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/clinical-scoring-engine/internal/domain"
)

// Resource URIs of the calculator catalog.
const (
	categoriesURI         = "scoring://categories"
	calculatorURIPrefix   = "scoring://calculators/"
	calculatorURITemplate = calculatorURIPrefix + "{calculator_id}"
	resourceMIMEType      = "application/json"
)

// registerResources exposes the catalog as read-only resources so clients can
// fetch calculator schemas without a tool call.
func (s *Server) registerResources() int {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         categoriesURI,
		Name:        "categories",
		Description: "Calculator categories in display order with their calculator counts",
		MIMEType:    resourceMIMEType,
	}, s.handleReadResource)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: calculatorURITemplate,
		Name:        "calculator",
		Description: "Field schema of one calculator: ids, kinds, options and reference defaults",
		MIMEType:    resourceMIMEType,
	}, s.handleReadResource)

	return 2
}

func (s *Server) handleReadResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return s.readResource(req.Params.URI)
}

func (s *Server) readResource(uri string) (*mcp.ReadResourceResult, error) {
	var payload any
	switch {
	case uri == categoriesURI:
		payload = s.scoring.ListCategories()
	case strings.HasPrefix(uri, calculatorURIPrefix):
		id := strings.TrimPrefix(uri, calculatorURIPrefix)
		info, err := s.scoring.GetCalculator(id)
		if err != nil {
			return nil, err
		}
		payload = info
	default:
		return nil, fmt.Errorf("resource %q: %w", uri, domain.ErrNotFound)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding resource %q: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: resourceMIMEType,
			Text:     string(data),
		}},
	}, nil
}
