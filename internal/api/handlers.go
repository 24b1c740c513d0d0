package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/middleware"
	"github.com/clinical-scoring-engine/internal/service"
)

// computeBody is the payload of POST /calculators/:id/compute.
type computeBody struct {
	Inputs    domain.Inputs `json:"inputs"`
	SubjectID string        `json:"subject_id,omitempty"`
	AuthorID  string        `json:"author_id,omitempty"`
	Persist   bool          `json:"persist,omitempty"`
}

// batchBody is the payload of POST /compute/batch.
type batchBody struct {
	Requests []service.ComputeRequest `json:"requests" binding:"required"`
}

// batchResult is one entry of a batch response, in request order.
type batchResult struct {
	Index        int                      `json:"index"`
	CalculatorID string                   `json:"calculator_id"`
	Response     *service.ComputeResponse `json:"response,omitempty"`
	Error        *domain.APIError         `json:"error,omitempty"`
}

// handleHealth reports the service and its collaborators.
func (s *Server) handleHealth(c *gin.Context) {
	components := gin.H{}
	status := "healthy"
	for name, err := range s.scoring.Health(c.Request.Context()) {
		if err != nil {
			components[name] = gin.H{"status": "unhealthy", "error": err.Error()}
			status = "degraded"
			continue
		}
		components[name] = gin.H{"status": "healthy"}
	}

	calculators, _ := s.scoring.ListCalculators("")
	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"timestamp":       time.Now().UTC(),
		"version":         Version,
		"calculators":     len(calculators),
		"history_enabled": s.scoring.HistoryEnabled(),
		"components":      components,
	})
}

func (s *Server) handleListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.scoring.ListCategories()})
}

func (s *Server) handleCategoryCalculators(c *gin.Context) {
	s.listCalculators(c, c.Param("id"))
}

// handleListCalculators lists the catalog, optionally narrowed by ?category=.
func (s *Server) handleListCalculators(c *gin.Context) {
	s.listCalculators(c, c.Query("category"))
}

func (s *Server) listCalculators(c *gin.Context, category string) {
	calcs, err := s.scoring.ListCalculators(category)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, domain.NewAPIError(
				domain.ErrCategoryNotFound, "Category not found", err.Error(), c.GetString(middleware.RequestIDKey)))
			return
		}
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calculators": calcs, "count": len(calcs)})
}

func (s *Server) handleGetCalculator(c *gin.Context) {
	info, err := s.scoring.GetCalculator(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// handleCompute runs one calculator. An empty body computes with no inputs.
func (s *Server) handleCompute(c *gin.Context) {
	var body computeBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		s.respondBadRequest(c, domain.ErrInvalidInput, "Malformed request body", err)
		return
	}

	resp, err := s.scoring.Compute(c.Request.Context(), service.ComputeRequest{
		CalculatorID: c.Param("id"),
		Inputs:       body.Inputs,
		SubjectID:    body.SubjectID,
		AuthorID:     body.AuthorID,
		Persist:      body.Persist,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Persisted {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (s *Server) handleComputeBatch(c *gin.Context) {
	var body batchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondBadRequest(c, domain.ErrInvalidInput, "Malformed request body", err)
		return
	}

	items, err := s.scoring.ComputeBatch(c.Request.Context(), body.Requests)
	if err != nil {
		s.respondError(c, err)
		return
	}

	results := make([]batchResult, len(items))
	failed := 0
	for i, it := range items {
		results[i] = batchResult{
			Index:        i,
			CalculatorID: body.Requests[i].CalculatorID,
			Response:     it.Response,
		}
		if it.Error != nil {
			_, results[i].Error = toAPIError(c, it.Error)
			failed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"succeeded": len(items) - failed,
		"failed":    failed,
	})
}

func (s *Server) handleListCalculations(c *gin.Context) {
	var filter domain.HistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		s.respondBadRequest(c, domain.ErrInvalidInput, "Invalid query parameters", err)
		return
	}

	page, err := s.scoring.History(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetCalculation(c *gin.Context) {
	rec, err := s.scoring.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleTrend serves ?calculator_id=&subject_id=.
func (s *Server) handleTrend(c *gin.Context) {
	calculatorID := c.Query("calculator_id")
	if calculatorID == "" {
		s.respondBadRequest(c, domain.ErrValidation, "calculator_id is required", nil)
		return
	}

	trend, err := s.scoring.Trend(c.Request.Context(), calculatorID, c.Query("subject_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}
