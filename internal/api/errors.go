package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/middleware"
	"github.com/clinical-scoring-engine/internal/service"
)

// classify maps a service error to an HTTP status and an API error code.
func classify(err error) (int, string, string) {
	var unknown *domain.UnknownCalculatorError
	var validation *domain.ValidationError

	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, domain.ErrCalculatorNotFound, "Calculator not found"
	case errors.As(err, &validation):
		return http.StatusBadRequest, domain.ErrValidation, "Invalid request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrRecordNotFound, "Record not found"
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusBadRequest, domain.ErrValidation, "Batch too large"
	case errors.Is(err, service.ErrHistoryDisabled), errors.Is(err, history.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, domain.ErrStorageUnavailable, "Calculation history unavailable"
	case errors.Is(err, service.ErrComputationRejected):
		return http.StatusUnprocessableEntity, domain.ErrComputationRejected, "Computation rejected"
	default:
		return http.StatusInternalServerError, domain.ErrInternalServer, "Internal server error"
	}
}

// toAPIError builds the wire error for err. Internal errors keep their
// details out of the response.
func toAPIError(c *gin.Context, err error) (int, *domain.APIError) {
	status, code, message := classify(err)
	details := err.Error()
	if status == http.StatusInternalServerError {
		details = ""
	}
	return status, domain.NewAPIError(code, message, details, c.GetString(middleware.RequestIDKey))
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, apiErr := toAPIError(c, err)
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"request_id": apiErr.RequestID,
			"path":       c.Request.URL.Path,
			"error":      err,
		}).Error("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, apiErr)
}

func (s *Server) respondBadRequest(c *gin.Context, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		code, message, details, c.GetString(middleware.RequestIDKey)))
}
