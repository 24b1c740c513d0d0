package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/metrics"
)

const tracerName = "github.com/clinical-scoring-engine/internal/service"

var (
	// ErrHistoryDisabled is returned by history operations when no record store is configured.
	ErrHistoryDisabled = errors.New("calculation history is disabled")
	// ErrComputationRejected is returned when a calculator produces a result that
	// violates the result invariants.
	ErrComputationRejected = errors.New("computation rejected")
	// ErrBatchTooLarge is returned when a batch exceeds the configured limit.
	ErrBatchTooLarge = errors.New("batch too large")
)

// ValueLister reads a plottable series directly from storage.
type ValueLister interface {
	ListValues(ctx context.Context, calculatorID, subjectID string, limit int) ([]history.Point, error)
}

// Options configures the optional collaborators of a ScoringService.
type Options struct {
	Cache            domain.ResultCache
	CacheTTL         time.Duration
	Store            domain.RecordStore
	Values           ValueLister
	Metrics          *metrics.Metrics
	BatchLimit       int
	BatchConcurrency int
	StoreTimeout     time.Duration
}

// ComputeRequest asks for one calculator run.
type ComputeRequest struct {
	CalculatorID string        `json:"calculator_id"`
	Inputs       domain.Inputs `json:"inputs"`
	SubjectID    string        `json:"subject_id,omitempty"`
	AuthorID     string        `json:"author_id,omitempty"`
	Persist      bool          `json:"persist,omitempty"`
}

// ComputeResponse carries the result of one run. When persistence was
// requested but failed, Persisted is false and Warning says why; the result is
// still returned.
type ComputeResponse struct {
	CalculatorID string        `json:"calculator_id"`
	Result       domain.Result `json:"result"`
	RecordID     string        `json:"record_id,omitempty"`
	Persisted    bool          `json:"persisted"`
	Cached       bool          `json:"cached"`
	Duration     time.Duration `json:"duration_ns"`
	Warning      string        `json:"warning,omitempty"`
}

// BatchItem is the outcome of one request of a batch.
type BatchItem struct {
	Response *ComputeResponse `json:"response,omitempty"`
	Error    error            `json:"-"`
}

// HistoryPage is one page of calculation records.
type HistoryPage struct {
	Records []*domain.CalculationRecord `json:"records"`
	Total   int                         `json:"total"`
	Limit   int                         `json:"limit"`
	Offset  int                         `json:"offset"`
}

// ScoringService exposes the calculator catalog to transports and adds
// caching, persistence, metrics and tracing around the pure engine.
type ScoringService struct {
	catalog domain.CalculatorCatalog
	logger  *logrus.Logger
	opts    Options
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

// NewScoringService creates a new scoring service
func NewScoringService(catalog domain.CalculatorCatalog, logger *logrus.Logger, opts Options) *ScoringService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 50
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}

	return &ScoringService{
		catalog: catalog,
		logger:  logger,
		opts:    opts,
		tracer:  otel.Tracer(tracerName),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// HistoryEnabled reports whether a record store is configured.
func (s *ScoringService) HistoryEnabled() bool {
	return s.opts.Store != nil
}

// ListCategories returns the category summaries in display order.
func (s *ScoringService) ListCategories() []domain.CategoryInfo {
	cats := s.catalog.Categories()
	out := make([]domain.CategoryInfo, len(cats))
	for i, c := range cats {
		out[i] = c.Summary()
	}
	return out
}

// ListCalculators describes the calculators of one category, or of the whole
// catalog when categoryID is empty.
func (s *ScoringService) ListCalculators(categoryID string) ([]domain.CalculatorInfo, error) {
	var calcs []domain.Calculator
	if categoryID == "" {
		calcs = s.catalog.Calculators()
	} else {
		if !s.hasCategory(categoryID) {
			return nil, fmt.Errorf("category %q: %w", categoryID, domain.ErrNotFound)
		}
		calcs = s.catalog.CalculatorsByCategory(categoryID)
	}

	out := make([]domain.CalculatorInfo, len(calcs))
	for i, c := range calcs {
		out[i] = domain.Describe(c)
	}
	return out, nil
}

func (s *ScoringService) hasCategory(id string) bool {
	for _, c := range s.catalog.Categories() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// GetCalculator describes one calculator.
func (s *ScoringService) GetCalculator(id string) (domain.CalculatorInfo, error) {
	c, ok := s.catalog.CalculatorByID(id)
	if !ok {
		return domain.CalculatorInfo{}, &domain.UnknownCalculatorError{ID: id}
	}
	return domain.Describe(c), nil
}

// Compute runs one calculator.
func (s *ScoringService) Compute(ctx context.Context, req ComputeRequest) (*ComputeResponse, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ScoringService.Compute", trace.WithAttributes(
		attribute.String("calculator.id", req.CalculatorID),
		attribute.Bool("calculation.persist", req.Persist),
	))
	defer span.End()

	if _, ok := s.catalog.CalculatorByID(req.CalculatorID); !ok {
		err := &domain.UnknownCalculatorError{ID: req.CalculatorID}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := &ComputeResponse{CalculatorID: req.CalculatorID}

	if result, ok := s.cacheGet(ctx, req); ok {
		resp.Result = result
		resp.Cached = true
	} else {
		result, err := s.catalog.Compute(req.CalculatorID, req.Inputs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if err := result.Validate(); err != nil {
			s.logger.WithFields(logrus.Fields{
				"calculator_id": req.CalculatorID,
				"error":         err,
			}).Error("Calculator produced an invalid result")
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid result")
			return nil, fmt.Errorf("%s: %w: %v", req.CalculatorID, ErrComputationRejected, err)
		}
		resp.Result = result
		s.cacheSet(ctx, req, result)
	}

	span.SetAttributes(
		attribute.String("result.severity", string(resp.Result.Severity)),
		attribute.Bool("result.cached", resp.Cached),
		attribute.Bool("result.invalid", resp.Result.IsInvalid()),
	)

	if req.Persist {
		s.persist(ctx, req, resp)
	}

	resp.Duration = time.Since(start)
	s.opts.Metrics.ObserveCompute(req.CalculatorID, string(resp.Result.Severity), resp.Duration)

	s.logger.WithFields(logrus.Fields{
		"calculator_id": req.CalculatorID,
		"severity":      resp.Result.Severity,
		"cached":        resp.Cached,
		"record_id":     resp.RecordID,
		"duration":      resp.Duration,
	}).Debug("Calculation completed")

	return resp, nil
}

func (s *ScoringService) cacheGet(ctx context.Context, req ComputeRequest) (domain.Result, bool) {
	if s.opts.Cache == nil {
		return domain.Result{}, false
	}
	result, ok := s.opts.Cache.Get(ctx, req.CalculatorID, req.Inputs)
	if ok {
		s.opts.Metrics.CacheHit()
	} else {
		s.opts.Metrics.CacheMiss()
	}
	return result, ok
}

func (s *ScoringService) cacheSet(ctx context.Context, req ComputeRequest, result domain.Result) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Set(ctx, req.CalculatorID, req.Inputs, result, s.opts.CacheTTL); err != nil {
		s.logger.WithError(err).WithField("calculator_id", req.CalculatorID).Warn("Failed to cache result")
	}
}

func (s *ScoringService) persist(ctx context.Context, req ComputeRequest, resp *ComputeResponse) {
	if s.opts.Store == nil {
		resp.Warning = ErrHistoryDisabled.Error()
		return
	}

	ctx, span := s.tracer.Start(ctx, "RecordStore.Save")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	rec := &domain.CalculationRecord{
		ID:           s.newID(),
		CalculatorID: req.CalculatorID,
		Inputs:       req.Inputs,
		Result:       resp.Result,
		SubjectID:    req.SubjectID,
		AuthorID:     req.AuthorID,
		CreatedAt:    s.now(),
	}
	span.SetAttributes(attribute.String("record.id", rec.ID))

	if err := s.opts.Store.Save(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.logger.WithFields(logrus.Fields{
			"calculator_id": req.CalculatorID,
			"record_id":     rec.ID,
			"error":         err,
		}).Error("Failed to persist calculation")
		resp.Warning = fmt.Sprintf("calculation not saved: %v", err)
		return
	}

	resp.RecordID = rec.ID
	resp.Persisted = true
}

// ComputeBatch runs requests concurrently. Items are returned in request
// order; one failing request does not fail the others.
func (s *ScoringService) ComputeBatch(ctx context.Context, reqs []ComputeRequest) ([]BatchItem, error) {
	if len(reqs) > s.opts.BatchLimit {
		return nil, fmt.Errorf("%d requests, limit %d: %w", len(reqs), s.opts.BatchLimit, ErrBatchTooLarge)
	}

	ctx, span := s.tracer.Start(ctx, "ScoringService.ComputeBatch", trace.WithAttributes(
		attribute.Int("batch.size", len(reqs)),
	))
	defer span.End()

	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)

	for i := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Error = err
				return nil
			}
			resp, err := s.Compute(gctx, reqs[i])
			items[i] = BatchItem{Response: resp, Error: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, it := range items {
		if it.Error != nil {
			failed++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"batch_size": len(reqs),
		"failed":     failed,
	}).Info("Completed batch computation")

	return items, nil
}

// History lists persisted calculations.
func (s *ScoringService) History(ctx context.Context, filter domain.HistoryFilter) (*HistoryPage, error) {
	if s.opts.Store == nil {
		return nil, ErrHistoryDisabled
	}
	filter = filter.Normalized()

	ctx, span := s.tracer.Start(ctx, "RecordStore.List")
	defer span.End()

	records, err := s.opts.Store.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing history: %w", err)
	}
	total, err := s.opts.Store.Count(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("counting history: %w", err)
	}

	return &HistoryPage{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// GetRecord returns one persisted calculation.
func (s *ScoringService) GetRecord(ctx context.Context, id string) (*domain.CalculationRecord, error) {
	if s.opts.Store == nil {
		return nil, ErrHistoryDisabled
	}
	ctx, span := s.tracer.Start(ctx, "RecordStore.Get", trace.WithAttributes(attribute.String("record.id", id)))
	defer span.End()

	rec, err := s.opts.Store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return rec, nil
}

// Trend summarizes how one calculator's score evolved for a subject.
func (s *ScoringService) Trend(ctx context.Context, calculatorID, subjectID string) (*history.Trend, error) {
	if _, ok := s.catalog.CalculatorByID(calculatorID); !ok {
		return nil, &domain.UnknownCalculatorError{ID: calculatorID}
	}
	if s.opts.Store == nil {
		return nil, ErrHistoryDisabled
	}

	ctx, span := s.tracer.Start(ctx, "ScoringService.Trend", trace.WithAttributes(
		attribute.String("calculator.id", calculatorID),
	))
	defer span.End()

	if s.opts.Values != nil {
		points, err := s.opts.Values.ListValues(ctx, calculatorID, subjectID, domain.MaxHistoryLimit)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("listing trend values: %w", err)
		}
		t := history.TrendFromPoints(points)
		t.CalculatorID = calculatorID
		t.SubjectID = subjectID
		return &t, nil
	}

	records, err := s.opts.Store.List(ctx, domain.HistoryFilter{
		CalculatorID: calculatorID,
		SubjectID:    subjectID,
		Limit:        domain.MaxHistoryLimit,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing trend records: %w", err)
	}
	t := history.ComputeTrend(records)
	t.CalculatorID = calculatorID
	t.SubjectID = subjectID
	return &t, nil
}

// Health reports the state of the optional collaborators. A nil map value
// means healthy.
func (s *ScoringService) Health(ctx context.Context) map[string]error {
	status := map[string]error{}
	if s.opts.Store != nil {
		status["store"] = s.opts.Store.Ping(ctx)
	}
	if p, ok := s.opts.Cache.(interface{ Ping(context.Context) error }); ok {
		status["cache"] = p.Ping(ctx)
	}
	return status
}
