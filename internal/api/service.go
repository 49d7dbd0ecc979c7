package api

import (
	"context"
	"fmt"
	"time"

	"venue-checkin/internal/common/errors"
	"venue-checkin/internal/common/logger"
	"venue-checkin/internal/common/observability"
	"venue-checkin/internal/match"
	"venue-checkin/internal/plans"
	"venue-checkin/internal/scan"
	"venue-checkin/internal/watch"
)

// Service is the boundary exposed to the presentation layer. Every
// operation returns a uniform envelope so the UI can render failures
// without an enclosing failure boundary.
type Service struct {
	reader   *scan.Reader
	matcher  *match.Matcher
	resolver *plans.Resolver
	watcher  *watch.Watcher
	obs      *observability.Observability
	logger   logger.Logger
}

func NewService(reader *scan.Reader, matcher *match.Matcher, resolver *plans.Resolver, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		reader:   reader,
		matcher:  matcher,
		resolver: resolver,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// SetWatcher attaches the export watcher. Separate from the constructor
// because the watcher's run callback needs the service.
func (s *Service) SetWatcher(w *watch.Watcher) {
	s.watcher = w
}

// --- Envelopes ---

type ScanEnvelope struct {
	Success   bool             `json:"success"`
	Record    *scan.ScanRecord `json:"record,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"errorCode,omitempty"`
}

type MatchEnvelope struct {
	Success    bool              `json:"success"`
	Source     string            `json:"source,omitempty"`
	Candidates []match.Candidate `json:"candidates"`
	Error      string            `json:"error,omitempty"`
	ErrorCode  string            `json:"errorCode,omitempty"`
}

type PlansEnvelope struct {
	Success   bool               `json:"success"`
	Plans     []plans.PlanRecord `json:"plans"`
	Error     string             `json:"error,omitempty"`
	ErrorCode string             `json:"errorCode,omitempty"`
}

type OrdersEnvelope struct {
	Success   bool              `json:"success"`
	Orders    []plans.PlanOrder `json:"orders"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"errorCode,omitempty"`
}

type WatchEnvelope struct {
	Success   bool          `json:"success"`
	Status    *watch.Status `json:"status,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
}

// PipelinePayload is the combined newscan event payload: the scan that
// triggered the run plus its match outcome.
type PipelinePayload struct {
	Record *scan.ScanRecord   `json:"record"`
	Match  *match.MatchResult `json:"match"`
}

// failure splits an error into user-visible text and a stable code. The
// original remote error text is preserved to aid diagnosis.
func failure(err error) (string, string) {
	stdErr := errors.AsStandard(err)
	text := stdErr.Message
	if stdErr.Details != "" {
		text = fmt.Sprintf("%s: %s", stdErr.Message, stdErr.Details)
	}
	return text, string(stdErr.Code)
}

// --- Operations ---

// LatestScan reads the most recent record from the scanner export.
func (s *Service) LatestScan() ScanEnvelope {
	record, err := s.reader.Latest()
	if err != nil {
		text, code := failure(err)
		return ScanEnvelope{Error: text, ErrorCode: code}
	}
	return ScanEnvelope{Success: true, Record: record}
}

// FindMember runs the matching pipeline for the supplied name/DOB criteria.
func (s *Service) FindMember(ctx context.Context, req FindMemberRequest) MatchEnvelope {
	if err := req.Validate(); err != nil {
		text, _ := failure(errors.NewInvalidQueryError(err.Error()))
		return MatchEnvelope{Candidates: []match.Candidate{}, Error: text, ErrorCode: string(errors.ErrCodeInvalidQuery)}
	}

	query := match.BuildQuery(req.FirstName, req.LastName, req.DateOfBirth)
	result, err := s.matcher.Find(ctx, query)
	if err != nil {
		text, code := failure(err)
		return MatchEnvelope{Candidates: []match.Candidate{}, Error: text, ErrorCode: code}
	}

	env := MatchEnvelope{
		Success:    result.Success,
		Source:     result.Source,
		Candidates: result.Candidates,
		Error:      result.Error,
	}
	if !result.Success {
		env.ErrorCode = string(errors.ErrCodeCRMTransport)
	}
	return env
}

// Plans fetches the member's subscription plans.
func (s *Service) Plans(ctx context.Context, memberID string) PlansEnvelope {
	records, err := s.resolver.Plans(ctx, memberID)
	if err != nil {
		text, code := failure(err)
		return PlansEnvelope{Plans: []plans.PlanRecord{}, Error: text, ErrorCode: code}
	}
	return PlansEnvelope{Success: true, Plans: records}
}

// PlanOrders fetches the member's plan orders.
func (s *Service) PlanOrders(ctx context.Context, memberID string) OrdersEnvelope {
	records, err := s.resolver.Orders(ctx, memberID)
	if err != nil {
		text, code := failure(err)
		return OrdersEnvelope{Orders: []plans.PlanOrder{}, Error: text, ErrorCode: code}
	}
	return OrdersEnvelope{Success: true, Orders: records}
}

// RunPipeline is the watcher callback: read the latest scan, then match it.
func (s *Service) RunPipeline(ctx context.Context, runID string) (interface{}, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{"runId": runID})

	record, err := s.reader.Latest()
	if err != nil {
		s.recordRun(ctx, start, "error")
		return nil, err
	}

	query := match.BuildQuery(record.FirstName, record.LastName, record.DateOfBirth)
	result, err := s.matcher.Find(ctx, query)
	if err != nil {
		s.recordRun(ctx, start, "error")
		return nil, err
	}

	log.Info("pipeline run complete", map[string]interface{}{
		"source":     result.Source,
		"candidates": len(result.Candidates),
		"success":    result.Success,
	})

	status := "match"
	if len(result.Candidates) == 0 {
		status = "nomatch"
	}
	s.recordRun(ctx, start, status)

	return &PipelinePayload{Record: record, Match: result}, nil
}

func (s *Service) recordRun(ctx context.Context, start time.Time, status string) {
	if s.obs == nil {
		return
	}
	s.obs.RecordRun(ctx, status)
	s.obs.RecordRunDuration(ctx, time.Since(start), status)
}

// --- Watch control ---

func (s *Service) StartWatch(ctx context.Context) WatchEnvelope {
	if s.watcher == nil {
		return WatchEnvelope{Error: "watcher not configured", ErrorCode: string(errors.ErrCodeWatcherFailed)}
	}
	if err := s.watcher.Start(ctx); err != nil {
		text, code := failure(err)
		return WatchEnvelope{Error: text, ErrorCode: code}
	}
	status := s.watcher.Status()
	return WatchEnvelope{Success: true, Status: &status}
}

func (s *Service) StopWatch() WatchEnvelope {
	if s.watcher == nil {
		return WatchEnvelope{Error: "watcher not configured", ErrorCode: string(errors.ErrCodeWatcherFailed)}
	}
	if err := s.watcher.Stop(); err != nil {
		text, code := failure(err)
		return WatchEnvelope{Error: text, ErrorCode: code}
	}
	status := s.watcher.Status()
	return WatchEnvelope{Success: true, Status: &status}
}

func (s *Service) WatchStatus() WatchEnvelope {
	if s.watcher == nil {
		return WatchEnvelope{Error: "watcher not configured", ErrorCode: string(errors.ErrCodeWatcherFailed)}
	}
	status := s.watcher.Status()
	return WatchEnvelope{Success: true, Status: &status}
}

// WatchEvents exposes the watcher's event channel to the transport layer.
func (s *Service) WatchEvents() <-chan watch.Event {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Events()
}
