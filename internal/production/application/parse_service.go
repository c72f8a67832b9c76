package application

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"isolar-cloud/internal/observability/metrics"
	production "isolar-cloud/internal/production/domain"
	"isolar-cloud/internal/production/infrastructure/sources"
)

// ImportRequest carries one uploaded production log.
type ImportRequest struct {
	TenantID  string
	StationID string
	FileName  string
	Data      []byte
}

// Option configures a ParseService.
type Option func(*ParseService)

// WithLocation pins the time zone used for day bucketing.
func WithLocation(loc *time.Location) Option {
	return func(s *ParseService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithXLSXMode selects the spreadsheet adapter for .xlsx uploads.
func WithXLSXMode(mode string) Option {
	return func(s *ParseService) {
		switch mode {
		case production.FormatXLSX, "memory":
			s.xlsxMode = production.FormatXLSX
		case production.FormatXLSXStream, "stream":
			s.xlsxMode = production.FormatXLSXStream
		}
	}
}

// WithHeaderRules appends header synonyms after the built-in rules.
func WithHeaderRules(rules ...production.HeaderRule) Option {
	return func(s *ParseService) {
		s.resolver = production.NewHeaderResolver(rules...)
	}
}

// WithPeriodLimit sets the longest accepted reporting period in days.
func WithPeriodLimit(days int) Option {
	return func(s *ParseService) {
		if days > 0 {
			s.periodMaxDays = days
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *ParseService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// ParseService handles production log use cases.
type ParseService struct {
	repo          ReportRepository
	publisher     ProductionPublisher
	logger        *log.Logger
	clock         Clock
	location      *time.Location
	xlsxMode      string
	resolver      *production.HeaderResolver
	periodMaxDays int
}

// NewParseService constructs the service.
func NewParseService(repo ReportRepository, publisher ProductionPublisher, logger *log.Logger, opts ...Option) (*ParseService, error) {
	if repo == nil {
		return nil, errors.New("production parse service: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &ParseService{
		repo:          repo,
		publisher:     publisher,
		logger:        logger,
		clock:         SystemClock{},
		location:      time.Local,
		xlsxMode:      production.FormatXLSXStream,
		resolver:      production.NewHeaderResolver(),
		periodMaxDays: DefaultPeriodMaxDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DetectFormat maps a file name to a format tag using the configured xlsx mode.
func (s *ParseService) DetectFormat(name string) (string, error) {
	return production.DetectFormat(name, s.xlsxMode)
}

// Parse ingests data of the given format. Structural problems are reported in
// the result; read errors and cancellation are returned.
func (s *ParseService) Parse(ctx context.Context, format string, data []byte) (production.ParseResult, error) {
	start := s.clock.Now()
	result, err := s.parse(ctx, format, data)
	elapsed := s.clock.Now().Sub(start)
	switch {
	case err != nil:
		metrics.ObserveParse(format, metrics.ResultError, elapsed)
		metrics.IncParseFailure("read")
	case !result.Success:
		metrics.ObserveParse(format, metrics.ResultFailure, elapsed)
	default:
		metrics.ObserveParse(format, metrics.ResultSuccess, elapsed)
		metrics.AddParsedRecords(format, result.ParsedRecordsCount)
	}
	return result, err
}

func (s *ParseService) parse(ctx context.Context, format string, data []byte) (production.ParseResult, error) {
	src, err := sources.Open(format, data)
	if err != nil {
		return production.ParseResult{}, err
	}
	defer src.Close()

	ing, err := production.Ingest(ctx, src, production.IngestOptions{
		Location: s.location,
		Resolver: s.resolver,
	})
	if err != nil {
		msg, ok := production.FailureMessage(format, err)
		if !ok {
			return production.ParseResult{}, err
		}
		metrics.IncParseFailure(failureReason(err))
		s.logger.Printf("production parse: format=%s failure=%q", format, msg)
		return production.Failure(msg), nil
	}
	return production.BuildResult(format, ing.SiteName, production.Aggregate(ing.Brackets), ing.ParsedRecords), nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, production.ErrEmptyInput):
		return "empty"
	case errors.Is(err, production.ErrMissingHeader):
		return "header"
	case errors.Is(err, production.ErrMissingColumns):
		return "columns"
	}
	return "unknown"
}

// Import parses an upload and stores the report when parsing succeeds.
// Failed parses are returned unsaved.
func (s *ParseService) Import(ctx context.Context, req ImportRequest) (*Report, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyFile
	}
	metrics.ObserveUploadSize(len(req.Data))
	format, err := s.DetectFormat(req.FileName)
	if err != nil {
		return nil, err
	}
	result, err := s.Parse(ctx, format, req.Data)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TenantID:  req.TenantID,
		StationID: strings.TrimSpace(req.StationID),
		FileName:  req.FileName,
		Source:    production.SourceLabel(format),
		Result:    result,
		Period:    CheckPeriod(result, s.periodMaxDays),
		CreatedAt: s.clock.Now().UTC(),
	}
	if !result.Success {
		return report, nil
	}

	report.ID = uuid.NewString()
	if err := s.repo.Save(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Printf("production import: report=%s station=%s file=%s days=%d total=%.3f",
		report.ID, report.StationID, report.FileName, len(result.DailyProduction), result.DailyProductionTotal)

	if s.publisher == nil {
		return report, nil
	}
	event := ProductionParsed{
		ReportID:   report.ID,
		TenantID:   report.TenantID,
		StationID:  report.StationID,
		Source:     report.Source,
		TotalKWh:   result.DailyProductionTotal,
		Records:    result.ParsedRecordsCount,
		OccurredAt: report.CreatedAt,
	}
	if result.FirstDay != nil {
		event.FirstDay = *result.FirstDay
	}
	if result.LastDay != nil {
		event.LastDay = *result.LastDay
	}
	if err := s.publisher.PublishProductionParsed(ctx, event); err != nil {
		s.logger.Printf("production import: publish report=%s: %v", report.ID, err)
	}
	return report, nil
}

// Get loads a stored report.
func (s *ParseService) Get(ctx context.Context, tenantID, id string) (*Report, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrReportNotFound
	}
	return s.repo.Get(ctx, tenantID, id)
}

// List returns reports of a station, newest first.
func (s *ParseService) List(ctx context.Context, tenantID, stationID string) ([]Report, error) {
	return s.repo.ListByStation(ctx, tenantID, stationID)
}
