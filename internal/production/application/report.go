package application

import (
	"context"
	"errors"
	"time"

	production "isolar-cloud/internal/production/domain"
)

var (
	// ErrReportNotFound is returned when a report id is unknown for the tenant.
	ErrReportNotFound = errors.New("production: report not found")
	// ErrEmptyFile is returned for uploads without content.
	ErrEmptyFile = errors.New("production: empty file")
)

// Report is a stored parse of one uploaded production log.
type Report struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	StationID string                 `json:"station_id"`
	FileName  string                 `json:"file_name"`
	Source    string                 `json:"source"`
	Result    production.ParseResult `json:"result"`
	Period    PeriodCheck            `json:"period"`
	CreatedAt time.Time              `json:"created_at"`
}

// ReportRepository persists reports.
type ReportRepository interface {
	Save(ctx context.Context, report *Report) error
	Get(ctx context.Context, tenantID, id string) (*Report, error)
	ListByStation(ctx context.Context, tenantID, stationID string) ([]Report, error)
}

// ProductionParsed is emitted after a report has been stored.
type ProductionParsed struct {
	ReportID   string
	TenantID   string
	StationID  string
	Source     string
	FirstDay   string
	LastDay    string
	TotalKWh   float64
	Records    int
	OccurredAt time.Time
}

// EventName implements eventing.Named.
func (ProductionParsed) EventName() string { return "production.parsed" }

// EventKey implements eventing.Keyed.
func (e ProductionParsed) EventKey() string { return e.StationID }

// EventTime implements eventing.Timed.
func (e ProductionParsed) EventTime() time.Time { return e.OccurredAt }

// ProductionPublisher emits production parsed events.
type ProductionPublisher interface {
	PublishProductionParsed(ctx context.Context, event ProductionParsed) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
