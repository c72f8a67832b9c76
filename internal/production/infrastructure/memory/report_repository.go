package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"isolar-cloud/internal/production/application"
)

// ReportRepository is an in-memory repository for production reports.
type ReportRepository struct {
	mu   sync.RWMutex
	data map[string]application.Report
}

// NewReportRepository constructs a repository.
func NewReportRepository() *ReportRepository {
	return &ReportRepository{data: make(map[string]application.Report)}
}

// Save stores a report (overwrites existing).
func (r *ReportRepository) Save(ctx context.Context, report *application.Report) error {
	_ = ctx
	if report == nil {
		return errors.New("report repo: nil report")
	}
	if report.ID == "" {
		return errors.New("report repo: empty id")
	}
	r.mu.Lock()
	r.data[report.ID] = cloneReport(*report)
	r.mu.Unlock()
	return nil
}

// Get loads a report of a tenant.
func (r *ReportRepository) Get(ctx context.Context, tenantID, id string) (*application.Report, error) {
	_ = ctx
	r.mu.RLock()
	report, ok := r.data[id]
	r.mu.RUnlock()
	if !ok || (tenantID != "" && report.TenantID != tenantID) {
		return nil, application.ErrReportNotFound
	}
	out := cloneReport(report)
	return &out, nil
}

// ListByStation returns the reports of a station, newest first. An empty
// station id lists every report of the tenant.
func (r *ReportRepository) ListByStation(ctx context.Context, tenantID, stationID string) ([]application.Report, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]application.Report, 0, len(r.data))
	for _, report := range r.data {
		if tenantID != "" && report.TenantID != tenantID {
			continue
		}
		if stationID != "" && report.StationID != stationID {
			continue
		}
		out = append(out, cloneReport(report))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneReport(report application.Report) application.Report {
	daily := make(map[string]float64, len(report.Result.DailyProduction))
	for day, value := range report.Result.DailyProduction {
		daily[day] = value
	}
	report.Result.DailyProduction = daily
	report.Period.DailyProduction = append([]application.DayTotal(nil), report.Period.DailyProduction...)
	return report
}
