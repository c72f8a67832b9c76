package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"isolar-cloud/internal/production/application"
	production "isolar-cloud/internal/production/domain"
)

// ReportRepository persists production reports.
type ReportRepository struct {
	db      *sql.DB
	maxDays int
}

// NewReportRepository constructs a repository. maxDays is the period limit
// applied when a stored report is loaded.
func NewReportRepository(db *sql.DB, maxDays int) *ReportRepository {
	return &ReportRepository{db: db, maxDays: maxDays}
}

// Save inserts a report and its daily rows.
func (r *ReportRepository) Save(ctx context.Context, report *application.Report) error {
	if r == nil || r.db == nil {
		return errors.New("report repo: nil db")
	}
	if report == nil {
		return errors.New("report repo: nil report")
	}
	result := report.Result
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO production_reports (
	id, tenant_id, station_id, file_name, source, site_name,
	total_kwh, first_day, last_day, parsed_records, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`,
		report.ID, report.TenantID, report.StationID, report.FileName, report.Source, nullString(result.SiteName),
		result.DailyProductionTotal, nullString(result.FirstDay), nullString(result.LastDay), result.ParsedRecordsCount, report.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, day := range result.Days() {
		_, err := tx.ExecContext(ctx, `
INSERT INTO production_report_days (report_id, day, energy_kwh)
VALUES ($1,$2,$3)`, report.ID, day, result.DailyProduction[day])
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Get fetches a report of a tenant.
func (r *ReportRepository) Get(ctx context.Context, tenantID, id string) (*application.Report, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, station_id, file_name, source, site_name, parsed_records, created_at
FROM production_reports
WHERE id = $1 AND ($2 = '' OR tenant_id = $2)
LIMIT 1`, id, tenantID)
	header, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, application.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.withDays(ctx, header)
}

// ListByStation lists reports of a station, newest first. An empty station id
// lists every report of the tenant.
func (r *ReportRepository) ListByStation(ctx context.Context, tenantID, stationID string) ([]application.Report, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, station_id, file_name, source, site_name, parsed_records, created_at
FROM production_reports
WHERE ($1 = '' OR tenant_id = $1) AND ($2 = '' OR station_id = $2)
ORDER BY created_at DESC, id DESC`, tenantID, stationID)
	if err != nil {
		return nil, err
	}
	var headers []reportHeader
	for rows.Next() {
		header, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		headers = append(headers, header)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	result := make([]application.Report, 0, len(headers))
	for _, header := range headers {
		report, err := r.withDays(ctx, header)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, nil
}

func (r *ReportRepository) withDays(ctx context.Context, header reportHeader) (*application.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT day, energy_kwh
FROM production_report_days
WHERE report_id = $1
ORDER BY day ASC`, header.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	daily := production.DailyAggregate{}
	for rows.Next() {
		var day time.Time
		var energy float64
		if err := rows.Scan(&day, &energy); err != nil {
			return nil, err
		}
		daily[day.UTC().Format(production.DayLayout)] = energy
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := production.BuildResult(header.source, header.siteName.String, daily, header.parsed)
	return &application.Report{
		ID:        header.id,
		TenantID:  header.tenantID,
		StationID: header.stationID,
		FileName:  header.fileName,
		Source:    header.source,
		Result:    result,
		Period:    application.CheckPeriod(result, r.maxDays),
		CreatedAt: header.createdAt.UTC(),
	}, nil
}

type reportHeader struct {
	id        string
	tenantID  string
	stationID string
	fileName  string
	source    string
	siteName  sql.NullString
	parsed    int
	createdAt time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (reportHeader, error) {
	var h reportHeader
	err := row.Scan(&h.id, &h.tenantID, &h.stationID, &h.fileName, &h.source, &h.siteName, &h.parsed, &h.createdAt)
	return h, err
}

func nullString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
