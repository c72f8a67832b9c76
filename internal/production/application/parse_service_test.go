package application

import (
	"context"
	"errors"
	"testing"
	"time"

	production "isolar-cloud/internal/production/domain"
)

const fusionCSV = "Site Name,Start Time,ManageObject,Total yield(kWh)\n" +
	"Plant A,2024-01-01 06:00:00,INV-01/MPPT1,100\n" +
	"Plant A,2024-01-01 18:00:00,INV-01/MPPT1,150\n" +
	"Plant A,2024-01-02 06:00:00,INV-01/MPPT1,150\n" +
	"Plant A,2024-01-02 18:00:00,INV-01/MPPT1,1190.4\n" +
	"Plant A,2024-01-02 18:05:00,,1300\n"

type stubRepo struct {
	saved []*Report
}

func (r *stubRepo) Save(_ context.Context, report *Report) error {
	r.saved = append(r.saved, report)
	return nil
}

func (r *stubRepo) Get(_ context.Context, _ string, id string) (*Report, error) {
	for _, report := range r.saved {
		if report.ID == id {
			return report, nil
		}
	}
	return nil, ErrReportNotFound
}

func (r *stubRepo) ListByStation(_ context.Context, _ string, stationID string) ([]Report, error) {
	var out []Report
	for _, report := range r.saved {
		if report.StationID == stationID {
			out = append(out, *report)
		}
	}
	return out, nil
}

type stubPublisher struct {
	events []ProductionParsed
}

func (p *stubPublisher) PublishProductionParsed(_ context.Context, event ProductionParsed) error {
	p.events = append(p.events, event)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, repo *stubRepo, pub *stubPublisher, opts ...Option) *ParseService {
	t.Helper()
	opts = append([]Option{
		WithLocation(time.UTC),
		WithClock(fixedClock{now: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)}),
	}, opts...)
	svc, err := NewParseService(repo, pub, nil, opts...)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func TestImportStoresReportAndPublishes(t *testing.T) {
	repo := &stubRepo{}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, pub)

	report, err := svc.Import(context.Background(), ImportRequest{
		TenantID:  "tenant-a",
		StationID: " station-1 ",
		FileName:  "fusion.CSV",
		Data:      []byte(fusionCSV),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.ID == "" || len(repo.saved) != 1 || report.StationID != "station-1" || report.Source != production.FormatCSV {
		t.Fatalf("unexpected report %+v", report)
	}
	res := report.Result
	if !res.Success || res.ParsedRecordsCount != 4 || *res.SiteName != "Plant A" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.DailyProduction["2024-01-01"] != 50 || *res.FirstDay != "2024-01-01" || *res.LastDay != "2024-01-02" {
		t.Fatalf("unexpected days %+v", res.DailyProduction)
	}
	if !report.Period.Valid || report.Period.Days != 2 || report.Period.TotalProduction != 1090 {
		t.Fatalf("unexpected period %+v", report.Period)
	}
	if want := "OK — 2 days (2024-01-01 → 2024-01-02) — 1,090 kWh"; report.Period.Message != want {
		t.Fatalf("unexpected message %q", report.Period.Message)
	}
	if len(pub.events) != 1 || pub.events[0].ReportID != report.ID || pub.events[0].LastDay != "2024-01-02" || pub.events[0].Records != 4 {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if !report.CreatedAt.Equal(time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_at %v", report.CreatedAt)
	}

	list, err := svc.List(context.Background(), "tenant-a", "station-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %v %v", list, err)
	}
	got, err := svc.Get(context.Background(), "tenant-a", report.ID)
	if err != nil || got.ID != report.ID {
		t.Fatalf("unexpected get %v %v", got, err)
	}
}

func TestImportFailureIsNotStored(t *testing.T) {
	repo := &stubRepo{}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, pub)

	report, err := svc.Import(context.Background(), ImportRequest{
		FileName: "empty.csv",
		Data:     []byte("Start Time,ManageObject,Total yield(kWh)\n"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.ID != "" || report.Result.Success || report.Result.Message != "No records in CSV" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(repo.saved) != 0 || len(pub.events) != 0 {
		t.Fatalf("failure must not be stored or published")
	}

	report, err = svc.Import(context.Background(), ImportRequest{
		FileName: "noyield.csv",
		Data:     []byte("Start Time,ManageObject\n2024-01-01 06:00,INV-1\n"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Result.Message != production.MissingColumnsMessage {
		t.Fatalf("unexpected message %q", report.Result.Message)
	}
}

func TestImportRejectsBadInput(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, nil)
	if _, err := svc.Import(context.Background(), ImportRequest{FileName: "a.csv"}); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if _, err := svc.Import(context.Background(), ImportRequest{FileName: "a.pdf", Data: []byte("x")}); !errors.Is(err, production.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "", " "); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestParseCancelled(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Parse(ctx, production.FormatCSV, []byte(fusionCSV)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHeaderRulesAndXLSXMode(t *testing.T) {
	rules := production.SynonymRules(map[production.Role][]string{
		production.RoleTimestamp: {"thời gian"},
	})
	svc := newTestService(t, &stubRepo{}, nil, WithHeaderRules(rules...), WithXLSXMode("memory"))
	format, err := svc.DetectFormat("log.xlsx")
	if err != nil || format != production.FormatXLSX {
		t.Fatalf("expected in-memory xlsx, got %q %v", format, err)
	}
	data := "Thời gian,ManageObject,Total yield(kWh)\n2024-01-01 06:00,INV-1,5\n2024-01-01 07:00,INV-1,9\n"
	res, err := svc.Parse(context.Background(), production.FormatCSV, []byte(data))
	if err != nil || !res.Success || res.DailyProductionTotal != 4 {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
}

func TestNewParseServiceRequiresRepo(t *testing.T) {
	if _, err := NewParseService(nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}
