package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"isolar-cloud/internal/production/application"
	production "isolar-cloud/internal/production/domain"
)

func TestReportRepository(t *testing.T) {
	repo := NewReportRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r-1", "r-2", "r-3"} {
		station := "station-1"
		if id == "r-3" {
			station = "station-2"
		}
		report := &application.Report{
			ID:        id,
			TenantID:  "tenant-a",
			StationID: station,
			Result:    production.BuildResult("csv", "", production.DailyAggregate{"2024-01-01": float64(i)}, 1),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Save(ctx, report); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	list, err := repo.ListByStation(ctx, "tenant-a", "station-1")
	if err != nil || len(list) != 2 || list[0].ID != "r-2" {
		t.Fatalf("expected newest first, got %+v %v", list, err)
	}
	if all, _ := repo.ListByStation(ctx, "tenant-a", ""); len(all) != 3 {
		t.Fatalf("expected every report of the tenant, got %d", len(all))
	}

	got, err := repo.Get(ctx, "tenant-a", "r-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Result.DailyProduction["2024-01-01"] = 99
	again, _ := repo.Get(ctx, "tenant-a", "r-1")
	if again.Result.DailyProduction["2024-01-01"] != 0 {
		t.Fatalf("stored report must not alias returned copies")
	}

	if _, err := repo.Get(ctx, "tenant-b", "r-1"); !errors.Is(err, application.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if err := repo.Save(ctx, &application.Report{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
