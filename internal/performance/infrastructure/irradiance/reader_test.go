package irradiance

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	data := []byte("\ufeffSite irradiance\n\nTimestamp,GTI,GHI (W/m2)\n2024-01-01 10:00,1,600\n\n2024-01-01 10:05,1,1200\n")
	table, err := Read("irr.CSV", data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(table.Headers) != 1 || table.Headers[0] != "Site irradiance" {
		t.Fatalf("first populated row is the header, got %v", table.Headers)
	}

	data = []byte("Timestamp,GTI,GHI (W/m2)\n2024-01-01 10:00,1,600\n\n2024-01-01 10:05,1,1200\n")
	table, err = Read("irr.csv", data)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(table.Rows) != 2 || table.Rows[1].Timestamp != "2024-01-01 10:05" || table.Rows[1].Values[2] != "1200" {
		t.Fatalf("unexpected rows %+v", table.Rows)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"GHI (W/m2)", "Time"},
		{600.0, "2024-01-01 10:00"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := Read("irr.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0].Timestamp != "2024-01-01 10:00" || table.Rows[0].Values[0] != "600" {
		t.Fatalf("unexpected table %+v", table)
	}
}

func TestReadRejectsUnknownAndEmpty(t *testing.T) {
	if _, err := Read("irr.json", nil); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	if _, err := Read("irr.csv", []byte("\n\n")); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}
