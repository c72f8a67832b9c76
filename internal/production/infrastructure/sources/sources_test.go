package sources

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	production "isolar-cloud/internal/production/domain"
)

type logRow struct {
	start  any
	device string
	yield  any
}

var sampleLog = []logRow{
	{start: "2024-01-01 06:00", device: "INV-01/MPPT1", yield: 100.5},
	{start: "2024-01-01 18:00", device: "INV-01/MPPT2", yield: 160.25},
	{start: "2024-01-01 07:00", device: "inv02", yield: 40.0},
	{start: "2024-01-01 17:00", device: "inv02", yield: 40.0},
	{start: 45000.25, device: "INV-01", yield: 10.0},
	{start: 45000.75, device: "INV-01", yield: 22.5},
	{start: "2024-01-02 12:00", device: "INV-01", yield: "N/A"},
}

func cellText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func buildXLSX(t *testing.T, preamble [][]any, rows []logRow) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	line := 1
	write := func(values []any) {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row: %v", err)
		}
		line++
	}
	for _, p := range preamble {
		write(p)
	}
	write([]any{"Start Time", "ManageObject", "Total yield(kWh)"})
	for _, r := range rows {
		write([]any{r.start, r.device, r.yield})
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return buf.Bytes()
}

func buildCSV(rows []logRow) []byte {
	var b strings.Builder
	b.WriteString("\ufeffStart Time,ManageObject,Total yield(kWh)\n")
	for _, r := range rows {
		b.WriteString(cellText(r.start) + "," + r.device + "," + quoteIfNeeded(cellText(r.yield)) + "\n")
	}
	return []byte(b.String())
}

func buildXML(rows []logRow) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><export xmlns="urn:fusion"><meta><site>Plant A</site></meta><rows>`)
	for _, r := range rows {
		b.WriteString(`<row><startTime>` + cellText(r.start) + `</startTime><device name="x"><id>` + r.device +
			`</id></device><totalYield unit="kWh">` + cellText(r.yield) + `</totalYield></row>`)
	}
	b.WriteString(`</rows></export>`)
	return []byte(b.String())
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func ingest(t *testing.T, format string, data []byte) *production.Ingestion {
	t.Helper()
	src, err := Open(format, data)
	if err != nil {
		t.Fatalf("open %s: %v", format, err)
	}
	defer src.Close()
	ing, err := production.Ingest(context.Background(), src, production.IngestOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("ingest %s: %v", format, err)
	}
	return ing
}

func TestAdaptersProduceIdenticalBrackets(t *testing.T) {
	want := production.BracketSet{
		{Day: "2024-01-01", DeviceID: "INV-01"}: {Min: 100.5, Max: 160.25},
		{Day: "2024-01-01", DeviceID: "INV-02"}: {Min: 40, Max: 40},
		{Day: "2023-03-15", DeviceID: "INV-01"}: {Min: 10, Max: 22.5},
	}

	inputs := map[string][]byte{
		production.FormatXLSX:       buildXLSX(t, nil, sampleLog),
		production.FormatXLSXStream: buildXLSX(t, [][]any{{"Inverter report"}, {}, {"Exported", "2024-01-03"}}, sampleLog),
		production.FormatCSV:        buildCSV(sampleLog),
		production.FormatXML:        buildXML(sampleLog),
	}
	for format, data := range inputs {
		ing := ingest(t, format, data)
		if !reflect.DeepEqual(ing.Brackets, want) {
			t.Fatalf("%s: unexpected brackets %v", format, ing.Brackets)
		}
		if ing.ParsedRecords != 6 {
			t.Fatalf("%s: expected 6 records, got %d", format, ing.ParsedRecords)
		}
	}
}

func TestXLSXStreamReadsEverySheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	first := f.GetSheetName(0)
	if _, err := f.NewSheet("Part2"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	header := []any{"Start Time", "ManageObject", "Total yield(kWh)"}
	rowsA := [][]any{header, {"2024-02-01 06:00", "INV-1", 10.0}}
	rowsB := [][]any{header, {"2024-02-01 18:00", "INV-1", 35.0}}
	for sheet, rows := range map[string][][]any{first: rowsA, "Part2": rowsB} {
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			values := row
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	ing := ingest(t, production.FormatXLSXStream, buf.Bytes())
	got := ing.Brackets[production.DeviceDay{Day: "2024-02-01", DeviceID: "INV-1"}]
	if got.Gain() != 25 {
		t.Fatalf("expected gain 25 across sheets, got %+v", got)
	}
}

func TestXLSXCorruptArchiveIsStreamError(t *testing.T) {
	for _, format := range []string{production.FormatXLSX, production.FormatXLSXStream} {
		_, err := Open(format, []byte("not a zip archive"))
		if !errors.Is(err, production.ErrStreamRead) {
			t.Fatalf("%s: expected stream read error, got %v", format, err)
		}
	}
}

func TestXMLToCSV(t *testing.T) {
	doc := `<data>
  <record timestamp="2024-03-01 06:00"><Inverter>INV-7, east</Inverter><Eac>12.5</Eac></record>
  <record><timestamp>2024-03-01 07:00</timestamp><device>INV-7</device></record>
  <item><start_time>2024-03-01 08:00</start_time><manageObject><name>INV-8</name></manageObject><total_yield>3</total_yield></item>
</data>`
	out, err := XMLToCSV(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("xml to csv: %v", err)
	}
	if !strings.HasPrefix(string(out), "Start Time,ManageObject,Total yield(kWh)\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if !strings.HasSuffix(string(out), "2024-03-01 08:00,INV-8,3\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(string(out), "\"INV-7, east\",12.5") {
		t.Fatalf("expected quoted device cell:\n%s", out)
	}
	if strings.Count(string(out), "\n") != 3 {
		t.Fatalf("record without yield must be dropped:\n%s", out)
	}
}

func TestXMLMalformedIsStreamError(t *testing.T) {
	_, err := Open(production.FormatXML, []byte("<rows><row><a>1</a>"))
	if !errors.Is(err, production.ErrStreamRead) {
		t.Fatalf("expected stream read error, got %v", err)
	}
}

func TestOpenUnknownFormat(t *testing.T) {
	if _, err := Open("pdf", nil); !errors.Is(err, production.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestXMLFieldsResolveInDocumentOrder(t *testing.T) {
	record := func(at, device string, yield float64) string {
		return "<record><StartTime>" + at + "</StartTime><ManageObject>" + device + "</ManageObject>" +
			"<DeviceStatus>Grid connected</DeviceStatus><TotalYield>" + strconv.FormatFloat(yield, 'f', -1, 64) +
			"</TotalYield><DailyEnergy>0</DailyEnergy></record>"
	}
	doc := "<data>" +
		record("2024-01-01 06:00", "INV-1", 100) + record("2024-01-01 18:00", "INV-1", 150) +
		record("2024-01-01 06:00", "INV-2", 900) + record("2024-01-01 18:00", "INV-2", 960) +
		"</data>"

	src, err := Open(production.FormatXML, []byte(doc))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()
	res, err := production.Compute(context.Background(), production.FormatXML, src, production.IngestOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !res.Success || res.DailyProduction["2024-01-01"] != 110 || res.ParsedRecordsCount != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestXLSXStreamDetectsMultilingualHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"电站日报"},
		{},
		{"导出时间 2024-01-02"},
		{"采集时间", "设备名称", "累计发电量(kWh)"},
		{"2024-01-01 06:00", "INV-1", 100.0},
		{"2024-01-01 18:00", "INV-1", 130.0},
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
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

	ing := ingest(t, production.FormatXLSXStream, buf.Bytes())
	got := ing.Brackets[production.DeviceDay{Day: "2024-01-01", DeviceID: "INV-1"}]
	if got.Gain() != 30 || ing.ParsedRecords != 2 {
		t.Fatalf("unexpected ingestion %+v", ing)
	}
}
