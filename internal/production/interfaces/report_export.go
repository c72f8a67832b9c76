package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"isolar-cloud/internal/production/application"
)

// Export formats.
const (
	ExportPDF  = "pdf"
	ExportXLSX = "xlsx"
	ExportCSV  = "csv"
)

// ExportContentType returns the response content type of an export format.
func ExportContentType(format string) string {
	switch format {
	case ExportPDF:
		return "application/pdf"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportCSV:
		return "text/csv"
	}
	return "application/octet-stream"
}

// BuildReport renders a report in the given export format.
func BuildReport(format string, report *application.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report export: nil report")
	}
	switch format {
	case ExportPDF:
		return BuildReportPDF(report)
	case ExportXLSX:
		return BuildReportXLSX(report)
	case ExportCSV:
		return BuildReportCSV(report)
	}
	return nil, fmt.Errorf("report export: unknown format %q", format)
}

func siteName(report *application.Report) string {
	if report.Result.SiteName == nil {
		return ""
	}
	return *report.Result.SiteName
}

// BuildReportPDF renders a minimal PDF for a report.
func BuildReportPDF(report *application.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Daily Production Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Site: %s", siteName(report))))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Station: %s", report.StationID))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr(fmt.Sprintf("File: %s (%s)", report.FileName, report.Source)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s (%d days)", report.Period.StartDate, report.Period.EndDate, report.Period.Days))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", report.Result.ParsedRecordsCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(5)

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Total Production (kWh): %.3f", report.Result.DailyProductionTotal))
	pdf.Ln(8)

	// Days table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Production (kWh)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, day := range report.Result.Days() {
		pdf.CellFormat(50, 6, day, "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, fmt.Sprintf("%.3f", report.Result.DailyProduction[day]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a summary sheet and a days sheet.
func BuildReportXLSX(report *application.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	daysSheet := "days"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Daily Production Report")
	_ = f.SetCellValue(summarySheet, "A3", "Site")
	_ = f.SetCellValue(summarySheet, "B3", siteName(report))
	_ = f.SetCellValue(summarySheet, "A4", "Station")
	_ = f.SetCellValue(summarySheet, "B4", report.StationID)
	_ = f.SetCellValue(summarySheet, "A5", "File")
	_ = f.SetCellValue(summarySheet, "B5", report.FileName)
	_ = f.SetCellValue(summarySheet, "A6", "Source")
	_ = f.SetCellValue(summarySheet, "B6", report.Source)
	_ = f.SetCellValue(summarySheet, "A7", "First Day")
	_ = f.SetCellValue(summarySheet, "B7", report.Period.StartDate)
	_ = f.SetCellValue(summarySheet, "A8", "Last Day")
	_ = f.SetCellValue(summarySheet, "B8", report.Period.EndDate)
	_ = f.SetCellValue(summarySheet, "A9", "Total Production (kWh)")
	_ = f.SetCellValue(summarySheet, "B9", report.Result.DailyProductionTotal)
	_ = f.SetCellValue(summarySheet, "A10", "Records")
	_ = f.SetCellValue(summarySheet, "B10", report.Result.ParsedRecordsCount)

	_ = f.SetCellValue(daysSheet, "A1", "Day")
	_ = f.SetCellValue(daysSheet, "B1", "Production (kWh)")
	for i, day := range report.Result.Days() {
		row := i + 2
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("A%d", row), day)
		_ = f.SetCellValue(daysSheet, fmt.Sprintf("B%d", row), report.Result.DailyProduction[day])
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportCSV renders one line per day.
func BuildReportCSV(report *application.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"date", "production_kwh"})
	for _, day := range report.Result.Days() {
		_ = w.Write([]string{day, strconv.FormatFloat(report.Result.DailyProduction[day], 'f', -1, 64)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
