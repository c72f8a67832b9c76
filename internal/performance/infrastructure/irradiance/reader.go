package irradiance

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	performance "isolar-cloud/internal/performance/domain"
)

var (
	// ErrUnsupportedFile is returned for irradiance files that are neither CSV nor XLSX.
	ErrUnsupportedFile = errors.New("irradiance: unsupported file")
	// ErrNoHeader is returned when a file has no populated row.
	ErrNoHeader = errors.New("irradiance: no header row")
)

var timeHeaderRe = regexp.MustCompile(`time|date|^ts$`)

// Read loads an irradiance table from a CSV or XLSX upload.
func Read(name string, data []byte) (*performance.IrradianceTable, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSV(data)
	case ".xlsx":
		rows, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, name)
	}
	if err != nil {
		return nil, err
	}
	return tableFromRows(rows)
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("irradiance: read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("irradiance: open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("irradiance: read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func tableFromRows(rows [][]string) (*performance.IrradianceTable, error) {
	start := -1
	for i, row := range rows {
		if populated(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrNoHeader
	}
	headers := make([]string, len(rows[start]))
	tsCol := 0
	found := false
	for i, h := range rows[start] {
		headers[i] = strings.TrimSpace(h)
		if !found && timeHeaderRe.MatchString(strings.ToLower(headers[i])) {
			tsCol, found = i, true
		}
	}

	table := &performance.IrradianceTable{Headers: headers}
	for _, row := range rows[start+1:] {
		if !populated(row) {
			continue
		}
		var ts string
		if tsCol < len(row) {
			ts = strings.TrimSpace(row[tsCol])
		}
		table.Rows = append(table.Rows, performance.IrradianceRow{Timestamp: ts, Values: row})
	}
	return table, nil
}

func populated(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}
