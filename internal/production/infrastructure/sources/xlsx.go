package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	production "isolar-cloud/internal/production/domain"
)

// XLSXMemorySource loads the first sheet fully and yields its rows. The header
// is the first populated row.
type XLSXMemorySource struct {
	rows [][]string
	pos  int
}

// NewXLSXMemorySource opens data and reads the first sheet into memory.
func NewXLSXMemorySource(data []byte) (*XLSXMemorySource, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &production.StreamReadError{Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &XLSXMemorySource{}, nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &production.StreamReadError{Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	return &XLSXMemorySource{rows: rows}, nil
}

// Next returns the next row.
func (s *XLSXMemorySource) Next(_ context.Context) (production.RawRow, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return production.RawRow(row), nil
}

// HeaderHint reports a row 1 header.
func (s *XLSXMemorySource) HeaderHint() production.HeaderHint { return production.HeaderFirstRow }

// XLSXStreamSource walks every sheet row by row without materializing them.
// The header is detected in the first rows of the workbook.
type XLSXStreamSource struct {
	file   *excelize.File
	sheets []string
	sheet  int
	rows   *excelize.Rows
}

// NewXLSXStreamSource opens data for row iteration. Call Close when done.
func NewXLSXStreamSource(data []byte) (*XLSXStreamSource, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &production.StreamReadError{Err: fmt.Errorf("open xlsx: %w", err)}
	}
	return &XLSXStreamSource{file: f, sheets: f.GetSheetList()}, nil
}

// Next returns the next row, moving to the following sheet when one is exhausted.
func (s *XLSXStreamSource) Next(ctx context.Context) (production.RawRow, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.rows == nil {
			if s.sheet >= len(s.sheets) {
				return nil, io.EOF
			}
			rows, err := s.file.Rows(s.sheets[s.sheet])
			if err != nil {
				return nil, fmt.Errorf("open sheet %q: %w", s.sheets[s.sheet], err)
			}
			s.rows = rows
		}
		if s.rows.Next() {
			cols, err := s.rows.Columns(excelize.Options{RawCellValue: true})
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", s.sheets[s.sheet], err)
			}
			return production.RawRow(cols), nil
		}
		err := s.rows.Error()
		closeErr := s.rows.Close()
		s.rows = nil
		s.sheet++
		if err = errors.Join(err, closeErr); err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", s.sheets[s.sheet-1], err)
		}
	}
}

// HeaderHint reports header detection.
func (s *XLSXStreamSource) HeaderHint() production.HeaderHint { return production.HeaderDetect }

// Close releases the workbook.
func (s *XLSXStreamSource) Close() error {
	var err error
	if s.rows != nil {
		err = s.rows.Close()
		s.rows = nil
	}
	return errors.Join(err, s.file.Close())
}
