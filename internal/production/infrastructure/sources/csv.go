package sources

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"

	production "isolar-cloud/internal/production/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource streams delimited rows. The header is the first populated row.
type CSVSource struct {
	reader *csv.Reader
}

// NewCSVSource wraps r. Ragged rows and stray quotes are tolerated.
func NewCSVSource(r io.Reader) *CSVSource {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return &CSVSource{reader: reader}
}

// Next returns the next record.
func (s *CSVSource) Next(ctx context.Context) (production.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return production.RawRow(record), nil
}

// HeaderHint reports a first-row header.
func (s *CSVSource) HeaderHint() production.HeaderHint { return production.HeaderFirstRow }
