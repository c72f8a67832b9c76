package production

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// RawRow is one physical row of cell text. A header row is a RawRow of labels.
type RawRow []string

// Cell returns the trimmed cell at idx, or "" when out of range.
func (r RawRow) Cell(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

// Populated reports whether any cell is non-blank.
func (r RawRow) Populated() bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

// HeaderHint tells the ingestor where the header row is.
type HeaderHint int

const (
	// HeaderFirstRow takes the first populated row as the header.
	HeaderFirstRow HeaderHint = iota
	// HeaderDetect scores the first HeaderScanRows rows for the header.
	HeaderDetect
)

// RowSource yields rows of one file. Next returns io.EOF after the last row.
type RowSource interface {
	Next(ctx context.Context) (RawRow, error)
	HeaderHint() HeaderHint
}

// IngestOptions tunes one ingestion run.
type IngestOptions struct {
	Location *time.Location
	Resolver *HeaderResolver
}

// Ingestion is the folded state of a completed run.
type Ingestion struct {
	Brackets      BracketSet
	SiteName      string
	ParsedRecords int
}

// Ingest reads every row of src and folds admitted rows into brackets.
// Structural problems are returned as EmptyInputError, MissingHeaderError or
// MissingColumnsError; source failures as StreamReadError. Nothing partial is
// returned on error or cancellation.
func Ingest(ctx context.Context, src RowSource, opts IngestOptions) (*Ingestion, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewHeaderResolver()
	}

	rows := &replaySource{src: src}
	header, err := readHeader(ctx, rows, src.HeaderHint(), resolver)
	if err != nil {
		return nil, err
	}
	columns := resolver.ResolveColumns(header)

	out := &Ingestion{Brackets: make(BracketSet)}
	sawData, validated := false, false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := rows.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(ctx, err)
		}
		sawData = true
		if !row.Populated() {
			continue
		}
		if !validated {
			if err := columns.Validate(); err != nil {
				return nil, err
			}
			validated = true
		}
		sample, site, ok := admit(row, columns, loc)
		if out.SiteName == "" && site != "" {
			out.SiteName = site
		}
		if !ok {
			continue
		}
		out.Brackets.Fold(sample)
		out.ParsedRecords++
	}

	if !validated {
		return nil, &EmptyInputError{NoPopulatedRows: sawData}
	}
	return out, nil
}

// admit extracts and normalizes one data row. The site name is reported once the
// required cells are present, even if normalization later rejects the row.
func admit(row RawRow, columns ColumnRoleMap, loc *time.Location) (Sample, string, bool) {
	rawTime := row.Cell(columns.Timestamp)
	rawYield := row.Cell(columns.CumulativeYield)
	rawDevice := row.Cell(columns.DeviceID)
	if rawTime == "" || rawYield == "" || rawDevice == "" {
		return Sample{}, "", false
	}
	site := row.Cell(columns.SiteName)

	day, ok := NormalizeDate(rawTime, loc)
	if !ok {
		return Sample{}, site, false
	}
	device, ok := NormalizeInverter(rawDevice)
	if !ok {
		return Sample{}, site, false
	}
	value, ok := NormalizeNumber(rawYield)
	if !ok {
		return Sample{}, site, false
	}
	return Sample{Day: day, DeviceID: device, Value: value}, site, true
}

func readHeader(ctx context.Context, rows *replaySource, hint HeaderHint, resolver *HeaderResolver) (RawRow, error) {
	if hint == HeaderDetect {
		return detectHeader(ctx, rows, resolver)
	}
	sawRows := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := rows.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil, &EmptyInputError{NoPopulatedRows: sawRows}
		}
		if err != nil {
			return nil, readError(ctx, err)
		}
		sawRows = true
		if row.Populated() {
			return row, nil
		}
	}
}

// detectHeader buffers the scan window, picks the header and queues the rows
// after it for replay.
func detectHeader(ctx context.Context, rows *replaySource, resolver *HeaderResolver) (RawRow, error) {
	window := make([]RawRow, 0, HeaderScanRows)
	populated := false
	for len(window) < HeaderScanRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := rows.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(ctx, err)
		}
		populated = populated || row.Populated()
		window = append(window, row)
	}
	if len(window) == 0 {
		return nil, &EmptyInputError{}
	}
	if !populated {
		return nil, &EmptyInputError{NoPopulatedRows: true}
	}
	idx, err := resolver.DetectHeader(window, PreferredHeaderIndex)
	if err != nil {
		return nil, err
	}
	rows.pending = append(rows.pending, window[idx+1:]...)
	return window[idx], nil
}

func readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	return &StreamReadError{Err: err}
}

// replaySource serves buffered rows before pulling from the wrapped source.
type replaySource struct {
	src     RowSource
	pending []RawRow
}

func (r *replaySource) Next(ctx context.Context) (RawRow, error) {
	if len(r.pending) > 0 {
		row := r.pending[0]
		r.pending = r.pending[1:]
		return row, nil
	}
	return r.src.Next(ctx)
}
