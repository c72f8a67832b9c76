package production

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Format tags select the row source adapter.
const (
	FormatXLSX       = "xlsx"
	FormatXLSXStream = "xlsx-stream"
	FormatCSV        = "csv"
	FormatXML        = "xml"
)

// SourceLabel is the source reported in results for a format tag. Both
// spreadsheet adapters report "xlsx".
func SourceLabel(format string) string {
	if format == FormatXLSXStream {
		return FormatXLSX
	}
	return format
}

// MissingColumnsMessage is the failure message for unresolved required columns.
const MissingColumnsMessage = "Missing required columns (Start Time / Total Yield / ManageObject)"

// Compute ingests src and builds the result. Structural problems become a
// failure result; read errors and cancellation are returned as errors.
func Compute(ctx context.Context, source string, src RowSource, opts IngestOptions) (ParseResult, error) {
	ing, err := Ingest(ctx, src, opts)
	if err != nil {
		if msg, ok := FailureMessage(source, err); ok {
			return Failure(msg), nil
		}
		return ParseResult{}, err
	}
	return BuildResult(source, ing.SiteName, Aggregate(ing.Brackets), ing.ParsedRecords), nil
}

// FailureMessage maps a structural error to its user-facing message.
func FailureMessage(source string, err error) (string, bool) {
	label := strings.ToUpper(SourceLabel(source))
	var empty *EmptyInputError
	var header *MissingHeaderError
	switch {
	case errors.As(err, &empty):
		if empty.NoPopulatedRows {
			return fmt.Sprintf("No valid data rows in %s", label), true
		}
		return fmt.Sprintf("No records in %s", label), true
	case errors.As(err, &header):
		return header.Error(), true
	case errors.Is(err, ErrMissingColumns):
		return MissingColumnsMessage, true
	}
	return "", false
}

// DetectFormat maps a file name to a format tag. xlsxMode picks between the
// in-memory and streaming spreadsheet adapters.
func DetectFormat(name, xlsxMode string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		if xlsxMode == FormatXLSX {
			return FormatXLSX, nil
		}
		return FormatXLSXStream, nil
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".xml"):
		return FormatXML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}
