package production

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned when a file has no rows or no populated row.
	ErrEmptyInput = errors.New("production: empty input")
	// ErrMissingHeader is returned when no header row is found in the scan window.
	ErrMissingHeader = errors.New("production: missing header")
	// ErrMissingColumns is returned when a required column role is unresolved.
	ErrMissingColumns = errors.New("production: missing required columns")
	// ErrStreamRead is returned when the underlying reader fails.
	ErrStreamRead = errors.New("production: stream read error")
	// ErrUnsupportedFormat is returned for unknown format tags.
	ErrUnsupportedFormat = errors.New("production: unsupported format")
)

// EmptyInputError reports a file without usable rows.
// NoPopulatedRows distinguishes "rows exist but all cells are blank" from "no rows".
type EmptyInputError struct {
	NoPopulatedRows bool
}

func (e *EmptyInputError) Error() string {
	if e.NoPopulatedRows {
		return "production: no populated data rows"
	}
	return "production: no records"
}

// Is matches ErrEmptyInput.
func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// MissingHeaderError reports that header detection gave up.
type MissingHeaderError struct {
	ScannedRows int
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("no valid header found in first %d rows", e.ScannedRows)
}

// Is matches ErrMissingHeader.
func (e *MissingHeaderError) Is(target error) bool { return target == ErrMissingHeader }

// MissingColumnsError lists the required roles left unresolved.
type MissingColumnsError struct {
	Missing []Role
}

func (e *MissingColumnsError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, role := range e.Missing {
		names = append(names, string(role))
	}
	return "production: missing required columns: " + strings.Join(names, ", ")
}

// Is matches ErrMissingColumns.
func (e *MissingColumnsError) Is(target error) bool { return target == ErrMissingColumns }

// StreamReadError wraps an I/O failure of a row source.
type StreamReadError struct {
	Err error
}

func (e *StreamReadError) Error() string {
	return "production: stream read error: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *StreamReadError) Unwrap() error { return e.Err }

// Is matches ErrStreamRead.
func (e *StreamReadError) Is(target error) bool { return target == ErrStreamRead }
