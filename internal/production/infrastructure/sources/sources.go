// Package sources adapts spreadsheet, CSV and XML exports to row sources.
package sources

import (
	"bytes"
	"fmt"
	"io"

	production "isolar-cloud/internal/production/domain"
)

// Source is a row source that holds resources until closed.
type Source interface {
	production.RowSource
	io.Closer
}

// Open returns the adapter for a format tag.
func Open(format string, data []byte) (Source, error) {
	switch format {
	case production.FormatXLSX:
		src, err := NewXLSXMemorySource(data)
		if err != nil {
			return nil, err
		}
		return nopCloser{src}, nil
	case production.FormatXLSXStream:
		return NewXLSXStreamSource(data)
	case production.FormatCSV:
		return nopCloser{NewCSVSource(bytes.NewReader(data))}, nil
	case production.FormatXML:
		src, err := NewXMLSource(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return nopCloser{src}, nil
	}
	return nil, fmt.Errorf("%w: %q", production.ErrUnsupportedFormat, format)
}

type nopCloser struct {
	production.RowSource
}

func (nopCloser) Close() error { return nil }
