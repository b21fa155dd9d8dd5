package fileio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/xuri/excelize/v2"
)

var ErrMissingHeader = errors.New("file has no header row")

// Rows returns the row sequence for the given format.
func Rows(r io.Reader, format Format) iter.Seq2[map[string]string, error] {
	if format == FormatXLSX {
		return XLSXRows(r)
	}
	return CSVRows(r)
}

// CSVRows yields one map per data row keyed by the normalized header. A read
// error is yielded once and ends the sequence.
func CSVRows(r io.Reader) iter.Seq2[map[string]string, error] {
	return func(yield func(map[string]string, error) bool) {
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true

		first, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrMissingHeader
			}
			yield(nil, fmt.Errorf("read csv header: %w", err))
			return
		}
		header := make([]string, len(first))
		for i, h := range first {
			header[i] = normalizeHeader(h)
		}

		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read csv row: %w", err))
				return
			}
			if !yield(rowMap(header, record), nil) {
				return
			}
		}
	}
}

// XLSXRows streams the first worksheet of a workbook. The first row is the
// header.
func XLSXRows(r io.Reader) iter.Seq2[map[string]string, error] {
	return func(yield func(map[string]string, error) bool) {
		book, err := excelize.OpenReader(r)
		if err != nil {
			yield(nil, fmt.Errorf("open workbook: %w", err))
			return
		}
		defer book.Close()

		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			yield(nil, ErrMissingHeader)
			return
		}

		rows, err := book.Rows(sheets[0])
		if err != nil {
			yield(nil, fmt.Errorf("read sheet %q: %w", sheets[0], err))
			return
		}
		defer rows.Close()

		var header []string
		for rows.Next() {
			cols, err := rows.Columns()
			if err != nil {
				yield(nil, fmt.Errorf("read sheet row: %w", err))
				return
			}
			if header == nil {
				header = make([]string, len(cols))
				for i, h := range cols {
					header[i] = normalizeHeader(h)
				}
				continue
			}
			if !yield(rowMap(header, cols), nil) {
				return
			}
		}
		if err := rows.Error(); err != nil {
			yield(nil, fmt.Errorf("read sheet: %w", err))
			return
		}
		if header == nil {
			yield(nil, ErrMissingHeader)
		}
	}
}
