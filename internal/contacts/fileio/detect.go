// Package fileio reads contact uploads (CSV or XLSX) as lazy row sequences
// and writes the CSV export.
package fileio

import (
	"path/filepath"
	"strings"

	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/gabriel-vasile/mimetype"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	mimeCSV  = "text/csv"
	mimeText = "text/plain"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Detect decides the upload format from the filename extension and the
// leading bytes of the content. Both have to agree.
func Detect(filename string, head []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mime := mimetype.Detect(head)

	switch ext {
	case ".csv":
		if mime.Is(mimeCSV) || mime.Is(mimeText) {
			return FormatCSV, nil
		}
	case ".xlsx", ".xls":
		// legacy .xls names are accepted only when the payload is really OOXML
		if mime.Is(mimeXLSX) {
			return FormatXLSX, nil
		}
	default:
		return "", pkgerrors.New(pkgerrors.CodeUnsupported, "only .csv, .xlsx and .xls files are accepted").
			WithDetails(map[string]string{"filename": filename})
	}

	return "", pkgerrors.New(pkgerrors.CodeUnsupported, "file content does not match its extension").
		WithDetails(map[string]string{"filename": filename, "detected": mime.String()})
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func rowMap(header, record []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, key := range header {
		if key == "" {
			continue
		}
		if i < len(record) {
			row[key] = strings.TrimSpace(record[i])
		} else {
			row[key] = ""
		}
	}
	return row
}
