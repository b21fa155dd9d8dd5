package fileio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = "\ufeffName, Email ,Phone,Address,Time Zone\n" +
	"Ann,ann@x.com,555,Main St,UTC\n" +
	"Ben,ben@x.com,556,\"Elm St, 4\",Europe/Paris\n"

func collect(t *testing.T, seq func(func(map[string]string, error) bool)) ([]map[string]string, error) {
	t.Helper()
	var rows []map[string]string
	for row, err := range seq {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	xlsx := buildWorkbook(t, [][]any{{"Name"}})

	format, err := Detect("contacts.csv", []byte(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	format, err = Detect("Contacts.XLSX", xlsx)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	format, err = Detect("legacy.xls", xlsx)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	_, err = Detect("contacts.csv", xlsx)
	assert.Equal(t, pkgerrors.CodeUnsupported, pkgerrors.CodeOf(err))

	_, err = Detect("contacts.xlsx", []byte(sampleCSV))
	assert.Equal(t, pkgerrors.CodeUnsupported, pkgerrors.CodeOf(err))

	_, err = Detect("contacts.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, pkgerrors.CodeUnsupported, pkgerrors.CodeOf(err))
}

func TestCSVRows(t *testing.T) {
	rows, err := collect(t, CSVRows(strings.NewReader(sampleCSV)))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]string{
		"name": "Ann", "email": "ann@x.com", "phone": "555", "address": "Main St", "time_zone": "UTC",
	}, rows[0])
	assert.Equal(t, "Elm St, 4", rows[1]["address"])
}

func TestCSVRowsShortRecordAndErrors(t *testing.T) {
	rows, err := collect(t, CSVRows(strings.NewReader("name,email,phone\nAnn,ann@x.com\n")))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["phone"])

	_, err = collect(t, CSVRows(strings.NewReader("")))
	assert.ErrorIs(t, err, ErrMissingHeader)

	rows, err = collect(t, CSVRows(strings.NewReader("name,email\nAnn,ann@x.com\n\"Ben,ben@x.com\n")))
	require.Error(t, err)
	assert.Len(t, rows, 1)
}

func TestCSVRowsStopsWhenConsumerStops(t *testing.T) {
	count := 0
	for range CSVRows(strings.NewReader(sampleCSV)) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestXLSXRows(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Name", "Email", "Phone", "Address", "Timezone"},
		{"Ann", "ann@x.com", "555", "Main St", "UTC"},
		{"Ben", "ben@x.com", 556, "Elm St", "Asia/Tokyo"},
	})

	rows, err := collect(t, Rows(bytes.NewReader(data), FormatXLSX))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ann@x.com", rows[0]["email"])
	assert.Equal(t, "556", rows[1]["phone"])
	assert.Equal(t, "Asia/Tokyo", rows[1]["timezone"])
}

func TestXLSXRowsRejectsGarbage(t *testing.T) {
	_, err := collect(t, XLSXRows(strings.NewReader("not a workbook")))
	assert.Error(t, err)

	_, err = collect(t, XLSXRows(bytes.NewReader(buildWorkbook(t, nil))))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestWriteCSV(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("X", 2*3600))
	var buf bytes.Buffer
	err := WriteCSV(&buf, []contacts.ExportRow{
		{Name: "Bob", Email: "bob@x.com", Phone: "123", Address: "X, Y", Timezone: "UTC", CreatedAt: created},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"Name,Email,Phone,Address,Timezone,Created At\n"+
			"Bob,bob@x.com,123,\"X, Y\",UTC,2026-03-01T07:30:00Z\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Name,Email,Phone,Address,Timezone,Created At\n", buf.String())
}
