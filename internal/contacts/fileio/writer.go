package fileio

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/angelmondragon/contactbook-backend/internal/contacts"
)

var exportHeader = []string{"Name", "Email", "Phone", "Address", "Timezone", "Created At"}

// WriteCSV writes the export header followed by one line per row.
func WriteCSV(w io.Writer, rows []contacts.ExportRow) error {
	out := csv.NewWriter(w)
	if err := out.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Name,
			row.Email,
			row.Phone,
			row.Address,
			row.Timezone,
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := out.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	out.Flush()
	return out.Error()
}
