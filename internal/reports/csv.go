package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

var exportHeader = []string{"Date", "Time", "Name", "Email", "WhatsApp", "Payment Method", "Status", "Created At"}

// WriteCSV renders rows with the export header. Created At is shown in loc.
func WriteCSV(rows []ExportRow, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("reports: write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			row.Time,
			row.FullName,
			row.Email,
			row.WhatsApp,
			row.PaymentMethod,
			row.Status,
			row.CreatedAt.In(loc).Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("reports: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("reports: flush: %w", err)
	}
	return buf.Bytes(), nil
}
