package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportFilename is the download name of the CSV export.
const ExportFilename = "attendance.csv"

var csvHeader = []string{"Name", "Reg No", "Date", "Time"}

// WriteCSV writes the records with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Name, r.RegNo, r.Date, r.Time}); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
