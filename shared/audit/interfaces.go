package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"
)

// TableExporter provides access to database tables for export.
type TableExporter interface {
	// GetTableNames returns list of table names to export.
	GetTableNames(ctx context.Context) ([]string, error)

	// GetTableData returns rows for a table as maps.
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)

	// GetDB returns underlying sql.DB for custom queries.
	GetDB() *sql.DB
}

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name.
	AddSheet(name string) error

	// WriteHeader writes column headers to current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to current sheet.
	WriteRow(row []interface{}) error

	// Save writes the Excel file to the writer.
	Save(w io.Writer) error

	// SaveToFile writes the Excel file to disk.
	SaveToFile(path string) error

	// Close releases resources.
	Close() error
}

// GenerateFilename creates a filename like "audit_2026_01.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("audit_%d_%02d.xlsx", t.Year(), int(t.Month()))
}

// GenerateFilenameForPreviousMonth creates filename for the month before now.
func GenerateFilenameForPreviousMonth(now time.Time) string {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return GenerateFilename(firstOfMonth.AddDate(0, -1, 0))
}
