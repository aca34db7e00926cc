package audit

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeExporter struct {
	tables map[string][]map[string]interface{}
	cols   map[string][]string
	order  []string
	failOn string
}

func (f *fakeExporter) GetTableNames(context.Context) ([]string, error) { return f.order, nil }

func (f *fakeExporter) GetTableData(_ context.Context, name string) ([]map[string]interface{}, []string, error) {
	if name == f.failOn {
		return nil, nil, errors.New("boom")
	}
	return f.tables[name], f.cols[name], nil
}

func (f *fakeExporter) GetDB() *sql.DB { return nil }

func TestGenerateFilename(t *testing.T) {
	assert.Equal(t, "audit_2026_01.xlsx", GenerateFilename(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "audit_2025_12.xlsx", GenerateFilenameForPreviousMonth(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "audit_2026_02.xlsx", GenerateFilenameForPreviousMonth(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestNextFirstOfMonth(t *testing.T) {
	got := nextFirstOfMonth(time.Date(2025, 12, 20, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC), got)
}

func TestExportNow(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(io.Discard)
	exporter := &fakeExporter{
		order: []string{"bookings", "broken", "feedback"},
		cols: map[string][]string{
			"bookings": {"id", "status"},
			"feedback": {"id", "rating"},
		},
		tables: map[string][]map[string]interface{}{
			"bookings": {{"id": int64(1), "status": "BOOKED"}, {"id": int64(2), "status": "CANCELLED"}},
			"feedback": {{"id": int64(1), "rating": int64(5)}},
		},
		failOn: "broken",
	}

	svc := NewService(Config{ExportDir: dir}, exporter, NewExcelizeWriter, &logger)
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 0, 1, 0, 0, time.UTC) }

	path, err := svc.ExportNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audit_2026_01.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"bookings", "feedback"}, f.GetSheetList())

	rows, err := f.GetRows("bookings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "status"}, rows[0])
	assert.Equal(t, []string{"2", "CANCELLED"}, rows[2])
}

func TestExportNow_NotConfigured(t *testing.T) {
	logger := zerolog.New(io.Discard)
	svc := NewService(Config{ExportDir: t.TempDir()}, nil, nil, &logger)

	_, err := svc.ExportNow(context.Background())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(io.Discard)
	exporter := &fakeExporter{
		order:  []string{"customers"},
		cols:   map[string][]string{"customers": {"id"}},
		tables: map[string][]map[string]interface{}{"customers": {{"id": int64(1)}}},
	}

	svc := NewService(Config{ExportDir: dir, ExportOnStart: true}, exporter, NewExcelizeWriter, &logger)
	svc.Start()
	svc.Start()
	svc.Stop()
	svc.Stop()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "export on start writes one workbook before stop returns")
}

func TestExcelizeWriter(t *testing.T) {
	w := NewExcelizeWriter()
	defer w.Close()

	assert.Error(t, w.WriteRow([]interface{}{"x"}), "writing without a sheet fails")

	require.NoError(t, w.AddSheet("a very long sheet name that exceeds the excel limit"))
	require.NoError(t, w.WriteHeader([]string{"Metric", "Value"}))
	require.NoError(t, w.WriteRow([]interface{}{"Revenue", "120.00"}))
	require.NoError(t, w.AddSheet("Second"))
	require.NoError(t, w.WriteRow([]interface{}{1, true, nil}))

	var buf bytes.Buffer
	require.NoError(t, w.Save(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	assert.Len(t, sheets[0], maxSheetName)

	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Metric", "Value"}, {"Revenue", "120.00"}}, rows)
}
