package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds configuration for the audit service.
type Config struct {
	// ExportDir receives one workbook per month.
	ExportDir string

	// ExportOnStart if true, runs export immediately on service start.
	ExportOnStart bool
}

// Service writes a monthly workbook with every exported table.
type Service struct {
	config   Config
	exporter TableExporter
	writer   func() ExcelWriter // factory for creating new Excel writers
	now      func() time.Time
	logger   zerolog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewService creates a new audit service.
func NewService(config Config, exporter TableExporter, writerFactory func() ExcelWriter, logger *zerolog.Logger) *Service {
	if config.ExportDir == "" {
		config.ExportDir = "exports"
	}
	return &Service{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		now:      time.Now,
		logger:   logger.With().Str("component", "audit").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the audit scheduler.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runExport()
		}()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().Str("dir", s.config.ExportDir).Msg("Audit service started")
}

// Stop gracefully stops the audit service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info().Msg("Audit service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := nextFirstOfMonth(s.now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info().Time("time", nextRun).Msg("Next audit scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.runExport()

			nextRun = nextFirstOfMonth(s.now())
			timer.Reset(time.Until(nextRun))
			s.logger.Info().Time("time", nextRun).Msg("Next audit scheduled")
		}
	}
}

// nextFirstOfMonth is 00:01 on the first day of the month after now.
func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

func (s *Service) runExport() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.ExportNow(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to export audit data")
	}
}

// ExportNow writes the workbook for the previous month and returns its path.
func (s *Service) ExportNow(ctx context.Context) (string, error) {
	if s.exporter == nil || s.writer == nil {
		return "", fmt.Errorf("exporter or writer not configured")
	}

	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return "", fmt.Errorf("get table names: %w", err)
	}
	if len(tables) == 0 {
		s.logger.Info().Msg("No tables to export")
		return "", nil
	}

	excel := s.writer()
	if excel == nil {
		return "", fmt.Errorf("failed to create excel writer")
	}
	defer excel.Close()

	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to get table data")
			continue
		}
		if err := excel.AddSheet(tableName); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to add sheet")
			continue
		}
		if err := excel.WriteHeader(columns); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to write header")
			continue
		}

		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to write row")
			}
		}

		s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("Exported table")
	}

	if err := os.MkdirAll(s.config.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.config.ExportDir, GenerateFilenameForPreviousMonth(s.now()))
	if err := excel.SaveToFile(path); err != nil {
		return "", fmt.Errorf("save excel: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("Audit report written")
	return path, nil
}
