package api

import (
	"fmt"
	"net/http"

	"skincare/internal/metrics"
	"skincare/shared/audit"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/dashboard
func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard")
	summary, err := s.reports.DashboardSummary(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/reports?startDate=...&endDate=...
func (s *HTTPServer) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("period_report")
	start, end, err := parseRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	report, err := s.reports.PeriodReport(r.Context(), start, end)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GET /api/reports/export?startDate=...&endDate=... returns the period report as a workbook.
func (s *HTTPServer) handleExportReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export_report")
	start, end, err := parseRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	excel := audit.NewExcelizeWriter()
	defer excel.Close()

	if _, err := s.reports.ExportPeriodReport(r.Context(), start, end, excel); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	filename := fmt.Sprintf("report_%s_%s.xlsx", start.Format("20060102"), end.Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := excel.Save(w); err != nil {
		s.logger.Error().Err(err).Msg("write report workbook")
	}
}
