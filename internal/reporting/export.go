package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"skincare/internal/models"
	"skincare/shared/audit"
)

const exportTimeLayout = "2006-01-02 15:04"

// ExportPeriodReport writes the period report and its bookings to w, one sheet per view.
func (e *Engine) ExportPeriodReport(ctx context.Context, start, end time.Time, w audit.ExcelWriter) (*PeriodReport, error) {
	report, bookings, err := e.periodReport(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if err := writeSheet(w, "Summary", []string{"Metric", "Value"}, [][]interface{}{
		{"Start", report.Start.Format(exportTimeLayout)},
		{"End", report.End.Format(exportTimeLayout)},
		{"Bookings", report.BookingCount},
		{"Revenue", report.TotalRevenue.StringFixed(2)},
	}); err != nil {
		return nil, err
	}

	statusRows := make([][]interface{}, 0, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		statusRows = append(statusRows, []interface{}{string(s), report.BookingsByStatus[s]})
	}
	if err := writeSheet(w, "Status", []string{"Status", "Bookings"}, statusRows); err != nil {
		return nil, err
	}

	if err := writeSheet(w, "Services", []string{"Service", "Bookings"}, popularRows(report.PopularServices)); err != nil {
		return nil, err
	}

	bookingRows := make([][]interface{}, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		therapist := ""
		if b.TherapistID != nil {
			therapist = fmt.Sprint(*b.TherapistID)
		}
		amount := ""
		if b.Amount.Valid {
			amount = b.Amount.Decimal.StringFixed(2)
		}
		bookingRows = append(bookingRows, []interface{}{
			b.ID, b.CustomerID, b.ServiceID, therapist,
			b.AppointmentTime.Format(exportTimeLayout), string(b.Status),
			amount, b.IsPaid, string(b.PaymentMethod),
		})
	}
	if err := writeSheet(w, "Bookings",
		[]string{"ID", "Customer", "Service", "Therapist", "Appointment", "Status", "Amount", "Paid", "Payment method"},
		bookingRows); err != nil {
		return nil, err
	}

	return report, nil
}

// popularRows orders services by booking count, then by name.
func popularRows(popular map[string]int) [][]interface{} {
	names := make([]string, 0, len(popular))
	for name := range popular {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if popular[names[i]] != popular[names[j]] {
			return popular[names[i]] > popular[names[j]]
		}
		return names[i] < names[j]
	})

	rows := make([][]interface{}, 0, len(names))
	for _, name := range names {
		rows = append(rows, []interface{}{name, popular[name]})
	}
	return rows
}

func writeSheet(w audit.ExcelWriter, name string, header []string, rows [][]interface{}) error {
	if err := w.AddSheet(name); err != nil {
		return err
	}
	if err := w.WriteHeader(header); err != nil {
		return fmt.Errorf("sheet %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("sheet %s row: %w", name, err)
		}
	}
	return nil
}
