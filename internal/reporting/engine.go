// Package reporting derives read-only statistics from stored bookings.
// Nothing here mutates a booking.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"skincare/internal/domain"
	"skincare/internal/models"
)

// RecentLimit is how many bookings the dashboard lists.
const RecentLimit = 5

// Store is the read side the engine aggregates over.
type Store interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)
	CountCustomers(ctx context.Context) (int64, error)
	CountServices(ctx context.Context) (int64, error)
	ListRatings(ctx context.Context) ([]int, error)
}

// SummaryCache keeps computed dashboards between invalidations.
type SummaryCache interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, val any)
}

type DashboardSummary struct {
	TotalBookings  int64            `json:"total_bookings"`
	TotalCustomers int64            `json:"total_customers"`
	TotalServices  int64            `json:"total_services"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	RecentBookings []models.Booking `json:"recent_bookings"`
	AverageRating  float64          `json:"average_rating"`
}

type PeriodReport struct {
	Start            time.Time                    `json:"start"`
	End              time.Time                    `json:"end"`
	BookingCount     int                          `json:"booking_count"`
	TotalRevenue     decimal.Decimal              `json:"total_revenue"`
	BookingsByStatus map[models.BookingStatus]int `json:"bookings_by_status"`
	PopularServices  map[string]int               `json:"popular_services"`
}

type Engine struct {
	store     Store
	directory domain.Directory
	cache     SummaryCache
	cacheKey  string
	logger    zerolog.Logger
}

func NewEngine(store Store, directory domain.Directory, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:     store,
		directory: directory,
		logger:    logger.With().Str("component", "reporting").Logger(),
	}
}

// UseCache serves dashboards from cache under key until the entry is dropped.
func (e *Engine) UseCache(cache SummaryCache, key string) {
	e.cache = cache
	e.cacheKey = key
}

// TotalRevenue sums amounts of paid bookings. Unpaid bookings and absent amounts add zero.
func TotalRevenue(bookings []models.Booking) decimal.Decimal {
	total := decimal.Zero
	for i := range bookings {
		total = total.Add(bookings[i].Revenue())
	}
	return total
}

// AverageRating is the mean of ratings, or 0 when there are none.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}

// RecentBookings returns up to limit bookings, newest created first; ties go to the higher id.
func RecentBookings(bookings []models.Booking, limit int) []models.Booking {
	sorted := make([]models.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func (e *Engine) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	if e.cache != nil {
		var cached DashboardSummary
		if e.cache.Get(ctx, e.cacheKey, &cached) {
			return &cached, nil
		}
	}

	bookings, err := e.store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := e.store.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}
	services, err := e.store.CountServices(ctx)
	if err != nil {
		return nil, err
	}
	ratings, err := e.store.ListRatings(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		TotalBookings:  int64(len(bookings)),
		TotalCustomers: customers,
		TotalServices:  services,
		TotalRevenue:   TotalRevenue(bookings),
		RecentBookings: RecentBookings(bookings, RecentLimit),
		AverageRating:  AverageRating(ratings),
	}

	if e.cache != nil {
		e.cache.Set(ctx, e.cacheKey, summary)
	}
	return summary, nil
}

// PeriodReport aggregates bookings with appointment time in [start, end].
func (e *Engine) PeriodReport(ctx context.Context, start, end time.Time) (*PeriodReport, error) {
	report, _, err := e.periodReport(ctx, start, end)
	return report, err
}

func (e *Engine) periodReport(ctx context.Context, start, end time.Time) (*PeriodReport, []models.Booking, error) {
	if start.After(end) {
		return nil, nil, domain.NewValidation("start", "must not be after end")
	}

	bookings, err := e.store.GetBookingsByDateRange(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, nil, err
	}

	report := &PeriodReport{
		Start:            start,
		End:              end,
		BookingCount:     len(bookings),
		TotalRevenue:     TotalRevenue(bookings),
		BookingsByStatus: make(map[models.BookingStatus]int),
		PopularServices:  make(map[string]int),
	}

	names := make(map[int64]string)
	for i := range bookings {
		b := &bookings[i]
		report.BookingsByStatus[b.Status]++

		name, ok := names[b.ServiceID]
		if !ok {
			svc, err := e.directory.GetService(ctx, b.ServiceID)
			if err != nil {
				return nil, nil, err
			}
			name = svc.Name
			names[b.ServiceID] = name
		}
		report.PopularServices[name]++
	}

	e.logger.Debug().
		Time("start", start).
		Time("end", end).
		Int("bookings", report.BookingCount).
		Str("revenue", report.TotalRevenue.StringFixed(2)).
		Msg("period report built")

	return report, bookings, nil
}
