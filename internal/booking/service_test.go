package booking

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skincare/internal/domain"
	"skincare/internal/models"
)

// memRepo is an in-memory BookingRepository with version checks.
type memRepo struct {
	mu       sync.Mutex
	bookings map[int64]*models.Booking
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[int64]*models.Booking), nextID: 1}
}

func (r *memRepo) CreateBooking(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.nextID
	r.nextID++
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *memRepo) GetBooking(_ context.Context, id int64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFound("booking", id)
	}
	return b.Clone(), nil
}

func (r *memRepo) UpdateBookingWithVersion(_ context.Context, b *models.Booking, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[b.ID]
	if !ok {
		return domain.NewNotFound("booking", b.ID)
	}
	if cur.Version != expected {
		return domain.ErrConcurrentModification
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *memRepo) GetBookingsByCustomer(_ context.Context, customerID int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.CustomerID == customerID {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) GetBookingsByDateRange(_ context.Context, start, end time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if !b.AppointmentTime.Before(start) && !b.AppointmentTime.After(end) {
			out = append(out, *b.Clone())
		}
	}
	return out, nil
}

func (r *memRepo) ListBookings(_ context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		out = append(out, *b.Clone())
	}
	return out, nil
}

type memDirectory struct {
	customers  map[int64]*models.Customer
	services   map[int64]*models.Service
	therapists map[int64]*models.Therapist
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		customers: map[int64]*models.Customer{1: {ID: 1, FirstName: "Linh"}},
		services: map[int64]*models.Service{
			2: {ID: 2, Name: "Hydrating Facial", Price: decimal.RequireFromString("120.00")},
		},
		therapists: map[int64]*models.Therapist{3: {ID: 3, FirstName: "Mai"}, 4: {ID: 4, FirstName: "Hoa"}},
	}
}

func (d *memDirectory) GetCustomer(_ context.Context, id int64) (*models.Customer, error) {
	if c, ok := d.customers[id]; ok {
		return c, nil
	}
	return nil, domain.NewNotFound("customer", id)
}

func (d *memDirectory) GetService(_ context.Context, id int64) (*models.Service, error) {
	if s, ok := d.services[id]; ok {
		return s, nil
	}
	return nil, domain.NewNotFound("service", id)
}

func (d *memDirectory) GetTherapist(_ context.Context, id int64) (*models.Therapist, error) {
	if t, ok := d.therapists[id]; ok {
		return t, nil
	}
	return nil, domain.NewNotFound("therapist", id)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

// fakeClock advances one minute per call so successive stamps differ.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func newTestService(t *testing.T) (*Service, *memRepo, *mockEventBus) {
	t.Helper()
	repo := newMemRepo()
	bus := new(mockEventBus)
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
	logger := zerolog.New(io.Discard)
	clock := &fakeClock{now: time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, newMemDirectory(), bus, &logger, WithClock(clock.Now))
	return svc, repo, bus
}

func appointment() time.Time {
	return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
}

func createBooking(t *testing.T, svc *Service) *models.Booking {
	t.Helper()
	b, err := svc.CreateBooking(context.Background(), CreateRequest{
		CustomerID:      1,
		ServiceID:       2,
		AppointmentTime: appointment(),
	})
	require.NoError(t, err)
	return b
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		svc, _, bus := newTestService(t)

		b := createBooking(t, svc)
		assert.Equal(t, models.StatusBooked, b.Status)
		assert.False(t, b.IsPaid)
		assert.Nil(t, b.CheckinTime)
		assert.Nil(t, b.CheckoutTime)
		assert.Nil(t, b.PaymentTime)
		assert.Nil(t, b.TherapistID)
		assert.Equal(t, b.CreatedAt, b.UpdatedAt)
		assert.True(t, b.Amount.Valid)
		assert.True(t, b.Amount.Decimal.Equal(decimal.RequireFromString("120.00")))
		bus.AssertCalled(t, "PublishJSON", EventCreated, mock.Anything)
	})

	t.Run("ExplicitAmountAndTherapist", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		therapist := int64(3)

		b, err := svc.CreateBooking(ctx, CreateRequest{
			CustomerID:      1,
			ServiceID:       2,
			TherapistID:     &therapist,
			AppointmentTime: appointment(),
			Amount:          decimal.NewNullDecimal(decimal.RequireFromString("99.50")),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), *b.TherapistID)
		assert.Equal(t, "99.5", b.Amount.Decimal.String())
	})

	t.Run("Validation", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		reqs := []CreateRequest{
			{ServiceID: 2, AppointmentTime: appointment()},
			{CustomerID: 1, AppointmentTime: appointment()},
			{CustomerID: 1, ServiceID: 2},
		}
		for _, req := range reqs {
			_, err := svc.CreateBooking(ctx, req)
			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
		}
	})

	t.Run("UnknownReferences", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		unknown := int64(99)

		_, err := svc.CreateBooking(ctx, CreateRequest{CustomerID: 99, ServiceID: 2, AppointmentTime: appointment()})
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "customer", nf.Kind)
		assert.Equal(t, int64(99), nf.ID)

		_, err = svc.CreateBooking(ctx, CreateRequest{CustomerID: 1, ServiceID: 99, AppointmentTime: appointment()})
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "service", nf.Kind)

		_, err = svc.CreateBooking(ctx, CreateRequest{CustomerID: 1, ServiceID: 2, TherapistID: &unknown, AppointmentTime: appointment()})
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "therapist", nf.Kind)
	})
}

func TestLifecycleScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	b := createBooking(t, svc)
	createdAt := b.CreatedAt

	b, err := svc.CheckIn(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, b.Status)
	require.NotNil(t, b.CheckinTime)

	b, err = svc.ProcessPayment(ctx, b.ID, models.PaymentCash)
	require.NoError(t, err)
	assert.True(t, b.IsPaid)
	assert.Equal(t, models.PaymentCash, b.PaymentMethod)
	require.NotNil(t, b.PaymentTime)
	assert.Equal(t, models.StatusCheckedIn, b.Status)

	b, err = svc.RecordServiceResults(ctx, b.ID, "Applied serum, skin improved")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, b.Status)
	assert.Equal(t, "Applied serum, skin improved", b.ServiceResults)
	assert.NotNil(t, b.CheckoutTime)

	assert.Equal(t, createdAt, b.CreatedAt)
	assert.True(t, b.UpdatedAt.After(createdAt))
	assert.Equal(t, int64(4), b.Version)
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CheckIn(ctx, 404)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("OnlyOnce", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)

		first, err := svc.CheckIn(ctx, b.ID)
		require.NoError(t, err)

		_, err = svc.CheckIn(ctx, b.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		stored, err := svc.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, *first.CheckinTime, *stored.CheckinTime)
	})
}

func TestCheckOutCompletes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b := createBooking(t, svc)

	_, err := svc.CheckOut(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "checkout requires check-in")

	_, err = svc.CheckIn(ctx, b.ID)
	require.NoError(t, err)

	b, err = svc.CheckOut(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, b.Status)
	assert.NotNil(t, b.CheckoutTime)
	assert.Empty(t, b.ServiceResults)

	_, err = svc.RecordServiceResults(ctx, b.ID, "late notes")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRecordServiceResults_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordServiceResults(ctx, 1, "   ")
	assert.True(t, domain.IsValidation(err))

	_, err = svc.RecordServiceResults(ctx, 404, "ok")
	assert.True(t, domain.IsNotFound(err))
}

func TestAssignTherapist(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()
	b := createBooking(t, svc)

	b, err := svc.AssignTherapist(ctx, b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), *b.TherapistID)
	assert.Equal(t, models.StatusBooked, b.Status)
	bus.AssertCalled(t, "PublishJSON", EventTherapistAssign, mock.Anything)

	version := b.Version
	same, err := svc.AssignTherapist(ctx, b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, version, same.Version)

	_, err = svc.AssignTherapist(ctx, b.ID, 99)
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.AssignTherapist(ctx, 404, 4)
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.Cancel(ctx, b.ID, "customer sick")
	require.NoError(t, err)
	_, err = svc.AssignTherapist(ctx, b.ID, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Idempotent", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)

		first, err := svc.ProcessPayment(ctx, b.ID, models.PaymentCreditCard)
		require.NoError(t, err)

		second, err := svc.ProcessPayment(ctx, b.ID, models.PaymentCash)
		require.NoError(t, err)
		assert.Equal(t, *first.PaymentTime, *second.PaymentTime)
		assert.Equal(t, models.PaymentCreditCard, second.PaymentMethod)
		assert.Equal(t, first.Version, second.Version)
	})

	t.Run("InvalidMethod", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)

		_, err := svc.ProcessPayment(ctx, b.ID, models.PaymentMethod("BARTER"))
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.ProcessPayment(ctx, 404, models.PaymentOnline)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("RejectedWhenCancelled", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)
		_, err := svc.Cancel(ctx, b.ID, "no show")
		require.NoError(t, err)

		_, err = svc.ProcessPayment(ctx, b.ID, models.PaymentCash)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("AllowedAfterCompletion", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)
		_, err := svc.CheckIn(ctx, b.ID)
		require.NoError(t, err)
		_, err = svc.CheckOut(ctx, b.ID)
		require.NoError(t, err)

		b, err = svc.ProcessPayment(ctx, b.ID, models.PaymentBankTransfer)
		require.NoError(t, err)
		assert.True(t, b.IsPaid)
		assert.Equal(t, models.StatusCompleted, b.Status)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyReason", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)

		_, err := svc.Cancel(ctx, b.ID, "")
		assert.True(t, domain.IsValidation(err))

		stored, err := svc.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusBooked, stored.Status)
	})

	t.Run("SetsReason", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)

		b, err := svc.Cancel(ctx, b.ID, "reason")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, b.Status)
		assert.Equal(t, "reason", b.CancellationReason)
	})

	t.Run("TerminalStates", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := createBooking(t, svc)
		_, err := svc.CheckIn(ctx, b.ID)
		require.NoError(t, err)
		_, err = svc.RecordServiceResults(ctx, b.ID, "done")
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, b.ID, "changed mind")
		var te *domain.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, models.StatusCompleted, te.From)

		c := createBooking(t, svc)
		_, err = svc.Cancel(ctx, c.ID, "first")
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, c.ID, "second")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		_, err = svc.CheckIn(ctx, c.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Cancel(ctx, 404, "reason")
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestConcurrentTransitionsAreSerialized(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	b := createBooking(t, svc)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.CheckIn(ctx, b.ID)
			} else {
				_, err = svc.Cancel(ctx, b.ID, "race")
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "unexpected error: %v", err)
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, "race", stored.CancellationReason)
	assert.Equal(t, int64(1+succeeded), stored.Version)
	assert.Equal(t, 0, svc.locks.size())
}

func TestQueries(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b := createBooking(t, svc)

	list, err := svc.CustomerBookings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	_, err = svc.CustomerBookings(ctx, 99)
	assert.True(t, domain.IsNotFound(err))

	inRange, err := svc.BookingsInRange(ctx, appointment(), appointment())
	require.NoError(t, err)
	assert.Len(t, inRange, 1)

	_, err = svc.BookingsInRange(ctx, appointment().Add(time.Hour), appointment())
	assert.True(t, domain.IsValidation(err))
}

func TestPublishErrorIsNotFatal(t *testing.T) {
	repo := newMemRepo()
	bus := new(mockEventBus)
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("bus down"))
	logger := zerolog.New(io.Discard)
	svc := NewService(repo, newMemDirectory(), bus, &logger)

	b := createBooking(t, svc)
	_, err := svc.CheckIn(context.Background(), b.ID)
	assert.NoError(t, err)
}
