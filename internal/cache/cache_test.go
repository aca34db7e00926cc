package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skincare/internal/domain"
	"skincare/internal/events"
	"skincare/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := zerolog.New(io.Discard)
	return New(client, ttl, &logger), mr
}

func TestCache_SetGetExpire(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	type summary struct {
		Total int `json:"total"`
	}

	var out summary
	assert.False(t, c.Get(ctx, DashboardKey, &out))

	c.Set(ctx, DashboardKey, summary{Total: 7})
	require.True(t, c.Get(ctx, DashboardKey, &out))
	assert.Equal(t, 7, out.Total)

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.Get(ctx, DashboardKey, &out))
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()

	var nilCache *Cache
	nilCache.Set(ctx, "k", 1)
	var v int
	assert.False(t, nilCache.Get(ctx, "k", &v))

	c, mr := newTestCache(t, 0)
	c.Set(ctx, "k", 1)
	assert.False(t, mr.Exists("k"))
}

func TestCache_InvalidateOnEvent(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	bus := events.NewEventBus(&logger)
	bus.Subscribe(c.InvalidateOn(DashboardKey), "booking.created")

	c.Set(ctx, DashboardKey, map[string]int{"total": 1})
	require.True(t, mr.Exists(DashboardKey))

	require.NoError(t, bus.PublishJSON("booking.created", map[string]int{"booking_id": 1}))
	assert.False(t, mr.Exists(DashboardKey))
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*models.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) GetService(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*models.Service); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) GetTherapist(ctx context.Context, id int64) (*models.Therapist, error) {
	args := m.Called(ctx, id)
	if th, ok := args.Get(0).(*models.Therapist); ok {
		return th, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDirectory_ReadThrough(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	next := new(mockDirectory)
	next.On("GetService", mock.Anything, int64(2)).
		Return(&models.Service{ID: 2, Name: "Peel", Price: decimal.RequireFromString("80.00")}, nil).Once()
	next.On("GetCustomer", mock.Anything, int64(1)).Return(&models.Customer{ID: 1, FirstName: "Linh"}, nil).Once()
	next.On("GetTherapist", mock.Anything, int64(3)).Return(&models.Therapist{ID: 3, FirstName: "Mai"}, nil).Once()
	next.On("GetCustomer", mock.Anything, int64(9)).Return(nil, domain.NewNotFound("customer", 9)).Twice()

	dir := NewDirectory(next, c)

	for i := 0; i < 2; i++ {
		s, err := dir.GetService(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Peel", s.Name)
		assert.True(t, s.Price.Equal(decimal.RequireFromString("80")))

		cu, err := dir.GetCustomer(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Linh", cu.FirstName)

		th, err := dir.GetTherapist(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Mai", th.FirstName)

		_, err = dir.GetCustomer(ctx, 9)
		assert.True(t, domain.IsNotFound(err))
	}

	next.AssertExpectations(t)
}
