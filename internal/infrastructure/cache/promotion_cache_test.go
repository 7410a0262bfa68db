package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
)

// mockPromotionSource is a mock for the wrapped promotion.Repository
type mockPromotionSource struct {
	mock.Mock
}

func (m *mockPromotionSource) FindActive(ctx context.Context, at time.Time) ([]promotion.Promotion, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]promotion.Promotion), args.Error(1)
}

func (m *mockPromotionSource) FindForPlacement(ctx context.Context, placement promotion.Placement, at time.Time) ([]promotion.Promotion, error) {
	args := m.Called(ctx, placement, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]promotion.Promotion), args.Error(1)
}

// unreachableClient returns a Redis client pointed at a port nothing
// listens on, so every command fails immediately.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestCachedPromotionRepository_FailsOpenOnRedisOutage(t *testing.T) {
	source := &mockPromotionSource{}
	promo := promotion.Promotion{
		BaseEntity: shared.NewBaseEntity(),
		Name:       "Sitewide",
		ValueType:  promotion.ValueTypePercentage,
		IsActive:   true,
	}
	source.On("FindActive", mock.Anything, mock.Anything).Return([]promotion.Promotion{promo}, nil)

	cached := NewCachedPromotionRepositoryWithClient(source, unreachableClient())
	defer cached.Close()

	promotions, err := cached.FindActive(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, promotions, 1)
	assert.Equal(t, promo.ID, promotions[0].ID)

	source.AssertExpectations(t)
}

func TestCachedPromotionRepository_SourceErrorPropagates(t *testing.T) {
	source := &mockPromotionSource{}
	source.On("FindForPlacement", mock.Anything, promotion.PlacementHome, mock.Anything).
		Return(nil, shared.NewDomainError("DB_ERROR", "connection refused"))

	cached := NewCachedPromotionRepositoryWithClient(source, unreachableClient())
	defer cached.Close()

	_, err := cached.FindForPlacement(context.Background(), promotion.PlacementHome, time.Now())
	assert.Error(t, err)
}

func TestCachedPromotionRepository_CloseDoesNotCloseSharedClient(t *testing.T) {
	source := &mockPromotionSource{}
	client := unreachableClient()
	defer client.Close()

	cached := NewCachedPromotionRepositoryWithClient(source, client)
	require.NoError(t, cached.Close())

	// The shared client must still be usable for its owner.
	assert.NotPanics(t, func() {
		client.Ping(context.Background())
	})
}
