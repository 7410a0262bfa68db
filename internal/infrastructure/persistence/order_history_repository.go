package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/promotion"
)

// GormOrderHistoryRepository implements promotion.OrderHistory using
// GORM. Orders are owned by the fulfillment pipeline; this repository
// only answers the completed-order count the campaign manager needs,
// so it queries the table directly instead of owning an order model.
type GormOrderHistoryRepository struct {
	db *gorm.DB
}

// NewGormOrderHistoryRepository creates a new GormOrderHistoryRepository
func NewGormOrderHistoryRepository(db *gorm.DB) *GormOrderHistoryRepository {
	return &GormOrderHistoryRepository{db: db}
}

// CountCompleted counts the customer's completed orders
func (r *GormOrderHistoryRepository) CountCompleted(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("orders").
		Where("customer_id = ? AND status = ?", customerID, "completed").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ promotion.OrderHistory = (*GormOrderHistoryRepository)(nil)
