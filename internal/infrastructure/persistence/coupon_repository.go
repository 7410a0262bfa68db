package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
)

// GormCouponRepository implements promotion.CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByCode finds a coupon by its code, case-insensitively, with its
// target rows populated. Returns shared.ErrNotFound when no coupon
// carries the code.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	var coupon promotion.Coupon
	err := r.db.WithContext(ctx).
		Preload("Targets").
		Where("lower(code) = lower(?)", code).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// CountRedemptions counts how many times the customer has redeemed the
// coupon. Redemptions are written by the order pipeline; this core only
// reads them.
func (r *GormCouponRepository) CountRedemptions(ctx context.Context, couponID, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("coupon_redemptions").
		Where("coupon_id = ? AND customer_id = ?", couponID, customerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ promotion.CouponRepository = (*GormCouponRepository)(nil)
