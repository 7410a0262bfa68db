package promotion

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository supplies the candidate promotions the engine and display
// service compute over. Implementations must return promotions with
// their target rows populated.
type Repository interface {
	// FindActive returns all active promotions whose validity window
	// contains the given instant
	FindActive(ctx context.Context, at time.Time) ([]Promotion, error)

	// FindForPlacement returns active, time-valid promotions whose
	// display placements include the given placement
	FindForPlacement(ctx context.Context, placement Placement, at time.Time) ([]Promotion, error)
}

// CouponRepository supplies coupon records for validation. Coupons are
// authored elsewhere; this core only reads them.
type CouponRepository interface {
	// FindByCode finds a coupon by its code, case-insensitively.
	// Returns shared.ErrNotFound when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// CountRedemptions counts how many times the customer has redeemed
	// the coupon
	CountRedemptions(ctx context.Context, couponID, customerID uuid.UUID) (int64, error)
}

// OrderHistory answers the single question the campaign manager needs
// about a customer: how many completed orders they have.
type OrderHistory interface {
	CountCompleted(ctx context.Context, customerID uuid.UUID) (int64, error)
}
