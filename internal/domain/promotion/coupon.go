package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// CouponType represents how a coupon's amount is interpreted
type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeFixed   CouponType = "fixed"
)

// CouponScope restricts which cart lines a coupon applies to
type CouponScope string

const (
	ScopeAll        CouponScope = "all"
	ScopeCategories CouponScope = "categories"
	ScopeProducts   CouponScope = "products"
)

// Coupon is an admin-authored discount code. This core reads coupons,
// it never creates or edits them.
type Coupon struct {
	shared.BaseEntity
	Code          string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Type          CouponType      `gorm:"type:varchar(20);not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	ApplicableTo  CouponScope     `gorm:"type:varchar(20);not null;default:'all'" json:"applicable_to"`
	ExcludeOnSale bool            `gorm:"not null;default:false" json:"exclude_on_sale"`
	StartsAt      *time.Time      `json:"starts_at,omitempty"`
	EndsAt        *time.Time      `json:"ends_at,omitempty"`

	// MinCartAmount, when set, is the smallest subtotal the coupon
	// accepts. UsageLimitPerCustomer, when set, bounds redemptions
	// per customer.
	MinCartAmount         *decimal.Decimal `gorm:"type:numeric(12,2)" json:"min_cart_amount,omitempty"`
	UsageLimitPerCustomer *int64           `json:"usage_limit_per_customer,omitempty"`

	Targets []CouponTarget `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE" json:"targets,omitempty"`
}

// TableName returns the table name for Coupon
func (Coupon) TableName() string {
	return "coupons"
}

// CouponTarget scopes a coupon to a product or category
type CouponTarget struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CouponID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"coupon_id"`
	TargetType TargetType `gorm:"type:varchar(20);not null" json:"target_type"`
	TargetID   uuid.UUID  `gorm:"type:uuid;not null" json:"target_id"`
}

// TableName returns the table name for CouponTarget
func (CouponTarget) TableName() string {
	return "coupon_targets"
}

// TargetSet builds the membership predicate for the coupon's scope.
// Scope "all" yields an empty set, which matches every line.
func (c *Coupon) TargetSet() TargetSet {
	if c.ApplicableTo == ScopeAll {
		return NewTargetSet(nil)
	}
	targets := make([]PromotionTarget, 0, len(c.Targets))
	for _, t := range c.Targets {
		targets = append(targets, PromotionTarget{TargetType: t.TargetType, TargetID: t.TargetID})
	}
	return NewTargetSet(targets)
}

// IsLive reports whether the coupon is active and inside its validity
// window at the given instant
func (c *Coupon) IsLive(at time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartsAt != nil && at.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && at.After(*c.EndsAt) {
		return false
	}
	return true
}

// DiscountAmount computes the discount the coupon grants over the
// lines inside its scope, clamped to the cart subtotal. Validation is
// the caller's concern; this only does arithmetic.
func (c *Coupon) DiscountAmount(cart Cart) decimal.Decimal {
	targets := c.TargetSet()
	scopeSubtotal := decimal.Zero
	for _, line := range cart.Lines {
		if targets.MatchesLine(line) {
			scopeSubtotal = scopeSubtotal.Add(line.Subtotal())
		}
	}

	var amount decimal.Decimal
	switch c.Type {
	case CouponTypePercent:
		amount = roundMoney(scopeSubtotal.Mul(c.Amount).Div(decimal.NewFromInt(100)))
	case CouponTypeFixed:
		amount = roundMoney(decimal.Min(c.Amount, scopeSubtotal))
	default:
		return decimal.Zero
	}
	return capAtSubtotal(amount, cart.Subtotal)
}

// Validation error codes
const (
	ErrCodeCouponInactive   = "COUPON_INACTIVE"
	ErrCodeCouponExpired    = "COUPON_EXPIRED"
	ErrCodeCouponScope      = "COUPON_NOT_APPLICABLE"
	ErrCodeCouponOnSale     = "COUPON_ON_SALE_EXCLUDED"
	ErrCodeCouponMinCart    = "COUPON_MIN_CART"
	ErrCodeCouponUsageLimit = "COUPON_USAGE_LIMIT"
)

// CouponValidator checks a coupon against a cart. Validation failures
// are values surfaced to the checkout UI, not errors; only the
// redemption-count lookup can fail.
type CouponValidator struct {
	coupons CouponRepository
}

// NewCouponValidator creates a new coupon validator
func NewCouponValidator(coupons CouponRepository) *CouponValidator {
	return &CouponValidator{coupons: coupons}
}

// ValidateForCart runs the checks in a fixed order and short-circuits
// on the first failure. A nil result means the coupon is usable.
func (v *CouponValidator) ValidateForCart(ctx context.Context, coupon *Coupon, cart Cart, customerID *uuid.UUID) (*shared.DomainError, error) {
	now := time.Now()

	if !coupon.IsActive || (coupon.StartsAt != nil && now.Before(*coupon.StartsAt)) {
		return shared.NewDomainError(ErrCodeCouponInactive, "Coupon is not active."), nil
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return shared.NewDomainError(ErrCodeCouponExpired, "Coupon has expired."), nil
	}

	targets := coupon.TargetSet()
	matching := make([]CartLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		if targets.MatchesLine(line) {
			matching = append(matching, line)
		}
	}
	// The scope check only rejects when applicable_to actually
	// restricts the coupon; an unrestricted coupon on an empty cart
	// just discounts nothing.
	if len(matching) == 0 && coupon.ApplicableTo != ScopeAll {
		return shared.NewDomainError(ErrCodeCouponScope, "Coupon is not valid for items in your cart."), nil
	}

	if coupon.ExcludeOnSale && allOnSale(matching) {
		return shared.NewDomainError(ErrCodeCouponOnSale, "Coupon cannot be used on sale items."), nil
	}

	if coupon.MinCartAmount != nil && cart.Subtotal.LessThan(*coupon.MinCartAmount) {
		return shared.NewDomainError(ErrCodeCouponMinCart,
			fmt.Sprintf("Coupon requires a minimum cart amount of %s.", coupon.MinCartAmount.StringFixed(moneyScale))), nil
	}

	if coupon.UsageLimitPerCustomer != nil && customerID != nil {
		used, err := v.coupons.CountRedemptions(ctx, coupon.ID, *customerID)
		if err != nil {
			return nil, err
		}
		if used >= *coupon.UsageLimitPerCustomer {
			return shared.NewDomainError(ErrCodeCouponUsageLimit, "Coupon usage limit reached."), nil
		}
	}

	return nil, nil
}

func allOnSale(lines []CartLine) bool {
	for _, line := range lines {
		if !line.OnSale() {
			return false
		}
	}
	return len(lines) > 0
}
