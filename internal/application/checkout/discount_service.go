package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout/dto"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/domain/shared"
)

// DiscountService is the checkout-facing entry point for discount
// resolution, coupon validation and promotion display.
type DiscountService struct {
	manager   *promotion.Manager
	validator *promotion.CouponValidator
	display   *promotion.DisplayService
	coupons   promotion.CouponRepository
	logger    *zap.Logger
}

// NewDiscountService creates a new discount service
func NewDiscountService(
	manager *promotion.Manager,
	validator *promotion.CouponValidator,
	display *promotion.DisplayService,
	coupons promotion.CouponRepository,
	logger *zap.Logger,
) *DiscountService {
	return &DiscountService{
		manager:   manager,
		validator: validator,
		display:   display,
		coupons:   coupons,
		logger:    logger,
	}
}

// QuoteDiscount returns the single winning discount for a cart.
// A promotion-store outage degrades to a zero discount with source
// "none"; checkout keeps working without promotions.
func (s *DiscountService) QuoteDiscount(ctx context.Context, req dto.DiscountQuoteRequest) (*dto.DiscountQuoteResponse, error) {
	cart, err := req.Cart.ToDomain()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CART", "Cart contains malformed values")
	}

	customerID, err := parseCustomerID(req.CustomerID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_ID", "Customer id is not a valid uuid")
	}

	sel, err := s.manager.BestForCart(ctx, cart, customerID)
	if err != nil {
		s.logger.Warn("Discount resolution degraded to no discount",
			zap.Error(err),
			zap.String("subtotal", cart.Subtotal.String()),
		)
		sel = promotion.Selection{Amount: decimal.Zero, Source: promotion.SourceNone}
	}

	return dto.ToDiscountQuoteResponse(sel), nil
}

// ValidateCoupon looks up a code and checks it against the cart.
// Validation failures come back as a response with Valid=false, not
// as errors; only infrastructure failures surface as errors.
func (s *DiscountService) ValidateCoupon(ctx context.Context, req dto.ValidateCouponRequest) (*dto.ValidateCouponResponse, error) {
	cart, err := req.Cart.ToDomain()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CART", "Cart contains malformed values")
	}

	customerID, err := parseCustomerID(req.CustomerID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_ID", "Customer id is not a valid uuid")
	}

	code := strings.TrimSpace(req.Code)
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return invalidCoupon(code, "Coupon code is not recognized."), nil
		}
		s.logger.Error("Coupon lookup failed",
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, shared.NewDomainError("COUPON_LOOKUP_FAILED", "Could not look up coupon")
	}

	verr, err := s.validator.ValidateForCart(ctx, coupon, cart, customerID)
	if err != nil {
		s.logger.Error("Coupon validation failed",
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, shared.NewDomainError("COUPON_VALIDATION_FAILED", "Could not validate coupon")
	}
	if verr != nil {
		return invalidCoupon(code, verr.Message), nil
	}

	amount := coupon.DiscountAmount(cart).StringFixed(2)
	return &dto.ValidateCouponResponse{
		Valid:  true,
		Code:   coupon.Code,
		Amount: &amount,
	}, nil
}

// PromotionsForPlacement returns the ordered promotions to render on a
// storefront placement
func (s *DiscountService) PromotionsForPlacement(ctx context.Context, placement promotion.Placement, productIDs, categoryIDs []uuid.UUID, limit int) ([]dto.PromotionViewDTO, error) {
	rows, err := s.display.GetForPlacement(ctx, placement, productIDs, categoryIDs, limit)
	if err != nil {
		s.logger.Error("Promotion display lookup failed",
			zap.String("placement", string(placement)),
			zap.Error(err),
		)
		return nil, shared.NewDomainError("PROMOTION_LOOKUP_FAILED", "Could not load promotions")
	}
	return dto.ToPromotionViewDTOs(rows), nil
}

func parseCustomerID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func invalidCoupon(code, message string) *dto.ValidateCouponResponse {
	return &dto.ValidateCouponResponse{
		Valid:    false,
		Code:     code,
		ErrorMsg: &message,
	}
}
