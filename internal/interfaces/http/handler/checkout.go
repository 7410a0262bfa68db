package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/application/checkout/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CheckoutHandler exposes discount resolution and coupon validation
// for the storefront checkout flow
type CheckoutHandler struct {
	BaseHandler
	discounts    *checkout.DiscountService
	couponGuards []gin.HandlerFunc
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(discounts *checkout.DiscountService) *CheckoutHandler {
	return &CheckoutHandler{discounts: discounts}
}

// UseCouponGuard prepends middleware to the coupon validation route.
// Used to put a tighter rate limit on code lookups than on the rest
// of the API.
func (h *CheckoutHandler) UseCouponGuard(guards ...gin.HandlerFunc) *CheckoutHandler {
	h.couponGuards = append(h.couponGuards, guards...)
	return h
}

// RegisterRoutes registers checkout routes
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout/discount-quote", h.QuoteDiscount)
	rg.POST("/coupons/validate", append(append([]gin.HandlerFunc{}, h.couponGuards...), h.ValidateCoupon)...)
}

// QuoteDiscount returns the single discount checkout should apply to a cart.
// Anonymous carts are quoted too; a bearer token pins the customer identity
// regardless of what the request body claims.
func (h *CheckoutHandler) QuoteDiscount(c *gin.Context) {
	var req dto.DiscountQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	overrideCustomerID(c, &req.CustomerID)

	resp, err := h.discounts.QuoteDiscount(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// ValidateCoupon checks a coupon code against a cart. An unusable code is
// a 200 with valid=false and a shopper-facing reason, not an error status.
func (h *CheckoutHandler) ValidateCoupon(c *gin.Context) {
	var req dto.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	overrideCustomerID(c, &req.CustomerID)

	resp, err := h.discounts.ValidateCoupon(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// overrideCustomerID replaces the body's customer_id with the one from the
// validated token when the request is authenticated
func overrideCustomerID(c *gin.Context, target **string) {
	if id := middleware.GetCustomerID(c); id != "" {
		*target = &id
	}
}
