package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/promotion"
)

// CartLineDTO is one cart line in a discount or coupon request
type CartLineDTO struct {
	ProductID      string  `json:"product_id" binding:"required,uuid"`
	CategoryID     string  `json:"category_id" binding:"required,uuid"`
	Price          string  `json:"price" binding:"required"`
	CompareAtPrice *string `json:"compare_at_price,omitempty"`
	Quantity       int64   `json:"quantity" binding:"required,gt=0"`
}

// CartDTO is the cart snapshot supplied by the storefront
type CartDTO struct {
	Lines    []CartLineDTO `json:"lines" binding:"required,min=1,dive"`
	Subtotal string        `json:"subtotal" binding:"required"`
}

// ToDomain converts the cart DTO into a domain cart snapshot
func (d CartDTO) ToDomain() (promotion.Cart, error) {
	subtotal, err := decimal.NewFromString(d.Subtotal)
	if err != nil {
		return promotion.Cart{}, err
	}

	lines := make([]promotion.CartLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		productID, err := uuid.Parse(l.ProductID)
		if err != nil {
			return promotion.Cart{}, err
		}
		categoryID, err := uuid.Parse(l.CategoryID)
		if err != nil {
			return promotion.Cart{}, err
		}
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			return promotion.Cart{}, err
		}

		line := promotion.CartLine{
			ProductID:  productID,
			CategoryID: categoryID,
			Price:      price,
			Quantity:   l.Quantity,
		}
		if l.CompareAtPrice != nil {
			compareAt, err := decimal.NewFromString(*l.CompareAtPrice)
			if err != nil {
				return promotion.Cart{}, err
			}
			line.CompareAtPrice = &compareAt
		}
		lines = append(lines, line)
	}

	return promotion.Cart{Lines: lines, Subtotal: subtotal}, nil
}

// DiscountQuoteRequest asks for the winning discount for a cart
type DiscountQuoteRequest struct {
	Cart       CartDTO `json:"cart" binding:"required"`
	CustomerID *string `json:"customer_id,omitempty" binding:"omitempty,uuid"`
}

// DiscountQuoteResponse is the single discount checkout should apply
type DiscountQuoteResponse struct {
	Amount      string  `json:"amount"`
	Source      string  `json:"source"`
	PromotionID *string `json:"promotion_id,omitempty"`
}

// ToDiscountQuoteResponse converts a domain selection to its DTO
func ToDiscountQuoteResponse(sel promotion.Selection) *DiscountQuoteResponse {
	resp := &DiscountQuoteResponse{
		Amount: sel.Amount.StringFixed(2),
		Source: sel.Source,
	}
	if sel.PromotionID != nil {
		id := sel.PromotionID.String()
		resp.PromotionID = &id
	}
	return resp
}

// ValidateCouponRequest asks whether a code is usable for a cart
type ValidateCouponRequest struct {
	Code       string  `json:"code" binding:"required"`
	Cart       CartDTO `json:"cart" binding:"required"`
	CustomerID *string `json:"customer_id,omitempty" binding:"omitempty,uuid"`
}

// ValidateCouponResponse reports validity and, when valid, the amount
// the coupon would take off the cart
type ValidateCouponResponse struct {
	Valid    bool    `json:"valid"`
	Code     string  `json:"code"`
	Amount   *string `json:"amount,omitempty"`
	ErrorMsg *string `json:"error,omitempty"`
}

// PromotionViewDTO is one promotion rendered on a storefront placement
type PromotionViewDTO struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Intent     string     `json:"intent"`
	IsSitewide bool       `json:"is_sitewide"`
	Value      string     `json:"value"`
	ValueType  string     `json:"value_type"`
	Priority   int        `json:"priority"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
}

// ToPromotionViewDTO converts a domain view row to its DTO
func ToPromotionViewDTO(row promotion.ViewRow) PromotionViewDTO {
	return PromotionViewDTO{
		ID:         row.ID.String(),
		Name:       row.Name,
		Intent:     string(row.Intent),
		IsSitewide: row.IsSitewide,
		Value:      row.Value.StringFixed(2),
		ValueType:  string(row.ValueType),
		Priority:   row.Priority,
		EndsAt:     row.EndsAt,
	}
}

// ToPromotionViewDTOs converts a slice of domain view rows
func ToPromotionViewDTOs(rows []promotion.ViewRow) []PromotionViewDTO {
	out := make([]PromotionViewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToPromotionViewDTO(row))
	}
	return out
}
