package promotion

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// moneyScale is the minor-unit precision for all monetary amounts
const moneyScale = 2

// CartLine is a snapshot of one cart line, owned by the caller.
// A line is "on sale" iff CompareAtPrice is set and strictly greater
// than Price.
type CartLine struct {
	ProductID      uuid.UUID
	CategoryID     uuid.UUID
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Quantity       int64
}

// Subtotal returns price multiplied by quantity for this line
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(l.Quantity))
}

// OnSale returns true if the line currently carries a markdown
func (l CartLine) OnSale() bool {
	return l.CompareAtPrice != nil && l.CompareAtPrice.GreaterThan(l.Price)
}

// Cart is the immutable cart snapshot the engine computes against.
// Subtotal is precomputed by the caller; the engine trusts it as the
// upper bound for any discount.
type Cart struct {
	Lines    []CartLine
	Subtotal decimal.Decimal
}

// roundMoney rounds to 2 decimals, half away from zero. All amounts in
// this package are non-negative, so this is round-half-up.
func roundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyScale)
}
