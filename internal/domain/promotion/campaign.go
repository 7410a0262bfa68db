package promotion

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Named campaign caps read from configuration
const (
	CapFirstOrderMax = "first_order_max_discount"
	CapHighValueMax  = "high_value_max_discount"
)

// Selection sources
const (
	SourceFirstOrder = "first_order"
	SourcePromotion  = "promotion"
	SourceNone       = "none"
)

// CampaignConfig holds the tunables the campaign manager reads at
// selection time. Values are injected at construction, never read from
// globals inside the domain.
type CampaignConfig struct {
	// FirstOrderPercent is the base percentage granted to customers
	// with no completed orders, before the first-order cap applies.
	FirstOrderPercent decimal.Decimal

	// Caps maps cap names (CapFirstOrderMax, CapHighValueMax) to
	// non-negative ceilings. A missing entry means uncapped.
	Caps map[string]decimal.Decimal

	// ProtectedIntents always win selection over the automatic
	// campaign regardless of computed amount.
	ProtectedIntents []Intent

	// HighValueThreshold is the subtotal at or above which the
	// high-value cap constrains the promotion total. Zero disables
	// the threshold check and applies the cap to every cart.
	HighValueThreshold decimal.Decimal
}

// IsProtected reports whether the intent belongs to the configured
// protected set
func (c CampaignConfig) IsProtected(intent Intent) bool {
	for _, p := range c.ProtectedIntents {
		if p == intent {
			return true
		}
	}
	return false
}

// Cap returns the named cap and whether it is configured
func (c CampaignConfig) Cap(name string) (decimal.Decimal, bool) {
	v, ok := c.Caps[name]
	return v, ok
}

// Selection is the single winning discount applied at checkout
type Selection struct {
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	PromotionID *uuid.UUID      `json:"promotion_id,omitempty"`
}

// Manager arbitrates between rule-based promotions and automatic
// campaigns such as the first-order discount, producing the one
// discount applied at checkout.
type Manager struct {
	engine *Engine
	orders OrderHistory
	config CampaignConfig
	logger *zap.Logger
}

// NewManager creates a new campaign manager
func NewManager(engine *Engine, orders OrderHistory, config CampaignConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{engine: engine, orders: orders, config: config, logger: logger}
}

// BestForCart selects the single winning discount for the cart.
//
// Selection:
//  1. Compute the first-order discount if the customer has never
//     completed an order, capped at first_order_max_discount.
//  2. Compute the promotion outcome via the engine, capped at
//     high_value_max_discount for carts past the high-value threshold.
//  3. A promotion carrying a protected intent wins unconditionally.
//  4. Otherwise the larger amount wins; ties go to the promotion
//     result since targeted offers beat the generic automatic one.
//
// A repository failure propagates to the caller so the discount step
// can fail closed; checkout itself must not break on promotion outages.
func (m *Manager) BestForCart(ctx context.Context, cart Cart, customerID *uuid.UUID) (Selection, error) {
	automatic, err := m.firstOrderAmount(ctx, cart, customerID)
	if err != nil {
		return Selection{}, err
	}

	outcome, err := m.engine.Apply(ctx, cart)
	if err != nil {
		return Selection{}, err
	}

	if protected, ok := m.protectedDiscount(outcome); ok {
		return m.selectionForPromotion(protected, cart.Subtotal), nil
	}

	promoTotal := m.capPromotionTotal(outcome.TotalDiscount, cart.Subtotal)

	if automatic.GreaterThan(promoTotal) {
		return Selection{Amount: automatic, Source: SourceFirstOrder}, nil
	}

	if promoTotal.IsPositive() {
		sel := Selection{Amount: promoTotal, Source: SourcePromotion}
		if len(outcome.Discounts) == 1 {
			if id, err := uuid.Parse(outcome.Discounts[0].PromotionID); err == nil {
				sel.PromotionID = &id
			}
		}
		return sel, nil
	}

	return Selection{Amount: decimal.Zero, Source: SourceNone}, nil
}

// firstOrderAmount computes the capped automatic first-order discount,
// or zero when the customer is anonymous or has completed orders.
func (m *Manager) firstOrderAmount(ctx context.Context, cart Cart, customerID *uuid.UUID) (decimal.Decimal, error) {
	if customerID == nil {
		return decimal.Zero, nil
	}

	completed, err := m.orders.CountCompleted(ctx, *customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if completed > 0 {
		return decimal.Zero, nil
	}

	amount := roundMoney(cart.Subtotal.Mul(m.config.FirstOrderPercent).Div(decimal.NewFromInt(100)))
	if cap, ok := m.config.Cap(CapFirstOrderMax); ok {
		amount = decimal.Min(amount, cap)
	}
	return capAtSubtotal(amount, cart.Subtotal), nil
}

// protectedDiscount returns the highest-ranked discount carrying a
// protected intent, if any. Engine output is already ordered, so the
// first protected entry wins.
func (m *Manager) protectedDiscount(outcome Outcome) (Discount, bool) {
	for _, d := range outcome.Discounts {
		if m.config.IsProtected(d.Intent) {
			return d, true
		}
	}
	return Discount{}, false
}

// capPromotionTotal applies the high-value ceiling to the promotion
// total when the cart qualifies
func (m *Manager) capPromotionTotal(total, subtotal decimal.Decimal) decimal.Decimal {
	cap, ok := m.config.Cap(CapHighValueMax)
	if ok && subtotal.GreaterThanOrEqual(m.config.HighValueThreshold) {
		total = decimal.Min(total, cap)
	}
	return capAtSubtotal(total, subtotal)
}

// selectionForPromotion builds the winning promotion selection. The
// high-value ceiling binds here too; protection decides precedence,
// not the payout limit.
func (m *Manager) selectionForPromotion(d Discount, subtotal decimal.Decimal) Selection {
	sel := Selection{
		Amount: m.capPromotionTotal(d.Amount, subtotal),
		Source: SourcePromotion,
	}
	if id, err := uuid.Parse(d.PromotionID); err == nil {
		sel.PromotionID = &id
	}
	return sel
}
