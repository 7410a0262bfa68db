package promotion

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Match pairs a promotion with the discount amount it would contribute
// against the current cart
type Match struct {
	Promotion Promotion
	Amount    decimal.Decimal
}

// Discount is one applied discount entry in an engine outcome
type Discount struct {
	PromotionID  string          `json:"promotion_id"`
	Amount       decimal.Decimal `json:"amount"`
	Intent       Intent          `json:"intent"`
	StackingRule StackingRule    `json:"-"`
}

// Outcome is the resolved discount decision for a cart
type Outcome struct {
	Discounts     []Discount      `json:"discounts"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

// Engine matches promotions against cart snapshots and resolves
// stacking conflicts. It is stateless and safe for concurrent use.
//
// Resolution order:
//  1. Match every live promotion against the cart (OR across target
//     rows, OR across lines; zero targets = sitewide).
//  2. Order matches by priority desc, amount desc, id asc.
//  3. If any exclusive promotion matched, the first one under that
//     ordering wins alone and suppresses every other discount
//     cart-wide.
//  4. Otherwise all combinable matches apply, each computed against
//     original line prices, with the sum capped at the cart subtotal.
type Engine struct {
	repo   Repository
	logger *zap.Logger
}

// NewEngine creates a new promotion engine
func NewEngine(repo Repository, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{repo: repo, logger: logger}
}

// Applicable returns every live promotion that matches the cart,
// paired with its computed amount and deterministically ordered.
// A repository failure propagates to the caller; the caller is
// expected to fail the discount step closed rather than fail checkout.
func (e *Engine) Applicable(ctx context.Context, cart Cart) ([]Match, error) {
	now := time.Now()
	candidates, err := e.repo.FindActive(ctx, now)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for i := range candidates {
		p := &candidates[i]

		// The repository already filters on the validity window, but a
		// cached candidate list may have gone stale since it was built.
		if !p.IsLive(now) {
			continue
		}

		// A corrupt promotion record must never block checkout for any
		// customer: skip it and log.
		if err := p.ValidateStructure(); err != nil {
			e.logger.Warn("Skipping structurally invalid promotion",
				zap.String("promotion_id", p.ID.String()),
				zap.String("promotion_name", p.Name),
				zap.Error(err),
			)
			continue
		}

		amount, matched := e.matchedAmount(p, cart)
		if !matched {
			continue
		}

		matches = append(matches, Match{Promotion: *p, Amount: amount})
	}

	sortMatches(matches)
	return matches, nil
}

// Apply resolves the full discount decision for the cart
func (e *Engine) Apply(ctx context.Context, cart Cart) (Outcome, error) {
	matches, err := e.Applicable(ctx, cart)
	if err != nil {
		return Outcome{}, err
	}

	var exclusive, combinable []Match
	for _, m := range matches {
		if m.Promotion.StackingRule == StackingExclusive {
			exclusive = append(exclusive, m)
		} else {
			combinable = append(combinable, m)
		}
	}

	// An applicable exclusive promotion suppresses every other discount
	// cart-wide, not only on its own matched lines.
	if len(exclusive) > 0 {
		winner := exclusive[0]
		amount := capAtSubtotal(winner.Amount, cart.Subtotal)
		return Outcome{
			Discounts:     []Discount{toDiscount(winner, amount)},
			TotalDiscount: amount,
		}, nil
	}

	if len(combinable) == 0 {
		return Outcome{Discounts: []Discount{}, TotalDiscount: decimal.Zero}, nil
	}

	// Combinable discounts are each computed against original
	// pre-discount line prices; they sum, they do not compound.
	discounts := make([]Discount, 0, len(combinable))
	total := decimal.Zero
	for _, m := range combinable {
		discounts = append(discounts, toDiscount(m, m.Amount))
		total = total.Add(m.Amount)
	}

	return Outcome{
		Discounts:     discounts,
		TotalDiscount: capAtSubtotal(total, cart.Subtotal),
	}, nil
}

// matchedAmount computes the discount the promotion would contribute,
// over only the lines it matches. The second return value is false when
// no cart line satisfies the promotion's targets.
func (e *Engine) matchedAmount(p *Promotion, cart Cart) (decimal.Decimal, bool) {
	targets := p.TargetSet()

	matchedSubtotal := decimal.Zero
	matchedAny := false
	for _, line := range cart.Lines {
		if !targets.MatchesLine(line) {
			continue
		}
		matchedAny = true
		matchedSubtotal = matchedSubtotal.Add(line.Subtotal())
	}
	if !matchedAny {
		return decimal.Zero, false
	}

	switch p.ValueType {
	case ValueTypePercentage:
		amount := matchedSubtotal.Mul(p.Value).Div(decimal.NewFromInt(100))
		return roundMoney(amount), true
	case ValueTypeFixed:
		return roundMoney(decimal.Min(p.Value, matchedSubtotal)), true
	default:
		// Unreachable: ValidateStructure runs first.
		return decimal.Zero, false
	}
}

// sortMatches orders matches by priority desc, amount desc, id asc
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Promotion.Priority != b.Promotion.Priority {
			return a.Promotion.Priority > b.Promotion.Priority
		}
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Promotion.ID.String() < b.Promotion.ID.String()
	})
}

func toDiscount(m Match, amount decimal.Decimal) Discount {
	return Discount{
		PromotionID:  m.Promotion.ID.String(),
		Amount:       amount,
		Intent:       m.Promotion.Intent,
		StackingRule: m.Promotion.StackingRule,
	}
}

// capAtSubtotal clamps a discount so it never exceeds the cart subtotal
// and never goes negative
func capAtSubtotal(amount, subtotal decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}
