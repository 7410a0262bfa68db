package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shared"
)

// MockRepository is a mock for Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindActive(ctx context.Context, at time.Time) ([]Promotion, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Promotion), args.Error(1)
}

func (m *MockRepository) FindForPlacement(ctx context.Context, placement Placement, at time.Time) ([]Promotion, error) {
	args := m.Called(ctx, placement, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Promotion), args.Error(1)
}

// MockCouponRepository is a mock for CouponRepository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Coupon), args.Error(1)
}

func (m *MockCouponRepository) CountRedemptions(ctx context.Context, couponID, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, couponID, customerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderHistory is a mock for OrderHistory
type MockOrderHistory struct {
	mock.Mock
}

func (m *MockOrderHistory) CountCompleted(ctx context.Context, customerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

// Helper to build a cart from lines, with subtotal derived from them
func makeCart(lines ...CartLine) Cart {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	return Cart{Lines: lines, Subtotal: subtotal}
}

func makeLine(productID, categoryID uuid.UUID, price string, qty int64) CartLine {
	return CartLine{
		ProductID:  productID,
		CategoryID: categoryID,
		Price:      decimal.RequireFromString(price),
		Quantity:   qty,
	}
}

// Helper to create an active promotion with no validity window
func makePromotion(name string, valueType ValueType, value string, stacking StackingRule, priority int, targets ...PromotionTarget) Promotion {
	return Promotion{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         name,
		Type:         TypeAutoDiscount,
		ValueType:    valueType,
		Value:        decimal.RequireFromString(value),
		StackingRule: stacking,
		Priority:     priority,
		IsActive:     true,
		Targets:      targets,
	}
}

func categoryTarget(categoryID uuid.UUID) PromotionTarget {
	return PromotionTarget{ID: uuid.New(), TargetType: TargetTypeCategory, TargetID: categoryID}
}

func productTarget(productID uuid.UUID) PromotionTarget {
	return PromotionTarget{ID: uuid.New(), TargetType: TargetTypeProduct, TargetID: productID}
}

func TestEngine_Applicable_SitewideMatchesEveryLine(t *testing.T) {
	repo := &MockRepository{}
	sitewide := makePromotion("Ten percent off everything", ValueTypePercentage, "10", StackingCombinable, 0)
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{sitewide}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(
		makeLine(uuid.New(), uuid.New(), "40.00", 1),
		makeLine(uuid.New(), uuid.New(), "30.00", 2),
	)

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Amount.Equal(decimal.RequireFromString("10.00")), "got %s", matches[0].Amount)

	repo.AssertExpectations(t)
}

func TestEngine_Applicable_TargetRowsAreORed(t *testing.T) {
	// A promotion targeting category A and product P matches a line
	// whose product is P even when its category is not A.
	repo := &MockRepository{}
	categoryA := uuid.New()
	productP := uuid.New()
	promo := makePromotion("Category A or product P", ValueTypePercentage, "10", StackingCombinable, 0,
		categoryTarget(categoryA), productTarget(productP))
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{promo}, nil)

	engine := NewEngine(repo, nil)
	otherCategory := uuid.New()
	cart := makeCart(makeLine(productP, otherCategory, "50.00", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Amount.Equal(decimal.RequireFromString("5.00")))
}

func TestEngine_Applicable_NoLineMatches(t *testing.T) {
	repo := &MockRepository{}
	promo := makePromotion("Narrow promo", ValueTypePercentage, "10", StackingCombinable, 0,
		productTarget(uuid.New()))
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{promo}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "50.00", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEngine_Applicable_PercentageOverMatchedLinesOnly(t *testing.T) {
	repo := &MockRepository{}
	category := uuid.New()
	promo := makePromotion("Category discount", ValueTypePercentage, "20", StackingCombinable, 0,
		categoryTarget(category))
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{promo}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(
		makeLine(uuid.New(), category, "25.00", 2),   // matched, 50.00
		makeLine(uuid.New(), uuid.New(), "99.00", 1), // not matched
	)

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Amount.Equal(decimal.RequireFromString("10.00")), "got %s", matches[0].Amount)
}

func TestEngine_Applicable_FixedCappedAtMatchedSubtotal(t *testing.T) {
	repo := &MockRepository{}
	category := uuid.New()
	promo := makePromotion("Fixed amount off", ValueTypeFixed, "30.00", StackingCombinable, 0,
		categoryTarget(category))
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{promo}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), category, "12.50", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Amount.Equal(decimal.RequireFromString("12.50")))
}

func TestEngine_Applicable_RoundsHalfUp(t *testing.T) {
	repo := &MockRepository{}
	// 15% of 33.35 = 5.0025, rounds to 5.00; 15% of 33.30 = 4.995,
	// rounds to 5.00 as well under half-up.
	promo := makePromotion("Fifteen percent", ValueTypePercentage, "15", StackingCombinable, 0)
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{promo}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "33.30", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Amount.Equal(decimal.RequireFromString("5.00")), "got %s", matches[0].Amount)
}

func TestEngine_Applicable_SkipsStructurallyInvalid(t *testing.T) {
	repo := &MockRepository{}
	broken := makePromotion("Broken", ValueType("bogus"), "10", StackingCombinable, 100)
	negative := makePromotion("Negative", ValueTypePercentage, "-5", StackingCombinable, 100)
	valid := makePromotion("Valid", ValueTypePercentage, "10", StackingCombinable, 0)
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{broken, negative, valid}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Valid", matches[0].Promotion.Name)
}

func TestEngine_Applicable_SkipsExpired(t *testing.T) {
	repo := &MockRepository{}
	past := time.Now().Add(-time.Hour)
	expired := makePromotion("Expired", ValueTypePercentage, "10", StackingCombinable, 0)
	expired.EndsAt = &past
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{expired}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEngine_Applicable_Ordering(t *testing.T) {
	repo := &MockRepository{}
	low := makePromotion("Low priority big amount", ValueTypePercentage, "50", StackingCombinable, 1)
	highSmall := makePromotion("High priority small amount", ValueTypePercentage, "5", StackingCombinable, 10)
	highBig := makePromotion("High priority big amount", ValueTypePercentage, "20", StackingCombinable, 10)
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{low, highSmall, highBig}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "High priority big amount", matches[0].Promotion.Name)
	assert.Equal(t, "High priority small amount", matches[1].Promotion.Name)
	assert.Equal(t, "Low priority big amount", matches[2].Promotion.Name)
}

func TestEngine_Applicable_EqualPriorityAndAmountTieBreaksOnID(t *testing.T) {
	repo := &MockRepository{}
	a := makePromotion("A", ValueTypePercentage, "10", StackingCombinable, 5)
	b := makePromotion("B", ValueTypePercentage, "10", StackingCombinable, 5)
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{b, a}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	matches, err := engine.Applicable(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.True(t, matches[0].Promotion.ID.String() < matches[1].Promotion.ID.String())
}

func TestEngine_Apply_ExclusiveSuppressesCombinable(t *testing.T) {
	// Combinable 10% off category C and exclusive 20% off category C,
	// cart subtotal 100 entirely in C: the exclusive wins alone.
	repo := &MockRepository{}
	categoryC := uuid.New()
	combinable := makePromotion("Ten off C", ValueTypePercentage, "10", StackingCombinable, 0,
		categoryTarget(categoryC))
	exclusive := makePromotion("Twenty off C", ValueTypePercentage, "20", StackingExclusive, 0,
		categoryTarget(categoryC))
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{combinable, exclusive}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), categoryC, "100.00", 1))

	outcome, err := engine.Apply(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, outcome.Discounts, 1)
	assert.Equal(t, exclusive.ID.String(), outcome.Discounts[0].PromotionID)
	assert.True(t, outcome.TotalDiscount.Equal(decimal.RequireFromString("20.00")), "got %s", outcome.TotalDiscount)
}

func TestEngine_Apply_ExclusiveSuppressionIsCartWide(t *testing.T) {
	// The exclusive promotion matches only one line, but it still
	// suppresses the sitewide combinable on the whole cart.
	repo := &MockRepository{}
	categoryC := uuid.New()
	sitewide := makePromotion("Sitewide ten", ValueTypePercentage, "10", StackingCombinable, 0)
	exclusive := makePromotion("Exclusive on C", ValueTypePercentage, "20", StackingExclusive, 0,
		categoryTarget(categoryC))
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{sitewide, exclusive}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(
		makeLine(uuid.New(), categoryC, "50.00", 1),
		makeLine(uuid.New(), uuid.New(), "50.00", 1),
	)

	outcome, err := engine.Apply(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, outcome.Discounts, 1)
	assert.Equal(t, exclusive.ID.String(), outcome.Discounts[0].PromotionID)
	assert.True(t, outcome.TotalDiscount.Equal(decimal.RequireFromString("10.00")), "got %s", outcome.TotalDiscount)
}

func TestEngine_Apply_CombinableSumCappedAtSubtotal(t *testing.T) {
	repo := &MockRepository{}
	first := makePromotion("Sixty percent", ValueTypePercentage, "60", StackingCombinable, 0)
	second := makePromotion("Fifty percent", ValueTypePercentage, "50", StackingCombinable, 0)
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{first, second}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	outcome, err := engine.Apply(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, outcome.Discounts, 2)
	assert.True(t, outcome.TotalDiscount.Equal(decimal.RequireFromString("100.00")))
}

func TestEngine_Apply_CombinableSum(t *testing.T) {
	repo := &MockRepository{}
	first := makePromotion("Ten percent", ValueTypePercentage, "10", StackingCombinable, 0)
	second := makePromotion("Five fixed", ValueTypeFixed, "5.00", StackingCombinable, 0)
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{first, second}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	outcome, err := engine.Apply(context.Background(), cart)
	require.NoError(t, err)
	require.Len(t, outcome.Discounts, 2)
	assert.True(t, outcome.TotalDiscount.Equal(decimal.RequireFromString("15.00")))
}

func TestEngine_Apply_NoMatches(t *testing.T) {
	repo := &MockRepository{}
	repo.On("FindActive", mock.Anything, mock.Anything).Return([]Promotion{}, nil)

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	outcome, err := engine.Apply(context.Background(), cart)
	require.NoError(t, err)
	assert.Empty(t, outcome.Discounts)
	assert.True(t, outcome.TotalDiscount.IsZero())
}

func TestEngine_Apply_RepositoryErrorPropagates(t *testing.T) {
	repo := &MockRepository{}
	repo.On("FindActive", mock.Anything, mock.Anything).Return(nil, shared.NewDomainError("DB_ERROR", "connection refused"))

	engine := NewEngine(repo, nil)
	cart := makeCart(makeLine(uuid.New(), uuid.New(), "100.00", 1))

	_, err := engine.Apply(context.Background(), cart)
	assert.Error(t, err)
}
