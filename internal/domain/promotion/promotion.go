package promotion

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Type tags the business origin of a promotion. The set is open:
// new campaign tooling may introduce tags without a code change here.
type Type string

const (
	TypeAutoDiscount Type = "auto_discount"
	TypeFlashSale    Type = "flash_sale"
	TypeCouponLinked Type = "coupon_linked"
)

// ValueType determines how Promotion.Value is interpreted
type ValueType string

const (
	ValueTypePercentage ValueType = "percentage"
	ValueTypeFixed      ValueType = "fixed"
)

// StackingRule controls whether a promotion may combine with others
type StackingRule string

const (
	StackingCombinable StackingRule = "combinable"
	StackingExclusive  StackingRule = "exclusive"
)

// Intent is a business-meaning tag used for precedence decisions.
// Open set; the protected subset is configuration, not code.
type Intent string

const (
	IntentCartGrowth      Intent = "cart_growth"
	IntentShippingSupport Intent = "shipping_support"
	IntentClearance       Intent = "clearance"
)

// Placement identifies a storefront surface where promotions are displayed
type Placement string

const (
	PlacementHome     Placement = "home"
	PlacementCategory Placement = "category"
	PlacementProduct  Placement = "product"
	PlacementCart     Placement = "cart"
	PlacementCheckout Placement = "checkout"
)

// TargetType identifies what a PromotionTarget row points at
type TargetType string

const (
	TargetTypeProduct  TargetType = "product"
	TargetTypeCategory TargetType = "category"
)

// PlacementSet is a set of display placements stored as a comma-joined
// text column
type PlacementSet []Placement

// Contains reports whether the set includes the given placement
func (s PlacementSet) Contains(p Placement) bool {
	for _, member := range s {
		if member == p {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer for database storage
func (s PlacementSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "", nil
	}
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = string(p)
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner for database retrieval
func (s *PlacementSet) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into PlacementSet", value)
	}

	if strVal == "" {
		*s = nil
		return nil
	}

	parts := strings.Split(strVal, ",")
	set := make(PlacementSet, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			set = append(set, Placement(trimmed))
		}
	}
	*s = set
	return nil
}

// Promotion is a discount rule matched against cart snapshots.
// A promotion with zero targets is sitewide and matches every cart;
// a promotion with one or more targets matches a cart when any cart
// line satisfies any target row.
type Promotion struct {
	shared.BaseEntity
	Name              string            `gorm:"type:varchar(200);not null"`
	Type              Type              `gorm:"type:varchar(50);not null;default:'auto_discount'"`
	ValueType         ValueType         `gorm:"type:varchar(20);not null"`
	Value             decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	StackingRule      StackingRule      `gorm:"type:varchar(20);not null;default:'combinable'"`
	Intent            Intent            `gorm:"type:varchar(50);index"`
	Priority          int               `gorm:"not null;default:0;index"`
	IsActive          bool              `gorm:"not null;default:true;index"`
	StartsAt          *time.Time        `gorm:"index"`
	EndsAt            *time.Time        `gorm:"index"`
	DisplayPlacements PlacementSet      `gorm:"type:text"`
	Targets           []PromotionTarget `gorm:"foreignKey:PromotionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Promotion) TableName() string {
	return "promotions"
}

// PromotionTarget restricts a promotion to a product or category.
// Pure matching predicate; it has no lifecycle of its own.
type PromotionTarget struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PromotionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	TargetType  TargetType `gorm:"type:varchar(20);not null"`
	TargetID    uuid.UUID  `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (PromotionTarget) TableName() string {
	return "promotion_targets"
}

// IsSitewide returns true if the promotion has no targets and therefore
// matches every cart
func (p *Promotion) IsSitewide() bool {
	return len(p.Targets) == 0
}

// IsLive returns true if the promotion is active and inside its validity
// window at the given instant. A nil StartsAt or EndsAt leaves that side
// of the window open.
func (p *Promotion) IsLive(at time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.StartsAt != nil && at.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && at.After(*p.EndsAt) {
		return false
	}
	return true
}

// TargetSet builds the O(1) membership predicate over the promotion's
// target rows
func (p *Promotion) TargetSet() TargetSet {
	return NewTargetSet(p.Targets)
}

// ValidateStructure checks that the promotion record is well-formed
// enough to participate in matching. A failing promotion is skipped by
// the engine, never fatal to the whole computation.
func (p *Promotion) ValidateStructure() error {
	if p.Value.IsNegative() {
		return shared.NewDomainError("INVALID_PROMOTION_VALUE", "Promotion value cannot be negative")
	}
	switch p.ValueType {
	case ValueTypePercentage, ValueTypeFixed:
	default:
		return shared.NewDomainError("INVALID_PROMOTION_VALUE_TYPE",
			fmt.Sprintf("Unknown promotion value type %q", p.ValueType))
	}
	switch p.StackingRule {
	case StackingCombinable, StackingExclusive:
	default:
		return shared.NewDomainError("INVALID_STACKING_RULE",
			fmt.Sprintf("Unknown stacking rule %q", p.StackingRule))
	}
	return nil
}
