package promotion

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ViewRow is one promotion as surfaced to a storefront placement
type ViewRow struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Intent     Intent          `json:"intent"`
	IsSitewide bool            `json:"is_sitewide"`
	Value      decimal.Decimal `json:"value"`
	ValueType  ValueType       `json:"value_type"`
	Priority   int             `json:"priority"`
	EndsAt     *time.Time      `json:"ends_at,omitempty"`
}

// DisplayService surfaces promotions for UI placements in a
// deterministic order. Read-only, no side effects.
type DisplayService struct {
	repo Repository
}

// NewDisplayService creates a new promotion display service
func NewDisplayService(repo Repository) *DisplayService {
	return &DisplayService{repo: repo}
}

// GetForPlacement returns the promotions to render on a placement,
// filtered to those relevant to the given products and categories.
// Sitewide promotions always qualify. Ordering: priority desc, value
// desc, ends_at ascending with open-ended promotions last, id asc.
// The result is truncated to limit when limit is positive.
func (s *DisplayService) GetForPlacement(ctx context.Context, placement Placement, productIDs, categoryIDs []uuid.UUID, limit int) ([]ViewRow, error) {
	promotions, err := s.repo.FindForPlacement(ctx, placement, time.Now())
	if err != nil {
		return nil, err
	}

	rows := make([]ViewRow, 0, len(promotions))
	for i := range promotions {
		p := &promotions[i]
		targets := p.TargetSet()
		if !targets.IsEmpty() && !intersects(targets, productIDs, categoryIDs) {
			continue
		}
		rows = append(rows, ViewRow{
			ID:         p.ID,
			Name:       p.Name,
			Intent:     p.Intent,
			IsSitewide: targets.IsEmpty(),
			Value:      p.Value,
			ValueType:  p.ValueType,
			Priority:   p.Priority,
			EndsAt:     p.EndsAt,
		})
	}

	sortViewRows(rows)

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func intersects(targets TargetSet, productIDs, categoryIDs []uuid.UUID) bool {
	for _, id := range productIDs {
		if targets.Contains(TargetTypeProduct, id) {
			return true
		}
	}
	for _, id := range categoryIDs {
		if targets.Contains(TargetTypeCategory, id) {
			return true
		}
	}
	return false
}

func sortViewRows(rows []ViewRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.Value.Equal(b.Value) {
			return a.Value.GreaterThan(b.Value)
		}
		if c := compareEndsAt(a.EndsAt, b.EndsAt); c != 0 {
			return c < 0
		}
		return a.ID.String() < b.ID.String()
	})
}

// compareEndsAt orders soonest-ending first, open-ended last
func compareEndsAt(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	default:
		return 0
	}
}
