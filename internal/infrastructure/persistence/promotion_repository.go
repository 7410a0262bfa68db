package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/promotion"
)

// GormPromotionRepository implements promotion.Repository using GORM
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewGormPromotionRepository creates a new GormPromotionRepository
func NewGormPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// FindActive returns all active promotions whose validity window
// contains the given instant, with their target rows populated
func (r *GormPromotionRepository) FindActive(ctx context.Context, at time.Time) ([]promotion.Promotion, error) {
	var promotions []promotion.Promotion
	err := r.db.WithContext(ctx).
		Preload("Targets").
		Where("is_active = ?", true).
		Where("starts_at IS NULL OR starts_at <= ?", at).
		Where("ends_at IS NULL OR ends_at >= ?", at).
		Find(&promotions).Error
	if err != nil {
		return nil, err
	}
	return promotions, nil
}

// FindForPlacement returns active, time-valid promotions whose display
// placements include the given placement. Placements are stored as a
// comma-joined text column, so the final filter runs in memory after
// the indexed activity filters.
func (r *GormPromotionRepository) FindForPlacement(ctx context.Context, placement promotion.Placement, at time.Time) ([]promotion.Promotion, error) {
	candidates, err := r.FindActive(ctx, at)
	if err != nil {
		return nil, err
	}

	matched := make([]promotion.Promotion, 0, len(candidates))
	for _, p := range candidates {
		if p.DisplayPlacements.Contains(placement) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

var _ promotion.Repository = (*GormPromotionRepository)(nil)
