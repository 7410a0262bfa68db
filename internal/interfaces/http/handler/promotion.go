package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// PromotionHandler serves the promotions rendered on storefront surfaces
type PromotionHandler struct {
	BaseHandler
	discounts    *checkout.DiscountService
	defaultLimit int
}

// NewPromotionHandler creates a new PromotionHandler
func NewPromotionHandler(discounts *checkout.DiscountService, defaultLimit int) *PromotionHandler {
	return &PromotionHandler{discounts: discounts, defaultLimit: defaultLimit}
}

// RegisterRoutes registers promotion display routes
func (h *PromotionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/promotions/placements/:placement", h.GetForPlacement)
}

type placementRequest struct {
	Placement string `uri:"placement" binding:"required,oneof=home category product cart checkout"`
}

// GetForPlacement returns promotions to render on a placement, ordered by
// display priority. The product_ids and category_ids query parameters narrow
// targeted promotions to what the page is actually showing.
func (h *PromotionHandler) GetForPlacement(c *gin.Context) {
	var req placementRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	productIDs, err := parseUUIDList(c.Query("product_ids"))
	if err != nil {
		h.BadRequest(c, "product_ids must be a comma-separated list of uuids")
		return
	}
	categoryIDs, err := parseUUIDList(c.Query("category_ids"))
	if err != nil {
		h.BadRequest(c, "category_ids must be a comma-separated list of uuids")
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	rows, err := h.discounts.PromotionsForPlacement(
		c.Request.Context(),
		promotion.Placement(req.Placement),
		productIDs,
		categoryIDs,
		limit,
	)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rows)
}

// parseUUIDList parses a comma-separated list of uuids, tolerating blanks
func parseUUIDList(raw string) ([]uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
