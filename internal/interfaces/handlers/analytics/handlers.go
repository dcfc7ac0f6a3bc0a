package analytics

import (
	"strconv"

	"agrimarket-backend/internal/analytics"
	"agrimarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the public marketplace analytics endpoints.
type Handlers struct {
	Aggregator *analytics.Aggregator
}

// ByLocation GET /api/v1/analytics/by-location?state=&district=.
func (h *Handlers) ByLocation(c *fiber.Ctx) error {
	listings, err := h.Aggregator.ByLocation(c.Context(), c.Query("state"), c.Query("district"))
	if err != nil {
		return err
	}
	return response.Success(c, "Listings fetched successfully", fiber.Map{
		"listings": listings,
		"count":    len(listings),
	}, nil)
}

// ByPriceRange GET /api/v1/analytics/by-price-range?min=&max=.
func (h *Handlers) ByPriceRange(c *fiber.Ctx) error {
	var min, max *float64
	if raw := c.Query("min"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return response.Error(c, "Invalid min price", fiber.StatusBadRequest, nil)
		}
		min = &v
	}
	if raw := c.Query("max"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return response.Error(c, "Invalid max price", fiber.StatusBadRequest, nil)
		}
		max = &v
	}
	listings, err := h.Aggregator.ByPriceRange(c.Context(), min, max)
	if err != nil {
		return err
	}
	return response.Success(c, "Listings fetched successfully", fiber.Map{
		"listings": listings,
		"count":    len(listings),
	}, nil)
}

// Fresh GET /api/v1/analytics/fresh?max_days_old=.
func (h *Handlers) Fresh(c *fiber.Ctx) error {
	maxDays := 0
	if raw := c.Query("max_days_old"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return response.Error(c, "Invalid max_days_old", fiber.StatusBadRequest, nil)
		}
		maxDays = v
	}
	listings, err := h.Aggregator.FreshProduce(c.Context(), maxDays)
	if err != nil {
		return err
	}
	return response.Success(c, "Fresh listings fetched successfully", fiber.Map{
		"listings": listings,
		"count":    len(listings),
	}, nil)
}

// Stats GET /api/v1/analytics/stats: grouped (cropType, state) stats.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	stats, err := h.Aggregator.GroupStats(c.Context())
	if err != nil {
		return err
	}
	return response.Success(c, "Stats fetched successfully", fiber.Map{"stats": stats}, nil)
}

// Trending GET /api/v1/analytics/trending?limit=.
func (h *Handlers) Trending(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return response.Error(c, "Invalid limit", fiber.StatusBadRequest, nil)
		}
		limit = v
	}
	listings, err := h.Aggregator.Trending(c.Context(), limit)
	if err != nil {
		return err
	}
	return response.Success(c, "Trending listings fetched successfully", fiber.Map{
		"listings": listings,
		"count":    len(listings),
	}, nil)
}
