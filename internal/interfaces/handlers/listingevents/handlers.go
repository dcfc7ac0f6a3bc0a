package listingevents

import (
	eventsvc "agrimarket-backend/internal/application/listingevents"
	"agrimarket-backend/internal/middleware"
	"agrimarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves the listing audit event endpoints.
type Handlers struct {
	Service *eventsvc.Service
}

// ByListing GET /api/v1/listing-events/:listing_id.
func (h *Handlers) ByListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	events, err := h.Service.ByListing(c.Context(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Events fetched successfully", fiber.Map{
		"events": events,
		"count":  len(events),
	}, nil)
}

// Mine GET /api/v1/listing-events/mine: events for the caller's listings.
func (h *Handlers) Mine(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	ownerID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	events, err := h.Service.ByOwner(c.Context(), ownerID)
	if err != nil {
		return err
	}
	return response.Success(c, "Events fetched successfully", fiber.Map{
		"events": events,
		"count":  len(events),
	}, nil)
}
