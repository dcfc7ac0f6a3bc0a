package listings

import (
	"time"

	listsvc "agrimarket-backend/internal/application/listings"
	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/freshness"
	"agrimarket-backend/internal/middleware"
	"agrimarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds the listings service.
type Handlers struct {
	Service *listsvc.Service
}

// listingView is a listing plus its derived freshness metrics.
type listingView struct {
	domain.Listing
	Derived freshness.Snapshot `json:"derived"`
}

func view(l domain.Listing) listingView {
	return listingView{Listing: l, Derived: freshness.Derive(l, time.Now())}
}

func views(ls []domain.Listing) []listingView {
	out := make([]listingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, view(l))
	}
	return out
}

func actorID(c *fiber.Ctx) (uuid.UUID, error) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return uuid.Parse(claims.UserID)
}

// Create POST /api/v1/listings/create-listing.
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req listsvc.CreateListingInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	req.OwnerID = actor
	l, err := h.Service.Create(c.Context(), req)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Listing created successfully", fiber.Map{"listing": view(*l)}, nil)
}

// GetByID GET /api/v1/listings/get-listing/:listing_id.
func (h *Handlers) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	l, err := h.Service.GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing fetched successfully", fiber.Map{"listing": view(*l)}, nil)
}

// GetByCode GET /api/v1/listings/get-by-code/:listing_code.
func (h *Handlers) GetByCode(c *fiber.Ctx) error {
	code := c.Params("listing_code")
	if code == "" {
		return response.Error(c, "Missing listing code", fiber.StatusBadRequest, nil)
	}
	l, err := h.Service.GetByCode(c.Context(), code)
	if err != nil {
		return err
	}
	return response.Success(c, "Listing fetched successfully", fiber.Map{"listing": view(*l)}, nil)
}

// OwnerListings GET /api/v1/listings/get-my-listings.
func (h *Handlers) OwnerListings(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	ls, err := h.Service.OwnerListings(c.Context(), actor)
	if err != nil {
		return err
	}
	return response.Success(c, "Listings fetched successfully", fiber.Map{"listings": views(ls)}, nil)
}

// UpdateQuantityRequest body.
type UpdateQuantityRequest struct {
	ListingID string  `json:"listing_id"`
	Available float64 `json:"available"`
}

// UpdateQuantity PUT /api/v1/listings/update-quantity: runs the
// inventory state machine under the optimistic write guard.
func (h *Handlers) UpdateQuantity(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	l, err := h.Service.UpdateQuantity(c.Context(), id, actor, req.Available)
	if err != nil {
		return err
	}
	return response.Success(c, "Quantity updated successfully", fiber.Map{"listing": view(*l)}, nil)
}

// AddReviewRequest body.
type AddReviewRequest struct {
	ListingID string `json:"listing_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// AddReview POST /api/v1/listings/add-review.
func (h *Handlers) AddReview(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req AddReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	l, err := h.Service.AddReview(c.Context(), id, actor, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return response.Success(c, "Review added successfully", fiber.Map{"listing": view(*l)}, nil)
}

// View POST /api/v1/listings/view/:listing_id: bump the view counter.
func (h *Handlers) View(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.IncrementViews(c.Context(), id); err != nil {
		return err
	}
	return response.Success(c, "View recorded", nil, nil)
}

// Inquire POST /api/v1/listings/inquire/:listing_id: bump the inquiry
// counter.
func (h *Handlers) Inquire(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.IncrementInquiries(c.Context(), id); err != nil {
		return err
	}
	return response.Success(c, "Inquiry recorded", nil, nil)
}

// Share POST /api/v1/listings/share/:listing_id: bump the share counter.
func (h *Handlers) Share(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.IncrementShares(c.Context(), id); err != nil {
		return err
	}
	return response.Success(c, "Share recorded", nil, nil)
}

// SetStatusRequest body.
type SetStatusRequest struct {
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
}

// SetStatus PATCH /api/v1/listings/set-status: administrative status
// transition (activate, cancel, expire, under review).
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	l, err := h.Service.SetStatus(c.Context(), id, actor, req.Status)
	if err != nil {
		return err
	}
	return response.Success(c, "Status updated successfully", fiber.Map{"listing": view(*l)}, nil)
}
