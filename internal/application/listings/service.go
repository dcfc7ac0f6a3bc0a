package listings

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/inventory"
	"agrimarket-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxWriteRetries bounds optimistic-concurrency retries before a
// Conflict error is surfaced to the caller.
const maxWriteRetries = 3

// Service holds the injected DB handle and listing-code prefix.
type Service struct {
	DB         *gorm.DB
	CodePrefix string

	// newCode overrides listing-code generation; nil means the default
	// generator. Tests use it to force code collisions.
	newCode func(prefix string) string
}

func (s *Service) generateCode() string {
	if s.newCode != nil {
		return s.newCode(s.CodePrefix)
	}
	return inventory.NewListingCode(s.CodePrefix)
}

// CreateListingInput carries the seller-provided listing fields.
type CreateListingInput struct {
	OwnerID          uuid.UUID                `json:"owner_id"`
	CropType         string                   `json:"crop_type"`
	Variety          string                   `json:"variety"`
	QuantityAmount   float64                  `json:"quantity_amount"`
	QuantityUnit     string                   `json:"quantity_unit"`
	PricePerUnit     float64                  `json:"price_per_unit"`
	Currency         string                   `json:"currency"`
	Negotiable       *bool                    `json:"negotiable"`
	BulkDiscount     *domain.BulkDiscount     `json:"bulk_discount"`
	SeasonalPricing  domain.SeasonalPriceList `json:"seasonal_pricing"`
	HarvestDate      time.Time                `json:"harvest_date"`
	ShelfLifeDays    *int                     `json:"shelf_life_days"`
	HarvestMethod    string                   `json:"harvest_method"`
	StorageCondition string                   `json:"storage_condition"`
	LocationState    string                   `json:"location_state"`
	LocationDistrict string                   `json:"location_district"`
	LocationVillage  string                   `json:"location_village"`
	Priority         int                      `json:"priority"`
	IsPublic         *bool                    `json:"is_public"`
	Tags             domain.StringList        `json:"tags"`
	Description      string                   `json:"description"`
}

// Create validates and persists a new listing. The listing code is
// generated here, exactly once; a storage-level uniqueness conflict on
// the code is retried once with a fresh code.
func (s *Service) Create(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	if in.OwnerID == uuid.Nil {
		return nil, apperr.E(apperr.Validation, "Owner ID is required")
	}
	if !domain.ValidCropType(in.CropType) {
		return nil, apperr.E(apperr.Validation, "Unknown crop type")
	}
	if in.QuantityAmount <= 0 {
		return nil, apperr.E(apperr.Validation, "Quantity must be greater than 0")
	}
	if !domain.ValidQuantityUnit(in.QuantityUnit) {
		return nil, apperr.E(apperr.Validation, "Unknown quantity unit")
	}
	if in.PricePerUnit < 0 {
		return nil, apperr.E(apperr.Validation, "Price cannot be negative")
	}
	if in.HarvestDate.IsZero() {
		return nil, apperr.E(apperr.Validation, "Harvest date is required")
	}
	if in.ShelfLifeDays != nil && *in.ShelfLifeDays < 1 {
		return nil, apperr.E(apperr.Validation, "Shelf life must be at least 1 day")
	}
	if strings.TrimSpace(in.LocationState) == "" || strings.TrimSpace(in.LocationDistrict) == "" {
		return nil, apperr.E(apperr.Validation, "State and district are required")
	}

	currency := in.Currency
	if currency == "" {
		currency = "INR"
	}
	if !domain.ValidCurrency(currency) {
		return nil, apperr.E(apperr.Validation, "Unknown currency")
	}
	negotiable := true
	if in.Negotiable != nil {
		negotiable = *in.Negotiable
	}
	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	priority := in.Priority
	if priority == 0 {
		priority = 5
	}
	harvestMethod := in.HarvestMethod
	if harvestMethod == "" {
		harvestMethod = "manual"
	}
	storage := in.StorageCondition
	if storage == "" {
		storage = "room_temperature"
	}

	l := &domain.Listing{
		OwnerID:           in.OwnerID,
		CropType:          in.CropType,
		Variety:           in.Variety,
		QuantityAmount:    in.QuantityAmount,
		QuantityUnit:      in.QuantityUnit,
		QuantityAvailable: in.QuantityAmount,
		PricePerUnit:      in.PricePerUnit,
		Currency:          currency,
		Negotiable:        negotiable,
		BulkDiscount:      in.BulkDiscount,
		SeasonalPricing:   in.SeasonalPricing,
		HarvestDate:       in.HarvestDate,
		ShelfLifeDays:     in.ShelfLifeDays,
		HarvestMethod:     harvestMethod,
		StorageCondition:  storage,
		LocationState:     strings.TrimSpace(in.LocationState),
		LocationDistrict:  strings.TrimSpace(in.LocationDistrict),
		LocationVillage:   strings.TrimSpace(in.LocationVillage),
		Status:            domain.StatusPending,
		IsPublic:          isPublic,
		Priority:          priority,
		Tags:              in.Tags,
		Description:       in.Description,
	}
	l.ListingCode = s.generateCode()
	if err := inventory.Validate(l); err != nil {
		return nil, err
	}

	err := s.createWithEvent(ctx, l)
	if err != nil && isUniqueViolation(err) {
		// Timestamp+random codes can collide under load; the unique
		// index is the safety net. One fresh code, one more attempt.
		l.ListingCode = s.generateCode()
		err = s.createWithEvent(ctx, l)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) createWithEvent(ctx context.Context, l *domain.Listing) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(l).Error; err != nil {
			return err
		}
		return writeEvent(tx, l.ListingID, domain.EventCreated, &l.OwnerID, map[string]interface{}{
			"listing_code":   l.ListingCode,
			"crop_type":      l.CropType,
			"price_per_unit": l.PricePerUnit,
		})
	})
}

// GetByID returns a listing or a NotFound error.
func (s *Service) GetByID(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&l).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.E(apperr.NotFound, "Listing not found")
		}
		return nil, err
	}
	return &l, nil
}

// GetByCode returns a listing by its immutable code.
func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Listing, error) {
	var l domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_code = ?", code).First(&l).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.E(apperr.NotFound, "Listing not found")
		}
		return nil, err
	}
	return &l, nil
}

// OwnerListings returns all listings of one seller, newest first.
func (s *Service) OwnerListings(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	var out []domain.Listing
	err := s.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateQuantity applies the inventory state machine to the requested
// available quantity under an optimistic-concurrency guard: the write
// only lands if the version read is still current, otherwise the
// operation re-reads and retries up to maxWriteRetries.
func (s *Service) UpdateQuantity(ctx context.Context, listingID, actorID uuid.UUID, requested float64) (*domain.Listing, error) {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		l, err := s.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if actorID != uuid.Nil && l.OwnerID != actorID {
			return nil, apperr.E(apperr.Validation, "Unauthorized listing edit")
		}
		if err := inventory.SetAvailableQuantity(l, requested); err != nil {
			return nil, err
		}

		ok, err := s.guardedUpdate(ctx, l, map[string]interface{}{
			"quantity_available": l.QuantityAvailable,
			"status":             l.Status,
		}, domain.EventUpdated, actorID, map[string]interface{}{
			"quantity_available": l.QuantityAvailable,
			"status":             l.Status,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			l.Version++
			return l, nil
		}
	}
	return nil, apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
}

// AddReview appends a buyer review and bumps the inquiry timestamp.
func (s *Service) AddReview(ctx context.Context, listingID, reviewerID uuid.UUID, rating int, comment string) (*domain.Listing, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.E(apperr.Validation, "Rating must be between 1 and 5")
	}
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		l, err := s.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		l.Reviews = append(l.Reviews, domain.Review{
			ReviewerID: reviewerID.String(),
			Rating:     rating,
			Comment:    comment,
			ReviewDate: now,
		})
		l.LastInquiry = &now
		if err := inventory.Validate(l); err != nil {
			return nil, err
		}

		ok, err := s.guardedUpdate(ctx, l, map[string]interface{}{
			"reviews":      l.Reviews,
			"last_inquiry": l.LastInquiry,
		}, domain.EventReviewed, reviewerID, map[string]interface{}{
			"reviewer_id": reviewerID.String(),
			"rating":      rating,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			l.Version++
			return l, nil
		}
	}
	return nil, apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
}

// IncrementViews bumps the view counter atomically in the storage engine.
func (s *Service) IncrementViews(ctx context.Context, listingID uuid.UUID) error {
	return s.incrementCounter(ctx, listingID, "views", "last_viewed")
}

// IncrementInquiries bumps the inquiry counter atomically.
func (s *Service) IncrementInquiries(ctx context.Context, listingID uuid.UUID) error {
	return s.incrementCounter(ctx, listingID, "inquiries", "last_inquiry")
}

// IncrementShares bumps the share counter atomically.
func (s *Service) IncrementShares(ctx context.Context, listingID uuid.UUID) error {
	return s.incrementCounter(ctx, listingID, "shares", "")
}

func (s *Service) incrementCounter(ctx context.Context, listingID uuid.UUID, column, tsColumn string) error {
	updates := map[string]interface{}{
		column: gorm.Expr(column + " + 1"),
	}
	if tsColumn != "" {
		updates[tsColumn] = time.Now()
	}
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("listing_id = ?", listingID).
		UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.E(apperr.NotFound, "Listing not found")
	}
	return nil
}

// SetStatus applies an administrative status transition (activate,
// expire, cancel, put under review). Quantity-driven transitions go
// through UpdateQuantity instead; sold_out in particular is only ever
// reached by draining the available quantity to zero.
func (s *Service) SetStatus(ctx context.Context, listingID, actorID uuid.UUID, status string) (*domain.Listing, error) {
	if !domain.ValidStatus(status) {
		return nil, apperr.E(apperr.Validation, "Unknown listing status")
	}
	if status == domain.StatusSoldOut {
		return nil, apperr.E(apperr.Validation, "sold_out is set by quantity updates, not directly")
	}
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		l, err := s.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if actorID != uuid.Nil && l.OwnerID != actorID {
			return nil, apperr.E(apperr.Validation, "Unauthorized listing edit")
		}
		l.Status = status
		if err := inventory.Validate(l); err != nil {
			return nil, err
		}

		eventType := domain.EventUpdated
		if status == domain.StatusCancelled {
			eventType = domain.EventCancelled
		}
		ok, err := s.guardedUpdate(ctx, l, map[string]interface{}{
			"status": l.Status,
		}, eventType, actorID, map[string]interface{}{
			"status": l.Status,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			l.Version++
			return l, nil
		}
	}
	return nil, apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
}

// guardedUpdate writes updates plus a version bump, conditional on the
// version still matching, and records the audit event in the same
// transaction, attributed to actorID when known. Returns false when the
// guard lost the race.
func (s *Service) guardedUpdate(ctx context.Context, l *domain.Listing, updates map[string]interface{}, eventType string, actorID uuid.UUID, eventData map[string]interface{}) (bool, error) {
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	applied := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates["version"] = l.Version + 1
		res := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND version = ?", l.ListingID, l.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return writeEvent(tx, l.ListingID, eventType, actor, eventData)
	})
	return applied, err
}

func writeEvent(tx *gorm.DB, listingID uuid.UUID, eventType string, actorID *uuid.UUID, data map[string]interface{}) error {
	b, _ := json.Marshal(data)
	return tx.Create(&domain.ListingEvent{
		ListingID: listingID,
		EventType: eventType,
		EventData: datatypes.JSON(b),
		ActorID:   actorID,
	}).Error
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
