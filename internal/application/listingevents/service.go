package listingevents

import (
	"context"

	"agrimarket-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service reads the audit event log; events are written by the listings
// service in the same transaction as the mutation they describe.
type Service struct {
	DB *gorm.DB
}

// ByListing returns the events for one listing, newest first.
func (s *Service) ByListing(ctx context.Context, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	var out []domain.ListingEvent
	err := s.DB.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ByOwner returns events for all listings owned by ownerID, newest first.
func (s *Service) ByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ListingEvent, error) {
	var out []domain.ListingEvent
	err := s.DB.WithContext(ctx).
		Joins("JOIN listings ON listings.listing_id = listing_events.listing_id").
		Where("listings.owner_id = ?", ownerID).
		Order("listing_events.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
