package listingevents

import (
	"context"
	"testing"
	"time"

	listsvc "agrimarket-backend/internal/application/listings"
	"agrimarket-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupEventsTest(t *testing.T) (*Service, *listsvc.Service) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}, &domain.ListingEvent{}))
	return &Service{DB: db}, &listsvc.Service{DB: db, CodePrefix: "PL"}
}

func TestByListing(t *testing.T) {
	svc, listings := setupEventsTest(t)
	ctx := context.Background()
	owner := uuid.New()

	l, err := listings.Create(ctx, listsvc.CreateListingInput{
		OwnerID:          owner,
		CropType:         "tomato",
		QuantityAmount:   100,
		QuantityUnit:     "kg",
		PricePerUnit:     20,
		HarvestDate:      time.Now().AddDate(0, 0, -1),
		LocationState:    "Karnataka",
		LocationDistrict: "Mysuru",
	})
	require.NoError(t, err)

	_, err = listings.UpdateQuantity(ctx, l.ListingID, owner, 50)
	require.NoError(t, err)

	events, err := svc.ByListing(ctx, l.ListingID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	types := []string{events[0].EventType, events[1].EventType}
	assert.Contains(t, types, domain.EventCreated)
	assert.Contains(t, types, domain.EventUpdated)
}

func TestByListing_Empty(t *testing.T) {
	svc, _ := setupEventsTest(t)
	events, err := svc.ByListing(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, events, 0)
}

func TestByOwner(t *testing.T) {
	svc, listings := setupEventsTest(t)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	for _, id := range []uuid.UUID{owner, other} {
		_, err := listings.Create(ctx, listsvc.CreateListingInput{
			OwnerID:          id,
			CropType:         "rice",
			QuantityAmount:   10,
			QuantityUnit:     "quintal",
			PricePerUnit:     40,
			HarvestDate:      time.Now().AddDate(0, 0, -1),
			LocationState:    "Punjab",
			LocationDistrict: "Ludhiana",
		})
		require.NoError(t, err)
	}

	events, err := svc.ByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCreated, events[0].EventType)
}
