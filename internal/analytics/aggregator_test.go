package analytics

import (
	"context"
	"testing"
	"time"

	"agrimarket-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAggregatorTest(t *testing.T) (*Aggregator, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}))
	return &Aggregator{DB: db}, db
}

func seedListing(t *testing.T, db *gorm.DB, mutate func(*domain.Listing)) domain.Listing {
	l := domain.Listing{
		OwnerID:           uuid.New(),
		ListingCode:       "PL" + uuid.NewString()[:12],
		CropType:          "tomato",
		QuantityAmount:    100,
		QuantityUnit:      "kg",
		QuantityAvailable: 100,
		PricePerUnit:      20,
		HarvestDate:       time.Now().AddDate(0, 0, -1),
		LocationState:     "Karnataka",
		LocationDistrict:  "Mysuru",
		Status:            domain.StatusActive,
		IsPublic:          true,
	}
	if mutate != nil {
		mutate(&l)
	}
	require.NoError(t, db.Create(&l).Error)
	return l
}

func TestByLocation(t *testing.T) {
	a, db := setupAggregatorTest(t)
	ctx := context.Background()

	seedListing(t, db, nil)
	seedListing(t, db, func(l *domain.Listing) { l.LocationState = "Punjab"; l.LocationDistrict = "Ludhiana" })
	seedListing(t, db, func(l *domain.Listing) { l.Status = domain.StatusCancelled })
	seedListing(t, db, func(l *domain.Listing) { l.IsPublic = false })

	all, err := a.ByLocation(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2) // cancelled and private excluded

	karnataka, err := a.ByLocation(ctx, "Karnataka", "")
	require.NoError(t, err)
	assert.Len(t, karnataka, 1)

	mysuru, err := a.ByLocation(ctx, "Karnataka", "Mysuru")
	require.NoError(t, err)
	assert.Len(t, mysuru, 1)

	none, err := a.ByLocation(ctx, "Karnataka", "Ludhiana")
	require.NoError(t, err)
	assert.Len(t, none, 0)
}

func TestByPriceRange(t *testing.T) {
	a, db := setupAggregatorTest(t)
	ctx := context.Background()

	seedListing(t, db, func(l *domain.Listing) { l.PricePerUnit = 10 })
	seedListing(t, db, func(l *domain.Listing) { l.PricePerUnit = 50 })
	seedListing(t, db, func(l *domain.Listing) { l.PricePerUnit = 90 })

	min, max := 20.0, 60.0
	mid, err := a.ByPriceRange(ctx, &min, &max)
	require.NoError(t, err)
	require.Len(t, mid, 1)
	assert.Equal(t, 50.0, mid[0].PricePerUnit)

	// inclusive bounds
	min = 10.0
	lower, err := a.ByPriceRange(ctx, &min, nil)
	require.NoError(t, err)
	assert.Len(t, lower, 3)

	max = 10.0
	upper, err := a.ByPriceRange(ctx, nil, &max)
	require.NoError(t, err)
	assert.Len(t, upper, 1)

	open, err := a.ByPriceRange(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, open, 3)
}

func TestFreshProduce(t *testing.T) {
	a, db := setupAggregatorTest(t)
	ctx := context.Background()

	seedListing(t, db, func(l *domain.Listing) { l.HarvestDate = time.Now().AddDate(0, 0, -2) })
	seedListing(t, db, func(l *domain.Listing) { l.HarvestDate = time.Now().AddDate(0, 0, -20) })

	fresh, err := a.FreshProduce(ctx, 0) // default 7 days
	require.NoError(t, err)
	assert.Len(t, fresh, 1)

	wide, err := a.FreshProduce(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, wide, 2)
}

func TestGroupStats(t *testing.T) {
	a, db := setupAggregatorTest(t)
	ctx := context.Background()

	seedListing(t, db, func(l *domain.Listing) { l.PricePerUnit = 10; l.QuantityAmount = 100; l.Views = 5 })
	seedListing(t, db, func(l *domain.Listing) { l.PricePerUnit = 30; l.QuantityAmount = 50; l.Views = 15 })
	seedListing(t, db, func(l *domain.Listing) { l.CropType = "rice"; l.LocationState = "Punjab"; l.LocationDistrict = "Ludhiana" })
	seedListing(t, db, func(l *domain.Listing) { l.Status = domain.StatusPending }) // excluded

	stats, err := a.GroupStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// biggest group first
	assert.Equal(t, "tomato", stats[0].CropType)
	assert.Equal(t, "Karnataka", stats[0].State)
	assert.Equal(t, int64(2), stats[0].Count)
	assert.Equal(t, 20.0, stats[0].AvgPrice)
	assert.Equal(t, 150.0, stats[0].TotalQuantity)
	assert.Equal(t, int64(20), stats[0].TotalViews)

	assert.Equal(t, "rice", stats[1].CropType)
	assert.Equal(t, int64(1), stats[1].Count)
}

func TestTrending(t *testing.T) {
	a, db := setupAggregatorTest(t)
	ctx := context.Background()

	seedListing(t, db, func(l *domain.Listing) { l.Views = 10; l.Inquiries = 2; l.Shares = 1 }) // 10 + 10 + 3 = 23
	seedListing(t, db, func(l *domain.Listing) { l.Views = 100 })                               // 100
	seedListing(t, db, func(l *domain.Listing) { l.Views = 1 })                                 // 1
	seedListing(t, db, func(l *domain.Listing) { l.Views = 1000; l.IsPublic = false })          // excluded

	top, err := a.Trending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(100), top[0].EngagementScore)
	assert.Equal(t, int64(23), top[1].EngagementScore)

	all, err := a.Trending(ctx, 0) // default limit
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEngagementScore(t *testing.T) {
	l := domain.Listing{Views: 10, Inquiries: 2, Shares: 1}
	assert.Equal(t, int64(23), EngagementScore(l))
	assert.Equal(t, int64(0), EngagementScore(domain.Listing{}))
}

func TestGroupStats_CachedInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	a, db := setupAggregatorTest(t)
	a.Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Rdb.Close()
	ctx := context.Background()

	seedListing(t, db, nil)

	first, err := a.GroupStats(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// a new listing is invisible until the cache expires
	seedListing(t, db, func(l *domain.Listing) { l.CropType = "rice" })
	cached, err := a.GroupStats(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	mr.FastForward(DefaultCacheTTL + time.Second)
	refreshed, err := a.GroupStats(ctx)
	require.NoError(t, err)
	assert.Len(t, refreshed, 2)
}

func TestTrending_CacheFallsThroughOnRedisError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	a, db := setupAggregatorTest(t)
	a.Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Rdb.Close()
	mr.Close() // Redis down: queries must still succeed
	ctx := context.Background()

	seedListing(t, db, nil)
	top, err := a.Trending(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
