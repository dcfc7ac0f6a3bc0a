// Package analytics runs cross-record query and aggregation operations
// over the listing collection. Execution is delegated to the storage
// engine through GORM query builders; hot aggregates are cached in Redis
// when a client is configured.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agrimarket-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DefaultFreshDays bounds FreshProduce when the caller passes no limit.
const DefaultFreshDays = 7

// DefaultTrendingLimit bounds Trending when the caller passes no limit.
const DefaultTrendingLimit = 10

// DefaultCacheTTL is how long cached aggregates stay valid.
const DefaultCacheTTL = 30 * time.Second

// Aggregator is stateless over an injected DB handle. Rdb is optional;
// when nil every call goes straight to the database.
type Aggregator struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	CacheTTL time.Duration
}

// GroupStat is one (cropType, state) group of active listings.
type GroupStat struct {
	CropType      string  `gorm:"column:crop_type" json:"crop_type"`
	State         string  `gorm:"column:location_state" json:"state"`
	Count         int64   `gorm:"column:listing_count" json:"count"`
	AvgPrice      float64 `gorm:"column:avg_price" json:"avg_price"`
	TotalQuantity float64 `gorm:"column:total_quantity" json:"total_quantity"`
	TotalViews    int64   `gorm:"column:total_views" json:"total_views"`
}

// TrendingListing is a listing plus its computed engagement score.
type TrendingListing struct {
	domain.Listing  `gorm:"embedded"`
	EngagementScore int64 `gorm:"column:engagement_score" json:"engagement_score"`
}

// EngagementScore weighs views x1, inquiries x5 and shares x3.
func EngagementScore(l domain.Listing) int64 {
	return l.Views + l.Inquiries*5 + l.Shares*3
}

func (a *Aggregator) public(ctx context.Context) *gorm.DB {
	return a.DB.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("is_public = ?", true)
}

// ByLocation returns active public listings, optionally narrowed by
// state and district equality.
func (a *Aggregator) ByLocation(ctx context.Context, state, district string) ([]domain.Listing, error) {
	q := a.public(ctx)
	if state != "" {
		q = q.Where("location_state = ?", state)
	}
	if district != "" {
		q = q.Where("location_district = ?", district)
	}
	var out []domain.Listing
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ByPriceRange returns active public listings with price_per_unit inside
// the inclusive bounds. Either bound may be nil.
func (a *Aggregator) ByPriceRange(ctx context.Context, min, max *float64) ([]domain.Listing, error) {
	q := a.public(ctx)
	if min != nil {
		q = q.Where("price_per_unit >= ?", *min)
	}
	if max != nil {
		q = q.Where("price_per_unit <= ?", *max)
	}
	var out []domain.Listing
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FreshProduce returns active public listings harvested within the last
// maxDaysOld days (default 7).
func (a *Aggregator) FreshProduce(ctx context.Context, maxDaysOld int) ([]domain.Listing, error) {
	if maxDaysOld <= 0 {
		maxDaysOld = DefaultFreshDays
	}
	cutoff := time.Now().AddDate(0, 0, -maxDaysOld)
	var out []domain.Listing
	err := a.public(ctx).Where("harvest_date >= ?", cutoff).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GroupStats groups active listings by (cropType, state) with count,
// average price, summed amount and summed views, ordered by count
// descending.
func (a *Aggregator) GroupStats(ctx context.Context) ([]GroupStat, error) {
	var out []GroupStat
	if hit := a.cacheGet(ctx, "analytics:group_stats", &out); hit {
		return out, nil
	}
	err := a.DB.WithContext(ctx).
		Model(&domain.Listing{}).
		Select("crop_type, location_state, COUNT(*) AS listing_count, AVG(price_per_unit) AS avg_price, SUM(quantity_amount) AS total_quantity, SUM(views) AS total_views").
		Where("status = ?", domain.StatusActive).
		Group("crop_type").Group("location_state").
		Order("listing_count DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	a.cacheSet(ctx, "analytics:group_stats", out)
	return out, nil
}

// Trending returns the top active public listings by engagement score,
// descending; ties keep insertion order.
func (a *Aggregator) Trending(ctx context.Context, limit int) ([]TrendingListing, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	key := fmt.Sprintf("analytics:trending:%d", limit)
	var out []TrendingListing
	if hit := a.cacheGet(ctx, key, &out); hit {
		return out, nil
	}
	err := a.DB.WithContext(ctx).
		Model(&domain.Listing{}).
		Select("*, views + inquiries * 5 + shares * 3 AS engagement_score").
		Where("status = ?", domain.StatusActive).
		Where("is_public = ?", true).
		Order("engagement_score DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	a.cacheSet(ctx, key, out)
	return out, nil
}

// cacheGet loads a cached aggregate; cache errors fall through to the DB.
func (a *Aggregator) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if a.Rdb == nil {
		return false
	}
	b, err := a.Rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

func (a *Aggregator) cacheSet(ctx context.Context, key string, v interface{}) {
	if a.Rdb == nil {
		return
	}
	ttl := a.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if b, err := json.Marshal(v); err == nil {
		a.Rdb.Set(ctx, key, b, ttl)
	}
}
