package domain

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing statuses. Only pending and active are reachable from quantity
// changes; expired, cancelled and under_review are set administratively.
const (
	StatusPending     = "pending"
	StatusActive      = "active"
	StatusSoldOut     = "sold_out"
	StatusExpired     = "expired"
	StatusCancelled   = "cancelled"
	StatusUnderReview = "under_review"
)

// CropTypes is the closed set of accepted crop types.
var CropTypes = []string{
	"tomato", "potato", "rice", "corn", "wheat", "cotton", "sugarcane",
	"mango", "banana", "apple", "grapes", "onion", "chilli", "brinjal",
	"paddy", "maize", "pulses", "oilseeds", "vegetables", "fruits",
	"dairy", "poultry", "fishery", "other",
}

// QuantityUnits is the closed set of accepted quantity units.
var QuantityUnits = []string{
	"kg", "quintal", "ton", "dozen", "piece", "bundle", "bag",
	"litre", "gallon", "bottle", "box", "crate", "sack",
}

// Currencies accepted for pricing.
var Currencies = []string{"INR", "USD", "EUR"}

// Seasons accepted for seasonal pricing entries.
var Seasons = []string{"spring", "summer", "monsoon", "autumn", "winter"}

// Review is a buyer review attached to a listing.
type Review struct {
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	ReviewDate time.Time `json:"review_date"`
}

// ReviewList stores reviews as a json column.
type ReviewList []Review

func (l *ReviewList) Scan(value interface{}) error { return scanJSON(l, value) }
func (l ReviewList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON(l)
}

// BulkDiscount is an optional pricing modifier; descriptive only, not
// enforced by the inventory state machine.
type BulkDiscount struct {
	MinQuantity        float64 `json:"min_quantity"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

func (b *BulkDiscount) Scan(value interface{}) error { return scanJSON(b, value) }
func (b *BulkDiscount) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return valueJSON(b)
}

// SeasonalPrice is a seasonal multiplier on the base price.
type SeasonalPrice struct {
	Season          string  `json:"season"`
	PriceMultiplier float64 `json:"price_multiplier"`
}

// SeasonalPriceList stores seasonal pricing as a json column.
type SeasonalPriceList []SeasonalPrice

func (l *SeasonalPriceList) Scan(value interface{}) error { return scanJSON(l, value) }
func (l SeasonalPriceList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON(l)
}

// StringList stores a list of strings (tags) as a json column.
type StringList []string

func (l *StringList) Scan(value interface{}) error { return scanJSON(l, value) }
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON(l)
}

// Listing is a produce-sale offering posted by a seller account.
// Fields the aggregator filters or groups on are flat columns; nested
// optional document data lives in json columns.
type Listing struct {
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	ListingCode string    `gorm:"column:listing_code;uniqueIndex" json:"listing_code"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`

	CropType string `gorm:"column:crop_type;not null;index" json:"crop_type"`
	Variety  string `gorm:"column:variety" json:"variety"`

	QuantityAmount    float64 `gorm:"column:quantity_amount;type:decimal(18,2);not null" json:"quantity_amount"`
	QuantityUnit      string  `gorm:"column:quantity_unit;not null" json:"quantity_unit"`
	QuantityAvailable float64 `gorm:"column:quantity_available;type:decimal(18,2);not null" json:"quantity_available"`

	PricePerUnit    float64           `gorm:"column:price_per_unit;type:decimal(18,2);not null" json:"price_per_unit"`
	Currency        string            `gorm:"column:currency;type:varchar(8);default:'INR'" json:"currency"`
	Negotiable      bool              `gorm:"column:negotiable;default:true" json:"negotiable"`
	BulkDiscount    *BulkDiscount     `gorm:"column:bulk_discount;type:json" json:"bulk_discount,omitempty"`
	SeasonalPricing SeasonalPriceList `gorm:"column:seasonal_pricing;type:json" json:"seasonal_pricing"`

	HarvestDate      time.Time `gorm:"column:harvest_date;not null;index" json:"harvest_date"`
	ShelfLifeDays    *int      `gorm:"column:shelf_life_days" json:"shelf_life_days,omitempty"`
	HarvestMethod    string    `gorm:"column:harvest_method;type:varchar(16);default:'manual'" json:"harvest_method"`
	StorageCondition string    `gorm:"column:storage_condition;type:varchar(32);default:'room_temperature'" json:"storage_condition"`

	LocationState    string `gorm:"column:location_state;not null;index" json:"location_state"`
	LocationDistrict string `gorm:"column:location_district;not null;index" json:"location_district"`
	LocationVillage  string `gorm:"column:location_village" json:"location_village"`

	Status   string `gorm:"column:status;type:varchar(20);default:'pending';index" json:"status"`
	IsPublic bool   `gorm:"column:is_public;default:true" json:"is_public"`
	Featured bool   `gorm:"column:featured;default:false" json:"featured"`
	Priority int    `gorm:"column:priority;default:5" json:"priority"`

	Views       int64      `gorm:"column:views;default:0" json:"views"`
	Inquiries   int64      `gorm:"column:inquiries;default:0" json:"inquiries"`
	Shares      int64      `gorm:"column:shares;default:0" json:"shares"`
	LastViewed  *time.Time `gorm:"column:last_viewed" json:"last_viewed,omitempty"`
	LastInquiry *time.Time `gorm:"column:last_inquiry" json:"last_inquiry,omitempty"`

	Reviews     ReviewList `gorm:"column:reviews;type:json" json:"reviews"`
	Tags        StringList `gorm:"column:tags;type:json" json:"tags"`
	Description string     `gorm:"column:description" json:"description"`

	// Version guards concurrent writes (conditional update, retry on conflict).
	Version int `gorm:"column:version;not null;default:1" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets listing_id and the initial version if not already set.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	if l.Version == 0 {
		l.Version = 1
	}
	return nil
}

// ValidCropType reports whether c is in the closed crop set.
func ValidCropType(c string) bool { return contains(CropTypes, c) }

// ValidQuantityUnit reports whether u is in the closed unit set.
func ValidQuantityUnit(u string) bool { return contains(QuantityUnits, u) }

// ValidCurrency reports whether c is an accepted currency.
func ValidCurrency(c string) bool { return contains(Currencies, c) }

// ValidStatus reports whether s is a known listing status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusActive, StatusSoldOut, StatusExpired, StatusCancelled, StatusUnderReview:
		return true
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
