package domain

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
	RoleExpert = "expert"
)

// MaxRefreshTokens bounds the refresh-token list per account; inserting
// beyond capacity evicts the oldest entries (FIFO).
const MaxRefreshTokens = 5

// DeviceInfo identifies the device a refresh token was issued to.
type DeviceInfo struct {
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	LastUsed  time.Time `json:"last_used"`
}

// RefreshToken is one active long-lived session token.
type RefreshToken struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Device    DeviceInfo `json:"device_info"`
}

// RefreshTokenList is the capacity-checked token list stored as a json
// column. All mutations go through Append/Remove so the 5-entry bound
// holds at every mutation site, not just at read time.
type RefreshTokenList []RefreshToken

func (l *RefreshTokenList) Scan(value interface{}) error { return scanJSON(l, value) }
func (l RefreshTokenList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON(l)
}

// Append returns the list with rt added, evicting the oldest entries
// beyond MaxRefreshTokens.
func (l RefreshTokenList) Append(rt RefreshToken) RefreshTokenList {
	out := append(l, rt)
	if len(out) > MaxRefreshTokens {
		out = out[len(out)-MaxRefreshTokens:]
	}
	return out
}

// Remove returns the list without the entry matching token exactly.
// No-op if the token is not present.
func (l RefreshTokenList) Remove(token string) RefreshTokenList {
	out := make(RefreshTokenList, 0, len(l))
	for _, rt := range l {
		if rt.Token != token {
			out = append(out, rt)
		}
	}
	return out
}

// Find returns the entry for token, or nil.
func (l RefreshTokenList) Find(token string) *RefreshToken {
	for i := range l {
		if l[i].Token == token {
			return &l[i]
		}
	}
	return nil
}

// Profile holds descriptive account fields; validated externally.
type Profile struct {
	Avatar            string   `json:"avatar,omitempty"`
	Bio               string   `json:"bio,omitempty"`
	FarmingExperience int      `json:"farming_experience,omitempty"`
	Crops             []string `json:"crops,omitempty"`
	Languages         []string `json:"languages,omitempty"`
}

func (p *Profile) Scan(value interface{}) error { return scanJSON(p, value) }
func (p Profile) Value() (driver.Value, error)  { return valueJSON(p) }

// Preferences holds notification and privacy settings.
type Preferences struct {
	Language      string `json:"language,omitempty"`
	EmailNotify   bool   `json:"email_notify"`
	SMSNotify     bool   `json:"sms_notify"`
	PushNotify    bool   `json:"push_notify"`
	ProfilePublic bool   `json:"profile_public"`
	ShareLocation bool   `json:"share_location"`
}

func (p *Preferences) Scan(value interface{}) error { return scanJSON(p, value) }
func (p Preferences) Value() (driver.Value, error)  { return valueJSON(p) }

// User is a marketplace account (farmer, buyer, admin or expert).
type User struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	Email        string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phone        string    `gorm:"column:phone;not null;uniqueIndex" json:"phone"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         string    `gorm:"column:role;not null;default:farmer;index" json:"role"`

	LocationState    string `gorm:"column:location_state;index" json:"location_state"`
	LocationDistrict string `gorm:"column:location_district;index" json:"location_district"`
	LocationVillage  string `gorm:"column:location_village" json:"location_village"`
	LocationPincode  string `gorm:"column:location_pincode" json:"location_pincode"`

	Profile     Profile     `gorm:"column:profile;type:json" json:"profile"`
	Preferences Preferences `gorm:"column:preferences;type:json" json:"preferences"`

	IsEmailVerified   bool `gorm:"column:is_email_verified;default:false" json:"is_email_verified"`
	IsPhoneVerified   bool `gorm:"column:is_phone_verified;default:false" json:"is_phone_verified"`
	IsProfileComplete bool `gorm:"column:is_profile_complete;default:false" json:"is_profile_complete"`

	IsActive      bool   `gorm:"column:is_active;default:true;index" json:"is_active"`
	IsBlocked     bool   `gorm:"column:is_blocked;default:false" json:"is_blocked"`
	BlockedReason string `gorm:"column:blocked_reason" json:"blocked_reason,omitempty"`

	RefreshTokens RefreshTokenList `gorm:"column:refresh_tokens;type:json" json:"-"`

	// Version guards concurrent token-list writes from multiple devices.
	Version int `gorm:"column:version;not null;default:1" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets user_id and the initial version if not already set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	if u.Version == 0 {
		u.Version = 1
	}
	return nil
}

// ValidRole reports whether r is a known account role.
func ValidRole(r string) bool {
	switch r {
	case RoleFarmer, RoleBuyer, RoleAdmin, RoleExpert:
		return true
	}
	return false
}
