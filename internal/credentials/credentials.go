// Package credentials covers password verification and the issuance,
// rotation and revocation of access and refresh tokens.
package credentials

import (
	"time"

	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost matches the adaptive-cost default of 12 rounds.
	DefaultBcryptCost = 12
	// DefaultAccessTTL is the access-token lifetime.
	DefaultAccessTTL = 24 * time.Hour
	// DefaultRefreshTTL is the refresh-token lifetime.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AccessClaims embed identity and role in short-lived tokens.
type AccessClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the account identity.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens and hashes passwords.
type Manager struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	bcryptCost    int
}

// Options configure a Manager; zero values fall back to defaults.
// RefreshSecret falls back to Secret when empty.
type Options struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int
}

// NewManager builds a Manager with defaults applied.
func NewManager(opts Options) *Manager {
	if opts.RefreshSecret == "" {
		opts.RefreshSecret = opts.Secret
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}
	if opts.BcryptCost <= 0 {
		opts.BcryptCost = DefaultBcryptCost
	}
	return &Manager{
		secret:        []byte(opts.Secret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		bcryptCost:    opts.BcryptCost,
	}
}

// HashPassword produces a salted bcrypt hash. Call only when the
// password is being set or changed, never on unrelated saves.
func (m *Manager) HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares in constant time. Returns false on mismatch,
// never an error.
func (m *Manager) VerifyPassword(plaintext, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// IssueAccessToken signs a short-lived token embedding id, email and role.
func (m *Manager) IssueAccessToken(u *domain.User) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		UserID: u.UserID.String(),
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// IssueRefreshToken signs a longer-lived token embedding the account id
// and appends it to the account's bounded token list, evicting the
// oldest entry beyond capacity. Returns the new token.
func (m *Manager) IssueRefreshToken(u *domain.User, device domain.DeviceInfo) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		UserID: u.UserID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			// ID keeps tokens issued within the same second distinct,
			// otherwise rotation could revoke the replacement too.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", err
	}
	if device.UserAgent == "" {
		device.UserAgent = "Unknown"
	}
	if device.IP == "" {
		device.IP = "Unknown"
	}
	device.LastUsed = now
	u.RefreshTokens = u.RefreshTokens.Append(domain.RefreshToken{
		Token:     token,
		ExpiresAt: now.Add(m.refreshTTL),
		Device:    device,
	})
	return token, nil
}

// RevokeRefreshToken removes the single entry matching token exactly.
// No-op if not found.
func (m *Manager) RevokeRefreshToken(u *domain.User, token string) {
	u.RefreshTokens = u.RefreshTokens.Remove(token)
}

// RevokeAllRefreshTokens clears the list, e.g. on password change or
// "log out everywhere".
func (m *Manager) RevokeAllRefreshTokens(u *domain.User) {
	u.RefreshTokens = nil
}

// VerifyAccessToken parses and validates an access token. Fails closed
// with a TokenInvalid error on any problem.
func (m *Manager) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.E(apperr.TokenInvalid, "Unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.E(apperr.TokenInvalid, "Invalid or expired token")
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh token's signature and expiry
// and returns its claims. Membership in an account's token list is
// checked separately by VerifyRefreshToken.
func (m *Manager) ParseRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.E(apperr.TokenInvalid, "Unexpected signing method")
		}
		return m.refreshSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.E(apperr.TokenInvalid, "Invalid or expired refresh token")
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token and requires
// it to still be present and unexpired in the account's list. A revoked
// token fails even if its signature is still valid.
func (m *Manager) VerifyRefreshToken(u *domain.User, token string) (*RefreshClaims, error) {
	claims, err := m.ParseRefreshToken(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID != u.UserID.String() {
		return nil, apperr.E(apperr.TokenInvalid, "Invalid or expired refresh token")
	}
	entry := u.RefreshTokens.Find(token)
	if entry == nil || time.Now().After(entry.ExpiresAt) {
		return nil, apperr.E(apperr.TokenInvalid, "Invalid or expired refresh token")
	}
	return claims, nil
}
