package accounts

import (
	"context"
	"strings"

	"agrimarket-backend/internal/credentials"
	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/pkg/apperr"
	"agrimarket-backend/internal/pkg/validation"
	"agrimarket-backend/internal/profile"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxWriteRetries bounds optimistic-concurrency retries on the
// refresh-token list before a Conflict error is surfaced.
const maxWriteRetries = 3

// authFailedMessage is shared by unknown-email, bad-password and
// blocked-account failures so callers cannot enumerate accounts.
const authFailedMessage = "Invalid email or password"

// Service holds the injected DB handle and credential manager.
type Service struct {
	DB          *gorm.DB
	Credentials *credentials.Manager
}

// RegisterInput carries the registration fields.
type RegisterInput struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	LocationState    string `json:"location_state"`
	LocationDistrict string `json:"location_district"`
	LocationVillage  string `json:"location_village"`
	LocationPincode  string `json:"location_pincode"`
}

// Register validates, hashes the password and persists a new account.
// The profile-completion cache is computed before the first save.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if !validation.IsValidName(name) {
		return nil, apperr.E(apperr.Validation, "Name is required and may only contain letters, spaces, hyphens and apostrophes")
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !validation.IsValidEmail(email) {
		return nil, apperr.E(apperr.Validation, "Invalid email format")
	}
	if !validation.IsValidPhone(in.Phone) {
		return nil, apperr.E(apperr.Validation, "Invalid phone number")
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, apperr.E(apperr.Validation, "Password must be at least 8 characters with a letter, a number and a special character")
	}
	if !validation.IsValidPincode(in.LocationPincode) {
		return nil, apperr.E(apperr.Validation, "Invalid pincode")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleFarmer
	}
	if !domain.ValidRole(role) {
		return nil, apperr.E(apperr.Validation, "Unknown role")
	}

	var existing domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperr.E(apperr.Validation, "Email already registered")
	}
	if err := s.DB.WithContext(ctx).Where("phone = ?", in.Phone).First(&existing).Error; err == nil {
		return nil, apperr.E(apperr.Validation, "Phone already registered")
	}

	hash, err := s.Credentials.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:             name,
		Email:            email,
		Phone:            in.Phone,
		PasswordHash:     hash,
		Role:             role,
		LocationState:    strings.TrimSpace(in.LocationState),
		LocationDistrict: strings.TrimSpace(in.LocationDistrict),
		LocationVillage:  strings.TrimSpace(in.LocationVillage),
		LocationPincode:  strings.TrimSpace(in.LocationPincode),
		IsActive:         true,
	}
	u.IsProfileComplete = profile.IsComplete(*u)
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		// A registration racing past the pre-checks lands on the unique
		// indexes; report it the same way as the pre-checks do.
		if isUniqueViolation(err) {
			return nil, apperr.E(apperr.Validation, "Email or phone already registered")
		}
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// GetByID returns an account or a NotFound error.
func (s *Service) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.E(apperr.NotFound, "User not found")
		}
		return nil, err
	}
	return &u, nil
}

// LoginResult bundles the authenticated account with its token pair.
type LoginResult struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// Login verifies the password and issues an access token plus a refresh
// token appended to the bounded device list. Unknown email, wrong
// password and deactivated accounts all fail with the same message.
func (s *Service) Login(ctx context.Context, email, password string, device domain.DeviceInfo) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperr.E(apperr.Validation, "Email and password are required")
	}

	var u domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.E(apperr.Authentication, authFailedMessage)
		}
		return nil, err
	}
	if !u.IsActive || u.IsBlocked {
		return nil, apperr.E(apperr.Authentication, authFailedMessage)
	}
	if !s.Credentials.VerifyPassword(password, u.PasswordHash) {
		return nil, apperr.E(apperr.Authentication, authFailedMessage)
	}

	accessToken, err := s.Credentials.IssueAccessToken(&u)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.appendRefreshToken(ctx, u.UserID, device)
	if err != nil {
		return nil, err
	}
	out := u
	return &LoginResult{User: &out, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// appendRefreshToken issues and stores a refresh token under the
// per-account version guard, so two logins racing from different
// devices cannot lose each other's append.
func (s *Service) appendRefreshToken(ctx context.Context, userID uuid.UUID, device domain.DeviceInfo) (string, error) {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		u, err := s.GetByID(ctx, userID)
		if err != nil {
			return "", err
		}
		token, err := s.Credentials.IssueRefreshToken(u, device)
		if err != nil {
			return "", err
		}
		ok, err := s.guardedUpdate(ctx, u, map[string]interface{}{
			"refresh_tokens": u.RefreshTokens,
		})
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}
	return "", apperr.E(apperr.Conflict, "Concurrent login detected, please retry")
}

// RefreshResult is the rotated token pair.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh validates a presented refresh token and rotates it: the old
// entry is revoked and a new pair is issued. Expired, malformed or
// revoked tokens fail closed with TokenInvalid.
func (s *Service) Refresh(ctx context.Context, refreshToken string, device domain.DeviceInfo) (*RefreshResult, error) {
	claims, err := s.Credentials.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.E(apperr.TokenInvalid, "Invalid or expired refresh token")
	}

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		u, err := s.GetByID(ctx, userID)
		if err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				return nil, apperr.E(apperr.TokenInvalid, "Invalid or expired refresh token")
			}
			return nil, err
		}
		if !u.IsActive || u.IsBlocked {
			return nil, apperr.E(apperr.TokenInvalid, "Invalid or expired refresh token")
		}
		if _, err := s.Credentials.VerifyRefreshToken(u, refreshToken); err != nil {
			return nil, err
		}

		s.Credentials.RevokeRefreshToken(u, refreshToken)
		newRefresh, err := s.Credentials.IssueRefreshToken(u, device)
		if err != nil {
			return nil, err
		}
		accessToken, err := s.Credentials.IssueAccessToken(u)
		if err != nil {
			return nil, err
		}

		ok, err := s.guardedUpdate(ctx, u, map[string]interface{}{
			"refresh_tokens": u.RefreshTokens,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			return &RefreshResult{AccessToken: accessToken, RefreshToken: newRefresh}, nil
		}
	}
	return nil, apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
}

// Logout revokes the single matching refresh token. No-op if absent.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		u, err := s.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		s.Credentials.RevokeRefreshToken(u, refreshToken)
		ok, err := s.guardedUpdate(ctx, u, map[string]interface{}{
			"refresh_tokens": u.RefreshTokens,
		})
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
}

// LogoutEverywhere clears the whole refresh-token list.
func (s *Service) LogoutEverywhere(ctx context.Context, userID uuid.UUID) error {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		u, err := s.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		s.Credentials.RevokeAllRefreshTokens(u)
		ok, err := s.guardedUpdate(ctx, u, map[string]interface{}{
			"refresh_tokens": u.RefreshTokens,
		})
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
}

// UpdateProfileInput carries updatable account fields. Nil pointers
// leave a field unchanged; Password is rehashed only when supplied.
type UpdateProfileInput struct {
	Name             *string             `json:"name"`
	Phone            *string             `json:"phone"`
	Password         *string             `json:"password"`
	LocationState    *string             `json:"location_state"`
	LocationDistrict *string             `json:"location_district"`
	LocationVillage  *string             `json:"location_village"`
	LocationPincode  *string             `json:"location_pincode"`
	Profile          *domain.Profile     `json:"profile"`
	Preferences      *domain.Preferences `json:"preferences"`
}

// UpdateProfile applies the changes, recomputes the completion cache
// and saves. A password change revokes all refresh tokens.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*domain.User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if !validation.IsValidName(name) {
			return nil, apperr.E(apperr.Validation, "Name may only contain letters, spaces, hyphens and apostrophes")
		}
		u.Name = name
	}
	if in.Phone != nil {
		if !validation.IsValidPhone(*in.Phone) {
			return nil, apperr.E(apperr.Validation, "Invalid phone number")
		}
		u.Phone = *in.Phone
		u.IsPhoneVerified = false
	}
	if in.LocationState != nil {
		u.LocationState = strings.TrimSpace(*in.LocationState)
	}
	if in.LocationDistrict != nil {
		u.LocationDistrict = strings.TrimSpace(*in.LocationDistrict)
	}
	if in.LocationVillage != nil {
		u.LocationVillage = strings.TrimSpace(*in.LocationVillage)
	}
	if in.LocationPincode != nil {
		if !validation.IsValidPincode(*in.LocationPincode) {
			return nil, apperr.E(apperr.Validation, "Invalid pincode")
		}
		u.LocationPincode = strings.TrimSpace(*in.LocationPincode)
	}
	if in.Profile != nil {
		u.Profile = *in.Profile
	}
	if in.Preferences != nil {
		u.Preferences = *in.Preferences
	}
	if in.Password != nil {
		if !validation.IsValidPassword(*in.Password) {
			return nil, apperr.E(apperr.Validation, "Password must be at least 8 characters with a letter, a number and a special character")
		}
		hash, err := s.Credentials.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
		// Password change logs out every device.
		s.Credentials.RevokeAllRefreshTokens(u)
	}

	u.IsProfileComplete = profile.IsComplete(*u)

	ok, err := s.guardedUpdate(ctx, u, map[string]interface{}{
		"name":                u.Name,
		"phone":               u.Phone,
		"password_hash":       u.PasswordHash,
		"location_state":      u.LocationState,
		"location_district":   u.LocationDistrict,
		"location_village":    u.LocationVillage,
		"location_pincode":    u.LocationPincode,
		"profile":             u.Profile,
		"preferences":         u.Preferences,
		"is_phone_verified":   u.IsPhoneVerified,
		"is_profile_complete": u.IsProfileComplete,
		"refresh_tokens":      u.RefreshTokens,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
	}
	u.Version++
	return u, nil
}

// Deactivate soft-deactivates the account instead of deleting it.
func (s *Service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	s.Credentials.RevokeAllRefreshTokens(u)
	ok, err := s.guardedUpdate(ctx, u, map[string]interface{}{
		"is_active":      false,
		"refresh_tokens": u.RefreshTokens,
	})
	if err != nil {
		return err
	}
	if !ok {
		return apperr.E(apperr.Conflict, "Concurrent update detected, please retry")
	}
	return nil
}

// guardedUpdate writes updates plus a version bump, conditional on the
// version still matching. Returns false when the guard lost the race.
func (s *Service) guardedUpdate(ctx context.Context, u *domain.User, updates map[string]interface{}) (bool, error) {
	updates["version"] = u.Version + 1
	res := s.DB.WithContext(ctx).Model(&domain.User{}).
		Where("user_id = ? AND version = ?", u.UserID, u.Version).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
