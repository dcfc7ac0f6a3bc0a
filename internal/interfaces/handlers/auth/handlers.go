package auth

import (
	acctsvc "agrimarket-backend/internal/application/accounts"
	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/middleware"
	"agrimarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds the accounts service.
type Handlers struct {
	Service *acctsvc.Service
}

// Register POST /api/v1/auth/register: create account, return 201 with
// the sanitized user.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req acctsvc.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.Register(c.Context(), req)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Account registered successfully", fiber.Map{"user": u}, nil)
}

// LoginRequest body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/v1/auth/login: verify password, issue token pair.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	result, err := h.Service.Login(c.Context(), req.Email, req.Password, deviceInfo(c))
	if err != nil {
		return err
	}
	return response.Success(c, "Login successful", fiber.Map{
		"user":          result.User,
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
	}, nil)
}

// RefreshRequest body.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh POST /api/v1/auth/refresh: rotate the refresh token and
// issue a new access token.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return response.Error(c, "Missing refresh_token", fiber.StatusBadRequest, nil)
	}
	result, err := h.Service.Refresh(c.Context(), req.RefreshToken, deviceInfo(c))
	if err != nil {
		return err
	}
	return response.Success(c, "Token refreshed successfully", fiber.Map{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
	}, nil)
}

// Logout DELETE /api/v1/auth/logout: revoke the presented refresh token.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return response.Error(c, "Missing refresh_token", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Logout(c.Context(), userID, req.RefreshToken); err != nil {
		return err
	}
	return response.Success(c, "Logged out successfully", nil, nil)
}

// LogoutAll DELETE /api/v1/auth/logout-all: revoke every device.
func (h *Handlers) LogoutAll(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := h.Service.LogoutEverywhere(c.Context(), userID); err != nil {
		return err
	}
	return response.Success(c, "Logged out everywhere", nil, nil)
}

// Me GET /api/v1/auth/me: return the authenticated account.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	u, err := h.Service.GetByID(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, "User fetched successfully", fiber.Map{"user": u}, nil)
}

// UpdateProfile PUT /api/v1/auth/profile: update the authenticated
// account's profile fields.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req acctsvc.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.UpdateProfile(c.Context(), userID, req)
	if err != nil {
		return err
	}
	return response.Success(c, "Profile updated successfully", fiber.Map{"user": u}, nil)
}

func deviceInfo(c *fiber.Ctx) domain.DeviceInfo {
	return domain.DeviceInfo{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IP:        c.IP(),
	}
}
