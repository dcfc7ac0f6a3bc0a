package auth

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	acctsvc "agrimarket-backend/internal/application/accounts"
	"agrimarket-backend/internal/credentials"
	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuthTest(t *testing.T) (*Handlers, *credentials.Manager) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	creds := credentials.NewManager(credentials.Options{Secret: "test-secret", BcryptCost: 4})
	svc := &acctsvc.Service{DB: db, Credentials: creds}
	return &Handlers{Service: svc}, creds
}

func authTestApp(h *Handlers, creds *credentials.Manager) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Post("/refresh", h.Refresh)
	app.Get("/me", middleware.RequireAuth(creds), h.Me)
	app.Delete("/logout", middleware.RequireAuth(creds), h.Logout)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload interface{}, token string) (int, map[string]interface{}) {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func registration() map[string]interface{} {
	return map[string]interface{}{
		"name":              "Asha Devi",
		"email":             "asha@example.com",
		"phone":             "9876543210",
		"password":          "Secret@123",
		"location_state":    "Karnataka",
		"location_district": "Mysuru",
	}
}

func TestRegister(t *testing.T) {
	h, creds := setupAuthTest(t)
	app := authTestApp(h, creds)

	code, result := doJSON(t, app, "POST", "/register", registration(), "")
	assert.Equal(t, 201, code)
	assert.Equal(t, "success", result["status"])

	user := result["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "asha@example.com", user["email"])
	assert.Equal(t, "farmer", user["role"])
	// sensitive fields never leave the service
	_, hasHash := user["password_hash"]
	assert.False(t, hasHash)
	_, hasTokens := user["refresh_tokens"]
	assert.False(t, hasTokens)
}

func TestRegister_BadEmail(t *testing.T) {
	h, creds := setupAuthTest(t)
	app := authTestApp(h, creds)

	payload := registration()
	payload["email"] = "nope"
	code, result := doJSON(t, app, "POST", "/register", payload, "")
	assert.Equal(t, 400, code)
	assert.Equal(t, "error", result["status"])
}

func TestLoginAndMe(t *testing.T) {
	h, creds := setupAuthTest(t)
	app := authTestApp(h, creds)

	code, _ := doJSON(t, app, "POST", "/register", registration(), "")
	require.Equal(t, 201, code)

	code, result := doJSON(t, app, "POST", "/login", map[string]string{
		"email":    "asha@example.com",
		"password": "Secret@123",
	}, "")
	require.Equal(t, 200, code)
	data := result["data"].(map[string]interface{})
	accessToken := data["access_token"].(string)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, data["refresh_token"])

	code, result = doJSON(t, app, "GET", "/me", nil, accessToken)
	assert.Equal(t, 200, code)
	user := result["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "asha@example.com", user["email"])
}

func TestLogin_WrongPassword(t *testing.T) {
	h, creds := setupAuthTest(t)
	app := authTestApp(h, creds)

	code, _ := doJSON(t, app, "POST", "/register", registration(), "")
	require.Equal(t, 201, code)

	code, result := doJSON(t, app, "POST", "/login", map[string]string{
		"email":    "asha@example.com",
		"password": "Wrong@123",
	}, "")
	assert.Equal(t, 401, code)
	assert.Equal(t, "error", result["status"])
}

func TestMe_Unauthenticated(t *testing.T) {
	h, creds := setupAuthTest(t)
	app := authTestApp(h, creds)

	code, _ := doJSON(t, app, "GET", "/me", nil, "")
	assert.Equal(t, 401, code)

	code, _ = doJSON(t, app, "GET", "/me", nil, "not-a-token")
	assert.Equal(t, 401, code)
}

func TestRefreshRotation(t *testing.T) {
	h, creds := setupAuthTest(t)
	app := authTestApp(h, creds)

	code, _ := doJSON(t, app, "POST", "/register", registration(), "")
	require.Equal(t, 201, code)

	code, result := doJSON(t, app, "POST", "/login", map[string]string{
		"email":    "asha@example.com",
		"password": "Secret@123",
	}, "")
	require.Equal(t, 200, code)
	oldRefresh := result["data"].(map[string]interface{})["refresh_token"].(string)

	code, result = doJSON(t, app, "POST", "/refresh", map[string]string{"refresh_token": oldRefresh}, "")
	require.Equal(t, 200, code)
	data := result["data"].(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])
	assert.NotEqual(t, oldRefresh, data["refresh_token"])

	// replaying the rotated-out token fails
	code, _ = doJSON(t, app, "POST", "/refresh", map[string]string{"refresh_token": oldRefresh}, "")
	assert.Equal(t, 401, code)
}

func TestLogout(t *testing.T) {
	h, creds := setupAuthTest(t)
	app := authTestApp(h, creds)

	code, _ := doJSON(t, app, "POST", "/register", registration(), "")
	require.Equal(t, 201, code)

	code, result := doJSON(t, app, "POST", "/login", map[string]string{
		"email":    "asha@example.com",
		"password": "Secret@123",
	}, "")
	require.Equal(t, 200, code)
	data := result["data"].(map[string]interface{})
	accessToken := data["access_token"].(string)
	refreshToken := data["refresh_token"].(string)

	code, _ = doJSON(t, app, "DELETE", "/logout", map[string]string{"refresh_token": refreshToken}, accessToken)
	assert.Equal(t, 200, code)

	code, _ = doJSON(t, app, "POST", "/refresh", map[string]string{"refresh_token": refreshToken}, "")
	assert.Equal(t, 401, code)
}
