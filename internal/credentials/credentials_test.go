package credentials

import (
	"fmt"
	"testing"
	"time"

	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(Options{
		Secret:     "test-secret",
		BcryptCost: 4, // min cost keeps the suite fast
	})
}

func testUser() *domain.User {
	return &domain.User{
		UserID: uuid.New(),
		Email:  "farmer@example.com",
		Role:   domain.RoleFarmer,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	m := testManager()
	hash, err := m.HashPassword("Secret@123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret@123", hash)

	assert.True(t, m.VerifyPassword("Secret@123", hash))
	assert.False(t, m.VerifyPassword("Wrong@123", hash))
	assert.False(t, m.VerifyPassword("Secret@123", "not-a-hash"))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	u := testUser()
	token, err := m.IssueAccessToken(u)
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID.String(), claims.UserID)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, domain.RoleFarmer, claims.Role)
}

func TestVerifyAccessToken_WrongSecret(t *testing.T) {
	m := testManager()
	other := NewManager(Options{Secret: "other-secret"})
	u := testUser()
	token, err := m.IssueAccessToken(u)
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	require.Error(t, err)
	assert.Equal(t, apperr.TokenInvalid, apperr.KindOf(err))
}

func TestVerifyAccessToken_Garbage(t *testing.T) {
	m := testManager()
	_, err := m.VerifyAccessToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, apperr.TokenInvalid, apperr.KindOf(err))
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	m := testManager()
	m.accessTTL = -time.Hour // already-expired token
	u := testUser()
	token, err := m.IssueAccessToken(u)
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(token)
	require.Error(t, err)
	assert.Equal(t, apperr.TokenInvalid, apperr.KindOf(err))
}

func TestIssueRefreshToken_AppendsToList(t *testing.T) {
	m := testManager()
	u := testUser()
	token, err := m.IssueRefreshToken(u, domain.DeviceInfo{UserAgent: "cli", IP: "1.2.3.4"})
	require.NoError(t, err)
	require.Len(t, u.RefreshTokens, 1)
	assert.Equal(t, token, u.RefreshTokens[0].Token)
	assert.Equal(t, "cli", u.RefreshTokens[0].Device.UserAgent)
}

func TestIssueRefreshToken_DeviceDefaults(t *testing.T) {
	m := testManager()
	u := testUser()
	_, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
	require.NoError(t, err)
	require.Len(t, u.RefreshTokens, 1)
	assert.Equal(t, "Unknown", u.RefreshTokens[0].Device.UserAgent)
	assert.Equal(t, "Unknown", u.RefreshTokens[0].Device.IP)
}

func TestIssueRefreshToken_BoundEvictsOldest(t *testing.T) {
	m := testManager()
	u := testUser()

	tokens := make([]string, 0, domain.MaxRefreshTokens+1)
	for i := 0; i < domain.MaxRefreshTokens+1; i++ {
		token, err := m.IssueRefreshToken(u, domain.DeviceInfo{UserAgent: fmt.Sprintf("device-%d", i)})
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	require.Len(t, u.RefreshTokens, domain.MaxRefreshTokens)
	// oldest evicted, newest five kept in order
	assert.Nil(t, u.RefreshTokens.Find(tokens[0]))
	for _, token := range tokens[1:] {
		assert.NotNil(t, u.RefreshTokens.Find(token))
	}
	assert.Equal(t, tokens[1], u.RefreshTokens[0].Token)
	assert.Equal(t, tokens[len(tokens)-1], u.RefreshTokens[len(u.RefreshTokens)-1].Token)
}

func TestVerifyRefreshToken(t *testing.T) {
	m := testManager()
	u := testUser()
	token, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
	require.NoError(t, err)

	claims, err := m.VerifyRefreshToken(u, token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID.String(), claims.UserID)
}

func TestVerifyRefreshToken_RevokedFailsDespiteValidSignature(t *testing.T) {
	m := testManager()
	u := testUser()
	token, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
	require.NoError(t, err)

	m.RevokeRefreshToken(u, token)
	assert.Len(t, u.RefreshTokens, 0)

	// signature still parses
	_, err = m.ParseRefreshToken(token)
	require.NoError(t, err)

	// but verification against the account fails
	_, err = m.VerifyRefreshToken(u, token)
	require.Error(t, err)
	assert.Equal(t, apperr.TokenInvalid, apperr.KindOf(err))
}

func TestVerifyRefreshToken_WrongAccount(t *testing.T) {
	m := testManager()
	u := testUser()
	token, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
	require.NoError(t, err)

	other := testUser()
	other.RefreshTokens = u.RefreshTokens
	_, err = m.VerifyRefreshToken(other, token)
	require.Error(t, err)
	assert.Equal(t, apperr.TokenInvalid, apperr.KindOf(err))
}

func TestRevokeRefreshToken_UnknownTokenNoop(t *testing.T) {
	m := testManager()
	u := testUser()
	_, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
	require.NoError(t, err)

	m.RevokeRefreshToken(u, "no-such-token")
	assert.Len(t, u.RefreshTokens, 1)
}

func TestRevokeAllRefreshTokens(t *testing.T) {
	m := testManager()
	u := testUser()
	for i := 0; i < 3; i++ {
		_, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
		require.NoError(t, err)
	}
	m.RevokeAllRefreshTokens(u)
	assert.Len(t, u.RefreshTokens, 0)
}

func TestRefreshTokensDistinctWithinSameSecond(t *testing.T) {
	m := testManager()
	u := testUser()
	a, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
	require.NoError(t, err)
	b, err := m.IssueRefreshToken(u, domain.DeviceInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
