package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/config"
	"github.com/onegreenvn/stockplus-backend/internal/database/testutil"
	"github.com/onegreenvn/stockplus-backend/internal/models"
)

func newTestAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := NewAuthService(db, config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	email := "alice@example.com"
	phone := "+919800000001"
	user := &models.User{
		Username:     "alice",
		Email:        &email,
		PhoneNumber:  &phone,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	if !active {
		require.NoError(t, db.Model(user).Update("is_active", false).Error)
	}
	return user
}

func TestLoginByAnyIdentifier(t *testing.T) {
	svc, db := newTestAuthService(t)
	user := seedUser(t, db, true)

	for _, login := range []string{"alice", "alice@example.com", "+919800000001"} {
		t.Run(login, func(t *testing.T) {
			resp, err := svc.Login(&models.LoginRequest{Login: login, Password: "secret123"}, "test", "127.0.0.1")
			require.NoError(t, err)
			assert.Equal(t, user.ID, resp.User.ID)
			assert.NotEmpty(t, resp.AccessToken)
			assert.NotEmpty(t, resp.RefreshToken)

			info, err := svc.ValidateToken(resp.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, models.RoleAdmin, info.Role)
		})
	}
}

func TestLoginEmailIgnoresCase(t *testing.T) {
	svc, db := newTestAuthService(t)
	user := seedUser(t, db, true)

	resp, err := svc.Login(&models.LoginRequest{Login: " Alice@Example.COM ", Password: "secret123"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestLoginFailures(t *testing.T) {
	svc, db := newTestAuthService(t)
	seedUser(t, db, false)

	_, err := svc.Login(&models.LoginRequest{Login: "alice", Password: "secret123"}, "", "")
	assert.True(t, apperror.Is(err, apperror.KindInvalidCredentials), "inactive account")

	_, err = svc.Login(&models.LoginRequest{Login: "nobody", Password: "secret123"}, "", "")
	assert.True(t, apperror.Is(err, apperror.KindInvalidCredentials), "unknown login")
}

func TestLoginWrongPassword(t *testing.T) {
	svc, db := newTestAuthService(t)
	seedUser(t, db, true)

	_, err := svc.Login(&models.LoginRequest{Login: "alice", Password: "wrong"}, "", "")
	assert.True(t, apperror.Is(err, apperror.KindInvalidCredentials))
}

func TestRefreshTokenRotation(t *testing.T) {
	svc, db := newTestAuthService(t)
	seedUser(t, db, true)

	resp, err := svc.Login(&models.LoginRequest{Login: "alice", Password: "secret123"}, "", "")
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(resp.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)

	_, err = svc.RefreshToken(resp.RefreshToken, "", "")
	assert.True(t, apperror.HasCode(err, "invalid_refresh_token"))
}

func TestLogoutAllSessionsRevokesAccessTokens(t *testing.T) {
	svc, db := newTestAuthService(t)
	user := seedUser(t, db, true)

	resp, err := svc.Login(&models.LoginRequest{Login: "alice", Password: "secret123"}, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout("", user.ID))

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, apperror.HasCode(err, "token_revoked"))
	_, err = svc.RefreshToken(resp.RefreshToken, "", "")
	assert.Error(t, err)
}

func TestLogoutLeavesOtherUsersTokens(t *testing.T) {
	svc, db := newTestAuthService(t)
	victim := seedUser(t, db, true)

	resp, err := svc.Login(&models.LoginRequest{Login: "alice", Password: "secret123"}, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(resp.RefreshToken, "some-other-user-id"))

	var stored models.RefreshToken
	require.NoError(t, db.Where("token = ?", resp.RefreshToken).First(&stored).Error)
	assert.False(t, stored.IsRevoked)
	_, err = svc.RefreshToken(resp.RefreshToken, "", "")
	require.NoError(t, err, "the owner's session still works")

	second, err := svc.Login(&models.LoginRequest{Login: "alice", Password: "secret123"}, "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(second.RefreshToken, victim.ID))
	_, err = svc.RefreshToken(second.RefreshToken, "", "")
	assert.True(t, apperror.HasCode(err, "invalid_refresh_token"))
}

func TestChangePassword(t *testing.T) {
	svc, db := newTestAuthService(t)
	user := seedUser(t, db, true)

	err := svc.ChangePassword(user.ID, "wrong", "newsecret")
	assert.True(t, apperror.HasCode(err, "incorrect_password"))

	require.NoError(t, svc.ChangePassword(user.ID, "secret123", "newsecret"))

	_, err = svc.Login(&models.LoginRequest{Login: "alice", Password: "secret123"}, "", "")
	assert.Error(t, err)
	_, err = svc.Login(&models.LoginRequest{Login: "alice", Password: "newsecret"}, "", "")
	assert.NoError(t, err)
}

type countingReaper struct {
	calls int
}

func (r *countingReaper) ReapExpired() (int64, error) {
	r.calls++
	return 0, nil
}

func TestTokenCleanup(t *testing.T) {
	svc, db := newTestAuthService(t)
	user := seedUser(t, db, true)

	resp, err := svc.Login(&models.LoginRequest{Login: "alice", Password: "secret123"}, "", "")
	require.NoError(t, err)
	expired := &models.RefreshToken{Token: "expired", UserID: user.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, db.Create(expired).Error)

	reaper := &countingReaper{}
	cleaner := NewTokenCleanupService(db, time.Hour, reaper)
	cleaner.cleanup()

	var tokens []models.RefreshToken
	require.NoError(t, db.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, resp.RefreshToken, tokens[0].Token)
	assert.Equal(t, 1, reaper.calls)
}
