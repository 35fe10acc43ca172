package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/config"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const tokenIssuer = "stockplus-backend"

type AuthService struct {
	userRepo         *repository.UserRepository
	refreshTokenRepo *repository.RefreshTokenRepository
	jwtSecret        []byte
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
}

func NewAuthService(db *gorm.DB, cfg config.JWTConfig) *AuthService {
	logrus.Infof("Access token TTL: %s", cfg.AccessTokenTTL)
	logrus.Infof("Refresh token TTL: %s", cfg.RefreshTokenTTL)

	return &AuthService{
		userRepo:         repository.NewUserRepository(db),
		refreshTokenRepo: repository.NewRefreshTokenRepository(db),
		jwtSecret:        []byte(cfg.Secret),
		accessTokenTTL:   cfg.AccessTokenTTL,
		refreshTokenTTL:  cfg.RefreshTokenTTL,
	}
}

// Login authenticates by username, email or phone number
func (s *AuthService) Login(req *models.LoginRequest, userAgent, ipAddress string) (*models.AuthResponse, error) {
	login := strings.TrimSpace(req.Login)
	// emails are stored lower-cased
	if utils.IsEmail(login) {
		login = utils.NormalizeEmail(login)
	}
	user, err := s.userRepo.GetByLogin(login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.InvalidCredentials()
	}
	if err != nil {
		return nil, apperror.Storage("load user", err)
	}

	// Deactivated accounts get the same answer as a wrong password
	if !user.IsActive || !utils.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperror.InvalidCredentials()
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		logrus.Warnf("Failed to update last login for %s: %v", user.ID, err)
	}

	return s.IssueTokens(user, userAgent, ipAddress)
}

// RefreshToken rotates a refresh token and returns a new token pair
func (s *AuthService) RefreshToken(refreshTokenStr, userAgent, ipAddress string) (*models.AuthResponse, error) {
	refreshToken, err := s.refreshTokenRepo.GetActiveByToken(refreshTokenStr)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthorized("invalid_refresh_token", "invalid refresh token")
	}
	if err != nil {
		return nil, apperror.Storage("load refresh token", err)
	}

	if refreshToken.ExpiresAt.Before(time.Now()) {
		if _, err := s.refreshTokenRepo.Revoke(refreshTokenStr); err != nil {
			logrus.Warnf("Failed to revoke expired refresh token: %v", err)
		}
		return nil, apperror.Unauthorized("refresh_token_expired", "refresh token expired")
	}

	user, err := s.userRepo.GetByID(refreshToken.UserID)
	if err != nil || !user.IsActive {
		return nil, apperror.Unauthorized("account_inactive", "account is deactivated")
	}

	// Only the caller that flips the token gets a new pair
	revoked, err := s.refreshTokenRepo.Revoke(refreshTokenStr)
	if err != nil {
		return nil, apperror.Storage("revoke refresh token", err)
	}
	if !revoked {
		return nil, apperror.Unauthorized("invalid_refresh_token", "invalid refresh token")
	}

	return s.IssueTokens(user, userAgent, ipAddress)
}

// Logout revokes one refresh token of the user, or every session of the user when none
// is given. Tokens of other users are left alone.
func (s *AuthService) Logout(refreshTokenStr string, userID string) error {
	if refreshTokenStr != "" {
		if _, err := s.refreshTokenRepo.RevokeForUser(refreshTokenStr, userID); err != nil {
			return apperror.Storage("revoke refresh token", err)
		}
		return nil
	}
	if err := s.userRepo.IncrementTokenVersion(userID); err != nil {
		return apperror.Storage("increment token version", err)
	}
	if err := s.refreshTokenRepo.RevokeAllForUser(userID); err != nil {
		return apperror.Storage("revoke refresh tokens", err)
	}
	return nil
}

// ValidateToken validates and parses a JWT access token
func (s *AuthService) ValidateToken(tokenString string) (*models.TokenInfo, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperror.Unauthorized("invalid_token", "invalid or expired token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, apperror.Unauthorized("invalid_token", "invalid token claims")
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, apperror.Unauthorized("invalid_token", "user not found")
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("account_inactive", "account is deactivated")
	}
	if claims.TokenVersion != user.TokenVersion {
		return nil, apperror.Unauthorized("token_revoked", "token has been revoked")
	}

	return &models.TokenInfo{
		UserID:       claims.UserID,
		Username:     claims.Username,
		Role:         user.Role,
		TokenVersion: claims.TokenVersion,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// IssueTokens mints an access token and stores a new refresh token for user
func (s *AuthService) IssueTokens(user *models.User, userAgent, ipAddress string) (*models.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, apperror.Storage("generate access token", err)
	}

	refreshToken, err := s.generateRefreshToken(user, userAgent, ipAddress)
	if err != nil {
		return nil, apperror.Storage("generate refresh token", err)
	}

	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenTTL.Seconds()),
		User:         *user,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JWTClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// generateRefreshToken generates a refresh token and stores it in the database
func (s *AuthService) generateRefreshToken(user *models.User, userAgent, ipAddress string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	refreshToken := &models.RefreshToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.refreshTokenTTL),
		UserAgent: truncate(userAgent, 500),
		IPAddress: truncate(ipAddress, 45),
	}
	if err := s.refreshTokenRepo.Create(refreshToken); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, nil
}

// ChangePassword changes the caller's password and signs out every other session
func (s *AuthService) ChangePassword(userID string, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		return apperror.Storage("load user", err)
	}

	if !utils.CheckPassword(user.PasswordHash, currentPassword) {
		return apperror.Validation("incorrect_password", "current password is incorrect")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperror.Storage("hash password", err)
	}

	err = s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"password_hash":   hashed,
		"is_password_set": true,
		"token_version":   gorm.Expr("token_version + 1"),
	})
	if err != nil {
		return apperror.Storage("update password", err)
	}
	if err := s.refreshTokenRepo.RevokeAllForUser(user.ID); err != nil {
		return apperror.Storage("revoke refresh tokens", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
