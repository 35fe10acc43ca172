package repository

import (
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/models"

	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh token
func (r *RefreshTokenRepository) Create(refreshToken *models.RefreshToken) error {
	return r.db.Create(refreshToken).Error
}

// GetActiveByToken retrieves a non-revoked refresh token
func (r *RefreshTokenRepository) GetActiveByToken(token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.Where("token = ? AND is_revoked = ?", token, false).First(&refreshToken).Error
	if err != nil {
		return nil, err
	}
	return &refreshToken, nil
}

// Revoke marks a single token as revoked and reports whether it was live
func (r *RefreshTokenRepository) Revoke(token string) (bool, error) {
	result := r.db.Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Update("is_revoked", true)
	return result.RowsAffected > 0, result.Error
}

// RevokeForUser revokes a token only if it belongs to userID
func (r *RefreshTokenRepository) RevokeForUser(token, userID string) (bool, error) {
	result := r.db.Model(&models.RefreshToken{}).
		Where("token = ? AND user_id = ? AND is_revoked = ?", token, userID, false).
		Update("is_revoked", true)
	return result.RowsAffected > 0, result.Error
}

// RevokeAllForUser revokes every refresh token of a user
func (r *RefreshTokenRepository) RevokeAllForUser(userID string) error {
	return r.db.Model(&models.RefreshToken{}).Where("user_id = ?", userID).Update("is_revoked", true).Error
}

// Cleanup deletes expired and revoked tokens and returns how many rows went away
func (r *RefreshTokenRepository) Cleanup(now time.Time) (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expires_at < ? OR is_revoked = ?", now, true).Delete(&models.RefreshToken{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed, err
}

// CountActiveForUser counts live refresh tokens of a user
func (r *RefreshTokenRepository) CountActiveForUser(userID string, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, now).
		Count(&count).Error
	return count, err
}
