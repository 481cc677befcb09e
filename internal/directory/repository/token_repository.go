package repository

import (
	"time"

	"shifttask-backend/internal/directory/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushTokenRepository defines the interface for push token operations
type PushTokenRepository interface {
	SaveToken(userID, token, deviceInfo string) error
	GetTokensByUserID(userID string) ([]domain.PushToken, error)
	DeleteToken(userID, token string) error
}

// pushTokenRepository implements PushTokenRepository interface
type pushTokenRepository struct {
	db *gorm.DB
}

// NewPushTokenRepository creates a new instance of pushTokenRepository
func NewPushTokenRepository(db *gorm.DB) PushTokenRepository {
	return &pushTokenRepository{
		db: db,
	}
}

// SaveToken saves or updates a device token for a user (atomic upsert)
func (r *pushTokenRepository) SaveToken(userID, token, deviceInfo string) error {
	pushToken := &domain.PushToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	// INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(pushToken).Error
}

// GetTokensByUserID returns all device tokens for a user
func (r *pushTokenRepository) GetTokensByUserID(userID string) ([]domain.PushToken, error) {
	var tokens []domain.PushToken
	err := r.db.Where("user_id = ?", userID).Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteToken removes a device token owned by userID. Tokens of other users are left alone.
func (r *pushTokenRepository) DeleteToken(userID, token string) error {
	return r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&domain.PushToken{}).Error
}
