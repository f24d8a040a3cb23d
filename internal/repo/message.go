package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).
		Preload("Sender", userSummary).
		Preload("Receiver", userSummary).
		First(m, m.ID).Error
}

// ListMessages returns messages the user sent or received, newest first.
func (r *GormRepo) ListMessages(ctx context.Context, userID uint, offset, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.DB.WithContext(ctx).
		Preload("Sender", userSummary).
		Preload("Receiver", userSummary).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
