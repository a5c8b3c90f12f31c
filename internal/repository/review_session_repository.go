package repository

import (
	"context"

	"ai_tutor_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewSessionRepository struct {
	DB *gorm.DB
}

func NewReviewSessionRepository(db *gorm.DB) *ReviewSessionRepository {
	return &ReviewSessionRepository{DB: db}
}

func (r *ReviewSessionRepository) Create(ctx context.Context, row *model.ReviewSession) error {
	return r.DB.WithContext(ctx).Create(row).Error
}

func (r *ReviewSessionRepository) FindByIDForUser(ctx context.Context, id, userID string) (*model.ReviewSession, error) {
	var row model.ReviewSession
	if err := r.DB.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindForUpdate 事务内加行锁重读，状态机的每次写入都必须经过这里
func (r *ReviewSessionRepository) FindForUpdate(tx *gorm.DB, id, userID string) (*model.ReviewSession, error) {
	var row model.ReviewSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
