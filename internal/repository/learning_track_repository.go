package repository

import (
	"context"

	"ai_tutor_backend/internal/model"

	"gorm.io/gorm"
)

type LearningTrackRepository struct {
	DB *gorm.DB
}

func NewLearningTrackRepository(db *gorm.DB) *LearningTrackRepository {
	return &LearningTrackRepository{DB: db}
}

func (r *LearningTrackRepository) Create(ctx context.Context, row *model.KnowledgePointLearningTrack) error {
	return r.DB.WithContext(ctx).Create(row).Error
}

func (r *LearningTrackRepository) ListByUserKnowledgePoint(ctx context.Context, userID, knowledgePointID string, limit int) ([]model.KnowledgePointLearningTrack, error) {
	var rows []model.KnowledgePointLearningTrack
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND knowledge_point_id = ?", userID, knowledgePointID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
