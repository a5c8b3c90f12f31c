package repository

import (
	"context"

	"ai_tutor_backend/internal/model"

	"gorm.io/gorm"
)

type SnapshotRepository struct {
	DB *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{DB: db}
}

func (r *SnapshotRepository) Create(ctx context.Context, row *model.UserKnowledgeGraphSnapshot) error {
	return r.DB.WithContext(ctx).Create(row).Error
}

// Latest 最新一份快照；同一天允许多份，按快照日期倒序取第一条
func (r *SnapshotRepository) Latest(ctx context.Context, userID string, subject model.Subject) (*model.UserKnowledgeGraphSnapshot, error) {
	var row model.UserKnowledgeGraphSnapshot
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND subject = ?", userID, subject).
		Order("snapshot_date DESC, created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
