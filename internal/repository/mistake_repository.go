package repository

import (
	"context"

	"ai_tutor_backend/internal/model"

	"gorm.io/gorm"
)

type MistakeRepository struct {
	DB *gorm.DB
}

func NewMistakeRepository(db *gorm.DB) *MistakeRepository {
	return &MistakeRepository{DB: db}
}

func (r *MistakeRepository) Create(ctx context.Context, row *model.MistakeRecord) error {
	return r.DB.WithContext(ctx).Create(row).Error
}

func (r *MistakeRepository) FindByID(ctx context.Context, id string) (*model.MistakeRecord, error) {
	var row model.MistakeRecord
	if err := r.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *MistakeRepository) FindByIDForUser(ctx context.Context, id, userID string) (*model.MistakeRecord, error) {
	var row model.MistakeRecord
	if err := r.DB.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *MistakeRepository) Updates(ctx context.Context, id string, values map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.MistakeRecord{}).Where("id = ?", id).Updates(values).Error
}
