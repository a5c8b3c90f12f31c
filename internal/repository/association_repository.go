package repository

import (
	"context"

	"ai_tutor_backend/internal/model"

	"gorm.io/gorm"
)

type AssociationRepository struct {
	DB *gorm.DB
}

func NewAssociationRepository(db *gorm.DB) *AssociationRepository {
	return &AssociationRepository{DB: db}
}

func (r *AssociationRepository) FindByMistake(ctx context.Context, mistakeID string) ([]model.MistakeKnowledgePoint, error) {
	var rows []model.MistakeKnowledgePoint
	err := r.DB.WithContext(ctx).
		Where("mistake_id = ?", mistakeID).
		Order("is_primary DESC, relevance_score DESC").
		Find(&rows).Error
	return rows, err
}

func (r *AssociationRepository) FindByKnowledgePoint(ctx context.Context, knowledgePointID string) ([]model.MistakeKnowledgePoint, error) {
	var rows []model.MistakeKnowledgePoint
	err := r.DB.WithContext(ctx).
		Where("knowledge_point_id = ?", knowledgePointID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// CountByKnowledgePoint 某掌握度记录名下的错题数（权威口径，代替遗留 mistake_count 字段）
func (r *AssociationRepository) CountByKnowledgePoint(ctx context.Context, knowledgePointID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.MistakeKnowledgePoint{}).
		Where("knowledge_point_id = ?", knowledgePointID).
		Count(&count).Error
	return count, err
}

// MistakeCountsFor 批量统计，knowledge_point_id -> 错题数
func (r *AssociationRepository) MistakeCountsFor(ctx context.Context, knowledgePointIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(knowledgePointIDs))
	if len(knowledgePointIDs) == 0 {
		return counts, nil
	}

	type pair struct {
		KnowledgePointID string `gorm:"column:knowledge_point_id"`
		N                int    `gorm:"column:n"`
	}
	var pairs []pair
	err := r.DB.WithContext(ctx).
		Model(&model.MistakeKnowledgePoint{}).
		Select("knowledge_point_id, COUNT(*) AS n").
		Where("knowledge_point_id IN ?", knowledgePointIDs).
		Group("knowledge_point_id").
		Scan(&pairs).Error
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		counts[p.KnowledgePointID] = p.N
	}
	return counts, nil
}

func (r *AssociationRepository) DeleteByMistake(ctx context.Context, mistakeID string) error {
	return r.DB.WithContext(ctx).
		Where("mistake_id = ?", mistakeID).
		Delete(&model.MistakeKnowledgePoint{}).Error
}

// WeakAssociation 薄弱关联（关联行 + 掌握度行的连接结果）
type WeakAssociation struct {
	AssociationID    string          `gorm:"column:association_id" json:"associationId"`
	MistakeID        string          `gorm:"column:mistake_id" json:"mistakeId"`
	KnowledgePointID string          `gorm:"column:knowledge_point_id" json:"knowledgePointId"`
	KnowledgePoint   string          `gorm:"column:knowledge_point" json:"knowledgePoint"`
	MasteryLevel     float64         `gorm:"column:mastery_level" json:"masteryLevel"`
	ReviewCount      int             `gorm:"column:review_count" json:"reviewCount"`
	ErrorType        model.ErrorType `gorm:"column:error_type" json:"errorType"`
	Suggestions      string          `gorm:"column:improvement_suggestions" json:"-"`
}

// FindWeak 联表筛选 mastery_level < 0.5 且 review_count > 0 的关联
func (r *AssociationRepository) FindWeak(ctx context.Context, userID string, subject model.Subject, limit int) ([]WeakAssociation, error) {
	var rows []WeakAssociation
	err := r.DB.WithContext(ctx).
		Table("mistake_knowledge_points AS mkp").
		Select("mkp.id AS association_id, mkp.mistake_id, mkp.knowledge_point_id, km.knowledge_point, km.mastery_level, mkp.review_count, mkp.error_type, mkp.improvement_suggestions").
		Joins("JOIN knowledge_mastery km ON km.id = mkp.knowledge_point_id").
		Where("km.user_id = ? AND km.subject = ?", userID, subject).
		Where("km.mastery_level < ? AND mkp.review_count > ?", 0.5, 0).
		Where("mkp.deleted_at IS NULL AND km.deleted_at IS NULL").
		Order("km.mastery_level ASC, mkp.review_count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
