package repository

import (
	"context"

	"ai_tutor_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MasteryRepository struct {
	DB *gorm.DB
}

func NewMasteryRepository(db *gorm.DB) *MasteryRepository {
	return &MasteryRepository{DB: db}
}

// FindByIdentity 按 (user, subject, code) 查找，code 为空时退化为按规范名查找
func (r *MasteryRepository) FindByIdentity(ctx context.Context, userID string, subject model.Subject, code, name string) (*model.KnowledgeMastery, error) {
	var row model.KnowledgeMastery
	q := r.DB.WithContext(ctx).Where("user_id = ? AND subject = ?", userID, subject)
	if code != "" {
		q = q.Where("knowledge_point_code = ?", code)
	} else {
		q = q.Where("knowledge_point = ?", name)
	}
	if err := q.First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *MasteryRepository) FindByID(ctx context.Context, id string) (*model.KnowledgeMastery, error) {
	var row model.KnowledgeMastery
	if err := r.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByIDForUpdate 在事务内加行锁读取
func (r *MasteryRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*model.KnowledgeMastery, error) {
	var row model.KnowledgeMastery
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *MasteryRepository) Create(ctx context.Context, row *model.KnowledgeMastery) error {
	return r.DB.WithContext(ctx).Create(row).Error
}

func (r *MasteryRepository) ListByUserSubject(ctx context.Context, userID string, subject model.Subject) ([]model.KnowledgeMastery, error) {
	var rows []model.KnowledgeMastery
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND subject = ?", userID, subject).
		Order("mastery_level ASC").
		Find(&rows).Error
	return rows, err
}

// UserSubjectPair 快照任务遍历用
type UserSubjectPair struct {
	UserID  string        `gorm:"column:user_id"`
	Subject model.Subject `gorm:"column:subject"`
}

// DistinctUserSubjects 掌握度表中出现过的全部 (user, subject) 组合
func (r *MasteryRepository) DistinctUserSubjects(ctx context.Context) ([]UserSubjectPair, error) {
	var pairs []UserSubjectPair
	err := r.DB.WithContext(ctx).
		Model(&model.KnowledgeMastery{}).
		Distinct("user_id", "subject").
		Order("user_id ASC").
		Scan(&pairs).Error
	return pairs, err
}
