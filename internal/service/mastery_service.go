package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai_tutor_backend/internal/knowledge"
	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/repository"
	"ai_tutor_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const masteredThreshold = 0.8

// MasteryService 知识点掌握度存取与学习曲线更新
type MasteryService struct {
	db        *gorm.DB
	masteries *repository.MasteryRepository
	dict      *knowledge.Dictionary
	tracker   *TrackerService
	rdb       *redis.Client // 可为nil；掌握度变更后失效学习上下文缓存
}

func NewMasteryService(db *gorm.DB, masteries *repository.MasteryRepository,
	dict *knowledge.Dictionary, tracker *TrackerService, rdb *redis.Client) *MasteryService {
	return &MasteryService{
		db:        db,
		masteries: masteries,
		dict:      dict,
		tracker:   tracker,
		rdb:       rdb,
	}
}

// CalculateMasteryAfter 学习曲线更新公式，纯函数
// 正确按置信度加分，错误扣固定分，部分正确小幅加分；尝试次数越多增量越小
func CalculateMasteryAfter(before float64, result model.ReviewResult, confidence1to5 int, totalAttempts int) float64 {
	var delta float64
	switch result {
	case model.ResultCorrect:
		delta = 0.10 * (float64(confidence1to5) / 5.0)
	case model.ResultIncorrect:
		delta = -0.15
	case model.ResultPartial:
		delta = 0.05
	default:
		delta = 0
	}

	attemptFactor := 1.0 / (1.0 + float64(totalAttempts)*0.1)
	after := before + delta*attemptFactor

	if after < 0 {
		return 0
	}
	if after > 1 {
		return 1
	}
	return after
}

// GetOrCreate 取出或懒创建掌握度记录
// 先经词典归一拿到 (规范名, 编码)，有编码按编码查，否则按规范名查
func (s *MasteryService) GetOrCreate(ctx context.Context, userID string, subject model.Subject, kpName string) (*model.KnowledgeMastery, error) {
	return s.getOrCreate(s.db.WithContext(ctx), ctx, userID, subject, kpName)
}

// GetOrCreateTx 事务内版本，供关联写入批量使用
func (s *MasteryService) GetOrCreateTx(tx *gorm.DB, ctx context.Context, userID string, subject model.Subject, kpName string) (*model.KnowledgeMastery, error) {
	return s.getOrCreate(tx, ctx, userID, subject, kpName)
}

func (s *MasteryService) getOrCreate(db *gorm.DB, ctx context.Context, userID string, subject model.Subject, kpName string) (*model.KnowledgeMastery, error) {
	name := kpName
	code := ""
	if entry, ok := s.dict.Lookup(subject, kpName); ok {
		name = entry.Name
		code = entry.Code
	}

	var row model.KnowledgeMastery
	q := db.Where("user_id = ? AND subject = ?", userID, subject)
	if code != "" {
		q = q.Where("knowledge_point_code = ?", code)
	} else {
		q = q.Where("knowledge_point = ?", name)
	}

	err := q.First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = model.KnowledgeMastery{
		UserID:             userID,
		Subject:            subject,
		KnowledgePoint:     name,
		KnowledgePointCode: code,
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateAfterReview 按一次复习结果更新掌握度
// 行锁内读改写；首次跨过0.8阈值时落 first_mastered_at
func (s *MasteryService) UpdateAfterReview(ctx context.Context, masteryID string,
	result model.ReviewResult, confidence1to5 int) (float64, error) {

	if confidence1to5 < 1 {
		confidence1to5 = 1
	}
	if confidence1to5 > 5 {
		confidence1to5 = 5
	}

	var before, after float64
	var userID string
	var subject model.Subject

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.masteries.FindByIDForUpdate(tx, masteryID)
		if err != nil {
			return err
		}

		before = row.MasteryLevel
		after = CalculateMasteryAfter(before, result, confidence1to5, row.TotalAttempts)

		now := time.Now()
		row.MasteryLevel = after
		row.ConfidenceLevel = float64(confidence1to5) / 5.0
		row.TotalAttempts++
		if result == model.ResultCorrect {
			row.CorrectCount++
		}
		row.LastPracticedAt = &now
		if row.FirstMasteredAt == nil && after >= masteredThreshold {
			row.FirstMasteredAt = &now
		}
		row.Clamp()

		userID = row.UserID
		subject = row.Subject

		return tx.Save(row).Error
	})
	if err != nil {
		return 0, fmt.Errorf("update mastery %s: %w", masteryID, err)
	}

	// 轨迹写入在主事务之外，失败不回滚掌握度
	conf := float64(confidence1to5) / 5.0
	s.tracker.Record(ctx, userID, masteryID, "", model.ActivityReview, result, &before, &after, &conf)

	s.invalidateContextCache(ctx, userID, subject)

	return after, nil
}

func (s *MasteryService) invalidateContextCache(ctx context.Context, userID string, subject model.Subject) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, learningContextCacheKey(userID, subject)).Err(); err != nil {
		logger.Log.Warn("学习上下文缓存失效失败",
			zap.String("userId", userID),
			zap.Error(err))
	}
}
