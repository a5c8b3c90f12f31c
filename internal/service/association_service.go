package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/repository"

	"gorm.io/gorm"
)

// AssociationService 错题与知识点的关联维护
type AssociationService struct {
	db           *gorm.DB
	associations *repository.AssociationRepository
	mistakes     *repository.MistakeRepository
	mastery      *MasteryService
	tracker      *TrackerService
}

func NewAssociationService(db *gorm.DB, associations *repository.AssociationRepository,
	mistakes *repository.MistakeRepository, mastery *MasteryService, tracker *TrackerService) *AssociationService {
	return &AssociationService{
		db:           db,
		associations: associations,
		mistakes:     mistakes,
		mastery:      mastery,
		tracker:      tracker,
	}
}

// Associate 把一道错题关联到一组抽取结果
// 重复调用是增量式的；reset=true 时先清掉旧关联
//
// 提交顺序是刻意的：掌握度记录先独立提交，关联和反范式缓存在第二个事务提交，
// 轨迹最后尽力写入——知识点记录是更有价值的数据，后面任何一步失败都不应作废它
func (s *AssociationService) Associate(ctx context.Context, mistake *model.MistakeRecord,
	kps []ExtractedKP, aiFeedback map[string]interface{}, reset bool) ([]model.MistakeKnowledgePoint, error) {

	if len(kps) == 0 {
		return nil, nil
	}

	// 1. 掌握度记录，单事务批量 get_or_create
	masteryRows := make([]*model.KnowledgeMastery, 0, len(kps))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, kp := range kps {
			row, err := s.mastery.GetOrCreateTx(tx, ctx, mistake.UserID, mistake.Subject, kp.Name)
			if err != nil {
				return fmt.Errorf("get_or_create %q: %w", kp.Name, err)
			}
			masteryRows = append(masteryRows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 2. 关联 + 错题反范式缓存
	errorType, errorReason, suggestions := parseAIFeedback(aiFeedback)
	diagnosisJSON := ""
	if aiFeedback != nil {
		if b, err := json.Marshal(aiFeedback); err == nil {
			diagnosisJSON = string(b)
		}
	}
	suggestionsJSON, _ := json.Marshal(suggestions)

	var created []model.MistakeKnowledgePoint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if reset {
			if err := tx.Where("mistake_id = ?", mistake.ID).
				Delete(&model.MistakeKnowledgePoint{}).Error; err != nil {
				return err
			}
		}

		for i, kp := range kps {
			assoc := model.MistakeKnowledgePoint{
				MistakeID:              mistake.ID,
				KnowledgePointID:       masteryRows[i].ID,
				RelevanceScore:         kp.Confidence,
				IsPrimary:              i == 0, // 首条即主关联，唯一性由写入方保证
				ErrorType:              errorType,
				ErrorReason:            errorReason,
				AIDiagnosis:            diagnosisJSON,
				ImprovementSuggestions: string(suggestionsJSON),
			}
			if err := tx.Create(&assoc).Error; err != nil {
				return err
			}
			created = append(created, assoc)

			// 遗留计数字段，读取方一律以关联表实时统计为准
			if err := tx.Model(&model.KnowledgeMastery{}).
				Where("id = ?", masteryRows[i].ID).
				UpdateColumn("mistake_count", gorm.Expr("mistake_count + 1")).Error; err != nil {
				return err
			}
		}

		names := make([]string, 0, len(kps))
		for _, kp := range kps {
			names = append(names, kp.Name)
		}
		namesJSON, _ := json.Marshal(names)
		return tx.Model(&model.MistakeRecord{}).
			Where("id = ?", mistake.ID).
			Update("knowledge_points", string(namesJSON)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("associate mistake %s: %w", mistake.ID, err)
	}

	// 3. 轨迹，尽力而为
	for _, row := range masteryRows {
		before := row.MasteryLevel
		s.tracker.Record(ctx, mistake.UserID, row.ID, mistake.ID,
			model.ActivityMistakeCreation, model.ResultNA, &before, &before, nil)
	}

	return created, nil
}

func (s *AssociationService) FindByMistake(ctx context.Context, mistakeID string) ([]model.MistakeKnowledgePoint, error) {
	return s.associations.FindByMistake(ctx, mistakeID)
}

func (s *AssociationService) FindByKnowledgePoint(ctx context.Context, knowledgePointID string) ([]model.MistakeKnowledgePoint, error) {
	return s.associations.FindByKnowledgePoint(ctx, knowledgePointID)
}

// GetWeakAssociations 薄弱关联：掌握度 < 0.5 且复习过
func (s *AssociationService) GetWeakAssociations(ctx context.Context, userID string, subject model.Subject, limit int) ([]repository.WeakAssociation, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.associations.FindWeak(ctx, userID, subject, limit)
}

// parseAIFeedback 从上游AI分析结果提取错因元数据，缺省兜底
func parseAIFeedback(feedback map[string]interface{}) (model.ErrorType, string, []string) {
	errorType := model.ErrOther
	reason := ""
	var suggestions []string

	if feedback == nil {
		return errorType, reason, suggestions
	}

	if v, ok := feedback["error_type"].(string); ok {
		switch model.ErrorType(v) {
		case model.ErrConceptMisunderstanding, model.ErrCalculation, model.ErrFormulaMisuse,
			model.ErrLogic, model.ErrKnowledgeGap, model.ErrMethodConfusion, model.ErrOther:
			errorType = model.ErrorType(v)
		}
	}
	if v, ok := feedback["error_reason"].(string); ok {
		reason = v
	}
	if arr, ok := feedback["suggestions"].([]interface{}); ok {
		for _, item := range arr {
			if str, ok := item.(string); ok {
				suggestions = append(suggestions, str)
			}
		}
	}

	return errorType, reason, suggestions
}
