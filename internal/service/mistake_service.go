package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/repository"
	"ai_tutor_backend/internal/util"
	"ai_tutor_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateMistakeInput 新建错题入参
type CreateMistakeInput struct {
	UserID        string
	Subject       model.Subject
	Title         string
	OCRText       string
	ImageURLs     []string
	CorrectAnswer string
	Grade         string
	AIFeedback    map[string]interface{}
}

// MistakeReply 错题详情
type MistakeReply struct {
	ID              string                        `json:"id"`
	Subject         model.Subject                 `json:"subject"`
	Title           string                        `json:"title,omitempty"`
	OCRText         string                        `json:"ocrText,omitempty"`
	ImageURLs       []string                      `json:"imageUrls,omitempty"`
	CorrectAnswer   string                        `json:"correctAnswer,omitempty"`
	KnowledgePoints []string                      `json:"knowledgePoints"`
	MasteryStatus   model.MasteryStatus           `json:"masteryStatus"`
	ReviewCount     int                           `json:"reviewCount"`
	Associations    []model.MistakeKnowledgePoint `json:"associations,omitempty"`
}

// MistakeKnowledgePointReply 错题名下单个知识点的关联视图
type MistakeKnowledgePointReply struct {
	AssociationID    string          `json:"associationId"`
	KnowledgePointID string          `json:"knowledgePointId"`
	KnowledgePoint   string          `json:"knowledgePoint"`
	MasteryLevel     float64         `json:"masteryLevel"`
	RelevanceScore   float64         `json:"relevanceScore"`
	IsPrimary        bool            `json:"isPrimary"`
	ErrorType        model.ErrorType `json:"errorType"`
	ErrorReason      string          `json:"errorReason,omitempty"`
	Suggestions      []string        `json:"suggestions,omitempty"`
	ReviewCount      int             `json:"reviewCount"`
	Mastered         bool            `json:"mastered"`
}

// MistakeService 错题入库与知识点关联编排
type MistakeService struct {
	mistakes     *repository.MistakeRepository
	masteries    *repository.MasteryRepository
	associations *AssociationService
	extractor    *ExtractorService
	storage      *StorageService
}

func NewMistakeService(mistakes *repository.MistakeRepository, masteries *repository.MasteryRepository,
	associations *AssociationService, extractor *ExtractorService, storage *StorageService) *MistakeService {
	return &MistakeService{
		mistakes:     mistakes,
		masteries:    masteries,
		associations: associations,
		extractor:    extractor,
		storage:      storage,
	}
}

// Create 新建错题并立即走抽取+关联
// 抽取失败不阻塞入库：错题先落地，关联可以事后补跑
func (s *MistakeService) Create(ctx context.Context, input *CreateMistakeInput) (*MistakeReply, error) {
	if input.UserID == "" || !input.Subject.Valid() {
		return nil, util.ErrValidation
	}
	if strings.TrimSpace(input.OCRText) == "" && len(input.ImageURLs) == 0 {
		return nil, util.ErrValidation
	}

	imageURLsJSON, _ := json.Marshal(input.ImageURLs)
	feedbackJSON := ""
	if input.AIFeedback != nil {
		if b, err := json.Marshal(input.AIFeedback); err == nil {
			feedbackJSON = string(b)
		}
	}

	mistake := &model.MistakeRecord{
		UserID:        input.UserID,
		Subject:       input.Subject,
		Title:         input.Title,
		OCRText:       input.OCRText,
		ImageURLs:     string(imageURLsJSON),
		CorrectAnswer: input.CorrectAnswer,
		AIFeedback:    feedbackJSON,
		MasteryStatus: model.MasteryNotMastered,
	}
	if err := s.mistakes.Create(ctx, mistake); err != nil {
		return nil, err
	}

	if _, err := s.Reassociate(ctx, mistake, input.Grade, input.AIFeedback, false); err != nil {
		logger.Log.Warn("新建错题关联失败，错题已入库",
			zap.String("mistakeId", mistake.ID),
			zap.Error(err))
	}

	return s.buildReply(ctx, mistake, nil), nil
}

// Associate 对已有错题（重新）抽取并关联知识点
func (s *MistakeService) Associate(ctx context.Context, mistakeID, userID, grade string,
	aiFeedback map[string]interface{}, reset bool) ([]model.MistakeKnowledgePoint, error) {

	mistake, err := s.mistakes.FindByIDForUser(ctx, mistakeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMistakeNotFound
		}
		return nil, err
	}
	return s.Reassociate(ctx, mistake, grade, aiFeedback, reset)
}

// Reassociate 抽取 + 关联的共用路径
func (s *MistakeService) Reassociate(ctx context.Context, mistake *model.MistakeRecord,
	grade string, aiFeedback map[string]interface{}, reset bool) ([]model.MistakeKnowledgePoint, error) {

	text := mistake.OCRText
	if strings.TrimSpace(text) == "" {
		text = mistake.Title
	}

	kps := s.extractor.ExtractFromText(ctx, text, mistake.Subject, grade)
	if len(kps) == 0 {
		logger.Log.Info("错题未抽取到知识点", zap.String("mistakeId", mistake.ID))
		return nil, nil
	}

	if aiFeedback == nil && mistake.AIFeedback != "" {
		_ = json.Unmarshal([]byte(mistake.AIFeedback), &aiFeedback)
	}

	created, err := s.associations.Associate(ctx, mistake, kps, aiFeedback, reset)
	if err != nil {
		return nil, err
	}
	// 反范式缓存已由关联事务刷新，内存值同步一下
	names := make([]string, 0, len(kps))
	for _, kp := range kps {
		names = append(names, kp.Name)
	}
	namesJSON, _ := json.Marshal(names)
	mistake.KnowledgePoints = string(namesJSON)
	return created, nil
}

// Get 错题详情，含关联列表与签发后的图片地址
func (s *MistakeService) Get(ctx context.Context, mistakeID, userID string) (*MistakeReply, error) {
	mistake, err := s.mistakes.FindByIDForUser(ctx, mistakeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMistakeNotFound
		}
		return nil, err
	}

	associations, err := s.associations.FindByMistake(ctx, mistakeID)
	if err != nil {
		return nil, err
	}
	return s.buildReply(ctx, mistake, associations), nil
}

// KnowledgePoints 错题名下的知识点关联视图，带实时掌握度
func (s *MistakeService) KnowledgePoints(ctx context.Context, mistakeID, userID string) ([]MistakeKnowledgePointReply, error) {
	if _, err := s.mistakes.FindByIDForUser(ctx, mistakeID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMistakeNotFound
		}
		return nil, err
	}

	associations, err := s.associations.FindByMistake(ctx, mistakeID)
	if err != nil {
		return nil, err
	}

	replies := make([]MistakeKnowledgePointReply, 0, len(associations))
	for _, assoc := range associations {
		reply := MistakeKnowledgePointReply{
			AssociationID:    assoc.ID,
			KnowledgePointID: assoc.KnowledgePointID,
			RelevanceScore:   assoc.RelevanceScore,
			IsPrimary:        assoc.IsPrimary,
			ErrorType:        assoc.ErrorType,
			ErrorReason:      assoc.ErrorReason,
			Suggestions:      decodeStringArray(assoc.ImprovementSuggestions),
			ReviewCount:      assoc.ReviewCount,
			Mastered:         assoc.Mastered,
		}
		if row, err := s.masteries.FindByID(ctx, assoc.KnowledgePointID); err == nil {
			reply.KnowledgePoint = row.KnowledgePoint
			reply.MasteryLevel = row.MasteryLevel
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

func (s *MistakeService) buildReply(ctx context.Context, mistake *model.MistakeRecord,
	associations []model.MistakeKnowledgePoint) *MistakeReply {

	return &MistakeReply{
		ID:              mistake.ID,
		Subject:         mistake.Subject,
		Title:           mistake.Title,
		OCRText:         mistake.OCRText,
		ImageURLs:       s.storage.PresignImageURLs(ctx, decodeStringArray(mistake.ImageURLs)),
		CorrectAnswer:   mistake.CorrectAnswer,
		KnowledgePoints: decodeStringArray(mistake.KnowledgePoints),
		MasteryStatus:   mistake.MasteryStatus,
		ReviewCount:     mistake.ReviewCount,
		Associations:    associations,
	}
}
