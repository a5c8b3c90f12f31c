package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/repository"
	"ai_tutor_backend/internal/util"
	"ai_tutor_backend/pkg/logger"
	"ai_tutor_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxStage = 3
	// 连对3次视为该错题已掌握
	masteredCorrectCount = 3
	// 复习成功时站内默认置信度（提交接口不采集自评）
	defaultReviewConfidence = 3

	skipSuggestion = "建议重新学习后再复习"
)

// 复习成功后的下次复习间隔（天），按已复习次数取档
var reviewIntervalDays = []int{1, 2, 4, 7, 15, 30}

// StartReply 开始/查询复习会话的响应
type StartReply struct {
	SessionID       string   `json:"sessionId"`
	Stage           int      `json:"stage"`
	StageName       string   `json:"stageName"`
	Status          string   `json:"status"`
	QuestionContent string   `json:"questionContent"`
	CorrectAnswer   string   `json:"correctAnswer,omitempty"`
	KnowledgePoints []string `json:"knowledgePoints"`
	HasOCRText      bool     `json:"hasOcrText"`
	ImageURLs       []string `json:"imageUrls,omitempty"`
	HasImages       bool     `json:"hasImages"`
}

// NextQuestion 进入下一阶段时下发的新题
type NextQuestion struct {
	QuestionContent string `json:"questionContent"`
	Source          string `json:"source"` // ai / fallback
}

// SubmitReply 提交答案的响应
type SubmitReply struct {
	Correct         bool          `json:"correct"`
	Skip            bool          `json:"skip,omitempty"`
	Status          string        `json:"status,omitempty"`
	NextStage       int           `json:"nextStage,omitempty"`
	StageName       string        `json:"stageName,omitempty"`
	NextQuestion    *NextQuestion `json:"nextQuestion,omitempty"`
	AIFeedback      string        `json:"aiFeedback,omitempty"`
	Score           int           `json:"score"`
	UserAnswer      string        `json:"userAnswer,omitempty"`
	StandardAnswer  string        `json:"standardAnswer,omitempty"`
	Suggestion      string        `json:"suggestion,omitempty"`
	KnowledgePoints []string      `json:"knowledgePoints,omitempty"`
}

// ReviewService 三段式复习状态机
// 阶段1原题、阶段2 AI变式、阶段3知识点巩固；任一阶段答错或跳过即失败
type ReviewService struct {
	db           *gorm.DB
	sessions     *repository.ReviewSessionRepository
	mistakes     *repository.MistakeRepository
	associations *repository.AssociationRepository
	masteries    *repository.MasteryRepository
	mastery      *MasteryService
	tracker      *TrackerService
	storage      *StorageService
	ai           AIClient
}

func NewReviewService(db *gorm.DB, sessions *repository.ReviewSessionRepository,
	mistakes *repository.MistakeRepository, associations *repository.AssociationRepository,
	masteries *repository.MasteryRepository, mastery *MasteryService,
	tracker *TrackerService, storage *StorageService, ai AIClient) *ReviewService {
	return &ReviewService{
		db:           db,
		sessions:     sessions,
		mistakes:     mistakes,
		associations: associations,
		masteries:    masteries,
		mastery:      mastery,
		tracker:      tracker,
		storage:      storage,
		ai:           ai,
	}
}

// Start 创建复习会话，从阶段1（原题重做）开始
func (s *ReviewService) Start(ctx context.Context, userID, mistakeID string) (*StartReply, error) {
	mistake, err := s.mistakes.FindByIDForUser(ctx, mistakeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMistakeNotFound
		}
		return nil, err
	}

	content, _ := ExtractQuestionContent(mistake)

	session := &model.ReviewSession{
		UserID:        userID,
		MistakeID:     mistakeID,
		CurrentStage:  1,
		Status:        model.SessionInProgress,
		StageQuestion: content,
		StageAnswer:   mistake.CorrectAnswer,
		StageSource:   "original",
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return s.buildStateReply(ctx, session, mistake), nil
}

// GetState 重新渲染当前阶段内容
func (s *ReviewService) GetState(ctx context.Context, sessionID, userID string) (*StartReply, error) {
	session, err := s.sessions.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}

	mistake, err := s.mistakes.FindByID(ctx, session.MistakeID)
	if err != nil {
		return nil, err
	}

	return s.buildStateReply(ctx, session, mistake), nil
}

func (s *ReviewService) buildStateReply(ctx context.Context, session *model.ReviewSession, mistake *model.MistakeRecord) *StartReply {
	imageURLs := decodeStringArray(mistake.ImageURLs)
	_, fromOCR := ExtractQuestionContent(mistake)

	return &StartReply{
		SessionID:       session.ID,
		Stage:           session.CurrentStage,
		StageName:       model.StageName(session.CurrentStage),
		Status:          string(session.Status),
		QuestionContent: session.StageQuestion,
		CorrectAnswer:   session.StageAnswer,
		KnowledgePoints: decodeStringArray(mistake.KnowledgePoints),
		HasOCRText:      fromOCR,
		ImageURLs:       s.storage.PresignImageURLs(ctx, imageURLs),
		HasImages:       len(imageURLs) > 0,
	}
}

// Submit 提交当前阶段答案（或跳过）
//
// 判题与生成都是长耗时的外部调用，不能压在行锁里做；
// 所以流程是：无锁读校验 -> AI调用 -> 事务内加锁重读并复核 -> 写入。
// 并发提交时，后到的一方要么看到前一方的结果，要么以 SessionClosed 失败
func (s *ReviewService) Submit(ctx context.Context, sessionID, userID, answer string, skip bool) (*SubmitReply, error) {
	if !skip && strings.TrimSpace(answer) == "" {
		return nil, util.ErrEmptyAnswer
	}

	session, err := s.sessions.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	if session.Closed() {
		return nil, util.ErrSessionClosed
	}

	mistake, err := s.mistakes.FindByID(ctx, session.MistakeID)
	if err != nil {
		return nil, err
	}
	knowledgePoints := decodeStringArray(mistake.KnowledgePoints)

	if skip {
		return s.submitSkip(ctx, session, mistake, knowledgePoints)
	}

	// AI判题，失败降级为去除首尾空格后的全等比对
	judge, err := s.ai.JudgeAnswer(ctx, session.StageQuestion, session.StageAnswer, answer)
	if err != nil {
		logger.Log.Warn("AI判题失败，降级为字符串比对",
			zap.String("sessionId", session.ID),
			zap.Error(err))
		monitoring.LLMRequests.WithLabelValues("judge", "fallback").Inc()
		judge = FallbackJudge(session.StageAnswer, answer)
	}

	if !judge.IsCorrect {
		return s.submitIncorrect(ctx, session, mistake, answer, judge, knowledgePoints)
	}

	if session.CurrentStage < maxStage {
		return s.submitAdvance(ctx, session, mistake, judge, knowledgePoints)
	}

	return s.submitSuccess(ctx, session, mistake, judge, knowledgePoints)
}

func (s *ReviewService) submitSkip(ctx context.Context, session *model.ReviewSession,
	mistake *model.MistakeRecord, knowledgePoints []string) (*SubmitReply, error) {

	err := s.closeSession(ctx, session, model.SessionCompletedFail)
	if err != nil {
		return nil, err
	}

	s.afterFail(ctx, session, mistake)

	return buildSkipReply(session, knowledgePoints), nil
}

// buildSkipReply 跳过即失败结单：给出标准答案和复习建议，掌握度不动
func buildSkipReply(session *model.ReviewSession, knowledgePoints []string) *SubmitReply {
	return &SubmitReply{
		Correct:         false,
		Skip:            true,
		Status:          string(model.SessionCompletedFail),
		StandardAnswer:  session.StageAnswer,
		Suggestion:      skipSuggestion,
		KnowledgePoints: knowledgePoints,
	}
}

func (s *ReviewService) submitIncorrect(ctx context.Context, session *model.ReviewSession,
	mistake *model.MistakeRecord, answer string, judge *JudgeResult, knowledgePoints []string) (*SubmitReply, error) {

	if err := s.closeSession(ctx, session, model.SessionCompletedFail); err != nil {
		return nil, err
	}

	s.afterFail(ctx, session, mistake)
	s.recordPrimaryTrack(ctx, session, mistake, model.ResultIncorrect)

	return &SubmitReply{
		Correct:         false,
		Status:          string(model.SessionCompletedFail),
		UserAnswer:      answer,
		StandardAnswer:  session.StageAnswer,
		AIFeedback:      judge.Feedback,
		Score:           judge.Score,
		KnowledgePoints: knowledgePoints,
	}, nil
}

func (s *ReviewService) submitAdvance(ctx context.Context, session *model.ReviewSession,
	mistake *model.MistakeRecord, judge *JudgeResult, knowledgePoints []string) (*SubmitReply, error) {

	nextStage := session.CurrentStage + 1
	next := s.generateStageContent(ctx, nextStage, mistake, knowledgePoints)

	expectedStage := session.CurrentStage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.sessions.FindForUpdate(tx, session.ID, session.UserID)
		if err != nil {
			return err
		}
		if err := guardSessionWrite(row, expectedStage); err != nil {
			return err
		}

		row.Attempts++
		row.CurrentStage = nextStage
		row.StageQuestion = next.Question
		row.StageAnswer = next.Answer
		row.StageSource = next.Source
		return tx.Save(row).Error
	})
	if err != nil {
		return nil, err
	}

	session.CurrentStage = nextStage
	s.recordPrimaryTrack(ctx, session, mistake, model.ResultCorrect)

	return &SubmitReply{
		Correct:   true,
		NextStage: nextStage,
		StageName: model.StageName(nextStage),
		NextQuestion: &NextQuestion{
			QuestionContent: next.Question,
			Source:          next.Source,
		},
		AIFeedback:      judge.Feedback,
		Score:           judge.Score,
		KnowledgePoints: knowledgePoints,
	}, nil
}

func (s *ReviewService) submitSuccess(ctx context.Context, session *model.ReviewSession,
	mistake *model.MistakeRecord, judge *JudgeResult, knowledgePoints []string) (*SubmitReply, error) {

	if err := s.closeSession(ctx, session, model.SessionCompletedSuccess); err != nil {
		return nil, err
	}

	s.afterSuccess(ctx, session, mistake)
	s.recordPrimaryTrack(ctx, session, mistake, model.ResultCorrect)

	return &SubmitReply{
		Correct:    true,
		Status:     string(model.SessionCompletedSuccess),
		AIFeedback: judge.Feedback,
		Score:      judge.Score,
	}, nil
}

// guardSessionWrite 加锁重读后复核会话状态。终态会话拒绝任何写入；
// expectedStage > 0 时还要求阶段未被并发请求推进，否则本次判题针对的是过期状态
func guardSessionWrite(row *model.ReviewSession, expectedStage int) error {
	if row.Closed() {
		return util.ErrSessionClosed
	}
	if expectedStage > 0 && row.CurrentStage != expectedStage {
		return util.ErrSessionClosed
	}
	return nil
}

// closeSession 事务内加锁重读后关闭会话；终态不可再写
func (s *ReviewService) closeSession(ctx context.Context, session *model.ReviewSession, status model.SessionStatus) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.sessions.FindForUpdate(tx, session.ID, session.UserID)
		if err != nil {
			return err
		}
		if err := guardSessionWrite(row, 0); err != nil {
			return err
		}

		row.Attempts++
		row.Status = status
		return tx.Save(row).Error
	})
	if err != nil {
		return err
	}

	session.Status = status
	monitoring.ReviewSessionsCompleted.WithLabelValues(string(status)).Inc()
	return nil
}

// afterSuccess 三阶段全过：掌握度上调、关联复习计数、错题状态与下次复习时间
func (s *ReviewService) afterSuccess(ctx context.Context, session *model.ReviewSession, mistake *model.MistakeRecord) {
	associations, err := s.associations.FindByMistake(ctx, session.MistakeID)
	if err != nil {
		logger.Log.Error("复习成功后查关联失败", zap.String("mistakeId", session.MistakeID), zap.Error(err))
		return
	}

	var primaryCorrectCount int
	for _, assoc := range associations {
		newLevel, err := s.mastery.UpdateAfterReview(ctx, assoc.KnowledgePointID, model.ResultCorrect, defaultReviewConfidence)
		if err != nil {
			logger.Log.Error("复习成功后更新掌握度失败",
				zap.String("knowledgePointId", assoc.KnowledgePointID),
				zap.Error(err))
			continue
		}

		updates := map[string]interface{}{
			"review_count": gorm.Expr("review_count + 1"),
			"mastered":     newLevel >= masteredThreshold,
		}
		if err := s.db.WithContext(ctx).Model(&model.MistakeKnowledgePoint{}).
			Where("id = ?", assoc.ID).Updates(updates).Error; err != nil {
			logger.Log.Error("关联复习计数更新失败", zap.String("associationId", assoc.ID), zap.Error(err))
		}

		if assoc.IsPrimary {
			if row, err := s.masteries.FindByID(ctx, assoc.KnowledgePointID); err == nil {
				primaryCorrectCount = row.CorrectCount
			}
		}
	}

	status := model.MasteryLearning
	if primaryCorrectCount >= masteredCorrectCount {
		status = model.MasteryMastered
	}

	next := time.Now().AddDate(0, 0, nextReviewIntervalDays(mistake.ReviewCount+1))
	values := map[string]interface{}{
		"mastery_status": status,
		"review_count":   gorm.Expr("review_count + 1"),
		"next_review_at": next,
	}
	if status == model.MasteryMastered {
		values["next_review_at"] = nil
	}
	if err := s.mistakes.Updates(ctx, mistake.ID, values); err != nil {
		logger.Log.Error("错题状态更新失败", zap.String("mistakeId", mistake.ID), zap.Error(err))
	}
}

// afterFail 失败或跳过：掌握度不动，错题明天再来
func (s *ReviewService) afterFail(ctx context.Context, session *model.ReviewSession, mistake *model.MistakeRecord) {
	next := time.Now().AddDate(0, 0, 1)
	values := map[string]interface{}{
		"mastery_status": model.MasteryLearning,
		"review_count":   gorm.Expr("review_count + 1"),
		"next_review_at": next,
	}
	if err := s.mistakes.Updates(ctx, mistake.ID, values); err != nil {
		logger.Log.Error("错题状态更新失败", zap.String("mistakeId", mistake.ID), zap.Error(err))
	}
}

func (s *ReviewService) recordPrimaryTrack(ctx context.Context, session *model.ReviewSession,
	mistake *model.MistakeRecord, result model.ReviewResult) {

	associations, err := s.associations.FindByMistake(ctx, session.MistakeID)
	if err != nil || len(associations) == 0 {
		return
	}
	// FindByMistake 按 is_primary DESC 排序，第一条即主关联
	s.tracker.Record(ctx, session.UserID, associations[0].KnowledgePointID, mistake.ID,
		model.ActivityReview, result, nil, nil, nil)
}

// generateStageContent 生成下一阶段题目，AI失败时按阶段给出降级内容
func (s *ReviewService) generateStageContent(ctx context.Context, stage int,
	mistake *model.MistakeRecord, knowledgePoints []string) *GeneratedQuestion {

	original, _ := ExtractQuestionContent(mistake)

	switch stage {
	case 2:
		q, err := s.ai.GenerateVariant(ctx, original, knowledgePoints)
		if err == nil {
			return q
		}
		logger.Log.Warn("变式题生成失败，使用降级内容", zap.String("mistakeId", mistake.ID), zap.Error(err))
		monitoring.LLMRequests.WithLabelValues("generate", "fallback").Inc()
		return &GeneratedQuestion{
			Question: "【变式题】" + original,
			Answer:   mistake.CorrectAnswer,
			Source:   "fallback",
		}
	case 3:
		q, err := s.ai.GenerateConsolidation(ctx, knowledgePoints)
		if err == nil {
			return q
		}
		logger.Log.Warn("综合题生成失败，使用降级内容", zap.String("mistakeId", mistake.ID), zap.Error(err))
		monitoring.LLMRequests.WithLabelValues("generate", "fallback").Inc()
		return &GeneratedQuestion{
			Question: fmt.Sprintf("请总结下列知识点的核心方法和易错点：%s", strings.Join(knowledgePoints, "、")),
			Answer:   "",
			Source:   "fallback",
		}
	}

	return &GeneratedQuestion{Question: original, Answer: mistake.CorrectAnswer, Source: "original"}
}

// UpdateMasteryAfterReview 按一次复习结果更新某道错题名下全部知识点的掌握度
// 独立服务入口，供上游在复习引擎之外直接回写
func (s *ReviewService) UpdateMasteryAfterReview(ctx context.Context, mistakeID string,
	result model.ReviewResult, confidence1to5 int) error {

	if confidence1to5 == 0 {
		confidence1to5 = defaultReviewConfidence
	}

	associations, err := s.associations.FindByMistake(ctx, mistakeID)
	if err != nil {
		return err
	}
	if len(associations) == 0 {
		return util.ErrMistakeNotFound
	}

	for _, assoc := range associations {
		if _, err := s.mastery.UpdateAfterReview(ctx, assoc.KnowledgePointID, result, confidence1to5); err != nil {
			return err
		}
	}
	return nil
}

// FallbackJudge AI不可用时的降级判题：去除首尾空格后全等比对
func FallbackJudge(standardAnswer, userAnswer string) *JudgeResult {
	correct := strings.TrimSpace(userAnswer) == strings.TrimSpace(standardAnswer)
	score := 0
	if correct {
		score = 100
	}
	return &JudgeResult{
		IsCorrect: correct,
		Feedback:  "AI judge unavailable",
		Score:     score,
	}
}

// ExtractQuestionContent 题目内容提取阶梯
// 上游内容质量参差不齐：OCR原文 -> AI分析里的题目字段 -> AI解析截断 -> 清洗后的标题 -> 图片兜底
func ExtractQuestionContent(m *model.MistakeRecord) (content string, fromOCR bool) {
	if text := strings.TrimSpace(m.OCRText); text != "" {
		return text, true
	}

	if m.AIFeedback != "" {
		var feedback map[string]interface{}
		if err := json.Unmarshal([]byte(m.AIFeedback), &feedback); err == nil {
			for _, key := range []string{"question", "question_content", "题目"} {
				if v, ok := feedback[key].(string); ok && strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v), false
				}
			}
			if v, ok := feedback["explanation"].(string); ok && strings.TrimSpace(v) != "" {
				return truncateRunes(strings.TrimSpace(v), 200), false
			}
		}
	}

	if title := cleanTitle(m.Title); title != "" {
		return title, false
	}

	return "请结合下方图片完成本题复习", false
}

// cleanTitle 标题常是上传文件名，去掉扩展名和占位符
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp", ".pdf"} {
		title = strings.TrimSuffix(title, ext)
		title = strings.TrimSuffix(title, strings.ToUpper(ext))
	}
	title = strings.TrimSpace(title)
	if title == "" || strings.EqualFold(title, "untitled") || title == "未命名" {
		return ""
	}
	return title
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func decodeStringArray(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func nextReviewIntervalDays(reviewCount int) int {
	if reviewCount <= 0 {
		return reviewIntervalDays[0]
	}
	if reviewCount > len(reviewIntervalDays) {
		return reviewIntervalDays[len(reviewIntervalDays)-1]
	}
	return reviewIntervalDays[reviewCount-1]
}
