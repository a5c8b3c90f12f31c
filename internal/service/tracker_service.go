package service

import (
	"context"

	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/repository"
	"ai_tutor_backend/pkg/logger"

	"go.uber.org/zap"
)

// TrackerService 学习轨迹记录，只追加
// 写入是尽力而为的：失败打警告日志即可，绝不影响外层掌握度/关联的提交
type TrackerService struct {
	tracks *repository.LearningTrackRepository
}

func NewTrackerService(tracks *repository.LearningTrackRepository) *TrackerService {
	return &TrackerService{tracks: tracks}
}

// Record 追加一条学习轨迹。独立小事务，错误被吞掉
func (s *TrackerService) Record(ctx context.Context, userID, knowledgePointID, mistakeID string,
	activityType model.ActivityType, result model.ReviewResult,
	masteryBefore, masteryAfter, confidence *float64) {

	track := &model.KnowledgePointLearningTrack{
		ID:               model.GenerateUUID(),
		UserID:           userID,
		KnowledgePointID: knowledgePointID,
		MistakeID:        mistakeID,
		ActivityType:     activityType,
		Result:           result,
		MasteryBefore:    masteryBefore,
		MasteryAfter:     masteryAfter,
		ConfidenceLevel:  confidence,
	}

	if err := s.tracks.Create(ctx, track); err != nil {
		logger.Log.Warn("学习轨迹写入失败",
			zap.String("userId", userID),
			zap.String("knowledgePointId", knowledgePointID),
			zap.String("activity", string(activityType)),
			zap.Error(err))
	}
}
