package service

import (
	"context"
	"time"

	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/repository"
	"ai_tutor_backend/pkg/logger"
	"ai_tutor_backend/pkg/monitoring"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 单次全量快照任务的整体超时
const snapshotRunTimeout = 30 * time.Minute

// SnapshotScheduler 每日定时为所有 (用户, 学科) 组合生成知识图谱快照
// 单对失败只记数，不影响其它组合
type SnapshotScheduler struct {
	cron      *cron.Cron
	masteries *repository.MasteryRepository
	graph     *GraphService
}

func NewSnapshotScheduler(masteries *repository.MasteryRepository, graph *GraphService) *SnapshotScheduler {
	return &SnapshotScheduler{
		cron:      cron.New(),
		masteries: masteries,
		graph:     graph,
	}
}

// Start 按 cron 表达式注册每日任务并启动调度
func (s *SnapshotScheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotRunTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	logger.Log.Info("快照定时任务已启动", zap.String("cron", spec))
	return nil
}

// Stop 停止调度并等待在跑的任务结束
func (s *SnapshotScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 跑一轮全量快照，返回成功/失败计数
func (s *SnapshotScheduler) RunOnce(ctx context.Context) (succeeded, failed int) {
	started := time.Now()

	pairs, err := s.masteries.DistinctUserSubjects(ctx)
	if err != nil {
		logger.Log.Error("快照任务枚举用户失败", zap.Error(err))
		monitoring.SnapshotRuns.WithLabelValues("error").Inc()
		return 0, 0
	}

	for _, pair := range pairs {
		if ctx.Err() != nil {
			logger.Log.Warn("快照任务被取消", zap.Int("succeeded", succeeded), zap.Int("failed", failed))
			break
		}
		if _, err := s.graph.CreateSnapshot(ctx, pair.UserID, pair.Subject, model.PeriodDaily); err != nil {
			failed++
			logger.Log.Error("单用户快照失败",
				zap.String("userId", pair.UserID),
				zap.String("subject", string(pair.Subject)),
				zap.Error(err))
			continue
		}
		succeeded++
	}

	result := "success"
	if failed > 0 {
		result = "partial"
	}
	monitoring.SnapshotRuns.WithLabelValues(result).Inc()

	logger.Log.Info("快照任务完成",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(started)))
	return succeeded, failed
}
