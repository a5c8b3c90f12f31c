package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ai_tutor_backend/internal/knowledge"
	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/repository"
	"ai_tutor_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// 从未练习过 ≠ 已遗忘，给一个中低风险
	neverPracticedRisk = 0.3
	// 掌握度达到该值的知识点不再进入复习推荐
	recommendCutoff = 0.9

	defaultRecommendLimit = 10
	defaultWeakChainLimit = 10

	learningContextTTL = 10 * time.Minute

	newStudentContext = "student is new to the system; no history available."
)

// 艾宾浩斯遗忘基线，按距上次练习的天数取档
// 数值来自线上经验标定而非曲线拟合，15~30 天档低于 8~14 天档
type forgettingBucket struct {
	maxDays int
	base    float64
}

var forgettingBuckets = []forgettingBucket{
	{maxDays: 1, base: 0.56},
	{maxDays: 2, base: 0.66},
	{maxDays: 7, base: 0.77},
	{maxDays: 14, base: 0.85},
	{maxDays: 30, base: 0.79},
}

const forgettingTailBase = 0.90

func learningContextCacheKey(userID string, subject model.Subject) string {
	return fmt.Sprintf("tutor:context:%s:%s", userID, subject)
}

// CalculateForgettingRisk 遗忘风险 = 天数基线 × (1 − 0.5×掌握度)，上限 1
func CalculateForgettingRisk(lastPracticedAt *time.Time, now time.Time, masteryLevel float64) float64 {
	if lastPracticedAt == nil {
		return neverPracticedRisk
	}

	days := int(now.Sub(*lastPracticedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}

	base := forgettingTailBase
	for _, b := range forgettingBuckets {
		if days <= b.maxDays {
			base = b.base
			break
		}
	}

	risk := base * (1.0 - 0.5*masteryLevel)
	if risk > 1 {
		risk = 1
	}
	return risk
}

// Recommendation 复习路径推荐项
type Recommendation struct {
	KnowledgePointID     string  `json:"knowledgePointId"`
	KnowledgePoint       string  `json:"knowledgePoint"`
	KnowledgePointCode   string  `json:"knowledgePointCode,omitempty"`
	MasteryLevel         float64 `json:"masteryLevel"`
	MistakeCount         int     `json:"mistakeCount"`
	ForgettingRisk       float64 `json:"forgettingRisk"`
	Priority             float64 `json:"priority"`
	Reason               string  `json:"reason"`
	EstimatedTimeMinutes int     `json:"estimatedTimeMinutes"`
}

// WeakChain 薄弱知识链条
type WeakChain struct {
	KnowledgePointID string          `json:"knowledgePointId"`
	KnowledgePoint   string          `json:"knowledgePoint"`
	MasteryLevel     float64         `json:"masteryLevel"`
	MistakeCount     int             `json:"mistakeCount"`
	ReviewCount      int             `json:"reviewCount"`
	ErrorType        model.ErrorType `json:"errorType,omitempty"`
	Suggestions      []string        `json:"suggestions,omitempty"`
}

// SnapshotReply 快照读取结果，JSON 列已解码
type SnapshotReply struct {
	SnapshotID     string          `json:"snapshotId"`
	SnapshotDate   time.Time       `json:"snapshotDate"`
	PeriodType     string          `json:"periodType"`
	Nodes          []SnapshotNode  `json:"knowledgePoints"`
	WeakChains     []WeakChain     `json:"weakChains"`
	StrongAreas    []string        `json:"strongAreas"`
	GraphData      json.RawMessage `json:"graphData"`
	TotalMistakes  int             `json:"totalMistakes"`
	AverageMastery float64         `json:"averageMastery"`
}

// SnapshotNode 快照节点，分析端按该 schema 消费，允许多余键
type SnapshotNode struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Code           string     `json:"code,omitempty"`
	MasteryLevel   float64    `json:"masteryLevel"`
	Status         string     `json:"status"` // weak / learning / mastered
	MistakeCount   int        `json:"mistakeCount"`
	LastPracticeAt *time.Time `json:"lastPracticeAt,omitempty"`
}

type graphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

type graphPayload struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []graphEdge    `json:"edges"`
}

// GraphService 知识图谱分析：遗忘风险、复习推荐、薄弱链条、学习上下文、快照
type GraphService struct {
	masteries    *repository.MasteryRepository
	associations *repository.AssociationRepository
	snapshots    *repository.SnapshotRepository
	dict         *knowledge.Dictionary
	rdb          *redis.Client
}

func NewGraphService(masteries *repository.MasteryRepository, associations *repository.AssociationRepository,
	snapshots *repository.SnapshotRepository, dict *knowledge.Dictionary, rdb *redis.Client) *GraphService {
	return &GraphService{
		masteries:    masteries,
		associations: associations,
		snapshots:    snapshots,
		dict:         dict,
		rdb:          rdb,
	}
}

// RecommendReviewPath 生成复习优先级队列
// priority = 0.4×掌握缺口 + 0.3×前置薄弱权重 + 0.2×遗忘风险 + 0.1×关联链权重
func (s *GraphService) RecommendReviewPath(ctx context.Context, userID string, subject model.Subject, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = defaultRecommendLimit
	}

	rows, err := s.masteries.ListByUserSubject(ctx, userID, subject)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.KnowledgeMastery, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.MasteryLevel >= recommendCutoff {
			continue
		}
		candidates = append(candidates, row)
		ids = append(ids, row.ID)
	}
	if len(candidates) == 0 {
		return []Recommendation{}, nil
	}

	counts, err := s.associations.MistakeCountsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]Recommendation, 0, len(candidates))
	for _, row := range candidates {
		mistakeCount := counts[row.ID]
		items = append(items, buildRecommendation(&row, mistakeCount, now))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].MasteryLevel < items[j].MasteryLevel
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// buildRecommendation 单行打分，纯计算
func buildRecommendation(row *model.KnowledgeMastery, mistakeCount int, now time.Time) Recommendation {
	masteryFactor := 1.0 - row.MasteryLevel

	var errRate float64
	if row.TotalAttempts > 0 {
		errRate = 1.0 - float64(row.CorrectCount)/float64(row.TotalAttempts)
	}
	var prereqWeight float64
	switch {
	case errRate > 0.5 && row.MasteryLevel < 0.5:
		prereqWeight = 0.8
	case errRate > 0.3:
		prereqWeight = 0.5
	}

	risk := CalculateForgettingRisk(row.LastPracticedAt, now, row.MasteryLevel)
	chainWeight := math.Min(0.1*float64(mistakeCount), 1.0)

	priority := 0.4*masteryFactor + 0.3*prereqWeight + 0.2*risk + 0.1*chainWeight

	return Recommendation{
		KnowledgePointID:     row.ID,
		KnowledgePoint:       row.KnowledgePoint,
		KnowledgePointCode:   row.KnowledgePointCode,
		MasteryLevel:         row.MasteryLevel,
		MistakeCount:         mistakeCount,
		ForgettingRisk:       risk,
		Priority:             priority,
		Reason:               buildRecommendReason(row, mistakeCount, prereqWeight, risk),
		EstimatedTimeMinutes: estimateReviewMinutes(row.MasteryLevel, mistakeCount),
	}
}

func buildRecommendReason(row *model.KnowledgeMastery, mistakeCount int, prereqWeight, risk float64) string {
	var parts []string
	if row.MasteryLevel < 0.4 {
		parts = append(parts, fmt.Sprintf("掌握度偏低（%.0f%%）", row.MasteryLevel*100))
	} else if row.MasteryLevel < 0.7 {
		parts = append(parts, fmt.Sprintf("掌握度尚可（%.0f%%），仍需巩固", row.MasteryLevel*100))
	}
	if prereqWeight >= 0.8 {
		parts = append(parts, "错误率高，前置基础可能薄弱")
	} else if prereqWeight > 0 {
		parts = append(parts, "错误率偏高")
	}
	if risk >= 0.6 {
		parts = append(parts, "距上次练习较久，遗忘风险高")
	}
	if mistakeCount > 0 {
		parts = append(parts, fmt.Sprintf("关联错题 %d 道", mistakeCount))
	}
	if len(parts) == 0 {
		parts = append(parts, "建议定期复习保持熟练度")
	}
	return strings.Join(parts, "；")
}

// estimateReviewMinutes 10 分钟基线 + 掌握缺口补时 + 错题量补时，钳制到 [5,60]
func estimateReviewMinutes(masteryLevel float64, mistakeCount int) int {
	minutes := 10 + int(math.Round((1.0-masteryLevel)*20))
	extra := mistakeCount * 2
	if extra > 20 {
		extra = 20
	}
	minutes += extra
	if minutes < 5 {
		minutes = 5
	}
	if minutes > 60 {
		minutes = 60
	}
	return minutes
}

// GetWeakChains 薄弱知识链条：掌握度 < 0.5 且有复习记录的知识点
func (s *GraphService) GetWeakChains(ctx context.Context, userID string, subject model.Subject, limit int) ([]WeakChain, error) {
	if limit <= 0 {
		limit = defaultWeakChainLimit
	}

	weak, err := s.associations.FindWeak(ctx, userID, subject, limit)
	if err != nil {
		return nil, err
	}
	if len(weak) == 0 {
		return []WeakChain{}, nil
	}

	ids := make([]string, 0, len(weak))
	for _, w := range weak {
		ids = append(ids, w.KnowledgePointID)
	}
	counts, err := s.associations.MistakeCountsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	// 同一知识点可能挂多条关联，保留掌握度最低的一条
	seen := make(map[string]bool, len(weak))
	chains := make([]WeakChain, 0, len(weak))
	for _, w := range weak {
		if seen[w.KnowledgePointID] {
			continue
		}
		seen[w.KnowledgePointID] = true
		chains = append(chains, WeakChain{
			KnowledgePointID: w.KnowledgePointID,
			KnowledgePoint:   w.KnowledgePoint,
			MasteryLevel:     w.MasteryLevel,
			MistakeCount:     counts[w.KnowledgePointID],
			ReviewCount:      w.ReviewCount,
			ErrorType:        w.ErrorType,
			Suggestions:      decodeStringArray(w.Suggestions),
		})
	}
	return chains, nil
}

// BuildLearningContext 生成中文学习上下文，前置到下游 AI 分析提示词
// 短 TTL Redis 缓存，掌握度更新时主动失效
func (s *GraphService) BuildLearningContext(ctx context.Context, userID string, subject model.Subject) (string, error) {
	key := learningContextCacheKey(userID, subject)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	rows, err := s.masteries.ListByUserSubject(ctx, userID, subject)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return newStudentContext, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	counts, err := s.associations.MistakeCountsFor(ctx, ids)
	if err != nil {
		logger.Log.Warn("学习上下文错题计数失败，按 0 处理", zap.String("userId", userID), zap.Error(err))
		counts = map[string]int{}
	}

	var chainNames []string
	if snap, err := s.snapshots.Latest(ctx, userID, subject); err == nil && snap != nil {
		var chains []WeakChain
		if json.Unmarshal([]byte(snap.WeakChains), &chains) == nil {
			for i, c := range chains {
				if i >= 3 {
					break
				}
				chainNames = append(chainNames, c.KnowledgePoint)
			}
		}
	}

	text := ComposeLearningContext(subject, rows, counts, chainNames)

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, text, learningContextTTL).Err(); err != nil {
			logger.Log.Warn("学习上下文缓存写入失败", zap.String("userId", userID), zap.Error(err))
		}
	}
	return text, nil
}

// ComposeLearningContext 纯文本拼装，入参已排好序的掌握度行
func ComposeLearningContext(subject model.Subject, rows []model.KnowledgeMastery,
	mistakeCounts map[string]int, snapshotWeakChains []string) string {

	var weak, learning, mastered []model.KnowledgeMastery
	for _, row := range rows {
		switch bucketOf(row.MasteryLevel) {
		case "weak":
			weak = append(weak, row)
		case "learning":
			learning = append(learning, row)
		default:
			mastered = append(mastered, row)
		}
	}

	sort.SliceStable(weak, func(i, j int) bool {
		return mistakeCounts[weak[i].ID] > mistakeCounts[weak[j].ID]
	})

	var b strings.Builder
	b.WriteString("【学生学习情况】\n")
	fmt.Fprintf(&b, "学科：%s。已学习 %d 个知识点：薄弱 %d 个，学习中 %d 个，已掌握 %d 个。\n",
		subjectDisplayName(string(subject)), len(rows), len(weak), len(learning), len(mastered))

	if len(weak) > 0 {
		b.WriteString("\n薄弱知识点（按关联错题数排序，优先巩固）：\n")
		for i, row := range weak {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "%d. %s（掌握度 %.0f%%，关联错题 %d 道）\n",
				i+1, row.KnowledgePoint, row.MasteryLevel*100, mistakeCounts[row.ID])
		}
	}

	if len(learning) > 0 {
		b.WriteString("\n学习中的知识点：\n")
		for i, row := range learning {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s（掌握度 %.0f%%）\n", row.KnowledgePoint, row.MasteryLevel*100)
		}
	}

	if len(mastered) > 0 {
		names := make([]string, 0, 3)
		for i, row := range mastered {
			if i >= 3 {
				break
			}
			names = append(names, row.KnowledgePoint)
		}
		fmt.Fprintf(&b, "\n已掌握：%s\n", strings.Join(names, "、"))
	}

	if len(snapshotWeakChains) > 0 {
		fmt.Fprintf(&b, "\n近期薄弱链条：%s\n", strings.Join(snapshotWeakChains, "、"))
	}

	b.WriteString("\n建议方向：")
	b.WriteString(adviceDirection(len(weak), len(learning), len(mastered)))
	b.WriteString("\n")

	return b.String()
}

func bucketOf(masteryLevel float64) string {
	switch {
	case masteryLevel < 0.4:
		return "weak"
	case masteryLevel < 0.7:
		return "learning"
	default:
		return "mastered"
	}
}

func adviceDirection(weak, learning, mastered int) string {
	switch {
	case weak >= learning && weak >= mastered:
		return "薄弱知识点较多，建议从错题入手逐个攻克，先补齐基础概念再做综合练习。"
	case learning >= mastered:
		return "多数知识点处于学习中，建议通过变式训练提升熟练度，并定期回顾薄弱环节。"
	default:
		return "整体掌握良好，建议按复习计划定期复盘防止遗忘，可适当挑战综合性题目。"
	}
}

// CreateSnapshot 物化用户当前的知识图谱，插入后不可变
func (s *GraphService) CreateSnapshot(ctx context.Context, userID string, subject model.Subject, periodType model.PeriodType) (string, error) {
	rows, err := s.masteries.ListByUserSubject(ctx, userID, subject)
	if err != nil {
		return "", err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	counts, err := s.associations.MistakeCountsFor(ctx, ids)
	if err != nil {
		return "", err
	}

	nodes := make([]SnapshotNode, 0, len(rows))
	var strongAreas []string
	var totalMistakes int
	var masterySum float64
	for _, row := range rows {
		bucket := bucketOf(row.MasteryLevel)
		nodes = append(nodes, SnapshotNode{
			ID:             row.ID,
			Name:           row.KnowledgePoint,
			Code:           row.KnowledgePointCode,
			MasteryLevel:   row.MasteryLevel,
			Status:         bucket,
			MistakeCount:   counts[row.ID],
			LastPracticeAt: row.LastPracticedAt,
		})
		if bucket == "mastered" {
			strongAreas = append(strongAreas, row.KnowledgePoint)
		}
		totalMistakes += counts[row.ID]
		masterySum += row.MasteryLevel
	}

	var averageMastery float64
	if len(rows) > 0 {
		averageMastery = masterySum / float64(len(rows))
	}

	weakChains, err := s.GetWeakChains(ctx, userID, subject, defaultWeakChainLimit)
	if err != nil {
		return "", err
	}

	graph := graphPayload{
		Nodes: nodes,
		Edges: s.buildRelatedEdges(subject, rows),
	}

	snapshot := &model.UserKnowledgeGraphSnapshot{
		UserID:          userID,
		Subject:         subject,
		SnapshotDate:    time.Now(),
		PeriodType:      periodType,
		KnowledgePoints: mustJSON(nodes),
		WeakChains:      mustJSON(weakChains),
		StrongAreas:     mustJSON(strongAreas),
		GraphData:       mustJSON(graph),
		TotalMistakes:   totalMistakes,
		AverageMastery:  averageMastery,
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		return "", err
	}
	return snapshot.ID, nil
}

// buildRelatedEdges 按词典里的关联知识点连边，只连本次快照里都出现的节点
func (s *GraphService) buildRelatedEdges(subject model.Subject, rows []model.KnowledgeMastery) []graphEdge {
	edges := []graphEdge{}
	if s.dict == nil {
		return edges
	}

	byName := make(map[string]string, len(rows))
	for _, row := range rows {
		byName[row.KnowledgePoint] = row.ID
	}

	for _, row := range rows {
		entry, ok := s.dict.Lookup(subject, row.KnowledgePoint)
		if !ok {
			continue
		}
		for _, related := range entry.Related {
			if toID, ok := byName[related]; ok && toID != row.ID {
				edges = append(edges, graphEdge{From: row.ID, To: toID, Kind: "related"})
			}
		}
	}
	return edges
}

// GetLatestSnapshot 取最近一份快照并解码 JSON 列
func (s *GraphService) GetLatestSnapshot(ctx context.Context, userID string, subject model.Subject) (*SnapshotReply, error) {
	snap, err := s.snapshots.Latest(ctx, userID, subject)
	if err != nil {
		return nil, err
	}

	reply := &SnapshotReply{
		SnapshotID:     snap.ID,
		SnapshotDate:   snap.SnapshotDate,
		PeriodType:     string(snap.PeriodType),
		GraphData:      json.RawMessage(snap.GraphData),
		TotalMistakes:  snap.TotalMistakes,
		AverageMastery: snap.AverageMastery,
	}
	// 列内容由本服务写入，解码失败按空处理即可
	_ = json.Unmarshal([]byte(snap.KnowledgePoints), &reply.Nodes)
	_ = json.Unmarshal([]byte(snap.WeakChains), &reply.WeakChains)
	_ = json.Unmarshal([]byte(snap.StrongAreas), &reply.StrongAreas)
	return reply, nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
