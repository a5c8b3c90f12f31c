package service

import (
	"strings"
	"testing"
	"time"

	"ai_tutor_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// n整天多1小时前，避免取整时因毫秒误差落到上一档
func daysAgo(n int) *time.Time {
	t := time.Now().Add(-time.Duration(n)*24*time.Hour - time.Hour)
	return &t
}

func TestCalculateForgettingRisk_Buckets(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		daysAgo  int
		wantBase float64
	}{
		{name: "当天", daysAgo: 0, wantBase: 0.56},
		{name: "1天", daysAgo: 1, wantBase: 0.56},
		{name: "2天", daysAgo: 2, wantBase: 0.66},
		{name: "5天", daysAgo: 5, wantBase: 0.77},
		{name: "10天", daysAgo: 10, wantBase: 0.85},
		{name: "20天", daysAgo: 20, wantBase: 0.79},
		{name: "45天", daysAgo: 45, wantBase: 0.90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 掌握度为0时风险即基线值
			risk := CalculateForgettingRisk(daysAgo(tt.daysAgo), now, 0)
			assert.InDelta(t, tt.wantBase, risk, 1e-9)
		})
	}
}

func TestCalculateForgettingRisk_NeverPracticed(t *testing.T) {
	risk := CalculateForgettingRisk(nil, time.Now(), 0.9)
	assert.InDelta(t, 0.3, risk, 1e-9)
}

// 掌握度越高风险越低（固定天数）
func TestCalculateForgettingRisk_MasteryAttenuates(t *testing.T) {
	now := time.Now()
	last := daysAgo(10)

	prev := 2.0
	for _, mastery := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		risk := CalculateForgettingRisk(last, now, mastery)
		assert.Less(t, risk, prev)
		assert.GreaterOrEqual(t, risk, 0.0)
		prev = risk
	}

	// 满掌握度时风险砍半
	assert.InDelta(t, 0.85*0.5, CalculateForgettingRisk(last, now, 1.0), 1e-9)
}

func masteryRow(id, name string, level float64, lastPracticed *time.Time, attempts, correct int) model.KnowledgeMastery {
	row := model.KnowledgeMastery{
		UserID:          "u1",
		Subject:         model.SubjectMath,
		KnowledgePoint:  name,
		MasteryLevel:    level,
		TotalAttempts:   attempts,
		CorrectCount:    correct,
		LastPracticedAt: lastPracticed,
	}
	row.ID = id
	return row
}

// 低掌握度+高错题数+久未练习的排最前，接近掌握的排最后
func TestBuildRecommendation_Ordering(t *testing.T) {
	now := time.Now()

	a := masteryRow("a", "二次函数", 0.2, daysAgo(30), 10, 2)
	b := masteryRow("b", "一次函数", 0.85, daysAgo(1), 10, 9)
	c := masteryRow("c", "因式分解", 0.5, daysAgo(7), 10, 6)

	ra := buildRecommendation(&a, 10, now)
	rb := buildRecommendation(&b, 0, now)
	rc := buildRecommendation(&c, 3, now)

	assert.Greater(t, ra.Priority, rc.Priority)
	assert.Greater(t, rc.Priority, rb.Priority)

	assert.NotEmpty(t, ra.Reason)
	assert.Greater(t, ra.EstimatedTimeMinutes, rb.EstimatedTimeMinutes)
}

func TestEstimateReviewMinutes(t *testing.T) {
	// 10 + round(0.8*20) + min(10*2,20) = 10+16+20 = 46
	assert.Equal(t, 46, estimateReviewMinutes(0.2, 10))
	// 错题补时封顶20分钟
	assert.Equal(t, 46, estimateReviewMinutes(0.2, 100))
	// 10 + round(0.15*20) + 0 = 13
	assert.Equal(t, 13, estimateReviewMinutes(0.85, 0))
	// 上限60
	assert.Equal(t, 60, estimateReviewMinutes(-2.0, 100))
}

func TestComposeLearningContext(t *testing.T) {
	rows := []model.KnowledgeMastery{
		masteryRow("w1", "二次函数", 0.2, daysAgo(3), 5, 1),
		masteryRow("w2", "因式分解", 0.35, daysAgo(5), 4, 1),
		masteryRow("l1", "一次函数", 0.5, daysAgo(2), 6, 3),
		masteryRow("l2", "勾股定理", 0.65, daysAgo(1), 8, 5),
		masteryRow("m1", "有理数运算", 0.9, daysAgo(1), 10, 9),
	}
	counts := map[string]int{"w1": 10, "w2": 2, "l1": 1}

	text := ComposeLearningContext(model.SubjectMath, rows, counts, []string{"二次函数", "因式分解"})

	assert.Contains(t, text, "已学习 5 个知识点")
	assert.Contains(t, text, "薄弱 2 个")
	assert.Contains(t, text, "建议方向：")
	assert.Contains(t, text, "近期薄弱链条：")

	// 薄弱列表按关联错题数排序，首行是错题最多的
	lines := strings.Split(text, "\n")
	var firstWeak string
	for _, line := range lines {
		if strings.HasPrefix(line, "1. ") {
			firstWeak = line
			break
		}
	}
	require.NotEmpty(t, firstWeak)
	assert.Contains(t, firstWeak, "二次函数")
	assert.Contains(t, firstWeak, "10 道")
}

func TestComposeLearningContext_BucketCaps(t *testing.T) {
	var rows []model.KnowledgeMastery
	names := []string{"一", "二", "三", "四", "五", "六", "七"}
	for i, n := range names {
		rows = append(rows, masteryRow("w"+n, "薄弱点"+n, 0.1, daysAgo(i+1), 3, 0))
	}

	text := ComposeLearningContext(model.SubjectMath, rows, map[string]int{}, nil)

	assert.Contains(t, text, "已学习 7 个知识点")
	assert.Contains(t, text, "5. ")
	assert.NotContains(t, text, "6. ")
}

func TestBucketOf(t *testing.T) {
	assert.Equal(t, "weak", bucketOf(0.0))
	assert.Equal(t, "weak", bucketOf(0.39))
	assert.Equal(t, "learning", bucketOf(0.4))
	assert.Equal(t, "learning", bucketOf(0.69))
	assert.Equal(t, "mastered", bucketOf(0.7))
	assert.Equal(t, "mastered", bucketOf(1.0))
}

func TestAdviceDirection(t *testing.T) {
	assert.Contains(t, adviceDirection(5, 1, 1), "薄弱")
	assert.Contains(t, adviceDirection(1, 5, 1), "变式")
	assert.Contains(t, adviceDirection(0, 1, 5), "复盘")
}
