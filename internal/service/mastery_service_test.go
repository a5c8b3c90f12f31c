package service

import (
	"testing"

	"ai_tutor_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMasteryAfter(t *testing.T) {
	tests := []struct {
		name       string
		before     float64
		result     model.ReviewResult
		confidence int
		attempts   int
		want       float64
	}{
		{
			name:       "满置信答对无历史",
			before:     0.5,
			result:     model.ResultCorrect,
			confidence: 5,
			attempts:   0,
			want:       0.6, // +0.10 * (5/5) * 1.0
		},
		{
			name:       "低置信答对",
			before:     0.5,
			result:     model.ResultCorrect,
			confidence: 1,
			attempts:   0,
			want:       0.52, // +0.10 * (1/5)
		},
		{
			name:       "答错固定扣分",
			before:     0.5,
			result:     model.ResultIncorrect,
			confidence: 3,
			attempts:   0,
			want:       0.35,
		},
		{
			name:       "部分正确小幅加分",
			before:     0.5,
			result:     model.ResultPartial,
			confidence: 3,
			attempts:   0,
			want:       0.55,
		},
		{
			name:       "不计入结果不动",
			before:     0.5,
			result:     model.ResultNA,
			confidence: 3,
			attempts:   0,
			want:       0.5,
		},
		{
			name:       "尝试次数衰减增量",
			before:     0.5,
			result:     model.ResultCorrect,
			confidence: 5,
			attempts:   10, // factor = 1/(1+1.0) = 0.5
			want:       0.55,
		},
		{
			name:       "下限钳制到0",
			before:     0.05,
			result:     model.ResultIncorrect,
			confidence: 3,
			attempts:   0,
			want:       0.0,
		},
		{
			name:       "上限钳制到1",
			before:     0.98,
			result:     model.ResultCorrect,
			confidence: 5,
			attempts:   0,
			want:       1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMasteryAfter(tt.before, tt.result, tt.confidence, tt.attempts)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// 反复满置信答对：掌握度单调不减且不超过1
func TestCalculateMasteryAfter_MonotonicBounded(t *testing.T) {
	level := 0.0
	for attempts := 0; attempts < 200; attempts++ {
		next := CalculateMasteryAfter(level, model.ResultCorrect, 5, attempts)
		assert.GreaterOrEqual(t, next, level)
		assert.LessOrEqual(t, next, 1.0)
		level = next
	}
	assert.Greater(t, level, 0.9)
}

// 纯函数：同参同果
func TestCalculateMasteryAfter_Pure(t *testing.T) {
	a := CalculateMasteryAfter(0.37, model.ResultCorrect, 4, 7)
	b := CalculateMasteryAfter(0.37, model.ResultCorrect, 4, 7)
	assert.Equal(t, a, b)
}
