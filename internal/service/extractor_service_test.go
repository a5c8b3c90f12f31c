package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ai_tutor_backend/internal/knowledge"
	"ai_tutor_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAIClient 测试替身，按字段配置各能力的返回
type fakeAIClient struct {
	chatReply     string
	chatErr       error
	judgeResult   *JudgeResult
	judgeErr      error
	variant       *GeneratedQuestion
	variantErr    error
	consolidation *GeneratedQuestion
	consolidErr   error
	extractNames  []string
	extractErr    error
}

func (f *fakeAIClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.chatReply, f.chatErr
}

func (f *fakeAIClient) JudgeAnswer(ctx context.Context, question, standardAnswer, userAnswer string) (*JudgeResult, error) {
	return f.judgeResult, f.judgeErr
}

func (f *fakeAIClient) GenerateVariant(ctx context.Context, originalText string, knowledgePoints []string) (*GeneratedQuestion, error) {
	return f.variant, f.variantErr
}

func (f *fakeAIClient) GenerateConsolidation(ctx context.Context, knowledgePoints []string) (*GeneratedQuestion, error) {
	return f.consolidation, f.consolidErr
}

func (f *fakeAIClient) ExtractKnowledgePoints(ctx context.Context, subject, text string) ([]string, error) {
	return f.extractNames, f.extractErr
}

func TestExtractFromText_RuleOnly(t *testing.T) {
	s := NewExtractorService(knowledge.NewDictionary(), nil)

	kps := s.ExtractFromText(context.Background(), "求二次函数 y=x²-4x+3 的顶点", model.SubjectMath, "")

	require.NotEmpty(t, kps)
	assert.Equal(t, "二次函数", kps[0].Name)
	assert.Equal(t, "rule", kps[0].Method)
	assert.InDelta(t, 0.9, kps[0].Confidence, 1e-9)
}

// 规则按触发词命中时，置信度是命中比例且封顶0.85
func TestExtractFromText_KeywordConfidenceCap(t *testing.T) {
	s := NewExtractorService(knowledge.NewDictionary(), nil)

	// 不含规范名"二次函数"，但命中其全部触发词
	kps := s.ExtractFromText(context.Background(),
		"抛物线的顶点在对称轴上，开口方向决定最值", model.SubjectMath, "")

	require.NotEmpty(t, kps)
	var hit *ExtractedKP
	for i := range kps {
		if kps[i].Name == "二次函数" {
			hit = &kps[i]
		}
	}
	require.NotNil(t, hit)
	assert.LessOrEqual(t, hit.Confidence, 0.85)
	assert.NotEmpty(t, hit.MatchedKeywords)
}

func TestExtractFromText_HybridBoost(t *testing.T) {
	ai := &fakeAIClient{extractNames: []string{"二次函数"}}
	s := NewExtractorService(knowledge.NewDictionary(), ai)

	kps := s.ExtractFromText(context.Background(), "二次函数的图像", model.SubjectMath, "")

	require.NotEmpty(t, kps)
	assert.Equal(t, "二次函数", kps[0].Name)
	assert.Equal(t, "hybrid", kps[0].Method)
	assert.InDelta(t, 1.0, kps[0].Confidence, 1e-9) // min(0.9+0.1, 1.0)
}

func TestExtractFromText_AIOnlyNormalized(t *testing.T) {
	ai := &fakeAIClient{extractNames: []string{"二次函数的顶点坐标", "平仄格律"}}
	s := NewExtractorService(knowledge.NewDictionary(), ai)

	kps := s.ExtractFromText(context.Background(), "这道题不含词典触发词", model.SubjectMath, "")

	require.Len(t, kps, 2)
	// AI结果归一到规范名，词典外的原样保留
	names := []string{kps[0].Name, kps[1].Name}
	assert.Contains(t, names, "二次函数")
	assert.Contains(t, names, "平仄格律")
	for _, kp := range kps {
		assert.Equal(t, "ai", kp.Method)
		assert.InDelta(t, 0.8, kp.Confidence, 1e-9)
	}
}

func TestExtractFromText_AIFailureDegrades(t *testing.T) {
	ai := &fakeAIClient{extractErr: errors.New("upstream down")}
	s := NewExtractorService(knowledge.NewDictionary(), ai)

	kps := s.ExtractFromText(context.Background(), "一元二次方程 x²-4x+3=0", model.SubjectMath, "")

	require.NotEmpty(t, kps)
	for _, kp := range kps {
		assert.Equal(t, "rule", kp.Method)
	}
}

func TestExtractFromText_BlacklistFiltered(t *testing.T) {
	ai := &fakeAIClient{extractNames: []string{"知识点", "示例", "placeholder", "勾股定理"}}
	s := NewExtractorService(knowledge.NewDictionary(), ai)

	kps := s.ExtractFromText(context.Background(), "无触发词文本", model.SubjectMath, "")

	require.Len(t, kps, 1)
	assert.Equal(t, "勾股定理", kps[0].Name)
}

func TestExtractFromText_SortedAndCapped(t *testing.T) {
	names := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		names = append(names, fmt.Sprintf("自造知识点%02d", i))
	}
	ai := &fakeAIClient{extractNames: names}
	s := NewExtractorService(knowledge.NewDictionary(), ai)

	// 文本同时触发若干规则命中，与15个AI结果合并后应截断到10
	kps := s.ExtractFromText(context.Background(), "二次函数与一元二次方程", model.SubjectMath, "")

	assert.LessOrEqual(t, len(kps), 10)
	for i := 1; i < len(kps); i++ {
		assert.GreaterOrEqual(t, kps[i-1].Confidence, kps[i].Confidence)
	}
}

func TestExtractFromText_EmptyText(t *testing.T) {
	ai := &fakeAIClient{extractNames: []string{"二次函数"}}
	s := NewExtractorService(knowledge.NewDictionary(), ai)

	// 空白文本不走AI通道
	kps := s.ExtractFromText(context.Background(), "   ", model.SubjectMath, "")
	assert.Empty(t, kps)
}
