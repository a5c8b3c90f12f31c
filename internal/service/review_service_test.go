package service

import (
	"testing"

	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/util"

	"github.com/stretchr/testify/assert"
)

func TestExtractQuestionContent(t *testing.T) {
	tests := []struct {
		name        string
		mistake     model.MistakeRecord
		wantContent string
		wantFromOCR bool
	}{
		{
			name:        "OCR原文优先",
			mistake:     model.MistakeRecord{OCRText: "求二次函数的顶点", Title: "IMG_001.jpg"},
			wantContent: "求二次函数的顶点",
			wantFromOCR: true,
		},
		{
			name:        "AI分析里的question字段",
			mistake:     model.MistakeRecord{AIFeedback: `{"question": "解方程 x²=4"}`},
			wantContent: "解方程 x²=4",
		},
		{
			name:        "AI分析里的中文题目键",
			mistake:     model.MistakeRecord{AIFeedback: `{"题目": "翻译这句文言文"}`},
			wantContent: "翻译这句文言文",
		},
		{
			name:        "explanation兜底",
			mistake:     model.MistakeRecord{AIFeedback: `{"explanation": "这道题考查因式分解"}`},
			wantContent: "这道题考查因式分解",
		},
		{
			name:        "标题去扩展名",
			mistake:     model.MistakeRecord{Title: "第三章练习题.jpg"},
			wantContent: "第三章练习题",
		},
		{
			name:        "全空走图片提示",
			mistake:     model.MistakeRecord{Title: "未命名.png", ImageURLs: `["a.png"]`},
			wantContent: "请结合下方图片完成本题复习",
		},
		{
			name:        "AI分析不是合法JSON时跳过",
			mistake:     model.MistakeRecord{AIFeedback: "not json", Title: "练习"},
			wantContent: "练习",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, fromOCR := ExtractQuestionContent(&tt.mistake)
			assert.Equal(t, tt.wantContent, content)
			assert.Equal(t, tt.wantFromOCR, fromOCR)
		})
	}
}

func TestExtractQuestionContent_ExplanationTruncated(t *testing.T) {
	long := make([]rune, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, '析')
	}
	m := model.MistakeRecord{AIFeedback: `{"explanation": "` + string(long) + `"}`}

	content, fromOCR := ExtractQuestionContent(&m)

	assert.False(t, fromOCR)
	assert.LessOrEqual(t, len([]rune(content)), 203) // 200字 + "..."
	assert.Contains(t, content, "...")
}

func TestFallbackJudge(t *testing.T) {
	tests := []struct {
		name        string
		standard    string
		user        string
		wantCorrect bool
		wantScore   int
	}{
		{name: "全等", standard: "(2,-1)", user: "(2,-1)", wantCorrect: true, wantScore: 100},
		{name: "首尾空格忽略", standard: "(2,-1)", user: "  (2,-1)  ", wantCorrect: true, wantScore: 100},
		{name: "大小写敏感", standard: "Apple", user: "apple", wantCorrect: false, wantScore: 0},
		{name: "等价表述不认", standard: "(2,-1)", user: "顶点为(2,-1)", wantCorrect: false, wantScore: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FallbackJudge(tt.standard, tt.user)
			assert.Equal(t, tt.wantCorrect, result.IsCorrect)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, "AI judge unavailable", result.Feedback)
		})
	}
}

func TestStageName(t *testing.T) {
	assert.Equal(t, "原题重做", model.StageName(1))
	assert.Equal(t, "变式训练", model.StageName(2))
	assert.Equal(t, "知识点巩固", model.StageName(3))
}

func TestNextReviewIntervalDays(t *testing.T) {
	assert.Equal(t, 1, nextReviewIntervalDays(0))
	assert.Equal(t, 1, nextReviewIntervalDays(1))
	assert.Equal(t, 2, nextReviewIntervalDays(2))
	assert.Equal(t, 4, nextReviewIntervalDays(3))
	assert.Equal(t, 7, nextReviewIntervalDays(4))
	assert.Equal(t, 15, nextReviewIntervalDays(5))
	assert.Equal(t, 30, nextReviewIntervalDays(6))
	// 超出间隔表保持最长间隔
	assert.Equal(t, 30, nextReviewIntervalDays(42))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "第三章练习", cleanTitle("第三章练习.jpg"))
	assert.Equal(t, "homework", cleanTitle("homework.PNG"))
	assert.Equal(t, "", cleanTitle("untitled.jpg"))
	assert.Equal(t, "", cleanTitle("未命名"))
	assert.Equal(t, "", cleanTitle("   "))
}

func TestDecodeStringArray(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, decodeStringArray(`["a","b"]`))
	assert.Nil(t, decodeStringArray(""))
	assert.Nil(t, decodeStringArray("not json"))
}

func TestGuardSessionWrite(t *testing.T) {
	tests := []struct {
		name          string
		session       model.ReviewSession
		expectedStage int
		wantClosed    bool
	}{
		{
			name:          "进行中且阶段匹配",
			session:       model.ReviewSession{Status: model.SessionInProgress, CurrentStage: 1},
			expectedStage: 1,
		},
		{
			name:       "进行中仅关闭不校验阶段",
			session:    model.ReviewSession{Status: model.SessionInProgress, CurrentStage: 3},
		},
		{
			name:       "成功终态拒绝写入",
			session:    model.ReviewSession{Status: model.SessionCompletedSuccess, CurrentStage: 3},
			wantClosed: true,
		},
		{
			name:       "失败终态拒绝写入",
			session:    model.ReviewSession{Status: model.SessionCompletedFail, CurrentStage: 1},
			wantClosed: true,
		},
		{
			name:          "阶段已被并发请求推进",
			session:       model.ReviewSession{Status: model.SessionInProgress, CurrentStage: 2},
			expectedStage: 1,
			wantClosed:    true,
		},
		{
			name:          "终态且阶段匹配仍拒绝",
			session:       model.ReviewSession{Status: model.SessionCompletedSuccess, CurrentStage: 2},
			expectedStage: 2,
			wantClosed:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guardSessionWrite(&tt.session, tt.expectedStage)
			if tt.wantClosed {
				assert.ErrorIs(t, err, util.ErrSessionClosed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildSkipReply(t *testing.T) {
	session := &model.ReviewSession{
		Status:      model.SessionInProgress,
		StageAnswer: "顶点为(2,-1)",
	}
	kps := []string{"二次函数"}

	reply := buildSkipReply(session, kps)

	assert.False(t, reply.Correct)
	assert.True(t, reply.Skip)
	assert.Equal(t, string(model.SessionCompletedFail), reply.Status)
	assert.Equal(t, "顶点为(2,-1)", reply.StandardAnswer)
	assert.Equal(t, "建议重新学习后再复习", reply.Suggestion)
	assert.Equal(t, kps, reply.KnowledgePoints)
}
