package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ai_tutor_backend/internal/config"
	"ai_tutor_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLooseJSON(t *testing.T) {
	type payload struct {
		IsCorrect bool   `json:"is_correct"`
		Feedback  string `json:"feedback"`
	}

	tests := []struct {
		name    string
		raw     string
		want    payload
		wantErr bool
	}{
		{
			name: "纯JSON",
			raw:  `{"is_correct": true, "feedback": "很好"}`,
			want: payload{IsCorrect: true, Feedback: "很好"},
		},
		{
			name: "markdown围栏",
			raw:  "```json\n{\"is_correct\": true, \"feedback\": \"ok\"}\n```",
			want: payload{IsCorrect: true, Feedback: "ok"},
		},
		{
			name: "前后缀解释文字",
			raw:  `根据判断，结果如下：{"is_correct": false, "feedback": "答案错误"} 希望有帮助`,
			want: payload{IsCorrect: false, Feedback: "答案错误"},
		},
		{
			name: "字符串值里带大括号",
			raw:  `{"is_correct": true, "feedback": "集合{1,2}正确"}`,
			want: payload{IsCorrect: true, Feedback: "集合{1,2}正确"},
		},
		{
			name: "字符串值里带转义引号",
			raw:  `{"is_correct": true, "feedback": "他说\"对\""}`,
			want: payload{IsCorrect: true, Feedback: `他说"对"`},
		},
		{
			name:    "没有JSON对象",
			raw:     "这道题答对了",
			wantErr: true,
		},
		{
			name:    "大括号不闭合",
			raw:     `{"is_correct": true, "feedback": "...`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := DecodeLooseJSON(tt.raw, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineList(t *testing.T) {
	raw := "1. 二次函数\n2、一元二次方程\n- 函数图像\n* 因式分解\n\n`勾股定理`\n多余的第六项"

	names := ParseLineList(raw, 5)

	assert.Equal(t, []string{"二次函数", "一元二次方程", "函数图像", "因式分解", "勾股定理"}, names)
}

func chatReply(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestAIService(baseURL string, maxRetries int) *AIService {
	return NewAIService(config.AIConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "test-model",
		Timeout:        5 * time.Second,
		MaxRetries:     maxRetries,
		MaxBackoffSecs: 1,
	})
}

func TestAIService_JudgeAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(chatReply(`{"is_correct": true, "feedback": "完全正确", "score": 95}`)))
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 3)
	result, err := s.JudgeAnswer(context.Background(), "求顶点", "(2,-1)", "顶点是(2,-1)")

	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, "完全正确", result.Feedback)
	assert.Equal(t, 95, result.Score)
}

func TestAIService_JudgeAnswer_ScoreClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"is_correct": true, "feedback": "ok", "score": 150}`)))
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 3)
	result, err := s.JudgeAnswer(context.Background(), "q", "a", "a")

	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
}

func TestAIService_RetryOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chatReply("第二次成功")))
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 3)
	content, err := s.Chat(context.Background(), "", "hi")

	require.NoError(t, err)
	assert.Equal(t, "第二次成功", content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAIService_NoRetryOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 3)
	_, err := s.Chat(context.Background(), "", "hi")

	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAIService_ExhaustedRetriesWrapsUpstreamError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 2)
	_, err := s.Chat(context.Background(), "", "hi")

	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAIService_ContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	s := newTestAIService(srv.URL, 3)
	_, err := s.Chat(ctx, "", "hi")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAIService_GenerateVariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"question": "求 y=2x²-8x+6 的顶点", "answer": "(2,-2)"}`)))
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 3)
	q, err := s.GenerateVariant(context.Background(), "求 y=x²-4x+3 的顶点", []string{"二次函数"})

	require.NoError(t, err)
	assert.Equal(t, "求 y=2x²-8x+6 的顶点", q.Question)
	assert.Equal(t, "(2,-2)", q.Answer)
	assert.Equal(t, "ai", q.Source)
}

func TestAIService_GenerateVariant_EmptyQuestionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"question": "", "answer": "x"}`)))
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 3)
	_, err := s.GenerateVariant(context.Background(), "原题", nil)

	assert.Error(t, err)
}

func TestAIService_ExtractKnowledgePoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("1. 二次函数\n2. 一元二次方程")))
	}))
	defer srv.Close()

	s := newTestAIService(srv.URL, 3)
	names, err := s.ExtractKnowledgePoints(context.Background(), "math", "求二次函数顶点")

	require.NoError(t, err)
	assert.Equal(t, []string{"二次函数", "一元二次方程"}, names)
}
