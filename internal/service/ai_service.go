package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai_tutor_backend/internal/config"
	"ai_tutor_backend/internal/util"
	"ai_tutor_backend/pkg/logger"
	"ai_tutor_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// JudgeResult AI判题结果
type JudgeResult struct {
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
	Score     int    `json:"score"` // 0..100
}

// GeneratedQuestion AI生成的题目（变式题或综合题）
type GeneratedQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"` // ai / fallback
}

// AIClient 复习引擎与抽取器依赖的AI能力，测试时可替换
type AIClient interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	JudgeAnswer(ctx context.Context, question, standardAnswer, userAnswer string) (*JudgeResult, error)
	GenerateVariant(ctx context.Context, originalText string, knowledgePoints []string) (*GeneratedQuestion, error)
	GenerateConsolidation(ctx context.Context, knowledgePoints []string) (*GeneratedQuestion, error)
	ExtractKnowledgePoints(ctx context.Context, subject, text string) ([]string, error)
}

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat 单轮对话。网络错误与5xx按 min(2^attempt, max)秒退避重试
func (s *AIService) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []AIChatMessage{}
	if systemPrompt != "" {
		messages = append(messages, AIChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, AIChatMessage{Role: "user", Content: userPrompt})

	reqBody := ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		content, retryable, err := s.doChat(ctx, jsonData)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		logger.Log.Warn("AI请求失败，准备重试",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return "", fmt.Errorf("%w: %v", util.ErrUpstreamUnavailable, lastErr)
}

func (s *AIService) doChat(ctx context.Context, jsonData []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", false, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
		return "", resp.StatusCode >= 500, err
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", false, err
	}

	if len(result.Choices) == 0 {
		return "", false, fmt.Errorf("AI returned no choices")
	}

	return result.Choices[0].Message.Content, false, nil
}

func (s *AIService) backoff(ctx context.Context, attempt int) error {
	secs := 1 << attempt
	if secs > s.config.MaxBackoffSecs {
		secs = s.config.MaxBackoffSecs
	}
	select {
	case <-time.After(time.Duration(secs) * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JudgeAnswer 让AI判定学生答案是否正确
func (s *AIService) JudgeAnswer(ctx context.Context, question, standardAnswer, userAnswer string) (*JudgeResult, error) {
	system := "你是一位严谨的K12判题老师。根据题目和标准答案判断学生答案是否正确，" +
		"允许等价表述（如 (2,-1) 与 顶点为(2,-1)）。" +
		`只返回JSON，格式：{"is_correct": true/false, "feedback": "简短点评", "score": 0到100的整数}`

	user := fmt.Sprintf("题目：%s\n标准答案：%s\n学生答案：%s", question, standardAnswer, userAnswer)

	content, err := s.Chat(ctx, system, user)
	if err != nil {
		monitoring.LLMRequests.WithLabelValues("judge", "error").Inc()
		return nil, err
	}

	var result JudgeResult
	if err := DecodeLooseJSON(content, &result); err != nil {
		monitoring.LLMRequests.WithLabelValues("judge", "error").Inc()
		return nil, fmt.Errorf("judge reply not parseable: %w", err)
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}

	monitoring.LLMRequests.WithLabelValues("judge", "ok").Inc()
	return &result, nil
}

// GenerateVariant 生成与原题知识点一致、表面细节不同的变式题
func (s *AIService) GenerateVariant(ctx context.Context, originalText string, knowledgePoints []string) (*GeneratedQuestion, error) {
	system := "你是一位K12出题老师。根据原题出一道考查相同知识点、难度相当、但数字和情境都不同的新题。" +
		`只返回JSON，格式：{"question": "题目内容", "answer": "标准答案"}`

	user := fmt.Sprintf("原题：%s\n涉及知识点：%s", originalText, strings.Join(knowledgePoints, "、"))

	content, err := s.Chat(ctx, system, user)
	if err != nil {
		monitoring.LLMRequests.WithLabelValues("generate", "error").Inc()
		return nil, err
	}

	var q GeneratedQuestion
	if err := DecodeLooseJSON(content, &q); err != nil {
		monitoring.LLMRequests.WithLabelValues("generate", "error").Inc()
		return nil, fmt.Errorf("variant reply not parseable: %w", err)
	}
	if strings.TrimSpace(q.Question) == "" {
		monitoring.LLMRequests.WithLabelValues("generate", "error").Inc()
		return nil, fmt.Errorf("variant reply has empty question")
	}

	q.Source = "ai"
	monitoring.LLMRequests.WithLabelValues("generate", "ok").Inc()
	return &q, nil
}

// GenerateConsolidation 生成覆盖全部知识点的综合巩固题
func (s *AIService) GenerateConsolidation(ctx context.Context, knowledgePoints []string) (*GeneratedQuestion, error) {
	system := "你是一位K12出题老师。出一道综合题，同时考查给定的多个知识点。" +
		`只返回JSON，格式：{"question": "题目内容", "answer": "标准答案"}`

	user := fmt.Sprintf("知识点：%s", strings.Join(knowledgePoints, "、"))

	content, err := s.Chat(ctx, system, user)
	if err != nil {
		monitoring.LLMRequests.WithLabelValues("generate", "error").Inc()
		return nil, err
	}

	var q GeneratedQuestion
	if err := DecodeLooseJSON(content, &q); err != nil {
		monitoring.LLMRequests.WithLabelValues("generate", "error").Inc()
		return nil, fmt.Errorf("consolidation reply not parseable: %w", err)
	}
	if strings.TrimSpace(q.Question) == "" {
		monitoring.LLMRequests.WithLabelValues("generate", "error").Inc()
		return nil, fmt.Errorf("consolidation reply has empty question")
	}

	q.Source = "ai"
	monitoring.LLMRequests.WithLabelValues("generate", "ok").Inc()
	return &q, nil
}

// ExtractKnowledgePoints 从文本抽取知识点名，逐行解析
func (s *AIService) ExtractKnowledgePoints(ctx context.Context, subject, text string) ([]string, error) {
	system := fmt.Sprintf("你是一位%s学科老师。从学生的题目或错题文本中提取最多5个知识点，"+
		"每行一个知识点名称，不要编号、不要解释、不要其他文字。", subjectDisplayName(subject))

	content, err := s.Chat(ctx, system, text)
	if err != nil {
		monitoring.LLMRequests.WithLabelValues("extract", "error").Inc()
		return nil, err
	}

	names := ParseLineList(content, 5)
	monitoring.LLMRequests.WithLabelValues("extract", "ok").Inc()
	return names, nil
}

func subjectDisplayName(subject string) string {
	switch subject {
	case "math":
		return "数学"
	case "chinese":
		return "语文"
	case "english":
		return "英语"
	case "physics":
		return "物理"
	}
	return subject
}

// DecodeLooseJSON 容错解析AI输出：截取第一个完整的 {...} 再严格解码
// AI是不可信的协作者，前后缀的解释文字、markdown围栏都要容忍
func DecodeLooseJSON(raw string, out interface{}) error {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	if start < 0 {
		return fmt.Errorf("no JSON object in reply")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return json.Unmarshal([]byte(raw[start:i+1]), out)
				}
			}
		}
	}

	return fmt.Errorf("unbalanced JSON object in reply")
}

// ParseLineList 逐行解析AI列表输出，去掉序号与列表符
func ParseLineList(raw string, max int) []string {
	var names []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•·0123456789.、) ")
		line = strings.Trim(line, "`")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
		if len(names) >= max {
			break
		}
	}
	return names
}
