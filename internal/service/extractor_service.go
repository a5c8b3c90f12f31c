package service

import (
	"context"
	"sort"
	"strings"

	"ai_tutor_backend/internal/knowledge"
	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/pkg/logger"

	"go.uber.org/zap"
)

// ExtractedKP 抽取出的单个知识点
type ExtractedKP struct {
	Name            string   `json:"name"`
	Code            string   `json:"code,omitempty"`
	Confidence      float64  `json:"confidence"` // [0,1]
	Method          string   `json:"method"`     // rule / ai / hybrid
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
	Related         []string `json:"related,omitempty"`
}

// 占位词黑名单，AI偶尔会把提示词里的示例原样吐回来
var placeholderBlacklist = map[string]struct{}{
	"知识点":         {},
	"知识点名称":       {},
	"placeholder": {},
	"example":     {},
	"示例":          {},
}

const maxExtracted = 10

// ExtractorService 规则+AI混合知识点抽取
// 规则通道保证延迟可控、结果可复现；AI通道兜住词典外的新表述
type ExtractorService struct {
	dict *knowledge.Dictionary
	ai   AIClient // 可为nil，纯规则模式（答题链路对时延敏感时走这条路）
}

func NewExtractorService(dict *knowledge.Dictionary, ai AIClient) *ExtractorService {
	return &ExtractorService{dict: dict, ai: ai}
}

// ExtractFromText 从文本抽取知识点，按置信度降序，至多10条
// AI通道失败只降级不报错；规则通道的错误属于程序缺陷，直接上抛
func (s *ExtractorService) ExtractFromText(ctx context.Context, text string, subject model.Subject, grade string) []ExtractedKP {
	merged := make(map[string]*ExtractedKP)

	// 1. 规则通道
	for _, kp := range s.rulePass(text, subject) {
		entry := kp
		merged[entry.Name] = &entry
	}

	// 2. AI通道
	if s.ai != nil && strings.TrimSpace(text) != "" {
		names, err := s.ai.ExtractKnowledgePoints(ctx, string(subject), text)
		if err != nil {
			logger.Log.Warn("AI知识点抽取失败，仅返回规则结果",
				zap.String("subject", string(subject)),
				zap.Error(err))
		} else {
			for _, kp := range s.aiPass(names, subject) {
				if existing, ok := merged[kp.Name]; ok {
					// 双通道命中：升级为hybrid，在规则置信度上加成
					existing.Method = "hybrid"
					existing.Confidence = minFloat(existing.Confidence+0.1, 1.0)
					continue
				}
				entry := kp
				merged[entry.Name] = &entry
			}
		}
	}

	// 3. 黑名单过滤 + 排序截断
	results := make([]ExtractedKP, 0, len(merged))
	for _, kp := range merged {
		if _, banned := placeholderBlacklist[kp.Name]; banned {
			continue
		}
		results = append(results, *kp)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Name < results[j].Name
	})

	if len(results) > maxExtracted {
		results = results[:maxExtracted]
	}
	return results
}

func (s *ExtractorService) rulePass(text string, subject model.Subject) []ExtractedKP {
	var out []ExtractedKP
	for _, entry := range s.dict.All(subject) {
		if strings.Contains(text, entry.Name) {
			out = append(out, ExtractedKP{
				Name:            entry.Name,
				Code:            entry.Code,
				Confidence:      0.9,
				Method:          "rule",
				MatchedKeywords: []string{entry.Name},
				Related:         entry.Related,
			})
			continue
		}

		if len(entry.Keywords) == 0 {
			continue
		}
		var matched []string
		for _, kw := range entry.Keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}

		conf := minFloat(float64(len(matched))/float64(len(entry.Keywords)), 0.85)
		out = append(out, ExtractedKP{
			Name:            entry.Name,
			Code:            entry.Code,
			Confidence:      conf,
			Method:          "rule",
			MatchedKeywords: matched,
			Related:         entry.Related,
		})
	}
	return out
}

func (s *ExtractorService) aiPass(names []string, subject model.Subject) []ExtractedKP {
	var out []ExtractedKP
	seen := make(map[string]struct{})
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		kp := ExtractedKP{Name: name, Confidence: 0.8, Method: "ai"}
		// 尽量归一到词典规范名；查不到也照样输出原始名
		if entry, ok := s.dict.Lookup(subject, name); ok {
			kp.Name = entry.Name
			kp.Code = entry.Code
			kp.Related = entry.Related
		}

		if _, dup := seen[kp.Name]; dup {
			continue
		}
		seen[kp.Name] = struct{}{}
		out = append(out, kp)
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
