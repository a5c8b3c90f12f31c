package model

import "time"

// KnowledgeMastery 用户对单个知识点的掌握度记录
// 每个 (user_id, subject, knowledge_point) 一行，懒创建，永不删除
type KnowledgeMastery struct {
	UUIDBase
	UserID             string  `gorm:"type:varchar(36);not null;index:idx_mastery_user_subject,priority:1;uniqueIndex:idx_mastery_identity,priority:1" json:"userId"`
	Subject            Subject `gorm:"type:varchar(20);not null;index:idx_mastery_user_subject,priority:2;uniqueIndex:idx_mastery_identity,priority:2" json:"subject"`
	KnowledgePoint     string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_mastery_identity,priority:3" json:"knowledgePoint"`
	KnowledgePointCode string  `gorm:"type:varchar(100)" json:"knowledgePointCode,omitempty"`

	MasteryLevel    float64 `gorm:"type:double;default:0" json:"masteryLevel"`    // [0,1]，每次写入前钳制
	ConfidenceLevel float64 `gorm:"type:double;default:0" json:"confidenceLevel"` // 用户自评 1..5 / 5

	TotalAttempts int `gorm:"default:0" json:"totalAttempts"`
	CorrectCount  int `gorm:"default:0" json:"correctCount"`
	// 遗留字段，权威口径为关联表实时统计
	MistakeCount int `gorm:"default:0" json:"mistakeCount"`

	LastPracticedAt *time.Time `json:"lastPracticedAt,omitempty"`
	FirstMasteredAt *time.Time `json:"firstMasteredAt,omitempty"` // 首次 mastery >= 0.8 时写入
}

func (KnowledgeMastery) TableName() string {
	return "knowledge_mastery"
}

// Clamp 将掌握度与置信度钳制到 [0,1]
func (m *KnowledgeMastery) Clamp() {
	m.MasteryLevel = clamp01(m.MasteryLevel)
	m.ConfidenceLevel = clamp01(m.ConfidenceLevel)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
