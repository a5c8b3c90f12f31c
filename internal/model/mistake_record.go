package model

import "time"

// MistakeRecord 错题记录
// 由上游题目采集流程写入，本核心读取并维护其知识点关联与掌握状态
type MistakeRecord struct {
	UUIDBase
	UserID  string  `gorm:"type:varchar(36);not null;index:idx_mistake_user_review,priority:1" json:"userId"`
	Subject Subject `gorm:"type:varchar(20);not null;index" json:"subject"`

	Title         string `gorm:"type:varchar(500)" json:"title,omitempty"`
	OCRText       string `gorm:"column:ocr_text;type:text" json:"ocrText,omitempty"`
	ImageURLs     string `gorm:"column:image_urls;type:json" json:"-"` // JSON 数组
	CorrectAnswer string `gorm:"type:text" json:"correctAnswer,omitempty"`

	// C4 关联结果的反范式缓存，JSON 数组
	KnowledgePoints string `gorm:"type:json" json:"-"`
	// 上游 AI 分析结果，JSON 对象
	AIFeedback string `gorm:"column:ai_feedback;type:json" json:"-"`

	MasteryStatus MasteryStatus `gorm:"type:varchar(20);default:'not_mastered'" json:"masteryStatus"`
	ReviewCount   int           `gorm:"default:0" json:"reviewCount"`
	NextReviewAt  *time.Time    `gorm:"index:idx_mistake_user_review,priority:2" json:"nextReviewAt,omitempty"`
}

func (MistakeRecord) TableName() string {
	return "mistake_records"
}
