package model

// MistakeKnowledgePoint 错题与掌握度记录的关联
// 每道错题至多一条 is_primary=true（由写入方保证，首条即主关联）
type MistakeKnowledgePoint struct {
	UUIDBase
	MistakeID        string `gorm:"type:varchar(36);not null;index" json:"mistakeId"`
	KnowledgePointID string `gorm:"type:varchar(36);not null;index" json:"knowledgePointId"` // -> knowledge_mastery.id

	RelevanceScore float64   `gorm:"type:double;default:0" json:"relevanceScore"` // [0,1]
	IsPrimary      bool      `gorm:"default:false" json:"isPrimary"`
	ErrorType      ErrorType `gorm:"type:varchar(40);default:'other'" json:"errorType"`
	ErrorReason    string    `gorm:"type:text" json:"errorReason,omitempty"`

	AIDiagnosis            string `gorm:"column:ai_diagnosis;type:json" json:"-"` // JSON 对象
	ImprovementSuggestions string `gorm:"type:json" json:"-"`                     // JSON 数组

	ReviewCount int  `gorm:"default:0" json:"reviewCount"`
	Mastered    bool `gorm:"default:false" json:"mastered"`

	Mistake MistakeRecord `gorm:"foreignKey:MistakeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (MistakeKnowledgePoint) TableName() string {
	return "mistake_knowledge_points"
}
