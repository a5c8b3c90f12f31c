package model

import "time"

// KnowledgePointLearningTrack 知识点学习轨迹，只追加不修改
type KnowledgePointLearningTrack struct {
	ID               string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string       `gorm:"type:varchar(36);not null;index:idx_track_user_kp,priority:1" json:"userId"`
	KnowledgePointID string       `gorm:"type:varchar(36);not null;index:idx_track_user_kp,priority:2" json:"knowledgePointId"`
	MistakeID        string       `gorm:"type:varchar(36)" json:"mistakeId,omitempty"`
	ActivityType     ActivityType `gorm:"type:varchar(30);not null" json:"activityType"`
	Result           ReviewResult `gorm:"type:varchar(12);default:'n/a'" json:"result"`

	MasteryBefore   *float64 `gorm:"type:double" json:"masteryBefore,omitempty"`
	MasteryAfter    *float64 `gorm:"type:double" json:"masteryAfter,omitempty"`
	ConfidenceLevel *float64 `gorm:"type:double" json:"confidenceLevel,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_track_user_kp,priority:3,sort:desc" json:"createdAt"`
}

func (KnowledgePointLearningTrack) TableName() string {
	return "knowledge_point_learning_tracks"
}
