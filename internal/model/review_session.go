package model

// ReviewSession 三段式复习会话
// 阶段1 原题 -> 阶段2 AI变式题 -> 阶段3 知识点综合题
// 终态（completed_success / completed_fail）之后禁止任何写入
type ReviewSession struct {
	UUIDBase
	UserID    string `gorm:"type:varchar(36);not null;index" json:"userId"`
	MistakeID string `gorm:"type:varchar(36);not null;index" json:"mistakeId"`

	CurrentStage int           `gorm:"default:1" json:"currentStage"` // 1..3
	Status       SessionStatus `gorm:"type:varchar(24);default:'in_progress'" json:"status"`
	Attempts     int           `gorm:"default:0" json:"attempts"`

	// 当前阶段展示的题目与标准答案（阶段2/3为AI生成，落库以保证重启与并发重读一致）
	StageQuestion string `gorm:"type:text" json:"stageQuestion,omitempty"`
	StageAnswer   string `gorm:"type:text" json:"stageAnswer,omitempty"`
	StageSource   string `gorm:"type:varchar(20);default:'original'" json:"stageSource"` // original / ai / fallback
}

func (ReviewSession) TableName() string {
	return "review_sessions"
}

func (s *ReviewSession) Closed() bool {
	return s.Status != SessionInProgress
}

// StageName 阶段展示名
func StageName(stage int) string {
	switch stage {
	case 1:
		return "原题重做"
	case 2:
		return "变式训练"
	case 3:
		return "知识点巩固"
	}
	return "未知阶段"
}
