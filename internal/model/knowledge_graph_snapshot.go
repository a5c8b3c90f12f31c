package model

import "time"

// UserKnowledgeGraphSnapshot 用户知识图谱快照，插入后不可变
// 同一天允许多份，读取方按 snapshot_date DESC 取最新
type UserKnowledgeGraphSnapshot struct {
	UUIDBase
	UserID       string     `gorm:"type:varchar(36);not null;index:idx_snapshot_user_subject,priority:1" json:"userId"`
	Subject      Subject    `gorm:"type:varchar(20);not null;index:idx_snapshot_user_subject,priority:2" json:"subject"`
	SnapshotDate time.Time  `gorm:"not null;index" json:"snapshotDate"`
	PeriodType   PeriodType `gorm:"type:varchar(12);default:'daily'" json:"periodType"`

	// JSON 列，schema 随版本演进，读取方容忍多余与缺省键
	KnowledgePoints string `gorm:"type:json" json:"-"` // 节点数组
	WeakChains      string `gorm:"type:json" json:"-"`
	StrongAreas     string `gorm:"type:json" json:"-"`
	GraphData       string `gorm:"type:json" json:"-"` // {nodes, edges}

	TotalMistakes    int      `gorm:"default:0" json:"totalMistakes"`
	AverageMastery   float64  `gorm:"type:double;default:0" json:"averageMastery"`
	ImprovementTrend *float64 `gorm:"type:double" json:"improvementTrend,omitempty"`
}

func (UserKnowledgeGraphSnapshot) TableName() string {
	return "user_knowledge_graph_snapshots"
}
