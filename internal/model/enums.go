package model

// Subject 学科
type Subject string

const (
	SubjectMath    Subject = "math"
	SubjectChinese Subject = "chinese"
	SubjectEnglish Subject = "english"
	SubjectPhysics Subject = "physics"
)

func (s Subject) Valid() bool {
	switch s {
	case SubjectMath, SubjectChinese, SubjectEnglish, SubjectPhysics:
		return true
	}
	return false
}

// MasteryStatus 错题掌握状态
type MasteryStatus string

const (
	MasteryNotMastered MasteryStatus = "not_mastered"
	MasteryLearning    MasteryStatus = "learning"
	MasteryMastered    MasteryStatus = "mastered"
)

// ErrorType 错题归因类型
type ErrorType string

const (
	ErrConceptMisunderstanding ErrorType = "concept_misunderstanding"
	ErrCalculation             ErrorType = "calculation_error"
	ErrFormulaMisuse           ErrorType = "formula_misuse"
	ErrLogic                   ErrorType = "logic_error"
	ErrKnowledgeGap            ErrorType = "knowledge_gap"
	ErrMethodConfusion         ErrorType = "method_confusion"
	ErrOther                   ErrorType = "other"
)

// ActivityType 学习轨迹活动类型
type ActivityType string

const (
	ActivityMistakeCreation ActivityType = "mistake_creation"
	ActivityReview          ActivityType = "review"
	ActivityManualUpdate    ActivityType = "manual_update"
)

// ReviewResult 单次复习结果
type ReviewResult string

const (
	ResultCorrect   ReviewResult = "correct"
	ResultIncorrect ReviewResult = "incorrect"
	ResultPartial   ReviewResult = "partial"
	ResultNA        ReviewResult = "n/a"
)

// SessionStatus 复习会话状态
type SessionStatus string

const (
	SessionInProgress       SessionStatus = "in_progress"
	SessionCompletedSuccess SessionStatus = "completed_success"
	SessionCompletedFail    SessionStatus = "completed_fail"
)

// PeriodType 知识图谱快照周期类型
type PeriodType string

const (
	PeriodDaily  PeriodType = "daily"
	PeriodWeekly PeriodType = "weekly"
	PeriodManual PeriodType = "manual"
	PeriodTest   PeriodType = "test"
)
