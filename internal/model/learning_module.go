package model

type ModuleStatus string

const (
	ModuleLocked     ModuleStatus = "LOCKED"
	ModuleInProgress ModuleStatus = "IN_PROGRESS"
	ModuleCompleted  ModuleStatus = "COMPLETED"
)

// Rank 状态只允许向前推进：LOCKED < IN_PROGRESS < COMPLETED
func (s ModuleStatus) Rank() int {
	switch s {
	case ModuleLocked:
		return 0
	case ModuleInProgress:
		return 1
	case ModuleCompleted:
		return 2
	}
	return -1
}

const (
	MinMastery        = 0
	MaxMastery        = 100
	CompletionMastery = 90
)

// ModuleStats 学生在某个课程模块上的掌握度、用时（分钟）与状态
type ModuleStats struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Mastery   int          `json:"mastery"`
	TimeSpent int          `json:"timeSpent"`
	Status    ModuleStatus `json:"status"`
}

func ClampMastery(v int) int {
	if v < MinMastery {
		return MinMastery
	}
	if v > MaxMastery {
		return MaxMastery
	}
	return v
}
