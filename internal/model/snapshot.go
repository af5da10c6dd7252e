package model

import "time"

// CurrentSchemaVersion 快照结构版本，结构变更时递增并补充迁移函数
const CurrentSchemaVersion = 1

// Snapshot 整个学习状态的可序列化表示，每次变更后整体写入同一个槽位
type Snapshot struct {
	SchemaVersion int              `json:"schemaVersion"`
	Students      []StudentProfile `json:"students"`
	Teachers      []TeacherProfile `json:"teachers"`
	Logs          []AIDecisionLog  `json:"logs"`
	Messages      []TeacherMessage `json:"messages"`
	QuestionBank  []QuizQuestion   `json:"questionBank"`
}

func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		SchemaVersion: s.SchemaVersion,
		Students:      cloneSlice(s.Students, StudentProfile.Clone),
		Teachers:      cloneSlice(s.Teachers, TeacherProfile.Clone),
		Logs:          cloneSlice(s.Logs, nil),
		Messages:      cloneSlice(s.Messages, nil),
		QuestionBank:  cloneSlice(s.QuestionBank, QuizQuestion.Clone),
	}
}

// Normalize 把 nil 切片补成空切片，保证序列化前后结构一致
func (s *Snapshot) Normalize() {
	s.Students = emptyIfNil(s.Students)
	s.Teachers = emptyIfNil(s.Teachers)
	s.Logs = emptyIfNil(s.Logs)
	s.Messages = emptyIfNil(s.Messages)
	s.QuestionBank = emptyIfNil(s.QuestionBank)
	for i := range s.Students {
		s.Students[i].normalize()
	}
	for i := range s.QuestionBank {
		s.QuestionBank[i].Options = emptyIfNil(s.QuestionBank[i].Options)
	}
}

func (s *Snapshot) Student(id string) *StudentProfile {
	for i := range s.Students {
		if s.Students[i].ID == id {
			return &s.Students[i]
		}
	}
	return nil
}

func (s *Snapshot) Teacher(id string) *TeacherProfile {
	for i := range s.Teachers {
		if s.Teachers[i].ID == id {
			return &s.Teachers[i]
		}
	}
	return nil
}

// StateSlot 数据库后端的键值槽位
type StateSlot struct {
	Key       string    `gorm:"column:slot_key;primaryKey;size:191"`
	Value     string    `gorm:"type:longtext;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (StateSlot) TableName() string {
	return "state_slots"
}
