package model

import "time"

type TeacherMessage struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	TeacherName string    `json:"teacherName"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Read        bool      `json:"read"`
}

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// InterventionFlag 由学生当前状态实时推导，不落库
type InterventionFlag struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Reason      string    `json:"reason"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
}
