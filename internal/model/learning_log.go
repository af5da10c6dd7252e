package model

import "time"

// AIDecisionLog 记录导师回复及其教学推理，供教师端审阅
type AIDecisionLog struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"studentId"`
	StudentInput string    `json:"studentInput"`
	AIOutput     string    `json:"aiOutput"`
	Reasoning    string    `json:"reasoning"`
	Timestamp    time.Time `json:"timestamp"`
}
