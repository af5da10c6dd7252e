package model

import "time"

type ResourceType string

const (
	ResourcePDF     ResourceType = "PDF"
	ResourceWeb     ResourceType = "WEB"
	ResourceVideo   ResourceType = "VIDEO"
	ResourceUnknown ResourceType = "UNKNOWN"
)

// StudyResource 学生收藏的学习资料，按 URI 去重
type StudyResource struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	URI       string       `json:"uri"`
	Source    string       `json:"source,omitempty"`
	Type      ResourceType `json:"type,omitempty"`
	DateSaved time.Time    `json:"dateSaved"`
}
