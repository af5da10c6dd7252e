package model

import "time"

type TranscriptItem struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

type CodeSnippet struct {
	Language  string    `json:"language"`
	Code      string    `json:"code"`
	Filename  string    `json:"filename,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type LiveSession struct {
	ID           string           `json:"id"`
	StartTime    time.Time        `json:"startTime"`
	EndTime      time.Time        `json:"endTime"`
	Transcript   []TranscriptItem `json:"transcript"`
	CodeSnippets []CodeSnippet    `json:"codeSnippets,omitempty"`
}

func (l LiveSession) Clone() LiveSession {
	l.Transcript = cloneSlice(l.Transcript, nil)
	l.CodeSnippets = cloneSlice(l.CodeSnippets, nil)
	return l
}
