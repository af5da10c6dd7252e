package model

import "time"

type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Topic         string   `json:"topic"`
	ModuleID      string   `json:"moduleId"`
}

func (q QuizQuestion) Clone() QuizQuestion {
	q.Options = cloneSlice(q.Options, nil)
	return q
}

type QuizAttempt struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	ModuleID string    `json:"moduleId"`
	Score    int       `json:"score"`
	MaxScore int       `json:"maxScore"`
}
