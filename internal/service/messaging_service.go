package service

import (
	"context"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"
	"h2ala_backend/pkg/logger"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// 干预阈值
const (
	InterventionMastery = 60
	HighSeverityMastery = 50
)

type MessagingService struct {
	state *LearnerState
	inbox *Inbox
}

func NewMessagingService(state *LearnerState, inbox *Inbox) *MessagingService {
	return &MessagingService{state: state, inbox: inbox}
}

// SendTeacherMessage 教师不存在时以第一位教师的名义发送
func (s *MessagingService) SendTeacherMessage(ctx context.Context, teacherID, studentID, content string) (model.TeacherMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.TeacherMessage{}, fmt.Errorf("%w: content must not be empty", util.ErrInvalidArgument)
	}

	var out model.TeacherMessage
	err := s.state.mutate(ctx, "send_teacher_message", func(snap *model.Snapshot) error {
		if _, err := findStudent(snap, studentID); err != nil {
			return err
		}
		teacher := snap.Teacher(teacherID)
		if teacher == nil {
			if len(snap.Teachers) == 0 {
				return fmt.Errorf("%w: %s", util.ErrTeacherNotFound, teacherID)
			}
			teacher = &snap.Teachers[0]
		}
		out = model.TeacherMessage{
			ID:          model.NewID("tmsg"),
			StudentID:   studentID,
			TeacherName: teacher.Name,
			Content:     content,
			Timestamp:   s.state.Now(),
		}
		snap.Messages = append(snap.Messages, out)
		return nil
	})
	if err != nil {
		return model.TeacherMessage{}, err
	}

	if err := s.inbox.Publish(ctx, out); err != nil {
		logger.Log.Warn("Inbox relay failed", zap.String("studentId", studentID), zap.Error(err))
	}
	return out, nil
}

// StudentMessages 返回某个学生的消息，最新的在前
func (s *MessagingService) StudentMessages(studentID string) ([]model.TeacherMessage, error) {
	var out []model.TeacherMessage
	err := s.state.view(func(snap *model.Snapshot) error {
		if _, err := findStudent(snap, studentID); err != nil {
			return err
		}
		out = []model.TeacherMessage{}
		for i := len(snap.Messages) - 1; i >= 0; i-- {
			if snap.Messages[i].StudentID == studentID {
				out = append(out, snap.Messages[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b model.TeacherMessage) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out, nil
}

func (s *MessagingService) MarkMessageRead(ctx context.Context, studentID, messageID string) error {
	return s.state.mutate(ctx, "mark_message_read", func(snap *model.Snapshot) error {
		for i := range snap.Messages {
			m := &snap.Messages[i]
			if m.ID == messageID && m.StudentID == studentID {
				m.Read = true
				return nil
			}
		}
		return fmt.Errorf("%w: %s", util.ErrMessageNotFound, messageID)
	})
}

// SubscribeInbox 订阅学生的新消息推送
func (s *MessagingService) SubscribeInbox(studentID string) (<-chan model.TeacherMessage, func(), error) {
	err := s.state.view(func(snap *model.Snapshot) error {
		_, err := findStudent(snap, studentID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.inbox.Subscribe(studentID)
	return ch, cancel, nil
}

// Interventions 每次调用都按当前学生状态重新计算。
// 原因文案里的 "Negative Sentiment Trend" 实际并不检查情绪趋势，只看掌握度
func (s *MessagingService) Interventions() ([]model.InterventionFlag, error) {
	now := s.state.Now()
	out := []model.InterventionFlag{}
	err := s.state.view(func(snap *model.Snapshot) error {
		for _, st := range snap.Students {
			if !st.AtRisk && st.MasteryScore >= InterventionMastery {
				continue
			}
			flag := model.InterventionFlag{
				ID:          "flag_" + st.ID,
				StudentID:   st.ID,
				StudentName: st.Name,
				Reason:      "Negative Sentiment Trend",
				Severity:    model.SeverityMedium,
				Timestamp:   now,
			}
			if st.MasteryScore < HighSeverityMastery {
				flag.Reason = "Critically Low Mastery"
				flag.Severity = model.SeverityHigh
			}
			out = append(out, flag)
		}
		return nil
	})
	return out, err
}
