package service

import (
	"context"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"
	"slices"
	"strings"
	"time"
)

type ConversationService struct {
	state *LearnerState
}

func NewConversationService(state *LearnerState) *ConversationService {
	return &ConversationService{state: state}
}

func findConversation(snap *model.Snapshot, studentID, conversationID string) (*model.StudentProfile, *model.ChatConversation, error) {
	st, err := findStudent(snap, studentID)
	if err != nil {
		return nil, nil, err
	}
	conv := st.Conversation(conversationID)
	if conv == nil {
		return nil, nil, fmt.Errorf("%w: %s", util.ErrConversationNotFound, conversationID)
	}
	return st, conv, nil
}

func newConversation(title string, now time.Time) model.ChatConversation {
	if strings.TrimSpace(title) == "" {
		title = util.DefaultChatTitle
	}
	return model.ChatConversation{
		ID:        model.NewID("conv"),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []model.Message{},
	}
}

// CreateConversation 新会话插在列表最前，createdAt 与 updatedAt 相同
func (s *ConversationService) CreateConversation(ctx context.Context, studentID, title string) (model.ChatConversation, error) {
	var out model.ChatConversation
	err := s.state.mutate(ctx, "create_conversation", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		conv := newConversation(title, s.state.Now())
		st.Conversations = append([]model.ChatConversation{conv}, st.Conversations...)
		out = conv.Clone()
		return nil
	})
	return out, err
}

// StartConversation 新建会话并写入导师的欢迎语
func (s *ConversationService) StartConversation(ctx context.Context, studentID string) (model.ChatConversation, error) {
	var out model.ChatConversation
	err := s.state.mutate(ctx, "start_conversation", func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		now := s.state.Now()
		conv := newConversation("", now)
		conv.Messages = append(conv.Messages, model.Message{
			ID:        model.NewID("msg"),
			Role:      model.RoleModel,
			Content:   util.WelcomeMessage,
			Timestamp: now,
		})
		st.Conversations = append([]model.ChatConversation{conv}, st.Conversations...)
		out = conv.Clone()
		return nil
	})
	return out, err
}

func validateMessage(msg model.Message) error {
	if msg.Role != model.RoleUser && msg.Role != model.RoleModel {
		return fmt.Errorf("%w: unknown role %q", util.ErrInvalidArgument, msg.Role)
	}
	if strings.TrimSpace(msg.Content) == "" && msg.Attachment == nil {
		return fmt.Errorf("%w: message needs content or an attachment", util.ErrInvalidArgument)
	}
	if a := msg.Attachment; a != nil {
		if a.Data == "" {
			return fmt.Errorf("%w: attachment has no data", util.ErrInvalidArgument)
		}
		var ok bool
		switch a.Type {
		case model.AttachmentImage:
			ok = strings.HasPrefix(a.MimeType, util.MimeImage)
		case model.AttachmentAudio:
			ok = strings.HasPrefix(a.MimeType, util.MimeAudio)
		case model.AttachmentPDF:
			ok = a.MimeType == util.MimePDF
		}
		if !ok {
			return fmt.Errorf("%w: attachment type %q does not match mime %q", util.ErrInvalidArgument, a.Type, a.MimeType)
		}
	}
	return nil
}

func appendMessageLocked(conv *model.ChatConversation, msg model.Message, now time.Time) model.Message {
	msg = msg.Clone()
	if msg.ID == "" {
		msg.ID = model.NewID("msg")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = now
	return msg.Clone()
}

// AppendMessage 消息只追加，同时刷新会话的 updatedAt
func (s *ConversationService) AppendMessage(ctx context.Context, studentID, conversationID string, msg model.Message) (model.Message, error) {
	if err := validateMessage(msg); err != nil {
		return model.Message{}, err
	}

	var out model.Message
	err := s.state.mutate(ctx, "append_message", func(snap *model.Snapshot) error {
		_, conv, err := findConversation(snap, studentID, conversationID)
		if err != nil {
			return err
		}
		out = appendMessageLocked(conv, msg, s.state.Now())
		return nil
	})
	return out, err
}

// RenameConversation 直接覆盖标题，是否只改一次由调用方决定
func (s *ConversationService) RenameConversation(ctx context.Context, studentID, conversationID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title must not be empty", util.ErrInvalidArgument)
	}
	return s.state.mutate(ctx, "rename_conversation", func(snap *model.Snapshot) error {
		_, conv, err := findConversation(snap, studentID, conversationID)
		if err != nil {
			return err
		}
		conv.Title = title
		return nil
	})
}

// ListConversations 按 updatedAt 倒序返回深拷贝，相同时间保持存储顺序（后创建的在前）
func (s *ConversationService) ListConversations(studentID string) ([]model.ChatConversation, error) {
	var out []model.ChatConversation
	err := s.state.view(func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		out = make([]model.ChatConversation, 0, len(st.Conversations))
		for _, c := range st.Conversations {
			out = append(out, c.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b model.ChatConversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (s *ConversationService) GetConversation(studentID, conversationID string) (model.ChatConversation, error) {
	var out model.ChatConversation
	err := s.state.view(func(snap *model.Snapshot) error {
		_, conv, err := findConversation(snap, studentID, conversationID)
		if err != nil {
			return err
		}
		out = conv.Clone()
		return nil
	})
	return out, err
}
