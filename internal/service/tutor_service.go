package service

import (
	"context"
	"fmt"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"
	"h2ala_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
)

const defaultQuizSize = 5

var quizDifficulties = map[string]bool{"Easy": true, "Medium": true, "Hard": true}

// ChatTurn 一轮对话的结果
type ChatTurn struct {
	UserMessage     model.Message   `json:"userMessage"`
	Reply           model.Message   `json:"reply"`
	Title           string          `json:"title"`
	Sentiment       model.Sentiment `json:"sentiment"`
	SuggestedAction SuggestedAction `json:"suggestedAction"`
	Reasoning       string          `json:"reasoning"`
}

// TutorService 把学生消息、AI 导师和学习状态串起来
type TutorService struct {
	state         *LearnerState
	ai            TutorBackend
	conversations *ConversationService
	progress      *ProgressService
}

func NewTutorService(state *LearnerState, ai TutorBackend, conversations *ConversationService, progress *ProgressService) *TutorService {
	return &TutorService{state: state, ai: ai, conversations: conversations, progress: progress}
}

func (s *TutorService) studentLanguage(studentID string) (model.SupportedLanguage, error) {
	var lang model.SupportedLanguage
	err := s.state.view(func(snap *model.Snapshot) error {
		st, err := findStudent(snap, studentID)
		if err != nil {
			return err
		}
		lang = st.PreferredLanguage
		return nil
	})
	return lang, err
}

// SendChatMessage 保存学生消息，必要时自动起标题，然后请求导师回复并记录决策日志、情绪和风险标记。
// AI 调用失败时学生消息保留，不写入导师回复
func (s *TutorService) SendChatMessage(ctx context.Context, studentID, conversationID, text string, att *model.Attachment) (*ChatTurn, error) {
	lang, err := s.studentLanguage(studentID)
	if err != nil {
		return nil, err
	}
	prior, err := s.conversations.GetConversation(studentID, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.conversations.AppendMessage(ctx, studentID, conversationID, model.Message{
		Role:       model.RoleUser,
		Content:    text,
		Attachment: att,
	})
	if err != nil {
		return nil, err
	}

	turn := &ChatTurn{UserMessage: userMsg, Title: prior.Title}

	if prior.Title == util.DefaultChatTitle && len(prior.Messages) <= 1 && strings.TrimSpace(text) != "" {
		title, err := s.ai.GenerateTitle(ctx, text)
		if err != nil {
			logger.Log.Warn("Chat title generation failed", zap.String("conversationId", conversationID), zap.Error(err))
		} else if err := s.conversations.RenameConversation(ctx, studentID, conversationID, title); err == nil {
			turn.Title = title
		}
	}

	reply, err := s.ai.SocraticReply(ctx, prior.Messages, text, lang, att)
	if err != nil {
		logger.Log.Error("Tutor reply failed", zap.String("studentId", studentID), zap.Error(err))
		return turn, fmt.Errorf("tutor reply: %w", err)
	}

	input := text
	if strings.TrimSpace(input) == "" {
		input = util.AttachmentPlaceholder
	}

	err = s.state.mutate(ctx, "tutor_reply", func(snap *model.Snapshot) error {
		st, conv, err := findConversation(snap, studentID, conversationID)
		if err != nil {
			return err
		}
		now := s.state.Now()
		turn.Reply = appendMessageLocked(conv, model.Message{
			Role:    model.RoleModel,
			Content: reply.TutorResponse,
		}, now)

		addLogLocked(snap, &model.AIDecisionLog{
			StudentID:    studentID,
			StudentInput: input,
			AIOutput:     reply.TutorResponse,
			Reasoning:    reply.PedagogicalReasoning,
		}, now)

		st.SentimentTrend = append(st.SentimentTrend, reply.DetectedSentiment)
		if reply.SuggestedAction == ActionFlagTeacher {
			st.AtRisk = true
		}
		return nil
	})
	if err != nil {
		return turn, err
	}

	turn.Sentiment = reply.DetectedSentiment
	turn.SuggestedAction = reply.SuggestedAction
	turn.Reasoning = reply.PedagogicalReasoning
	return turn, nil
}

// GenerateQuiz 让 AI 出题并新建一个 "<主题> (<难度>)" 模块
func (s *TutorService) GenerateQuiz(ctx context.Context, studentID, topic, difficulty string) (model.ModuleStats, []model.QuizQuestion, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return model.ModuleStats{}, nil, fmt.Errorf("%w: topic is required", util.ErrInvalidArgument)
	}
	if difficulty == "" {
		difficulty = "Medium"
	}
	if !quizDifficulties[difficulty] {
		return model.ModuleStats{}, nil, fmt.Errorf("%w: difficulty must be Easy, Medium or Hard", util.ErrInvalidArgument)
	}
	if _, err := s.studentLanguage(studentID); err != nil {
		return model.ModuleStats{}, nil, err
	}

	questions, err := s.ai.GenerateQuizQuestions(ctx, topic, difficulty, defaultQuizSize)
	if err != nil {
		return model.ModuleStats{}, nil, fmt.Errorf("generate quiz: %w", err)
	}
	if len(questions) == 0 {
		return model.ModuleStats{}, nil, fmt.Errorf("%w: no usable questions generated", ErrAIUnavailable)
	}

	mod, err := s.progress.CreateAIModule(ctx, studentID, fmt.Sprintf("%s (%s)", topic, difficulty), questions)
	if err != nil {
		return model.ModuleStats{}, nil, err
	}
	bank, err := s.progress.GetModuleQuestions(mod.ID)
	return mod, bank, err
}
