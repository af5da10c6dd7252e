package service

import (
	"context"
	"errors"
	"testing"

	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTutor struct {
	reply      *TutorReply
	replyErr   error
	title      string
	titleCalls int
	history    []model.Message
	questions  []model.QuizQuestion
}

func (f *fakeTutor) SocraticReply(ctx context.Context, history []model.Message, text string, lang model.SupportedLanguage, att *model.Attachment) (*TutorReply, error) {
	f.history = history
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	return f.reply, nil
}

func (f *fakeTutor) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	f.titleCalls++
	return f.title, nil
}

func (f *fakeTutor) GenerateQuizQuestions(ctx context.Context, topic, difficulty string, count int) ([]model.QuizQuestion, error) {
	return f.questions, nil
}

func newTutorFixture(t *testing.T, ai *fakeTutor) (*fixture, *TutorService) {
	f := newFixture(t)
	return f, NewTutorService(f.state, ai, f.conversations, f.progress)
}

func TestSendChatMessageFullTurn(t *testing.T) {
	ai := &fakeTutor{
		title: "Solving linear equations",
		reply: &TutorReply{
			TutorResponse:        "What happens if you subtract 4 from both sides?",
			PedagogicalReasoning: "Scaffolding",
			DetectedSentiment:    model.SentimentFrustrated,
			SuggestedAction:      ActionFlagTeacher,
		},
	}
	f, tutor := newTutorFixture(t, ai)
	ctx := context.Background()

	conv, err := f.conversations.StartConversation(ctx, "s1")
	require.NoError(t, err)

	turn, err := tutor.SendChatMessage(ctx, "s1", conv.ID, "I don't get 2x + 4 = 12", nil)
	require.NoError(t, err)
	assert.Equal(t, "Solving linear equations", turn.Title)
	assert.Equal(t, model.RoleModel, turn.Reply.Role)
	assert.Len(t, ai.history, 1, "history excludes the new message")

	got, _ := f.conversations.GetConversation("s1", conv.ID)
	assert.Equal(t, "Solving linear equations", got.Title)
	require.Len(t, got.Messages, 3)

	st, _ := f.identity.Student("s1")
	assert.True(t, st.AtRisk)
	assert.Equal(t, model.SentimentFrustrated, st.SentimentTrend[len(st.SentimentTrend)-1])

	logs, _ := f.library.Logs()
	assert.Equal(t, "I don't get 2x + 4 = 12", logs[0].StudentInput)
	assert.Equal(t, "Scaffolding", logs[0].Reasoning)

	// 第二轮不再自动起标题
	_, err = tutor.SendChatMessage(ctx, "s1", conv.ID, "ok", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ai.titleCalls)
}

func TestSendChatMessageAttachmentOnly(t *testing.T) {
	ai := &fakeTutor{reply: &TutorReply{TutorResponse: "Nice diagram", DetectedSentiment: model.SentimentPositive, SuggestedAction: ActionNone}}
	f, tutor := newTutorFixture(t, ai)
	ctx := context.Background()
	conv, _ := f.conversations.CreateConversation(ctx, "s2", "")

	att := &model.Attachment{Type: model.AttachmentImage, MimeType: "image/jpeg", Data: "/9j/"}
	_, err := tutor.SendChatMessage(ctx, "s2", conv.ID, "", att)
	require.NoError(t, err)

	logs, _ := f.library.Logs()
	assert.Equal(t, util.AttachmentPlaceholder, logs[0].StudentInput)
	assert.Zero(t, ai.titleCalls, "no title from an empty prompt")

	st, _ := f.identity.Student("s2")
	assert.True(t, st.AtRisk, "seeded flag is kept")
}

func TestSendChatMessageBackendFailureKeepsUserMessage(t *testing.T) {
	ai := &fakeTutor{replyErr: ErrAIUnavailable, title: "x"}
	f, tutor := newTutorFixture(t, ai)
	ctx := context.Background()
	conv, _ := f.conversations.CreateConversation(ctx, "s1", "Physics")

	_, err := tutor.SendChatMessage(ctx, "s1", conv.ID, "help", nil)
	assert.True(t, errors.Is(err, ErrAIUnavailable))

	got, _ := f.conversations.GetConversation("s1", conv.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "Physics", got.Title)
}

func TestGenerateQuizCreatesModule(t *testing.T) {
	ai := &fakeTutor{questions: []model.QuizQuestion{
		{Question: "Speed of light?", Options: []string{"3e8 m/s", "340 m/s"}, CorrectAnswer: 0},
	}}
	f, tutor := newTutorFixture(t, ai)

	mod, qs, err := tutor.GenerateQuiz(context.Background(), "s3", "Optics", "Hard")
	require.NoError(t, err)
	assert.Equal(t, "Optics (Hard)", mod.Name)
	require.Len(t, qs, 1)
	assert.Equal(t, mod.ID, qs[0].ModuleID)

	mods, _ := f.progress.Modules("s3")
	assert.Equal(t, mod.ID, mods[0].ID)

	_, _, err = tutor.GenerateQuiz(context.Background(), "s3", "Optics", "Impossible")
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	ai.questions = nil
	_, _, err = tutor.GenerateQuiz(context.Background(), "s3", "Optics", "Easy")
	assert.ErrorIs(t, err, ErrAIUnavailable)
}
