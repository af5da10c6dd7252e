package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"h2ala_backend/internal/config"
	"h2ala_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, inspect func(req ChatCompletionRequest, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if inspect != nil {
			inspect(req, r)
		}
		resp := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSocraticReplyParsesFencedJSON(t *testing.T) {
	content := "```json\n{\"tutor_response\":\"Try again\",\"pedagogical_reasoning\":\"hint\",\"detected_sentiment\":\"NEGATIVE\",\"suggested_action\":\"REVIEW_TOPIC\"}\n```"
	srv := completionServer(t, content, func(req ChatCompletionRequest, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "tutor-model", req.Model)
		assert.Len(t, req.Messages, 3)
	})

	ai := NewAIService(config.AIConfig{BaseURL: srv.URL + "/v1", APIKey: "key", Model: "tutor-model"})
	reply, err := ai.SocraticReply(context.Background(),
		[]model.Message{{Role: model.RoleModel, Content: "Hello"}}, "help", model.LanguageHindi, nil)
	require.NoError(t, err)
	assert.Equal(t, "Try again", reply.TutorResponse)
	assert.Equal(t, model.SentimentNegative, reply.DetectedSentiment)
	assert.Equal(t, ActionReviewTopic, reply.SuggestedAction)
}

func TestParseTutorReplyFallbacks(t *testing.T) {
	plain := ParseTutorReply("Just think about it.")
	assert.Equal(t, "Just think about it.", plain.TutorResponse)
	assert.Equal(t, model.SentimentNeutral, plain.DetectedSentiment)
	assert.Equal(t, ActionNone, plain.SuggestedAction)

	odd := ParseTutorReply(`{"tutor_response":"ok","detected_sentiment":"ANGRY","suggested_action":"CALL_PARENTS"}`)
	assert.Equal(t, model.SentimentNeutral, odd.DetectedSentiment)
	assert.Equal(t, ActionNone, odd.SuggestedAction)
}

func TestGenerateQuizQuestionsDropsInvalid(t *testing.T) {
	content := `{"questions":[
		{"question":"Q1","options":["a","b","c","d"],"correctAnswer":2},
		{"question":"Q2","options":["a"],"correctAnswer":0},
		{"question":"Q3","options":["a","b"],"correctAnswer":9}
	]}`
	srv := completionServer(t, content, nil)
	ai := NewAIService(config.AIConfig{BaseURL: srv.URL + "/v1", Model: "m"})

	qs, err := ai.GenerateQuizQuestions(context.Background(), "Optics", "Easy", 3)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "Q1", qs[0].Question)
	assert.Equal(t, "Optics", qs[0].Topic)
}

func TestGenerateTitleTrimsQuotes(t *testing.T) {
	srv := completionServer(t, `"Newton's Second Law"`, nil)
	ai := NewAIService(config.AIConfig{BaseURL: srv.URL + "/v1"})

	title, err := ai.GenerateTitle(context.Background(), "what is F = ma")
	require.NoError(t, err)
	assert.Equal(t, "Newton's Second Law", title)
}

func TestGenerateTitleKeepsRunesWhole(t *testing.T) {
	srv := completionServer(t, strings.Repeat("गणित", 30), nil)
	ai := NewAIService(config.AIConfig{BaseURL: srv.URL + "/v1"})

	title, err := ai.GenerateTitle(context.Background(), "बीजगणित समझाइए")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, 83, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
}

func TestAIServiceErrors(t *testing.T) {
	_, err := NewAIService(config.AIConfig{}).GenerateTitle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrAIUnavailable)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	_, err = NewAIService(config.AIConfig{BaseURL: srv.URL}).GenerateTitle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrAIUnavailable)
	assert.Contains(t, err.Error(), "429")
}

func TestToChatMessageImageAttachment(t *testing.T) {
	msg := toChatMessage(model.Message{
		Role:       model.RoleUser,
		Content:    "what is this",
		Attachment: &model.Attachment{Type: model.AttachmentImage, MimeType: "image/png", Data: "AAA"},
	})
	parts, ok := msg.Content.([]contentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "data:image/png;base64,AAA", parts[1].ImageURL.URL)
}
