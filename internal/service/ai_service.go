package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"h2ala_backend/internal/config"
	"h2ala_backend/internal/model"
	"h2ala_backend/pkg/monitoring"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

var ErrAIUnavailable = errors.New("ai backend unavailable")

type SuggestedAction string

const (
	ActionNone        SuggestedAction = "NONE"
	ActionReviewTopic SuggestedAction = "REVIEW_TOPIC"
	ActionFlagTeacher SuggestedAction = "FLAG_TEACHER"
)

// TutorReply 导师回复及其教学推理
type TutorReply struct {
	TutorResponse        string          `json:"tutor_response"`
	PedagogicalReasoning string          `json:"pedagogical_reasoning"`
	DetectedSentiment    model.Sentiment `json:"detected_sentiment"`
	SuggestedAction      SuggestedAction `json:"suggested_action"`
}

// TutorBackend 导师编排依赖的 AI 能力
type TutorBackend interface {
	SocraticReply(ctx context.Context, history []model.Message, text string, lang model.SupportedLanguage, att *model.Attachment) (*TutorReply, error)
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
	GenerateQuizQuestions(ctx context.Context, topic, difficulty string, count int) ([]model.QuizQuestion, error)
}

// AIService OpenAI 兼容的 /chat/completions 客户端
type AIService struct {
	mu     sync.RWMutex
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	s := &AIService{client: &http.Client{}}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig 配置热更新时调用
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *AIService) snapshotConfig() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []AIChatMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *AIService) complete(ctx context.Context, kind string, req ChatCompletionRequest) (string, error) {
	cfg := s.snapshotConfig()
	if cfg.BaseURL == "" {
		monitoring.AIRequests.WithLabelValues(kind, "unconfigured").Inc()
		return "", fmt.Errorf("%w: base url not configured", ErrAIUnavailable)
	}
	req.Model = cfg.Model

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		monitoring.AIRequests.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		monitoring.AIRequests.WithLabelValues(kind, "error").Inc()
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		monitoring.AIRequests.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("%w: status %d: %s", ErrAIUnavailable, resp.StatusCode, truncate(string(body), 512))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		monitoring.AIRequests.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("%w: decode response: %v", ErrAIUnavailable, err)
	}
	if result.Error != nil {
		monitoring.AIRequests.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("%w: %s", ErrAIUnavailable, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		monitoring.AIRequests.WithLabelValues(kind, "empty").Inc()
		return "", fmt.Errorf("%w: no choices returned", ErrAIUnavailable)
	}

	monitoring.AIRequests.WithLabelValues(kind, "ok").Inc()
	return result.Choices[0].Message.Content, nil
}

// truncate 按字符（rune）截断
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// stripCodeFence 去掉模型常见的 ```json 包裹
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

const socraticSystemPrompt = `You are a Socratic AI tutor. Guide the student towards the answer with questions and hints instead of giving the solution outright.
Reply in %s.
Respond ONLY with a JSON object with these fields:
"tutor_response": your reply to the student,
"pedagogical_reasoning": one or two sentences explaining your teaching choice,
"detected_sentiment": one of POSITIVE, NEUTRAL, NEGATIVE, FRUSTRATED,
"suggested_action": one of NONE, REVIEW_TOPIC, FLAG_TEACHER (use FLAG_TEACHER only if the student seems to need human help).`

func toChatMessage(m model.Message) AIChatMessage {
	role := "user"
	if m.Role == model.RoleModel {
		role = "assistant"
	}
	if m.Attachment == nil {
		return AIChatMessage{Role: role, Content: m.Content}
	}
	parts := []contentPart{}
	if m.Content != "" {
		parts = append(parts, contentPart{Type: "text", Text: m.Content})
	}
	if m.Attachment.Type == model.AttachmentImage {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:" + m.Attachment.MimeType + ";base64," + m.Attachment.Data},
		})
	} else {
		name := m.Attachment.Name
		if name == "" {
			name = string(m.Attachment.Type)
		}
		parts = append(parts, contentPart{Type: "text", Text: fmt.Sprintf("[attached %s: %s]", m.Attachment.MimeType, name)})
	}
	return AIChatMessage{Role: role, Content: parts}
}

// ParseTutorReply 非 JSON 回复按原文作为导师回复，情绪和建议取默认值
func ParseTutorReply(raw string) *TutorReply {
	var reply TutorReply
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &reply); err != nil || reply.TutorResponse == "" {
		return &TutorReply{
			TutorResponse:        strings.TrimSpace(raw),
			PedagogicalReasoning: "Response was not structured.",
			DetectedSentiment:    model.SentimentNeutral,
			SuggestedAction:      ActionNone,
		}
	}
	if !reply.DetectedSentiment.Valid() {
		reply.DetectedSentiment = model.SentimentNeutral
	}
	switch reply.SuggestedAction {
	case ActionNone, ActionReviewTopic, ActionFlagTeacher:
	default:
		reply.SuggestedAction = ActionNone
	}
	return &reply
}

func (s *AIService) SocraticReply(ctx context.Context, history []model.Message, text string, lang model.SupportedLanguage, att *model.Attachment) (*TutorReply, error) {
	if lang == "" {
		lang = model.LanguageEnglish
	}
	messages := []AIChatMessage{{Role: "system", Content: fmt.Sprintf(socraticSystemPrompt, lang)}}
	for _, m := range history {
		messages = append(messages, toChatMessage(m))
	}
	messages = append(messages, toChatMessage(model.Message{Role: model.RoleUser, Content: text, Attachment: att}))

	raw, err := s.complete(ctx, "socratic", ChatCompletionRequest{
		Messages:       messages,
		Temperature:    0.7,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}
	return ParseTutorReply(raw), nil
}

func (s *AIService) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	raw, err := s.complete(ctx, "title", ChatCompletionRequest{
		Messages: []AIChatMessage{
			{Role: "system", Content: "Summarise the student's message as a chat title of at most 5 words. Reply with the title only, no quotes."},
			{Role: "user", Content: firstMessage},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(stripCodeFence(raw)), `"'`)
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrAIUnavailable)
	}
	return truncate(title, 80), nil
}

type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Topic         string   `json:"topic"`
}

const quizSystemPrompt = `Write %d multiple-choice questions about "%s" at %s difficulty.
Respond ONLY with a JSON array; each element has "question", "options" (4 strings), "correctAnswer" (0-based index) and "topic".`

func (s *AIService) GenerateQuizQuestions(ctx context.Context, topic, difficulty string, count int) ([]model.QuizQuestion, error) {
	raw, err := s.complete(ctx, "quiz", ChatCompletionRequest{
		Messages: []AIChatMessage{
			{Role: "system", Content: fmt.Sprintf(quizSystemPrompt, count, topic, difficulty)},
			{Role: "user", Content: topic},
		},
		Temperature: 0.5,
	})
	if err != nil {
		return nil, err
	}
	return ParseQuizQuestions(raw, topic)
}

// ParseQuizQuestions 丢弃选项不足或答案越界的题目
func ParseQuizQuestions(raw, topic string) ([]model.QuizQuestion, error) {
	body := stripCodeFence(raw)

	var items []generatedQuestion
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		// 部分模型会包一层 {"questions": [...]}
		var wrapped struct {
			Questions []generatedQuestion `json:"questions"`
		}
		if err2 := json.Unmarshal([]byte(body), &wrapped); err2 != nil {
			return nil, fmt.Errorf("%w: quiz is not valid JSON: %v", ErrAIUnavailable, err)
		}
		items = wrapped.Questions
	}

	out := make([]model.QuizQuestion, 0, len(items))
	for _, it := range items {
		q := model.QuizQuestion{
			Question:      strings.TrimSpace(it.Question),
			Options:       it.Options,
			CorrectAnswer: it.CorrectAnswer,
			Topic:         it.Topic,
		}
		if q.Topic == "" {
			q.Topic = topic
		}
		if validateQuestion(q) != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
