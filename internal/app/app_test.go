package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"h2ala_backend/internal/config"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/repository"
	"h2ala_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: "test"},
		JWT:       config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: "local", SnapshotKey: "app_test"},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
	}
	a := &App{Config: cfg}
	require.NoError(t, a.assemble(context.Background(), repository.NewMemorySlotStore(), service.WithBcryptCost(bcrypt.MinCost)))
	return a
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func login(t *testing.T, h http.Handler, email, password string, role model.UserRole) string {
	t.Helper()
	code, env := call(t, h, http.MethodPost, "/api/login", "", map[string]any{
		"email": email, "password": password, "role": role,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var res service.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestStudentAndTeacherFlow(t *testing.T) {
	a := newTestApp(t)
	r := a.Router

	code, _ := call(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := call(t, r, http.MethodPost, "/api/register", "", map[string]any{
		"name": "Priya", "email": "priya@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var student model.StudentProfile
	require.NoError(t, json.Unmarshal(env.Data, &student))
	assert.Empty(t, student.Password)

	code, _ = call(t, r, http.MethodPost, "/api/register", "", map[string]any{
		"name": "Again", "email": "PRIYA@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, r, http.MethodPost, "/api/register", "", map[string]any{
		"name": "Teach", "email": "teach@example.com", "password": "secret1", "role": model.RoleTeacher,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, r, http.MethodPost, "/api/login", "", map[string]any{
		"email": "priya@example.com", "password": "wrong-pass", "role": model.RoleStudent,
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	token := login(t, r, "priya@example.com", "secret1", model.RoleStudent)

	code, env = call(t, r, http.MethodGet, "/api/student/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	var profile model.StudentProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, student.ID, profile.ID)
	assert.Empty(t, profile.Password)

	code, _ = call(t, r, http.MethodGet, "/api/teacher/students", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// 起始模块 m1 的两道题答案分别为 1 和 0
	code, env = call(t, r, http.MethodPost, "/api/student/modules/m1/quiz", token, map[string]any{"answers": []int{1, 0}})
	require.Equal(t, http.StatusOK, code, env.Message)
	var result service.QuizResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Passed)
	assert.Equal(t, 100, result.Percentage)

	code, _ = call(t, r, http.MethodPost, "/api/student/modules/nope/score", token, map[string]any{"masteryDelta": 5})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = call(t, r, http.MethodPost, "/api/student/conversations", token, nil)
	require.Equal(t, http.StatusCreated, code)
	var conv model.ChatConversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))

	// AI 未配置：学生消息保留，返回 502
	code, env = call(t, r, http.MethodPost, "/api/student/conversations/"+conv.ID+"/chat", token, map[string]any{"text": "help me"})
	require.Equal(t, http.StatusBadGateway, code)
	var turn service.ChatTurn
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.Equal(t, "help me", turn.UserMessage.Content)

	code, env = call(t, r, http.MethodGet, "/api/student/conversations/"+conv.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)

	teacherToken := login(t, r, "teacher@school.edu", model.SeedPassword, model.RoleTeacher)
	code, _ = call(t, r, http.MethodPost, "/api/teacher/students/"+student.ID+"/messages", teacherToken, map[string]any{"content": "Nice quiz!"})
	require.Equal(t, http.StatusCreated, code)

	code, env = call(t, r, http.MethodGet, "/api/student/messages", token, nil)
	require.Equal(t, http.StatusOK, code)
	var msgs []model.TeacherMessage
	require.NoError(t, json.Unmarshal(env.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "Nice quiz!", msgs[0].Content)
	assert.False(t, msgs[0].Read)

	code, _ = call(t, r, http.MethodPost, "/api/student/messages/"+msgs[0].ID+"/read", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, r, http.MethodGet, "/api/teacher/logs", teacherToken, nil)
	require.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInboxWebSocketPush(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	token := login(t, a.Router, "alice@example.com", model.SeedPassword, model.RoleStudent)
	teacherToken := login(t, a.Router, "teacher@school.edu", model.SeedPassword, model.RoleTeacher)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/student/inbox/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	code, _ := call(t, a.Router, http.MethodPost, "/api/teacher/students/s1/messages", teacherToken, map[string]any{"content": "Check module 2"})
	require.Equal(t, http.StatusCreated, code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event struct {
		Type string               `json:"type"`
		Data model.TeacherMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "TEACHER_MESSAGE", event.Type)
	assert.Equal(t, "s1", event.Data.StudentID)
	assert.Equal(t, "Check module 2", event.Data.Content)
}

func TestInboxRequiresToken(t *testing.T) {
	a := newTestApp(t)
	code, _ := call(t, a.Router, http.MethodGet, "/api/student/inbox/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
