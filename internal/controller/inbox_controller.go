package controller

import (
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/service"
	"h2ala_backend/pkg/logger"
	"h2ala_backend/pkg/monitoring"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 连接已经过 JWT 校验，这里不再限制来源
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InboxEvent 推送给客户端的帧
type InboxEvent struct {
	Type string               `json:"type"`
	Data model.TeacherMessage `json:"data"`
}

const inboxEventTeacherMessage = "TEACHER_MESSAGE"

type InboxController struct {
	Messaging *service.MessagingService
}

func NewInboxController(messaging *service.MessagingService) *InboxController {
	return &InboxController{Messaging: messaging}
}

// HandleWS godoc
// @Summary 学生收件箱 WebSocket
// @Description 教师发送的新消息实时推送，令牌可通过 token 查询参数传递
// @Tags 学生
// @Router /api/student/inbox/ws [get]
func (c *InboxController) HandleWS(ctx *gin.Context) {
	studentID := currentUserID(ctx)
	msgs, cancel, err := c.Messaging.SubscribeInbox(studentID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		cancel()
		logger.Log.Warn("Inbox upgrade failed", zap.String("studentId", studentID), zap.Error(err))
		return
	}

	monitoring.InboxConnections.Inc()
	done := make(chan struct{})
	go func() {
		readPump(conn, studentID)
		close(done)
	}()
	writePump(conn, msgs, done)

	cancel()
	monitoring.InboxConnections.Dec()
}

// readPump 只处理 pong 和关闭，客户端上行内容一律丢弃
func readPump(conn *websocket.Conn, studentID string) {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("Inbox unexpected close", zap.Error(err), zap.String("studentId", studentID))
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, msgs <-chan model.TeacherMessage, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-msgs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(InboxEvent{Type: inboxEventTeacherMessage, Data: msg}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
